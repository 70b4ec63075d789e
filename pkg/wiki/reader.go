// Package wiki reads MediaWiki XML dumps and turns article wikitext into
// plain text.
//
// Dumps are available from http://dumps.wikimedia.org/, usually as
// bz2-compressed pages-articles files.
package wiki

import (
	"bufio"
	"compress/bzip2"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-wikiparse"
	"github.com/xhad/wikivec/internal/models"
)

// Reader yields the articles of one dump in file order.
type Reader struct {
	file   io.Closer
	parser wikiparse.Parser
}

// Open opens a dump file. Files ending in .bz2 are decompressed on the fly.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump: %w", err)
	}

	var r io.Reader = bufio.NewReaderSize(f, 1<<20)
	if strings.HasSuffix(path, ".bz2") {
		r = bzip2.NewReader(r)
	}

	reader, err := NewReader(r)
	if err != nil {
		f.Close()
		return nil, err
	}
	reader.file = f
	return reader, nil
}

// NewReader reads an uncompressed dump stream. The caller keeps ownership of r.
func NewReader(r io.Reader) (*Reader, error) {
	parser, err := wikiparse.NewParser(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump header: %w", err)
	}
	return &Reader{parser: parser}, nil
}

// Next returns the next page, io.EOF after the last one.
func (r *Reader) Next() (models.Article, error) {
	page, err := r.parser.Next()
	if err != nil {
		if err == io.EOF {
			return models.Article{}, io.EOF
		}
		return models.Article{}, fmt.Errorf("failed to parse page: %w", err)
	}

	article := models.Article{
		ID:        page.ID,
		Title:     page.Title,
		Namespace: page.Ns,
		Redirect:  page.Redir.Title,
	}
	if n := len(page.Revisions); n > 0 {
		article.Text = page.Revisions[n-1].Text
	}
	return article, nil
}

func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}
