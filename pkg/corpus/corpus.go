// Package corpus reads corpus files: UTF-8 text, one document per line,
// tokens separated by single spaces.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var ErrEmptyCorpus = errors.New("corpus file is empty")

// LineSentence streams the tokenized lines of a corpus file. It is finite
// and restartable: Reset rewinds to the first line. It is also an
// io.ReadSeeker over the raw file for consumers that tokenize themselves.
type LineSentence struct {
	file   *os.File
	reader *bufio.Reader
	tokens []string
	err    error
}

func Open(path string) (*LineSentence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat corpus: %w", err)
	}
	if info.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyCorpus)
	}

	return &LineSentence{file: f, reader: bufio.NewReaderSize(f, 1<<20)}, nil
}

// Next advances to the next line. Blank lines are skipped.
func (s *LineSentence) Next() bool {
	for s.err == nil {
		line, err := s.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			s.err = err
			return false
		}
		if fields := strings.Fields(line); len(fields) > 0 {
			s.tokens = fields
			return true
		}
		if err == io.EOF {
			return false
		}
	}
	return false
}

// Tokens returns the current line. The slice is not reused between calls.
func (s *LineSentence) Tokens() []string {
	return s.tokens
}

func (s *LineSentence) Err() error {
	return s.err
}

func (s *LineSentence) Reset() error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}

func (s *LineSentence) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *LineSentence) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekCurrent {
		offset -= int64(s.reader.Buffered())
	}
	pos, err := s.file.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	s.reader.Reset(s.file)
	s.tokens = nil
	s.err = nil
	return pos, nil
}

func (s *LineSentence) Close() error {
	return s.file.Close()
}

// Stats counts lines, tokens and distinct tokens in one pass, then rewinds.
func (s *LineSentence) Stats() (lines, tokens, vocabulary int, err error) {
	seen := make(map[string]struct{})
	for s.Next() {
		lines++
		tokens += len(s.tokens)
		for _, t := range s.tokens {
			seen[t] = struct{}{}
		}
	}
	if err := s.Err(); err != nil {
		return 0, 0, 0, err
	}
	return lines, tokens, len(seen), s.Reset()
}

// Sample writes the first n lines of the corpus file at path to w.
func Sample(path string, n int, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open corpus: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	for i := 0; i < n; i++ {
		line, err := reader.ReadString('\n')
		if line != "" {
			if _, werr := io.WriteString(w, strings.TrimRight(line, "\n")+"\n"); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}
