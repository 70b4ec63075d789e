package extractor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/xhad/wikivec/internal/models"
	"github.com/xhad/wikivec/internal/types"
	"github.com/xhad/wikivec/pkg/processor"
	"github.com/xhad/wikivec/pkg/wiki"
	"golang.org/x/sync/errgroup"
)

type ExtractorConfig struct {
	WorkerCount int
	LogEvery    int
	// BatchSize is the number of pages read ahead and tokenized in parallel.
	BatchSize  int
	Processor  processor.ProcessorConfig
	OnProgress func(saved int)
}

type Extractor struct {
	config    ExtractorConfig
	processor processor.Processor
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.WorkerCount <= 0 {
		config.WorkerCount = 15
	}
	if config.LogEvery <= 0 {
		config.LogEvery = 10000
	}
	if config.BatchSize <= 0 {
		config.BatchSize = config.WorkerCount * 64
	}

	return &Extractor{
		config:    config,
		processor: processor.NewWithConfig(config.Processor),
	}
}

// Extract converts the dump at dumpPath into a corpus file at corpusPath
// and returns the number of articles written. On failure the partial
// corpus file is left behind.
func (e *Extractor) Extract(ctx context.Context, dumpPath, corpusPath string) (int, error) {
	reader, err := wiki.Open(dumpPath)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	output, err := os.Create(corpusPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create corpus file: %w", err)
	}
	defer output.Close()

	saved, err := e.ExtractFrom(ctx, reader, output)
	if err != nil {
		return saved, err
	}
	if err := output.Close(); err != nil {
		return saved, fmt.Errorf("failed to close corpus file: %w", err)
	}
	return saved, nil
}

// ExtractFrom writes one line per kept article of reader to w, in reader order.
func (e *Extractor) ExtractFrom(ctx context.Context, reader types.ArticleReader, w io.Writer) (int, error) {
	writer := bufio.NewWriterSize(w, 1<<20)
	saved := 0

	batch := make([]models.Article, 0, e.config.BatchSize)
	for {
		done, err := e.readBatch(reader, &batch)
		if err != nil {
			return saved, err
		}

		docs, err := e.processBatch(ctx, batch)
		if err != nil {
			return saved, err
		}

		for _, doc := range docs {
			if doc == nil {
				continue
			}
			if _, err := writer.WriteString(strings.Join(doc.Tokens, " ") + "\n"); err != nil {
				return saved, fmt.Errorf("failed to write corpus line: %w", err)
			}
			saved++
			if saved%e.config.LogEvery == 0 {
				log.Printf("Saved %d articles", saved)
			}
			if e.config.OnProgress != nil {
				e.config.OnProgress(saved)
			}
		}

		if done {
			break
		}
	}

	if err := writer.Flush(); err != nil {
		return saved, fmt.Errorf("failed to flush corpus: %w", err)
	}
	log.Printf("Finished Saved %d articles", saved)
	return saved, nil
}

func (e *Extractor) readBatch(reader types.ArticleReader, batch *[]models.Article) (bool, error) {
	*batch = (*batch)[:0]
	for len(*batch) < e.config.BatchSize {
		article, err := reader.Next()
		if err == io.EOF {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		*batch = append(*batch, article)
	}
	return false, nil
}

// processBatch tokenizes a batch on WorkerCount goroutines. Filtered
// articles leave a nil slot so the caller can keep dump order.
func (e *Extractor) processBatch(ctx context.Context, batch []models.Article) ([]*models.ProcessedDocument, error) {
	results := make([]*models.ProcessedDocument, len(batch))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.WorkerCount)

	for i, article := range batch {
		i, article := i, article
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if doc, ok := e.processor.ProcessArticle(article); ok {
				results[i] = &doc
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
