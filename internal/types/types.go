package types

import (
	"context"

	"github.com/xhad/wikivec/internal/models"
)

// Core interfaces
type ArticleReader interface {
	Next() (models.Article, error)
	Close() error
}

type Tokenizer interface {
	Tokenize(text string) []string
}

type Converter interface {
	Convert(text string) (string, error)
}

// Searcher answers analogy queries: the n words closest to
// sum(positive) - sum(negative).
type Searcher interface {
	MostSimilar(ctx context.Context, positive, negative []string, n int) ([]models.Neighbor, error)
}
