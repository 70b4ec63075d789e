package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/xhad/wikivec/internal/types"
)

var _ embeddings.EmbedderClient = (*SentenceEmbedder)(nil)

// SentenceEmbedder embeds free text as the mean of its word vectors, which
// lets a trained model stand in for an embedding service in langchaingo.
type SentenceEmbedder struct {
	model     *Model
	tokenizer types.Tokenizer
}

func NewSentenceEmbedder(model *Model, tokenizer types.Tokenizer) *SentenceEmbedder {
	return &SentenceEmbedder{model: model, tokenizer: tokenizer}
}

// NewEmbedder wraps the model in langchaingo's embedder, which strips
// newlines and sends texts in batches of batchSize (library default when 0).
func NewEmbedder(model *Model, tokenizer types.Tokenizer, batchSize int) (*embeddings.EmbedderImpl, error) {
	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	return embeddings.NewEmbedder(NewSentenceEmbedder(model, tokenizer), opts...)
}

// CreateEmbedding returns one mean vector per text. Unknown tokens are
// skipped; a text with no known token is an error.
func (e *SentenceEmbedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.embed(text)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (e *SentenceEmbedder) embed(text string) ([]float32, error) {
	tokens := e.tokenizer.Tokenize(text)
	vectors := e.model.Vectors(tokens)

	mean := make([]float32, e.model.Dim())
	known := 0
	for _, token := range tokens {
		vec, ok := vectors[token]
		if !ok {
			continue
		}
		for i, v := range vec {
			mean[i] += v
		}
		known++
	}
	if known == 0 {
		return nil, fmt.Errorf("no known words in %q", text)
	}

	for i := range mean {
		mean[i] /= float32(known)
	}
	return mean, nil
}
