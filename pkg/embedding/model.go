package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"code.sajari.com/word2vec"
	"github.com/xhad/wikivec/internal/models"
)

// Model answers similarity queries over a word2vec binary vector file.
type Model struct {
	model *word2vec.Model
}

func Load(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vectors: %w", err)
	}
	defer file.Close()

	return FromReader(file)
}

func FromReader(r io.Reader) (*Model, error) {
	model, err := word2vec.FromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return &Model{model: model}, nil
}

func (m *Model) Size() int {
	return m.model.Size()
}

func (m *Model) Dim() int {
	return m.model.Dim()
}

// MostSimilar returns the n words nearest by cosine similarity to
// sum(positive) - sum(negative), best first. Query words are never
// returned and n is capped at the vocabulary size. A word missing from
// the vocabulary yields models.UnknownWordError.
func (m *Model) MostSimilar(ctx context.Context, positive, negative []string, n int) ([]models.Neighbor, error) {
	if len(positive)+len(negative) == 0 {
		return nil, errors.New("no query words given")
	}
	if n < 1 {
		return nil, fmt.Errorf("number of neighbors must be positive, got %d", n)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	expr := word2vec.Expr{}
	exclude := make(map[string]bool, len(positive)+len(negative))
	for _, text := range positive {
		expr.Add(1, text)
		exclude[text] = true
	}
	for _, text := range negative {
		expr.Add(-1, text)
		exclude[text] = true
	}

	if m.model.Size() == 0 {
		word := ""
		if len(positive) > 0 {
			word = positive[0]
		} else {
			word = negative[0]
		}
		return nil, models.UnknownWordError{Word: word}
	}

	// CosN allocates every requested slot up front
	n = min(n, m.model.Size())
	matches, err := m.model.CosN(expr, min(n+len(exclude), m.model.Size()))
	if err != nil {
		if word, ok := notFound(err); ok {
			return nil, models.UnknownWordError{Word: word}
		}
		return nil, fmt.Errorf("error evaluating cosine similarity: %w", err)
	}

	neighbors := make([]models.Neighbor, 0, n)
	for _, match := range matches {
		if match.Word == "" || exclude[match.Word] {
			continue
		}
		neighbors = append(neighbors, models.Neighbor{Word: match.Word, Score: match.Score})
	}
	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Score > neighbors[j].Score
	})
	if len(neighbors) > n {
		neighbors = neighbors[:n]
	}
	return neighbors, nil
}

// Vectors returns the unit-length vectors of the known words among words.
func (m *Model) Vectors(words []string) map[string][]float32 {
	out := make(map[string][]float32)
	for w, v := range m.model.Map(words) {
		out[w] = v
	}
	return out
}

// notFound unwraps the library's missing-word error, which Model.Eval
// returns as a pointer and the cache wrapper as a value.
func notFound(err error) (string, bool) {
	var ptr *word2vec.NotFoundError
	if errors.As(err, &ptr) {
		return ptr.Word, true
	}
	var val word2vec.NotFoundError
	if errors.As(err, &val) {
		return val.Word, true
	}
	return "", false
}
