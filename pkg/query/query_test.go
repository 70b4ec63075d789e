package query

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/wikivec/internal/models"
)

type fakeSearcher struct {
	neighbors []models.Neighbor
	err       error
}

func (f fakeSearcher) MostSimilar(ctx context.Context, positive, negative []string, n int) ([]models.Neighbor, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.neighbors[:min(n, len(f.neighbors))], nil
}

func TestMain(m *testing.M) {
	color.NoColor = true
	m.Run()
}

func TestSimilar(t *testing.T) {
	searcher := fakeSearcher{neighbors: []models.Neighbor{
		{Word: "queen", Score: 0.71},
		{Word: "princess", Score: 0.55},
		{Word: "monarch", Score: 0.5},
	}}

	var buf bytes.Buffer
	got, err := Similar(context.Background(), searcher, []string{"king", "woman"}, []string{"man"}, 2, &buf)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "positive=[king woman] negative=[man]", lines[0])
	assert.Equal(t, "queen 0.710000", lines[1])
	assert.Equal(t, "princess 0.550000", lines[2])
}

func TestSimilarUnknownWord(t *testing.T) {
	searcher := fakeSearcher{err: models.UnknownWordError{Word: "empress"}}

	var buf bytes.Buffer
	got, err := Similar(context.Background(), searcher, []string{"empress"}, nil, 10, &buf)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Contains(t, buf.String(), `word not in vocabulary: "empress"`)
}

func TestSimilarOtherError(t *testing.T) {
	searcher := fakeSearcher{err: errors.New("connection refused")}

	var buf bytes.Buffer
	_, err := Similar(context.Background(), searcher, []string{"king"}, nil, 10, &buf)
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, buf.String())
}
