package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/wikivec/internal/models"
	"github.com/xhad/wikivec/pkg/processor"
)

// analogyTable holds a tiny vocabulary where king - man + woman lands
// closest to queen, plus fillers so a top-10 query is always full.
func analogyTable(t *testing.T) *VectorTable {
	t.Helper()
	table := NewVectorTable(4)
	require.NoError(t, table.Add("king", []float32{1, 1, 0, 0}))
	require.NoError(t, table.Add("man", []float32{0, 1, 0, 0}))
	require.NoError(t, table.Add("woman", []float32{0, -1, 0, 0}))
	require.NoError(t, table.Add("queen", []float32{1, -1, 0, 0}))
	for i := 1; i <= 11; i++ {
		require.NoError(t, table.Add(fmt.Sprintf("filler%02d", i), []float32{0.5, -0.5, 0.1 * float32(i), 0.2}))
	}
	return table
}

func analogyModel(t *testing.T) *Model {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, analogyTable(t).WriteWord2VecFormat(&buf))
	model, err := FromReader(&buf)
	require.NoError(t, err)
	return model
}

func TestWord2VecFormatRoundTrip(t *testing.T) {
	table := analogyTable(t)

	var buf bytes.Buffer
	require.NoError(t, table.WriteWord2VecFormat(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "15 4\n"))

	got, err := ReadWord2VecFormat(&buf)
	require.NoError(t, err)
	assert.Equal(t, table.Words, got.Words)
	for _, w := range table.Words {
		want, _ := table.Vector(w)
		vec, ok := got.Vector(w)
		require.True(t, ok, w)
		assert.Equal(t, want, vec)
	}
}

func TestReadWord2VecFormatTruncated(t *testing.T) {
	_, err := ReadWord2VecFormat(strings.NewReader("2 4\nking \x00\x00"))
	assert.Error(t, err)

	_, err = ReadWord2VecFormat(strings.NewReader("not a header\n"))
	assert.Error(t, err)
}

func TestReadNative(t *testing.T) {
	input := "3 2\nking 0.5 -0.25\nqueen 1.0 2\n\nman 0 0\n"
	table, err := ReadNative(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 2, table.Dim)
	assert.Equal(t, []string{"king", "queen", "man"}, table.Words)
	vec, ok := table.Vector("king")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, -0.25}, vec)

	_, err = ReadNative(strings.NewReader("king 1 2\nqueen 1\n"))
	assert.Error(t, err, "ragged dimensions")
}

func TestVectorTableAdd(t *testing.T) {
	table := NewVectorTable(2)
	require.NoError(t, table.Add("a", []float32{1, 2}))
	require.NoError(t, table.Add("a", []float32{3, 4}))
	assert.Error(t, table.Add("b", []float32{1}))

	assert.Equal(t, 1, table.Len())
	assert.Equal(t, []models.WordVector{{Word: "a", Vector: []float32{1, 2}}}, table.WordVectors())
}

func TestMostSimilar(t *testing.T) {
	model := analogyModel(t)
	assert.Equal(t, 15, model.Size())
	assert.Equal(t, 4, model.Dim())

	neighbors, err := model.MostSimilar(context.Background(), []string{"king", "woman"}, []string{"man"}, 10)
	require.NoError(t, err)
	require.Len(t, neighbors, 10)

	assert.Equal(t, "queen", neighbors[0].Word)
	assert.True(t, sort.SliceIsSorted(neighbors, func(i, j int) bool {
		return neighbors[i].Score > neighbors[j].Score
	}))
	for _, n := range neighbors {
		assert.NotContains(t, []string{"king", "woman", "man"}, n.Word)
	}
}

func TestMostSimilarUnknownWord(t *testing.T) {
	model := analogyModel(t)

	_, err := model.MostSimilar(context.Background(), []string{"king", "empress"}, []string{"man"}, 10)
	var unknown models.UnknownWordError
	require.True(t, errors.As(err, &unknown), "got %v", err)
	assert.Equal(t, "empress", unknown.Word)

	_, err = model.MostSimilar(context.Background(), nil, nil, 10)
	assert.Error(t, err)
}

func TestMostSimilarNeighborBounds(t *testing.T) {
	model := analogyModel(t)
	ctx := context.Background()

	for _, n := range []int{0, -1} {
		_, err := model.MostSimilar(ctx, []string{"king"}, nil, n)
		assert.Error(t, err, "n=%d", n)
	}

	// Far more than the vocabulary holds: everything but the query words
	// that scores above zero, without allocating n slots.
	neighbors, err := model.MostSimilar(ctx, []string{"king", "woman"}, []string{"man"}, 1<<62)
	require.NoError(t, err)
	assert.Len(t, neighbors, 12)
	assert.Equal(t, "queen", neighbors[0].Word)
}

func TestMostSimilarEmptyVocabulary(t *testing.T) {
	model, err := FromReader(strings.NewReader("0 4\n"))
	require.NoError(t, err)

	_, err = model.MostSimilar(context.Background(), nil, []string{"man"}, 10)
	var unknown models.UnknownWordError
	require.True(t, errors.As(err, &unknown), "got %v", err)
	assert.Equal(t, "man", unknown.Word)
}

func TestSentenceEmbedder(t *testing.T) {
	model := analogyModel(t)
	tokenizer := processor.NewWithConfig(processor.ProcessorConfig{})
	embedder, err := NewEmbedder(model, &tokenizer, 1)
	require.NoError(t, err)

	vec, err := embedder.EmbedQuery(context.Background(), "The King\nand the unknownword")
	require.NoError(t, err)
	require.Len(t, vec, 4)
	assert.InDelta(t, 0.7071, vec[0], 1e-3)
	assert.InDelta(t, 0.7071, vec[1], 1e-3)

	docs, err := embedder.EmbedDocuments(context.Background(), []string{"king queen", "man woman", "queen"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.InDelta(t, 0.0, docs[1][1], 1e-6)
	assert.InDelta(t, -0.7071, docs[2][1], 1e-3)

	_, err = embedder.EmbedQuery(context.Background(), "nothing here matches")
	assert.ErrorContains(t, err, "no known words")
}

func TestSentenceEmbedderCreateEmbedding(t *testing.T) {
	tokenizer := processor.NewWithConfig(processor.ProcessorConfig{})
	client := NewSentenceEmbedder(analogyModel(t), &tokenizer)

	vecs, err := client.CreateEmbedding(context.Background(), []string{"king", "queen"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.NotEqual(t, vecs[0], vecs[1])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.CreateEmbedding(ctx, []string{"king"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainEndToEnd(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "wiki_texts.txt")
	lines := []string{
		"the king rules the kingdom",
		"the queen rules the realm",
		"a man and a woman walk",
	}
	require.NoError(t, os.WriteFile(corpusPath, []byte(strings.Join(lines, "\n")+"\n"), 0644))

	const dim = 8
	trainer := NewTrainerWithConfig(TrainerConfig{
		VectorDimension: dim,
		Window:          2,
		MinCount:        1,
		Iterations:      1,
		WorkerCount:     1,
		ModelPath:       filepath.Join(dir, "model", "med200_less.model.bin"),
		VectorPath:      filepath.Join(dir, "model", "word2vec.format.bin"),
	})

	table, err := trainer.Train(context.Background(), corpusPath)
	require.NoError(t, err)

	distinct := map[string]bool{}
	for _, line := range lines {
		for _, tok := range strings.Fields(line) {
			distinct[tok] = true
		}
	}
	assert.Equal(t, len(distinct), table.Len())

	f, err := os.Open(filepath.Join(dir, "model", "word2vec.format.bin"))
	require.NoError(t, err)
	defer f.Close()
	saved, err := ReadWord2VecFormat(f)
	require.NoError(t, err)

	assert.Equal(t, dim, saved.Dim)
	for tok := range distinct {
		vec, ok := saved.Vector(tok)
		require.True(t, ok, tok)
		assert.Len(t, vec, dim)
	}

	native, err := os.ReadFile(filepath.Join(dir, "model", "med200_less.model.bin"))
	require.NoError(t, err)
	assert.NotEmpty(t, native)

	model, err := Load(filepath.Join(dir, "model", "word2vec.format.bin"))
	require.NoError(t, err)
	assert.Equal(t, len(distinct), model.Size())
}

func TestTrainEmptyCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := NewTrainerWithConfig(TrainerConfig{}).Train(context.Background(), path)
	assert.Error(t, err)
}

func TestTrainUnknownArchitecture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte("a b c\n"), 0644))

	_, err := NewTrainerWithConfig(TrainerConfig{Architecture: "glove"}).Train(context.Background(), path)
	assert.ErrorContains(t, err, "unknown architecture")
}
