package normalizer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperConverter struct{}

func (upperConverter) Convert(text string) (string, error) {
	return strings.ToUpper(text), nil
}

type failingConverter struct{}

func (failingConverter) Convert(string) (string, error) {
	return "", errors.New("invalid byte sequence")
}

func TestNormalizeLineForLine(t *testing.T) {
	n := New(NormalizerConfig{}, upperConverter{})

	input := "first line\n\nthird line\nlast without newline"
	var out bytes.Buffer
	lines, err := n.Normalize(strings.NewReader(input), &out)
	require.NoError(t, err)

	assert.Equal(t, 4, lines)
	assert.Equal(t, "FIRST LINE\n\nTHIRD LINE\nLAST WITHOUT NEWLINE\n", out.String())
}

func TestNormalizeConverterError(t *testing.T) {
	n := New(NormalizerConfig{}, failingConverter{})

	_, err := n.Normalize(strings.NewReader("abc\n"), &bytes.Buffer{})
	assert.ErrorContains(t, err, "line 1")
}

func TestTraditionalToSimplified(t *testing.T) {
	n, err := NewWithConfig(NormalizerConfig{Conversion: "t2s"})
	require.NoError(t, err)

	input := []string{"中華民國", "漢字 書法", "電腦"}
	var out bytes.Buffer
	lines, err := n.Normalize(strings.NewReader(strings.Join(input, "\n")+"\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, len(input), lines)

	got := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Equal(t, []string{"中华民国", "汉字 书法", "电脑"}, got)
}

func TestNormalizeNumbered(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 3; i++ {
		path := filepath.Join(dir, fmt.Sprintf("wiki_texts%d.txt", i))
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("file %d\nline two\n", i)), 0644))
	}

	counts := map[string]int{}
	n := New(NormalizerConfig{
		InputPattern:  filepath.Join(dir, "wiki_texts%d.txt"),
		OutputPattern: filepath.Join(dir, "wiki_simple%d.txt"),
		First:         1,
		Last:          3,
		OnLine:        func(path string, lines int) { counts[filepath.Base(path)] = lines },
	}, upperConverter{})

	require.NoError(t, n.NormalizeNumbered())

	for i := 1; i <= 3; i++ {
		data, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("wiki_simple%d.txt", i)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("FILE %d\nLINE TWO\n", i), string(data))
		assert.Equal(t, 2, counts[fmt.Sprintf("wiki_simple%d.txt", i)])
	}
}

func TestNormalizeNumberedMissingInput(t *testing.T) {
	dir := t.TempDir()
	n := New(NormalizerConfig{
		InputPattern:  filepath.Join(dir, "wiki_texts%d.txt"),
		OutputPattern: filepath.Join(dir, "wiki_simple%d.txt"),
		First:         1,
		Last:          1,
	}, upperConverter{})

	assert.Error(t, n.NormalizeNumbered())
}
