package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
corpus:
  data_dir: "/srv/wiki"
  corpus_path: "/srv/wiki/zh_texts.txt"
  sample_lines: 3

extractor:
  worker_count: 4
  min_article_tokens: 20
  namespaces: [0, 14]

normalizer:
  conversion: "tw2s"
  first: 2
  last: 3

embedding:
  vector_dimension: 100
  architecture: "skipgram"
  output_path: "/srv/models"
  vector_file: "zh.bin"

query:
  backend: "pgvector"
  top_n: 5
  positive: ["paris", "italy"]
  negative: ["france"]

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_vectors"
  batch_size: 50

fetcher:
  index_url: "https://dumps.wikimedia.org/zhwiki/latest/"
  rate_limit: 1048576
  timeout: 10s
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/srv/wiki/zh_texts.txt", config.Corpus.CorpusPath)
	assert.Equal(t, 3, config.Corpus.SampleLines)
	assert.Equal(t, 4, config.Extractor.WorkerCount)
	assert.Equal(t, []uint64{0, 14}, config.Extractor.Namespaces)
	assert.Equal(t, "tw2s", config.Normalizer.Conversion)
	assert.Equal(t, "/srv/wiki/wiki_texts%d.txt", config.Normalizer.InputPattern)
	assert.Equal(t, 2, config.Normalizer.First)
	assert.Equal(t, 100, config.Embedding.VectorDimension)
	assert.Equal(t, "skipgram", config.Embedding.Architecture)
	assert.Equal(t, "/srv/models/zh.bin", config.VectorPath())
	assert.Equal(t, "/srv/models/med200_less.model.bin", config.ModelPath())
	assert.Equal(t, "pgvector", config.Query.Backend)
	assert.Equal(t, []string{"france"}, config.Query.Negative)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, 1048576.0, config.Fetcher.RateLimit)
	assert.Equal(t, 10*time.Second, config.Fetcher.Timeout)
	assert.Empty(t, config.Validate())
}

func TestDefaultConfig(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("data", "wiki_texts.txt"), config.Corpus.CorpusPath)
	assert.Equal(t, 15, config.Extractor.WorkerCount)
	assert.Equal(t, 10000, config.Extractor.LogEvery)
	assert.Equal(t, 50, config.Extractor.MinArticleTokens)
	assert.Equal(t, 200, config.Embedding.VectorDimension)
	assert.Equal(t, "cbow", config.Embedding.Architecture)
	assert.Equal(t, 10, config.Query.TopN)
	assert.Equal(t, []string{"king", "woman"}, config.Query.Positive)
	assert.Equal(t, []string{"man"}, config.Query.Negative)
	assert.Equal(t, 1, config.Normalizer.First)
	assert.Equal(t, 4, config.Normalizer.Last)
	assert.Equal(t, 100, config.Server.MaxTopN)
	assert.Empty(t, config.Validate())
}

func TestServerTopNValidation(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	config.Server.MaxTopN = -1

	errors := config.Validate()
	require.Len(t, errors, 1)
	assert.Equal(t, "server.max_top_n", errors[0].Field)
}

func TestConfigValidation(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	config.Extractor.WorkerCount = 0
	config.Normalizer.Conversion = "t2x"
	config.Normalizer.OutputPattern = "data/wiki_simple.txt"
	config.Embedding.VectorDimension = -1
	config.Query.Backend = "redis"

	errors := config.Validate()
	require.Len(t, errors, 5)

	expected := []string{
		"extractor.worker_count: worker_count must be positive",
		"normalizer.conversion: unknown conversion: t2x",
		"normalizer.output_pattern: pattern must contain exactly one %d",
		"embedding.vector_dimension: vector_dimension must be positive",
		"query.backend: backend must be file or pgvector",
	}
	for i, msg := range expected {
		assert.Contains(t, errors[i].Error(), msg)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("WIKIVEC_DATA_DIR", "/tmp/wikivec")
	t.Setenv("WIKI_FILE", "/tmp/enwiki.xml.bz2")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/enwiki.xml.bz2", config.Corpus.DumpPath)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, filepath.Join("/tmp/wikivec", "wiki_texts.txt"), config.Corpus.CorpusPath)
	assert.Equal(t, "/tmp/wikivec", config.Embedding.OutputPath)
}
