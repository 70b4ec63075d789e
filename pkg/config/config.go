package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Corpus struct {
		DataDir     string `yaml:"data_dir"`
		DumpPath    string `yaml:"dump_path"`
		CorpusPath  string `yaml:"corpus_path"`
		SampleLines int    `yaml:"sample_lines"`
	} `yaml:"corpus"`

	Extractor struct {
		WorkerCount      int      `yaml:"worker_count"`
		LogEvery         int      `yaml:"log_every"`
		MinArticleTokens int      `yaml:"min_article_tokens"`
		TokenMinLen      int      `yaml:"token_min_len"`
		TokenMaxLen      int      `yaml:"token_max_len"`
		Namespaces       []uint64 `yaml:"namespaces"`
		RemoveStopwords  bool     `yaml:"remove_stopwords"`
	} `yaml:"extractor"`

	Normalizer struct {
		Conversion    string `yaml:"conversion"`
		InputPattern  string `yaml:"input_pattern"`
		OutputPattern string `yaml:"output_pattern"`
		First         int    `yaml:"first"`
		Last          int    `yaml:"last"`
	} `yaml:"normalizer"`

	Embedding struct {
		VectorDimension int    `yaml:"vector_dimension"`
		Window          int    `yaml:"window"`
		MinCount        int    `yaml:"min_count"`
		Iterations      int    `yaml:"iterations"`
		NegativeSamples int    `yaml:"negative_samples"`
		Architecture    string `yaml:"architecture"`
		WorkerCount     int    `yaml:"worker_count"`
		OutputPath      string `yaml:"output_path"`
		ModelFile       string `yaml:"model_file"`
		VectorFile      string `yaml:"vector_file"`
	} `yaml:"embedding"`

	Query struct {
		Backend  string   `yaml:"backend"`
		TopN     int      `yaml:"top_n"`
		Positive []string `yaml:"positive"`
		Negative []string `yaml:"negative"`
	} `yaml:"query"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Fetcher struct {
		IndexURL  string        `yaml:"index_url"`
		Pattern   string        `yaml:"pattern"`
		RateLimit float64       `yaml:"rate_limit"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"fetcher"`

	Server struct {
		Addr    string `yaml:"addr"`
		MaxTopN int    `yaml:"max_top_n"`
	} `yaml:"server"`
}

// ModelPath is the native save location of the trained model.
func (c *Config) ModelPath() string {
	return filepath.Join(c.Embedding.OutputPath, c.Embedding.ModelFile)
}

// VectorPath is the word2vec binary interchange file.
func (c *Config) VectorPath() string {
	return filepath.Join(c.Embedding.OutputPath, c.Embedding.VectorFile)
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/wikivec/config.yaml"),
			"/etc/wikivec/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Corpus.DataDir == "" {
		config.Corpus.DataDir = "data"
	}
	if config.Corpus.CorpusPath == "" {
		config.Corpus.CorpusPath = filepath.Join(config.Corpus.DataDir, "wiki_texts.txt")
	}
	if config.Corpus.SampleLines == 0 {
		config.Corpus.SampleLines = 10
	}

	if config.Extractor.WorkerCount == 0 {
		config.Extractor.WorkerCount = 15
	}
	if config.Extractor.LogEvery == 0 {
		config.Extractor.LogEvery = 10000
	}
	if config.Extractor.MinArticleTokens == 0 {
		config.Extractor.MinArticleTokens = 50
	}
	if config.Extractor.TokenMinLen == 0 {
		config.Extractor.TokenMinLen = 2
	}
	if config.Extractor.TokenMaxLen == 0 {
		config.Extractor.TokenMaxLen = 15
	}
	if len(config.Extractor.Namespaces) == 0 {
		config.Extractor.Namespaces = []uint64{0}
	}

	if config.Normalizer.Conversion == "" {
		config.Normalizer.Conversion = "t2s"
	}
	if config.Normalizer.InputPattern == "" {
		config.Normalizer.InputPattern = filepath.Join(config.Corpus.DataDir, "wiki_texts%d.txt")
	}
	if config.Normalizer.OutputPattern == "" {
		config.Normalizer.OutputPattern = filepath.Join(config.Corpus.DataDir, "wiki_simple%d.txt")
	}
	if config.Normalizer.First == 0 && config.Normalizer.Last == 0 {
		config.Normalizer.First = 1
		config.Normalizer.Last = 4
	}

	if config.Embedding.VectorDimension == 0 {
		config.Embedding.VectorDimension = 200
	}
	if config.Embedding.Window == 0 {
		config.Embedding.Window = 5
	}
	if config.Embedding.MinCount == 0 {
		config.Embedding.MinCount = 5
	}
	if config.Embedding.Iterations == 0 {
		config.Embedding.Iterations = 5
	}
	if config.Embedding.NegativeSamples == 0 {
		config.Embedding.NegativeSamples = 5
	}
	if config.Embedding.Architecture == "" {
		config.Embedding.Architecture = "cbow"
	}
	if config.Embedding.WorkerCount == 0 {
		config.Embedding.WorkerCount = 3
	}
	if config.Embedding.OutputPath == "" {
		config.Embedding.OutputPath = config.Corpus.DataDir
	}
	if config.Embedding.ModelFile == "" {
		config.Embedding.ModelFile = "med200_less.model.bin"
	}
	if config.Embedding.VectorFile == "" {
		config.Embedding.VectorFile = "word2vec.format.bin"
	}

	if config.Query.Backend == "" {
		config.Query.Backend = "file"
	}
	if config.Query.TopN == 0 {
		config.Query.TopN = 10
	}
	if len(config.Query.Positive) == 0 && len(config.Query.Negative) == 0 {
		config.Query.Positive = []string{"king", "woman"}
		config.Query.Negative = []string{"man"}
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "word_vectors"
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 500
	}

	if config.Fetcher.IndexURL == "" {
		config.Fetcher.IndexURL = "https://dumps.wikimedia.org/enwiki/latest/"
	}
	if config.Fetcher.Pattern == "" {
		config.Fetcher.Pattern = "pages-articles"
	}
	if config.Fetcher.Timeout == 0 {
		config.Fetcher.Timeout = 30 * time.Second
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.MaxTopN == 0 {
		config.Server.MaxTopN = 100
	}
}

func mergeWithEnv(config *Config) {
	if dataDir := os.Getenv("WIKIVEC_DATA_DIR"); dataDir != "" {
		config.Corpus.DataDir = dataDir
	}
	if dump := os.Getenv("WIKI_FILE"); dump != "" {
		config.Corpus.DumpPath = dump
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
