package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var conversions = map[string]bool{
	"s2t": true, "t2s": true, "s2tw": true, "tw2s": true, "s2hk": true,
	"hk2s": true, "s2twp": true, "tw2sp": true, "t2tw": true, "t2hk": true,
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Corpus.CorpusPath == "" {
		errors = append(errors, ValidationError{
			Field:   "corpus.corpus_path",
			Message: "corpus_path is required",
		})
	}

	if c.Corpus.SampleLines < 1 {
		errors = append(errors, ValidationError{
			Field:   "corpus.sample_lines",
			Message: "sample_lines must be positive",
		})
	}

	// Validate Extractor config
	if c.Extractor.WorkerCount < 1 {
		errors = append(errors, ValidationError{
			Field:   "extractor.worker_count",
			Message: "worker_count must be positive",
		})
	}

	if c.Extractor.LogEvery < 1 {
		errors = append(errors, ValidationError{
			Field:   "extractor.log_every",
			Message: "log_every must be positive",
		})
	}

	if c.Extractor.TokenMinLen < 1 || c.Extractor.TokenMaxLen < c.Extractor.TokenMinLen {
		errors = append(errors, ValidationError{
			Field:   "extractor.token_min_len",
			Message: "token_min_len must be positive and not above token_max_len",
		})
	}

	// Validate Normalizer config
	if !conversions[c.Normalizer.Conversion] {
		errors = append(errors, ValidationError{
			Field:   "normalizer.conversion",
			Message: fmt.Sprintf("unknown conversion: %s", c.Normalizer.Conversion),
		})
	}

	patterns := []struct{ field, value string }{
		{"normalizer.input_pattern", c.Normalizer.InputPattern},
		{"normalizer.output_pattern", c.Normalizer.OutputPattern},
	}
	for _, p := range patterns {
		if strings.Count(p.value, "%d") != 1 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Message: "pattern must contain exactly one %d",
			})
		}
	}

	if c.Normalizer.First > c.Normalizer.Last {
		errors = append(errors, ValidationError{
			Field:   "normalizer.first",
			Message: "first must not exceed last",
		})
	}

	// Validate Embedding config
	if c.Embedding.VectorDimension < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.vector_dimension",
			Message: "vector_dimension must be positive",
		})
	}

	if c.Embedding.Window < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.window",
			Message: "window must be positive",
		})
	}

	if c.Embedding.WorkerCount < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.worker_count",
			Message: "worker_count must be positive",
		})
	}

	if c.Embedding.Architecture != "cbow" && c.Embedding.Architecture != "skipgram" {
		errors = append(errors, ValidationError{
			Field:   "embedding.architecture",
			Message: "architecture must be cbow or skipgram",
		})
	}

	// Validate Query config
	if c.Query.Backend != "file" && c.Query.Backend != "pgvector" {
		errors = append(errors, ValidationError{
			Field:   "query.backend",
			Message: "backend must be file or pgvector",
		})
	}

	if c.Query.TopN < 1 {
		errors = append(errors, ValidationError{
			Field:   "query.top_n",
			Message: "top_n must be positive",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate Fetcher config
	if u, err := url.Parse(c.Fetcher.IndexURL); err != nil || !u.IsAbs() {
		errors = append(errors, ValidationError{
			Field:   "fetcher.index_url",
			Message: "invalid dump index URL",
		})
	}

	if c.Fetcher.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "fetcher.rate_limit",
			Message: "rate_limit must not be negative",
		})
	}

	if c.Server.MaxTopN < c.Query.TopN {
		errors = append(errors, ValidationError{
			Field:   "server.max_top_n",
			Message: "max_top_n must not be below query.top_n",
		})
	}

	return errors
}
