package models

import "fmt"

// Article is one page of a wiki dump, latest revision only.
type Article struct {
	ID        uint64
	Title     string
	Namespace uint64
	Redirect  string
	Text      string
}

type ProcessedDocument struct {
	Article
	Tokens []string
}

// Neighbor is a vocabulary word paired with its cosine similarity to a query.
type Neighbor struct {
	Word  string  `json:"word"`
	Score float32 `json:"score"`
}

type WordVector struct {
	Word   string
	Vector []float32
}

// UnknownWordError reports a query word missing from the vocabulary.
type UnknownWordError struct {
	Word string
}

func (e UnknownWordError) Error() string {
	return fmt.Sprintf("word not in vocabulary: %q", e.Word)
}
