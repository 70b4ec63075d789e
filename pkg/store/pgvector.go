package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/wikivec/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// VectorStore keeps word vectors in a PostgreSQL table with a pgvector column.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "word_vectors"
	}
	if config.BatchSize == 0 {
		config.BatchSize = 500
	}
	if !tableNamePattern.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid table name %q", config.TableName)
	}
	if config.VectorDim <= 0 {
		return nil, errors.New("vector dimension must be positive")
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			word TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Store upserts word vectors, one transaction per BatchSize rows.
func (vs *VectorStore) Store(ctx context.Context, vectors []models.WordVector) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (word, embedding)
		VALUES ($1, $2)
		ON CONFLICT (word) DO UPDATE SET embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for start := 0; start < len(vectors); start += vs.config.BatchSize {
		end := min(start+vs.config.BatchSize, len(vectors))

		batch := &pgx.Batch{}
		for _, wv := range vectors[start:end] {
			if len(wv.Vector) != vs.config.VectorDim {
				return fmt.Errorf("vector for %q has %d dimensions, want %d", wv.Word, len(wv.Vector), vs.config.VectorDim)
			}
			batch.Queue(stmt, wv.Word, pgvector.NewVector(wv.Vector))
		}

		err := pgx.BeginFunc(ctx, vs.pool, func(tx pgx.Tx) error {
			return tx.SendBatch(ctx, batch).Close()
		})
		if err != nil {
			return fmt.Errorf("failed to store batch at %d: %w", start, err)
		}
	}

	return nil
}

// MostSimilar answers the analogy query inside the database: the unit
// vectors of the query words are combined and the nearest rows by cosine
// distance are returned.
func (vs *VectorStore) MostSimilar(ctx context.Context, positive, negative []string, n int) ([]models.Neighbor, error) {
	if len(positive)+len(negative) == 0 {
		return nil, errors.New("no query words given")
	}
	if n < 1 {
		return nil, fmt.Errorf("number of neighbors must be positive, got %d", n)
	}

	words := append(append([]string{}, positive...), negative...)
	found, err := vs.lookup(ctx, words)
	if err != nil {
		return nil, err
	}

	query := make([]float32, vs.config.VectorDim)
	add := func(word string, weight float32) error {
		vec, ok := found[word]
		if !ok {
			return models.UnknownWordError{Word: word}
		}
		length := norm(vec)
		for i, v := range vec {
			query[i] += weight * v / length
		}
		return nil
	}
	for _, w := range positive {
		if err := add(w, 1); err != nil {
			return nil, err
		}
	}
	for _, w := range negative {
		if err := add(w, -1); err != nil {
			return nil, err
		}
	}

	sql := fmt.Sprintf(`
		SELECT word, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE NOT (word = ANY($2))
		ORDER BY embedding <=> $1
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, sql, pgvector.NewVector(query), words, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer rows.Close()

	var neighbors []models.Neighbor
	for rows.Next() {
		var nb models.Neighbor
		var score float64
		if err := rows.Scan(&nb.Word, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		nb.Score = float32(score)
		neighbors = append(neighbors, nb)
	}
	return neighbors, rows.Err()
}

func (vs *VectorStore) lookup(ctx context.Context, words []string) (map[string][]float32, error) {
	sql := fmt.Sprintf(`SELECT word, embedding FROM %s WHERE word = ANY($1)`, vs.config.TableName)

	rows, err := vs.pool.Query(ctx, sql, words)
	if err != nil {
		return nil, fmt.Errorf("failed to look up words: %w", err)
	}
	defer rows.Close()

	found := make(map[string][]float32, len(words))
	for rows.Next() {
		var word string
		var vec pgvector.Vector
		if err := rows.Scan(&word, &vec); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		found[word] = vec.Slice()
	}
	return found, rows.Err()
}

// Count returns the number of stored words.
func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	err := vs.pool.QueryRow(ctx, fmt.Sprintf(`SELECT count(*) FROM %s`, vs.config.TableName)).Scan(&n)
	return n, err
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func norm(vec []float32) float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return 1
	}
	return float32(math.Sqrt(sum))
}
