package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/oneteam-ai/go-rag-chatbot/internal/domain"
	"github.com/oneteam-ai/go-rag-chatbot/internal/port"
)

// Collection implements port.VectorStore on top of pgvector. One named
// collection maps to one table with an HNSW cosine index; the `<=>` operator
// yields cosine distance in [0, 2], nearest first when ordered ascending.
type Collection struct {
	store     *PostgresStore
	name      string
	table     string
	dimension int
}

// NewCollection creates a handle for the named collection. The table is not
// created until EnsureCollection runs.
func NewCollection(store *PostgresStore, name string, dimension int) (*Collection, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("collection name: %w", port.ErrMissingConfig)
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension %d: %w", dimension, port.ErrMissingConfig)
	}
	return &Collection{
		store:     store,
		name:      name,
		table:     sanitizeIdent(name),
		dimension: dimension,
	}, nil
}

// Name returns the collection name as configured.
func (c *Collection) Name() string {
	return c.name
}

// EnsureCollection creates the pgvector extension, the collection table and
// its cosine index if they do not yet exist.
func (c *Collection) EnsureCollection(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id        text PRIMARY KEY,
			content   text NOT NULL,
			metadata  jsonb NOT NULL DEFAULT '{}',
			embedding vector(%d) NOT NULL
		)`, c.table, c.dimension),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, c.table, c.table),
	}
	for _, stmt := range stmts {
		if _, err := c.store.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure collection %s: %w", c.name, err)
		}
	}
	return nil
}

// Add stores texts with their embeddings and metadata in one transaction.
// Ids are generated sequentially from the current collection size when nil.
func (c *Collection) Add(ctx context.Context, texts []string, embeddings [][]float32, metadatas []map[string]any, ids []string) ([]string, error) {
	if len(texts) == 0 || len(embeddings) == 0 {
		return nil, fmt.Errorf("add to %s: %w", c.name, port.ErrEmptyInput)
	}
	if len(texts) != len(embeddings) || (metadatas != nil && len(metadatas) != len(texts)) {
		return nil, fmt.Errorf("add to %s: %d texts, %d embeddings, %d metadatas: %w",
			c.name, len(texts), len(embeddings), len(metadatas), port.ErrDimensionMismatch)
	}
	if ids != nil && len(ids) != len(texts) {
		return nil, fmt.Errorf("add to %s: %d texts, %d ids: %w", c.name, len(texts), len(ids), port.ErrDimensionMismatch)
	}

	if ids == nil {
		count, err := c.Count(ctx)
		if err != nil {
			return nil, err
		}
		ids = make([]string, len(texts))
		for i := range texts {
			ids[i] = fmt.Sprintf("doc_%d", count+i)
		}
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("add to %s: begin tx: %w", c.name, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, content, metadata, embedding) VALUES ($1, $2, $3, $4::vector)`, c.table))
	if err != nil {
		return nil, fmt.Errorf("add to %s: prepare: %w", c.name, err)
	}
	defer stmt.Close()

	for i, text := range texts {
		meta := map[string]any{"source": "unknown"}
		if metadatas != nil && metadatas[i] != nil {
			meta = metadatas[i]
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return nil, fmt.Errorf("add to %s: marshal metadata: %w", c.name, err)
		}
		if _, err := stmt.ExecContext(ctx, ids[i], text, metaJSON, vectorToString(embeddings[i])); err != nil {
			return nil, fmt.Errorf("add to %s: insert %s: %w", c.name, ids[i], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("add to %s: commit: %w", c.name, err)
	}
	return ids, nil
}

// Query returns up to topK nearest neighbors ordered by ascending cosine
// distance, optionally restricted to records whose metadata contains filter.
func (c *Collection) Query(ctx context.Context, embedding []float32, topK int, filter map[string]any) (*domain.QueryResult, error) {
	vectorStr := vectorToString(embedding)

	query := fmt.Sprintf(
		`SELECT id, content, metadata, embedding <=> $1::vector AS distance FROM %s`, c.table)
	args := []any{vectorStr}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("query %s: marshal filter: %w", c.name, err)
		}
		query += ` WHERE metadata @> $2::jsonb`
		args = append(args, filterJSON)
	}

	query += fmt.Sprintf(` ORDER BY embedding <=> $1::vector LIMIT %d`, topK)

	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	result := &domain.QueryResult{}
	for rows.Next() {
		var (
			id       string
			content  string
			metaJSON []byte
			distance float64
		)
		if err := rows.Scan(&id, &content, &metaJSON, &distance); err != nil {
			return nil, fmt.Errorf("query %s: scan: %w", c.name, err)
		}
		var meta map[string]any
		if err := json.Unmarshal(metaJSON, &meta); err != nil {
			return nil, fmt.Errorf("query %s: decode metadata: %w", c.name, err)
		}
		result.IDs = append(result.IDs, id)
		result.Documents = append(result.Documents, content)
		result.Metadatas = append(result.Metadatas, meta)
		result.Distances = append(result.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	return result, nil
}

// Delete removes the records with the given ids.
func (c *Collection) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, c.table)
	if _, err := c.store.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("delete from %s: %w", c.name, err)
	}
	return nil
}

// DeleteCollection drops the collection table.
func (c *Collection) DeleteCollection(ctx context.Context) error {
	if _, err := c.store.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, c.table)); err != nil {
		return fmt.Errorf("drop collection %s: %w", c.name, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)
	if err := c.store.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return count, nil
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// sanitizeIdent maps a collection name to a safe SQL identifier.
func sanitizeIdent(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	ident := b.String()
	if ident == "" || ident[0] >= '0' && ident[0] <= '9' {
		ident = "c_" + ident
	}
	return ident
}
