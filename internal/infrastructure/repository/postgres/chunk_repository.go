package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/okurganov/contextual-rag/internal/core/domain"
)

type ChunkRepository struct {
	db *sql.DB
}

func NewChunkRepository(db *sql.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

func (r *ChunkRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082902)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	doc_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
CREATE INDEX IF NOT EXISTS idx_chunks_text_fts ON chunks USING GIN (to_tsvector('english', text));
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *ChunkRepository) Upsert(ctx context.Context, chunk *domain.Chunk) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO chunks (id, doc_id, text, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET
	doc_id = EXCLUDED.doc_id,
	text = EXCLUDED.text
`, chunk.ID, chunk.DocID, chunk.Text, chunk.Created)
	if err != nil {
		return fmt.Errorf("upsert chunk: %w", err)
	}
	return nil
}

func (r *ChunkRepository) Get(ctx context.Context, docID, id string) (*domain.Chunk, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, doc_id, text, created_at
FROM chunks
WHERE doc_id = $1 AND id = $2
`, docID, id)

	var chunk domain.Chunk
	err := row.Scan(&chunk.ID, &chunk.DocID, &chunk.Text, &chunk.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get chunk", fmt.Errorf("doc %s chunk %s", docID, id))
		}
		return nil, fmt.Errorf("scan chunk: %w", err)
	}
	return &chunk, nil
}

// SearchLexical ranks chunks with Postgres full-text search. Timeframe
// bounds are exclusive and compare against the chunk creation time.
func (r *ChunkRepository) SearchLexical(ctx context.Context, term string, timeframe domain.Timeframe, limit int) ([]domain.LexicalHit, error) {
	if limit <= 0 {
		limit = 40
	}

	query := `
SELECT id, doc_id, text, ts_rank(to_tsvector('english', text), plainto_tsquery('english', $1)) AS rank
FROM chunks
WHERE to_tsvector('english', text) @@ plainto_tsquery('english', $1)
`
	args := []any{term}
	if timeframe.From > 0 {
		args = append(args, time.UnixMilli(timeframe.From).UTC())
		query += fmt.Sprintf("AND created_at > $%d\n", len(args))
	}
	if timeframe.To > 0 {
		args = append(args, time.UnixMilli(timeframe.To).UTC())
		query += fmt.Sprintf("AND created_at < $%d\n", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf("ORDER BY rank DESC\nLIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make([]domain.LexicalHit, 0, limit)
	for rows.Next() {
		var hit domain.LexicalHit
		if err := rows.Scan(&hit.ID, &hit.DocID, &hit.Text, &hit.Rank); err != nil {
			return nil, fmt.Errorf("scan lexical hit: %w", err)
		}
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical hits: %w", err)
	}
	return out, nil
}
