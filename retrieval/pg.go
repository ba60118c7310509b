package retrieval

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"
)

const evidenceSchema = `
CREATE TABLE IF NOT EXISTS evidence_chunks (
	id         BIGSERIAL PRIMARY KEY,
	filename   TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS evidence_chunks_fts
	ON evidence_chunks USING GIN (to_tsvector('simple', content));
`

// PgSearcher ranks passages stored in Postgres with full-text search.
type PgSearcher struct {
	pool *pgxpool.Pool
}

func NewPgSearcher(pool *pgxpool.Pool) *PgSearcher {
	return &PgSearcher{pool: pool}
}

// EnsureSchema creates the evidence table when missing.
func (p *PgSearcher) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, evidenceSchema); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", ErrUnavailable, err)
	}
	return nil
}

// Ingest replaces the stored passages of every file present in chunks.
func (p *PgSearcher) Ingest(ctx context.Context, chunks []Evidence) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	cleared := map[string]bool{}
	for _, c := range chunks {
		name := c.Metadata["filename"]
		if !cleared[name] {
			if _, err := tx.Exec(ctx, "DELETE FROM evidence_chunks WHERE filename = $1", name); err != nil {
				return 0, fmt.Errorf("%w: clear %s: %v", ErrUnavailable, name, err)
			}
			cleared[name] = true
		}
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO evidence_chunks (filename, content, metadata) VALUES ($1, $2, $3)",
			name, c.Text, meta,
		); err != nil {
			return 0, fmt.Errorf("%w: insert: %v", ErrUnavailable, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	return len(chunks), nil
}

func (p *PgSearcher) Search(ctx context.Context, query string, k int, filters map[string]string) ([]Evidence, error) {
	if k <= 0 {
		return []Evidence{}, nil
	}
	if filters == nil {
		filters = map[string]string{}
	}
	filterJSON, err := json.Marshal(filters)
	if err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx, `
		SELECT content, metadata
		FROM evidence_chunks
		WHERE metadata @> $3::jsonb
		ORDER BY ts_rank(to_tsvector('simple', content), plainto_tsquery('simple', $1)) DESC, id
		LIMIT $2
	`, query, k, filterJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	out := []Evidence{}
	for rows.Next() {
		var content string
		var raw []byte
		if err := rows.Scan(&content, &raw); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrUnavailable, err)
		}
		meta := map[string]string{}
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, fmt.Errorf("%w: metadata: %v", ErrUnavailable, err)
		}
		out = append(out, Evidence{Text: content, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrUnavailable, err)
	}
	return out, nil
}
