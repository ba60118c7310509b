package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OpenPool connects to Postgres. dbURL falls back to DATABASE_URL.
func OpenPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL not set")
	}
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	return pgxpool.NewWithConfig(ctx, config)
}

const versionSchema = `
CREATE TABLE IF NOT EXISTS proposal_versions (
	id               TEXT PRIMARY KEY,
	created_at       BIGINT NOT NULL,
	sponsor          TEXT NOT NULL,
	campaign         TEXT NOT NULL,
	sha1             TEXT NOT NULL,
	doc_path         TEXT NOT NULL,
	markdown         TEXT NOT NULL,
	tool_data        JSONB NOT NULL,
	used_docs        JSONB NOT NULL,
	tags             JSONB NOT NULL,
	template_version TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'draft',
	approved_at      BIGINT,
	approved_by      TEXT
);
CREATE INDEX IF NOT EXISTS proposal_versions_created ON proposal_versions (created_at DESC);
`

const metaColumns = `id, created_at, sponsor, campaign, sha1, doc_path, tags, template_version, status, approved_at, approved_by`

// PgStore keeps versions in Postgres. Rendered documents go under artifactDir.
type PgStore struct {
	pool            *pgxpool.Pool
	artifactDir     string
	templateVersion string
}

func NewPgStore(pool *pgxpool.Pool, artifactDir, defaultTemplateVersion string) *PgStore {
	return &PgStore{pool: pool, artifactDir: artifactDir, templateVersion: defaultTemplateVersion}
}

func (s *PgStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, versionSchema); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", ErrPersistence, err)
	}
	return nil
}

func (s *PgStore) Save(ctx context.Context, p SaveParams) (VersionMeta, error) {
	id := uuid.New().String()
	tv := p.TemplateVersion
	if tv == "" {
		tv = s.templateVersion
	}
	paths := artifactPaths(s.artifactDir, id)
	docDir := filepath.Dir(paths.Doc)
	if err := os.MkdirAll(docDir, 0o755); err != nil {
		return VersionMeta{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	saved := false
	defer func() {
		if !saved {
			os.RemoveAll(docDir)
		}
	}()
	// markdown 以数据库为准，这里再落一份文件副本。
	if err := os.WriteFile(paths.MD, []byte(p.Markdown), 0o644); err != nil {
		return VersionMeta{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	meta := VersionMeta{
		ID:              id,
		CreatedAt:       time.Now().Unix(),
		Sponsor:         p.Sponsor,
		Campaign:        p.Campaign,
		ContentHash:     ContentHash(p.Markdown),
		Paths:           paths,
		Tags:            nonNil(p.Tags),
		TemplateVersion: tv,
		Status:          StatusDraft,
	}
	toolData, err := json.Marshal(p.ToolData)
	if err != nil {
		return VersionMeta{}, fmt.Errorf("%w: encode tool data: %v", ErrPersistence, err)
	}
	used := p.UsedDocs
	if used == nil {
		used = []UsedDoc{}
	}
	usedDocs, err := json.Marshal(used)
	if err != nil {
		return VersionMeta{}, fmt.Errorf("%w: encode used docs: %v", ErrPersistence, err)
	}
	tags, err := json.Marshal(meta.Tags)
	if err != nil {
		return VersionMeta{}, fmt.Errorf("%w: encode tags: %v", ErrPersistence, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO proposal_versions (
			id, created_at, sponsor, campaign, sha1, doc_path, markdown,
			tool_data, used_docs, tags, template_version, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, meta.ID, meta.CreatedAt, meta.Sponsor, meta.Campaign, meta.ContentHash, meta.Paths.Doc, p.Markdown,
		toolData, usedDocs, tags, meta.TemplateVersion, meta.Status)
	if err != nil {
		return VersionMeta{}, fmt.Errorf("%w: insert version: %v", ErrPersistence, err)
	}
	saved = true
	return meta, nil
}

// artifactPaths 给出版本文件位置；库里只存 doc_path，md 与其同目录。
func artifactPaths(artifactDir, id string) Paths {
	dir := filepath.Join(artifactDir, id)
	return Paths{MD: filepath.Join(dir, mdFile), Doc: filepath.Join(dir, docFile)}
}

func pathsFromDoc(docPath string) Paths {
	return Paths{MD: filepath.Join(filepath.Dir(docPath), mdFile), Doc: docPath}
}

func (s *PgStore) List(ctx context.Context, limit int) ([]VersionMeta, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+metaColumns+` FROM proposal_versions ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", ErrPersistence, err)
	}
	defer rows.Close()
	out := []VersionMeta{}
	for rows.Next() {
		m, err := scanMeta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", ErrPersistence, err)
	}
	return out, nil
}

func (s *PgStore) Get(ctx context.Context, id string) (Version, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+metaColumns+`, markdown, tool_data, used_docs FROM proposal_versions WHERE id = $1`, id)
	var v Version
	var tags, toolData, usedDocs []byte
	err := row.Scan(&v.ID, &v.CreatedAt, &v.Sponsor, &v.Campaign, &v.ContentHash, &v.Paths.Doc, &tags,
		&v.TemplateVersion, &v.Status, &v.ApprovedAt, &v.ApprovedBy, &v.Markdown, &toolData, &usedDocs)
	if errors.Is(err, pgx.ErrNoRows) {
		return Version{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Version{}, fmt.Errorf("%w: get version: %v", ErrPersistence, err)
	}
	v.Paths = pathsFromDoc(v.Paths.Doc)
	if err := json.Unmarshal(tags, &v.Tags); err != nil {
		return Version{}, fmt.Errorf("%w: decode tags: %v", ErrPersistence, err)
	}
	if err := json.Unmarshal(toolData, &v.ToolData); err != nil {
		return Version{}, fmt.Errorf("%w: decode tool data: %v", ErrPersistence, err)
	}
	if err := json.Unmarshal(usedDocs, &v.UsedDocs); err != nil {
		return Version{}, fmt.Errorf("%w: decode used docs: %v", ErrPersistence, err)
	}
	return v, nil
}

func (s *PgStore) MarkApproved(ctx context.Context, id, by string) (VersionMeta, error) {
	return s.transition(ctx, id, StatusApproved, by)
}

func (s *PgStore) MarkRejected(ctx context.Context, id, by string) (VersionMeta, error) {
	return s.transition(ctx, id, StatusRejected, by)
}

// transition 只允许从 draft 迁移；并发审批时只有一个 UPDATE 命中。
func (s *PgStore) transition(ctx context.Context, id, status, by string) (VersionMeta, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE proposal_versions
		SET status = $2, approved_at = $3, approved_by = $4
		WHERE id = $1 AND status = 'draft'
		RETURNING `+metaColumns, id, status, time.Now().Unix(), by)
	m, err := scanMeta(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return VersionMeta{}, err
	}
	var cur string
	err = s.pool.QueryRow(ctx, `SELECT status FROM proposal_versions WHERE id = $1`, id).Scan(&cur)
	if errors.Is(err, pgx.ErrNoRows) {
		return VersionMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return VersionMeta{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return VersionMeta{}, fmt.Errorf("%w: %s is %s", ErrStatusConflict, id, cur)
}

func scanMeta(row pgx.Row) (VersionMeta, error) {
	var m VersionMeta
	var tags []byte
	err := row.Scan(&m.ID, &m.CreatedAt, &m.Sponsor, &m.Campaign, &m.ContentHash, &m.Paths.Doc, &tags,
		&m.TemplateVersion, &m.Status, &m.ApprovedAt, &m.ApprovedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return VersionMeta{}, err
	}
	if err != nil {
		return VersionMeta{}, fmt.Errorf("%w: scan version: %v", ErrPersistence, err)
	}
	m.Paths = pathsFromDoc(m.Paths.Doc)
	if err := json.Unmarshal(tags, &m.Tags); err != nil {
		return VersionMeta{}, fmt.Errorf("%w: decode tags: %v", ErrPersistence, err)
	}
	return m, nil
}
