package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const actionSchema = `
CREATE TABLE IF NOT EXISTS approval_actions (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL,
	status     TEXT NOT NULL,
	payload    JSONB NOT NULL
);
`

// PgLedger keeps actions in Postgres.
type PgLedger struct {
	pool *pgxpool.Pool
}

func NewPgLedger(pool *pgxpool.Pool) *PgLedger {
	return &PgLedger{pool: pool}
}

func (l *PgLedger) EnsureSchema(ctx context.Context) error {
	_, err := l.pool.Exec(ctx, actionSchema)
	return err
}

func (l *PgLedger) Create(ctx context.Context, payload any) (Action, error) {
	a, err := newAction(payload)
	if err != nil {
		return Action{}, err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO approval_actions (id, created_at, status, payload) VALUES ($1, $2, $3, $4)`,
		a.ID, a.CreatedAt, a.Status, []byte(a.Payload))
	if err != nil {
		return Action{}, fmt.Errorf("failed to create action: %w", err)
	}
	return a, nil
}

func (l *PgLedger) Get(ctx context.Context, id string) (Action, error) {
	var a Action
	var payload []byte
	err := l.pool.QueryRow(ctx,
		`SELECT id, created_at, status, payload FROM approval_actions WHERE id = $1`, id,
	).Scan(&a.ID, &a.CreatedAt, &a.Status, &payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Action{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Action{}, fmt.Errorf("failed to get action: %w", err)
	}
	a.Payload = payload
	return a, nil
}

// UpdateStatus 用 WHERE status = 原状态 做乐观并发控制。
func (l *PgLedger) UpdateStatus(ctx context.Context, id, status string) (Action, error) {
	cur, err := l.Get(ctx, id)
	if err != nil {
		return Action{}, err
	}
	if err := checkTransition(cur.Status, status); err != nil {
		return Action{}, err
	}
	tag, err := l.pool.Exec(ctx,
		`UPDATE approval_actions SET status = $3 WHERE id = $1 AND status = $2`,
		id, cur.Status, status)
	if err != nil {
		return Action{}, fmt.Errorf("failed to update action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Action{}, fmt.Errorf("%w: %s changed concurrently", ErrInvalidStatus, id)
	}
	cur.Status = status
	return cur, nil
}
