// Package approval records actions that wait for a human decision.
package approval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("action not found")
	// ErrInvalidStatus is returned for unknown statuses or illegal transitions.
	ErrInvalidStatus = errors.New("invalid action status")
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusDone     = "done"
)

// Action is one ledger entry. Payload is stored as raw JSON.
type Action struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Status    string          `json:"status"`
	Payload   json.RawMessage `json:"payload"`
}

// Ledger stores pending actions and their status changes.
type Ledger interface {
	Create(ctx context.Context, payload any) (Action, error)
	Get(ctx context.Context, id string) (Action, error)
	UpdateStatus(ctx context.Context, id, status string) (Action, error)
}

// 允许的状态迁移：pending -> approved|rejected，approved -> done。
var transitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusDone},
}

func checkTransition(from, to string) error {
	for _, s := range transitions[from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatus, from, to)
}

func newAction(payload any) (Action, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Action{}, fmt.Errorf("encode payload: %w", err)
	}
	return Action{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Status:    StatusPending,
		Payload:   raw,
	}, nil
}

// MemoryLedger keeps actions in process memory.
type MemoryLedger struct {
	mu      sync.Mutex
	actions map[string]Action
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{actions: make(map[string]Action)}
}

func (l *MemoryLedger) Create(_ context.Context, payload any) (Action, error) {
	a, err := newAction(payload)
	if err != nil {
		return Action{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.actions[a.ID] = a
	return a, nil
}

func (l *MemoryLedger) Get(_ context.Context, id string) (Action, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.actions[id]
	if !ok {
		return Action{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

func (l *MemoryLedger) UpdateStatus(_ context.Context, id, status string) (Action, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.actions[id]
	if !ok {
		return Action{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := checkTransition(a.Status, status); err != nil {
		return Action{}, err
	}
	a.Status = status
	l.actions[id] = a
	return a, nil
}
