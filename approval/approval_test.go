package approval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
)

func TestMemoryLedgerLifecycle(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	a, err := l.Create(ctx, map[string]string{"action_type": "proposal_publish", "draft": "# 제안서"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Status != StatusPending || a.ID == "" {
		t.Fatalf("unexpected action %+v", a)
	}
	var payload map[string]string
	if err := json.Unmarshal(a.Payload, &payload); err != nil || payload["draft"] != "# 제안서" {
		t.Fatalf("payload round trip failed: %v %v", payload, err)
	}

	got, err := l.Get(ctx, a.ID)
	if err != nil || got.ID != a.ID {
		t.Fatalf("get: %v", err)
	}
	if _, err := l.UpdateStatus(ctx, a.ID, StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	done, err := l.UpdateStatus(ctx, a.ID, StatusDone)
	if err != nil || done.Status != StatusDone {
		t.Fatalf("done: %v %+v", err, done)
	}
}

func TestMemoryLedgerRejectsIllegalTransitions(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	a, _ := l.Create(ctx, struct{}{})
	if _, err := l.UpdateStatus(ctx, a.ID, StatusDone); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("pending -> done should fail, got %v", err)
	}
	if _, err := l.UpdateStatus(ctx, a.ID, StatusRejected); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := l.UpdateStatus(ctx, a.ID, StatusApproved); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("rejected -> approved should fail, got %v", err)
	}
	if _, err := l.UpdateStatus(ctx, a.ID, "bogus"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unknown status should fail, got %v", err)
	}
	if _, err := l.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger", "actions.json")
	ctx := context.Background()
	l, err := NewFileLedger(path)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	a, err := l.Create(ctx, map[string]string{"draft": "# 제안서"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, _ := l.Create(ctx, struct{}{})

	reopened, err := NewFileLedger(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(ctx, a.ID)
	if err != nil || got.Status != StatusPending {
		t.Fatalf("pending action lost after reopen: %+v %v", got, err)
	}
	var payload map[string]string
	if err := json.Unmarshal(got.Payload, &payload); err != nil || payload["draft"] != "# 제안서" {
		t.Fatalf("payload not kept: %v %v", payload, err)
	}
	if _, err := reopened.UpdateStatus(ctx, a.ID, StatusApproved); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := reopened.UpdateStatus(ctx, b.ID, StatusDone); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("pending -> done should fail, got %v", err)
	}

	again, _ := NewFileLedger(path)
	if got, _ := again.Get(ctx, a.ID); got.Status != StatusApproved {
		t.Fatalf("status change not persisted: %q", got.Status)
	}
	if got, _ := again.Get(ctx, b.ID); got.Status != StatusPending {
		t.Fatalf("untouched action changed: %q", got.Status)
	}
	if _, err := again.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileLedgerCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l, _ := NewFileLedger(path)
	if _, err := l.Create(context.Background(), struct{}{}); err == nil {
		t.Fatal("expected an error for a corrupt ledger file")
	}
}
