package approval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	json "github.com/goccy/go-json"
)

type actionFile struct {
	Items []Action `json:"items"`
}

// FileLedger keeps every action in one JSON file, rewritten via temp-file
// rename on each change, so pending actions survive a restart.
type FileLedger struct {
	path string
	mu   sync.Mutex
}

func NewFileLedger(path string) (*FileLedger, error) {
	if path == "" {
		return nil, errors.New("ledger path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &FileLedger{path: path}, nil
}

func (l *FileLedger) Create(_ context.Context, payload any) (Action, error) {
	a, err := newAction(payload)
	if err != nil {
		return Action{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := l.load()
	if err != nil {
		return Action{}, err
	}
	f.Items = append(f.Items, a)
	if err := l.write(f); err != nil {
		return Action{}, err
	}
	return a, nil
}

func (l *FileLedger) Get(_ context.Context, id string) (Action, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := l.load()
	if err != nil {
		return Action{}, err
	}
	for _, a := range f.Items {
		if a.ID == id {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (l *FileLedger) UpdateStatus(_ context.Context, id, status string) (Action, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := l.load()
	if err != nil {
		return Action{}, err
	}
	for i := range f.Items {
		a := &f.Items[i]
		if a.ID != id {
			continue
		}
		if err := checkTransition(a.Status, status); err != nil {
			return Action{}, err
		}
		a.Status = status
		if err := l.write(f); err != nil {
			return Action{}, err
		}
		return *a, nil
	}
	return Action{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (l *FileLedger) load() (actionFile, error) {
	var f actionFile
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return f, fmt.Errorf("read ledger: %w", err)
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode ledger %s: %w", l.path, err)
	}
	return f, nil
}

func (l *FileLedger) write(f actionFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*")
	if err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), l.path)
	}
	if werr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write ledger: %w", werr)
	}
	return nil
}
