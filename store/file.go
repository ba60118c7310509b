package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

const (
	indexFile   = "index.json"
	versionFile = "version.json"
	mdFile      = "proposal.md"
	docFile     = "proposal.html"
)

type index struct {
	Items []VersionMeta `json:"items"`
}

// FileStore keeps versions under one directory:
// <dir>/<ts>_<sponsor>_<campaign>/proposal.md plus <dir>/index.json.
// Index updates are serialised by a mutex and written via temp-file rename.
type FileStore struct {
	dir             string
	templateVersion string
	now             func() time.Time

	mu sync.Mutex
}

func NewFileStore(dir, defaultTemplateVersion string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("proposal dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return &FileStore{dir: dir, templateVersion: defaultTemplateVersion, now: time.Now}, nil
}

func (s *FileStore) Save(_ context.Context, p SaveParams) (VersionMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().Unix()
	base := fmt.Sprintf("%d_%s_%s", ts, Slug(p.Sponsor), Slug(p.Campaign))
	id := base
	// 同一秒内重复保存时追加序号，避免覆盖。
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(s.dir, id)); errors.Is(err, os.ErrNotExist) {
			break
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
	out := filepath.Join(s.dir, id)
	if err := os.MkdirAll(out, 0o755); err != nil {
		return VersionMeta{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	// 索引未写成功前，目录不能留下。
	saved := false
	defer func() {
		if !saved {
			os.RemoveAll(out)
		}
	}()

	tv := p.TemplateVersion
	if tv == "" {
		tv = s.templateVersion
	}
	meta := VersionMeta{
		ID:              id,
		CreatedAt:       ts,
		Sponsor:         p.Sponsor,
		Campaign:        p.Campaign,
		ContentHash:     ContentHash(p.Markdown),
		Paths:           Paths{MD: filepath.Join(out, mdFile), Doc: filepath.Join(out, docFile)},
		Tags:            nonNil(p.Tags),
		TemplateVersion: tv,
		Status:          StatusDraft,
	}
	if err := os.WriteFile(meta.Paths.MD, []byte(p.Markdown), 0o644); err != nil {
		return VersionMeta{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	used := p.UsedDocs
	if used == nil {
		used = []UsedDoc{}
	}
	if err := writeJSON(filepath.Join(out, versionFile), Version{VersionMeta: meta, ToolData: p.ToolData, UsedDocs: used}); err != nil {
		return VersionMeta{}, err
	}

	idx, err := s.loadIndex()
	if err != nil {
		return VersionMeta{}, err
	}
	idx.Items = append(idx.Items, meta)
	sort.SliceStable(idx.Items, func(i, j int) bool { return idx.Items[i].CreatedAt > idx.Items[j].CreatedAt })
	if err := writeJSON(filepath.Join(s.dir, indexFile), idx); err != nil {
		return VersionMeta{}, err
	}
	saved = true
	return meta, nil
}

func (s *FileStore) List(_ context.Context, limit int) ([]VersionMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(idx.Items) > limit {
		idx.Items = idx.Items[:limit]
	}
	return idx.Items, nil
}

// Get returns the version; status fields come from the index.
func (s *FileStore) Get(_ context.Context, id string) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return Version{}, err
	}
	i := findItem(idx.Items, id)
	if i < 0 {
		return Version{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var v Version
	data, err := os.ReadFile(filepath.Join(s.dir, id, versionFile))
	if err != nil {
		return Version{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return Version{}, fmt.Errorf("%w: decode %s: %v", ErrPersistence, versionFile, err)
	}
	md, err := os.ReadFile(idx.Items[i].Paths.MD)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	v.VersionMeta = idx.Items[i]
	v.Markdown = string(md)
	return v, nil
}

func (s *FileStore) MarkApproved(_ context.Context, id, by string) (VersionMeta, error) {
	return s.transition(id, StatusApproved, by)
}

func (s *FileStore) MarkRejected(_ context.Context, id, by string) (VersionMeta, error) {
	return s.transition(id, StatusRejected, by)
}

func (s *FileStore) transition(id, status, by string) (VersionMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.loadIndex()
	if err != nil {
		return VersionMeta{}, err
	}
	i := findItem(idx.Items, id)
	if i < 0 {
		return VersionMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	it := &idx.Items[i]
	if it.Status != StatusDraft {
		return VersionMeta{}, fmt.Errorf("%w: %s is %s", ErrStatusConflict, id, it.Status)
	}
	now := s.now().Unix()
	it.Status = status
	it.ApprovedAt = &now
	it.ApprovedBy = &by
	if err := writeJSON(filepath.Join(s.dir, indexFile), idx); err != nil {
		return VersionMeta{}, err
	}
	return *it, nil
}

func (s *FileStore) loadIndex() (index, error) {
	var idx index
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if errors.Is(err, os.ErrNotExist) {
		return index{Items: []VersionMeta{}}, nil
	}
	if err != nil {
		return idx, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := json.Unmarshal(data, &idx); err != nil {
		return idx, fmt.Errorf("%w: decode %s: %v", ErrPersistence, indexFile, err)
	}
	if idx.Items == nil {
		idx.Items = []VersionMeta{}
	}
	return idx, nil
}

// writeJSON 先写临时文件再 rename，读者不会看到写了一半的文件。
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func findItem(items []VersionMeta, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
