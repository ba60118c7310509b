package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"artbiz_proposal/tools"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), "v16")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"한빛 은행":            "한빛-은행",
		"  ":                "proposal",
		"ACME Corp. (KR)!": "ACME-Corp.-KR",
		"!!!":              "proposal",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
	if got := Slug(strings.Repeat("가나다", 15)); len([]rune(got)) != 40 {
		t.Fatalf("slug should be cut to 40 runes, got %d", len([]rune(got)))
	}
}

func TestFileStoreSaveListGet(t *testing.T) {
	s := newTestStore(t)
	clock := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return clock }
	ctx := context.Background()

	bs, _ := tools.ComputeBudgetSplit(30_000_000, tools.DefaultRatios())
	first, err := s.Save(ctx, SaveParams{
		Sponsor:  "한빛 은행",
		Campaign: "봄 축제",
		Markdown: "# 제안서\n",
		ToolData: tools.ToolData{BudgetSplit: &bs},
		UsedDocs: []UsedDoc{{Meta: map[string]string{"type": "policy"}, Preview: "근거"}},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if first.ID != "1700000000_한빛-은행_봄-축제" {
		t.Fatalf("unexpected id %q", first.ID)
	}
	if first.Status != StatusDraft || first.TemplateVersion != "v16" || first.ContentHash != ContentHash("# 제안서\n") {
		t.Fatalf("unexpected meta %+v", first)
	}
	if data, err := os.ReadFile(first.Paths.MD); err != nil || string(data) != "# 제안서\n" {
		t.Fatalf("markdown not written: %v", err)
	}

	// same second, same names: must not overwrite
	dup, err := s.Save(ctx, SaveParams{Sponsor: "한빛 은행", Campaign: "봄 축제", Markdown: "# 둘째\n"})
	if err != nil {
		t.Fatalf("save dup: %v", err)
	}
	if dup.ID == first.ID {
		t.Fatal("duplicate save reused the folder")
	}

	clock = clock.Add(time.Minute)
	latest, err := s.Save(ctx, SaveParams{Sponsor: "B", Campaign: "C", Markdown: "x", TemplateVersion: "custom"})
	if err != nil {
		t.Fatalf("save latest: %v", err)
	}

	items, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 || items[0].ID != latest.ID {
		t.Fatalf("list should be newest first: %+v", items)
	}
	if items[0].TemplateVersion != "custom" {
		t.Fatalf("explicit template version lost: %q", items[0].TemplateVersion)
	}
	if two, _ := s.List(ctx, 2); len(two) != 2 {
		t.Fatalf("limit ignored: %d", len(two))
	}

	v, err := s.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if v.Markdown != "# 제안서\n" || v.ToolData.BudgetSplit == nil || v.ToolData.BudgetSplit.Total != 30_000_000 {
		t.Fatalf("unexpected version %+v", v)
	}
	if len(v.UsedDocs) != 1 || v.UsedDocs[0].Preview != "근거" {
		t.Fatalf("used docs lost: %+v", v.UsedDocs)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m, err := s.Save(ctx, SaveParams{Sponsor: "A", Campaign: "B", Markdown: "md"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	approved, err := s.MarkApproved(ctx, m.ID, "kim")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != StatusApproved || approved.ApprovedBy == nil || *approved.ApprovedBy != "kim" || approved.ApprovedAt == nil {
		t.Fatalf("unexpected approved meta %+v", approved)
	}
	if _, err := s.MarkRejected(ctx, m.ID, "lee"); !errors.Is(err, ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}
	if _, err := s.MarkApproved(ctx, "missing", "kim"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	v, _ := s.Get(ctx, m.ID)
	if v.Status != StatusApproved {
		t.Fatalf("status not persisted: %q", v.Status)
	}
}

func TestFileStoreConcurrentSaves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Save(ctx, SaveParams{Sponsor: "동시", Campaign: "저장", Markdown: "md"}); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
	}
	wg.Wait()
	items, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 20 {
		t.Fatalf("expected 20 index entries, got %d", len(items))
	}
}

func TestFileStoreCorruptIndex(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.dir, indexFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.List(context.Background(), 10); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestFileStoreFailedSaveLeavesNoDirectory(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.dir, indexFile), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.Save(context.Background(), SaveParams{Sponsor: "a", Campaign: "b", Markdown: "# x\n"}); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			t.Fatalf("failed save left %s behind", e.Name())
		}
	}
}

func TestArtifactPathsKeepMarkdownBesideDocument(t *testing.T) {
	p := artifactPaths("/data/proposals", "abc")
	if p.MD != filepath.Join("/data/proposals", "abc", mdFile) || p.Doc != filepath.Join("/data/proposals", "abc", docFile) {
		t.Fatalf("unexpected paths %+v", p)
	}
	if got := pathsFromDoc(p.Doc); got != p {
		t.Fatalf("paths from doc = %+v, want %+v", got, p)
	}
}
