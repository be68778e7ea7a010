package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/inkflow/inkflow/internal/core"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecord(id string, createdAt time.Time) Record {
	return Record{
		ID:          id,
		TaskID:      "task-" + id,
		Topic:       "topic " + id,
		Title:       "Title " + id,
		ArticleType: core.ArticleTypeBlog,
		Status:      core.StatusCompleted,
		Markdown:    "# Title\n\n## One\n",
		Outline:     core.Outline{Title: "Title " + id, SectionTitles: []string{"One"}},
		Stats:       ContentStats{Sections: 1},
		CreatedAt:   createdAt,
	}
}

func TestStoreSaveAndGet(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("a", time.Now().UTC())
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != rec.Title || got.TaskID != rec.TaskID || got.Status != rec.Status {
		t.Errorf("record mangled: %+v", got)
	}
	if len(got.Outline.SectionTitles) != 1 || got.Outline.SectionTitles[0] != "One" {
		t.Errorf("outline not preserved: %+v", got.Outline)
	}
	if got.Stats.Sections != 1 {
		t.Errorf("stats not preserved: %+v", got.Stats)
	}
}

func TestStoreGetMissing(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for missing record")
	}
	if !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		if err := store.Save(ctx, sampleRecord(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}

	records, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID != "new" || records[2].ID != "old" {
		t.Errorf("records not newest-first: %s, %s, %s", records[0].ID, records[1].ID, records[2].ID)
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit 2, got %d", len(limited))
	}
}

func TestStoreUpsert(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("a", time.Now().UTC())
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec.Title = "Renamed"
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	got, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Renamed" {
		t.Errorf("upsert did not apply: %q", got.Title)
	}
	records, _ := store.List(ctx, 0)
	if len(records) != 1 {
		t.Errorf("upsert must not duplicate rows, got %d", len(records))
	}
}

func TestStoreDelete(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleRecord("a", time.Now().UTC())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "a"); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("record should be gone, got %v", err)
	}
	if err := store.Delete(ctx, "a"); !core.IsCategory(err, core.ErrCatNotFound) {
		t.Errorf("deleting a missing record should be not-found, got %v", err)
	}
}
