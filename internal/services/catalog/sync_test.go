package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"skinvault/internal/database"
	"skinvault/internal/models"
	"skinvault/internal/services/catalog"
	"skinvault/internal/storage"
)

type fakeFetcher struct {
	mu      sync.Mutex
	items   []models.CatalogItem
	err     error
	calls   int32
	barrier chan struct{} // when set, FetchAll blocks until closed
}

func (f *fakeFetcher) FetchAll(ctx context.Context) ([]models.CatalogItem, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.barrier != nil {
		<-f.barrier
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

func newTestOrchestrator(t *testing.T, fetcher catalog.Fetcher) (*catalog.Orchestrator, *storage.CatalogStore, *storage.MetaStore) {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	store := storage.NewCatalogStore(db)
	meta := storage.NewMetaStore(db)
	return &catalog.Orchestrator{Store: store, Meta: meta, Fetcher: fetcher}, store, meta
}

func makeItems(n int) []models.CatalogItem {
	items := make([]models.CatalogItem, n)
	for i := range items {
		items[i] = models.CatalogItem{
			ID:   fmt.Sprintf("item-%04d", i),
			Name: fmt.Sprintf("Item %04d", i),
		}
	}
	return items
}

func TestLoadOrSyncEmptyStore(t *testing.T) {
	fetcher := &fakeFetcher{items: makeItems(500)}
	orc, store, _ := newTestOrchestrator(t, fetcher)

	items, err := orc.LoadOrSync(context.Background())
	if err != nil {
		t.Fatalf("LoadOrSync: %v", err)
	}
	if len(items) != 500 {
		t.Fatalf("items = %d, want 500", len(items))
	}
	for _, item := range items {
		if item.IsFavorite {
			t.Fatalf("fresh item %s marked favorite", item.ID)
		}
	}

	count, _ := store.Count()
	if count != 500 {
		t.Errorf("store rows = %d, want 500", count)
	}
}

func TestLoadOrSyncServesLocallyWhenFresh(t *testing.T) {
	fetcher := &fakeFetcher{err: models.ErrNetworkUnavailable}
	orc, store, meta := newTestOrchestrator(t, fetcher)

	if err := store.UpsertPreservingFavorite(models.CatalogItem{ID: "a", Name: "A"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := meta.SetTime(models.MetaLastCatalogSync, time.Now()); err != nil {
		t.Fatalf("seed meta: %v", err)
	}

	items, err := orc.LoadOrSync(context.Background())
	if err != nil {
		t.Fatalf("LoadOrSync should serve the local store offline: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}
	if atomic.LoadInt32(&fetcher.calls) != 0 {
		t.Error("fresh store should not trigger a fetch")
	}
}

func TestLoadOrSyncBackgroundResyncFailureSwallowed(t *testing.T) {
	fetcher := &fakeFetcher{err: models.ErrRemoteError}
	orc, store, meta := newTestOrchestrator(t, fetcher)

	if err := store.UpsertPreservingFavorite(models.CatalogItem{ID: "a", Name: "A"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Stale sync timestamp triggers the background branch.
	if err := meta.SetTime(models.MetaLastCatalogSync, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatalf("seed meta: %v", err)
	}

	items, err := orc.LoadOrSync(context.Background())
	if err != nil {
		t.Fatalf("background failure must not surface: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("items = %d, want 1", len(items))
	}

	// Give the detached resync a moment; the store must stay intact.
	deadline := time.After(time.Second)
	for atomic.LoadInt32(&fetcher.calls) == 0 {
		select {
		case <-deadline:
			t.Fatal("background resync never attempted")
		case <-time.After(5 * time.Millisecond):
		}
	}
	count, _ := store.Count()
	if count != 1 {
		t.Errorf("store rows = %d after failed resync, want 1", count)
	}
}

func TestSyncFromRemoteEmptyPayload(t *testing.T) {
	fetcher := &fakeFetcher{}
	orc, store, _ := newTestOrchestrator(t, fetcher)

	if err := store.UpsertPreservingFavorite(models.CatalogItem{ID: "a", Name: "A"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := orc.SyncFromRemote(context.Background())
	if !errors.Is(err, models.ErrEmptyRemoteResponse) {
		t.Fatalf("err = %v, want ErrEmptyRemoteResponse", err)
	}
	count, _ := store.Count()
	if count != 1 {
		t.Errorf("store modified by empty payload, rows = %d", count)
	}
}

func TestSyncFromRemotePreservesFavorites(t *testing.T) {
	fetcher := &fakeFetcher{items: []models.CatalogItem{
		{ID: "ak47-x", Name: "AK-47 | X", Rarity: "Covert"},
	}}
	orc, store, meta := newTestOrchestrator(t, fetcher)

	if err := store.UpsertPreservingFavorite(models.CatalogItem{ID: "ak47-x", Name: "AK-47 | X (old)"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := store.ToggleFavorite("ak47-x"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	count, err := orc.SyncFromRemote(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if count != 1 {
		t.Errorf("synced = %d, want 1", count)
	}

	got, _ := store.Get("ak47-x")
	if got == nil || !got.IsFavorite {
		t.Error("favorite flag lost through SyncFromRemote")
	}
	if got.Rarity != "Covert" {
		t.Errorf("rarity = %q, other fields must reflect the new payload", got.Rarity)
	}

	lastSync, _ := meta.GetTime(models.MetaLastCatalogSync)
	if lastSync.IsZero() {
		t.Error("lastCatalogSync not recorded")
	}
}

func TestSyncFromRemoteIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{items: makeItems(25)}
	orc, store, _ := newTestOrchestrator(t, fetcher)

	for i := 0; i < 2; i++ {
		if _, err := orc.SyncFromRemote(context.Background()); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}
	count, _ := store.Count()
	if count != 25 {
		t.Errorf("rows = %d after two identical syncs, want 25", count)
	}
}

func TestOverlappingSyncsCoalesce(t *testing.T) {
	fetcher := &fakeFetcher{items: makeItems(3), barrier: make(chan struct{})}
	orc, _, _ := newTestOrchestrator(t, fetcher)

	results := make(chan int, 2)
	for i := 0; i < 2; i++ {
		go func() {
			count, err := orc.SyncFromRemote(context.Background())
			if err != nil {
				t.Errorf("sync: %v", err)
			}
			results <- count
		}()
	}

	// Let both goroutines reach the orchestrator before releasing the
	// fetch.
	time.Sleep(50 * time.Millisecond)
	close(fetcher.barrier)

	for i := 0; i < 2; i++ {
		select {
		case count := <-results:
			if count != 3 {
				t.Errorf("count = %d, want 3", count)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("sync never completed")
		}
	}

	if calls := atomic.LoadInt32(&fetcher.calls); calls != 1 {
		t.Errorf("fetch calls = %d, overlapping syncs must coalesce to 1", calls)
	}
}
