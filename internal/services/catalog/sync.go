package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"skinvault/internal/models"
	"skinvault/internal/storage"
)

// Fetcher pulls the full catalog from the remote API.
// Implemented by remote.CatalogClient.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]models.CatalogItem, error)
}

// Orchestrator keeps the local catalog mirror consistent with the
// remote catalog while preserving per-record favorite state.
type Orchestrator struct {
	Store      *storage.CatalogStore
	Meta       *storage.MetaStore
	Fetcher    Fetcher
	StaleAfter time.Duration
	Logger     *slog.Logger

	mu       sync.Mutex
	inflight *syncCall
}

type syncCall struct {
	done  chan struct{}
	count int
	err   error
}

func (o *Orchestrator) log() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Orchestrator) staleAfter() time.Duration {
	if o.StaleAfter > 0 {
		return o.StaleAfter
	}
	return 24 * time.Hour
}

// LoadOrSync returns the current item set. An empty store forces a
// blocking full sync first; a populated store is served immediately,
// with a background resync fired when the last sync is older than the
// staleness horizon. The caller is never blocked on the background
// branch and never sees its errors.
func (o *Orchestrator) LoadOrSync(ctx context.Context) ([]models.CatalogItem, error) {
	count, err := o.Store.Count()
	if err != nil {
		return nil, err
	}

	if count == 0 {
		if _, err := o.SyncFromRemote(ctx); err != nil {
			return nil, err
		}
		return o.Store.List(false)
	}

	lastSync, err := o.Meta.GetTime(models.MetaLastCatalogSync)
	if err == nil && time.Since(lastSync) > o.staleAfter() {
		go func() {
			// Detached from the caller's context on purpose: the
			// resync should not die with the request that noticed
			// staleness.
			bctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			if _, err := o.SyncFromRemote(bctx); err != nil {
				o.log().Warn("background catalog resync failed", "err", err)
			}
		}()
	}

	return o.Store.List(false)
}

// SyncFromRemote fetches the full catalog and applies a favorite-
// preserving upsert per record. Returns the number of records synced.
// Overlapping calls coalesce: a call made while a sync is in flight
// waits for that sync's result instead of starting another.
func (o *Orchestrator) SyncFromRemote(ctx context.Context) (int, error) {
	o.mu.Lock()
	if call := o.inflight; call != nil {
		o.mu.Unlock()
		select {
		case <-call.done:
			return call.count, call.err
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	call := &syncCall{done: make(chan struct{})}
	o.inflight = call
	o.mu.Unlock()

	call.count, call.err = o.doSync(ctx)

	o.mu.Lock()
	o.inflight = nil
	o.mu.Unlock()
	close(call.done)

	return call.count, call.err
}

func (o *Orchestrator) doSync(ctx context.Context) (int, error) {
	started := time.Now()
	items, err := o.Fetcher.FetchAll(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, models.ErrEmptyRemoteResponse
	}

	// Each row's upsert is atomic, so an interrupted sync leaves a
	// partially-updated but never corrupted store.
	synced := 0
	for i := range items {
		if err := o.Store.UpsertPreservingFavorite(items[i]); err != nil {
			return synced, err
		}
		synced++
	}

	if err := o.Meta.SetTime(models.MetaLastCatalogSync, time.Now()); err != nil {
		o.log().Warn("failed to record catalog sync time", "err", err)
	}

	o.log().Info("catalog sync done", "records", synced, "took", time.Since(started))
	return synced, nil
}
