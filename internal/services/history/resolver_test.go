package history_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"skinvault/internal/database"
	"skinvault/internal/models"
	"skinvault/internal/services/history"
	"skinvault/internal/storage"
)

type fakeCloud struct {
	enabled bool
	points  []models.PriceHistoryPoint
	err     error
	hang    bool // block until the context deadline hits
}

func (f *fakeCloud) Enabled() bool { return f.enabled }

func (f *fakeCloud) ReadSeries(ctx context.Context, marketKey string, since time.Time) ([]models.PriceHistoryPoint, error) {
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.points, f.err
}

func newTestResolver(t *testing.T, cloud history.CloudReader) (*history.Resolver, *storage.PriceStore) {
	t.Helper()
	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	store := storage.NewPriceStore(db)
	return &history.Resolver{
		Cloud:        cloud,
		Local:        store,
		CloudTimeout: 50 * time.Millisecond,
	}, store
}

func seedLocal(t *testing.T, store *storage.PriceStore, key string, n int) {
	t.Helper()
	now := time.Now()
	for i := 0; i < n; i++ {
		point := models.PriceHistoryPoint{
			MarketKey: key,
			Price:     float64(i + 1),
			Timestamp: now.Add(time.Duration(i-n) * time.Hour),
		}
		if err := store.AppendHistory(point); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func cloudPoints(key string, n int) []models.PriceHistoryPoint {
	now := time.Now()
	points := make([]models.PriceHistoryPoint, n)
	for i := range points {
		points[i] = models.PriceHistoryPoint{
			MarketKey: key,
			Price:     float64(i + 1),
			Timestamp: now.Add(time.Duration(i-n) * time.Hour),
		}
	}
	return points
}

func TestResolveCloudServes(t *testing.T) {
	resolver, _ := newTestResolver(t, &fakeCloud{enabled: true, points: cloudPoints("k", 5)})

	result := resolver.Resolve(context.Background(), "k", 30)
	if result.Reason != history.ReasonOK {
		t.Errorf("reason = %s, want OK", result.Reason)
	}
	if result.Source != "cloud" {
		t.Errorf("source = %s, want cloud", result.Source)
	}
	if len(result.Points) != 5 {
		t.Errorf("points = %d, want 5", len(result.Points))
	}
}

func TestResolveNoCloudFallsBackToLocal(t *testing.T) {
	resolver, store := newTestResolver(t, nil)
	seedLocal(t, store, "k", 3)

	result := resolver.Resolve(context.Background(), "k", 30)
	if result.Reason != history.ReasonNoCloud {
		t.Errorf("reason = %s, want NO_CLOUD", result.Reason)
	}
	if result.Source != "local" {
		t.Errorf("source = %s, want local", result.Source)
	}
	if len(result.Points) != 3 {
		t.Errorf("points = %d, want 3", len(result.Points))
	}
}

func TestResolveCloudTimeoutFallsBackToLocal(t *testing.T) {
	resolver, store := newTestResolver(t, &fakeCloud{enabled: true, hang: true})
	seedLocal(t, store, "k", 4)

	started := time.Now()
	result := resolver.Resolve(context.Background(), "k", 30)
	if elapsed := time.Since(started); elapsed > time.Second {
		t.Errorf("resolve took %v, the cloud wait must be bounded", elapsed)
	}

	if result.Reason != history.ReasonTimeout {
		t.Errorf("reason = %s, want TIMEOUT", result.Reason)
	}
	if result.Source != "local" {
		t.Errorf("source = %s, want local", result.Source)
	}
	if len(result.Points) != 4 {
		t.Errorf("points = %d, want the filtered local series", len(result.Points))
	}
}

func TestResolveCloudErrorFallsBackToLocal(t *testing.T) {
	resolver, store := newTestResolver(t, &fakeCloud{enabled: true, err: models.ErrCloudUnavailable})
	seedLocal(t, store, "k", 2)

	result := resolver.Resolve(context.Background(), "k", 30)
	if result.Reason != history.ReasonNoCloud {
		t.Errorf("reason = %s, want NO_CLOUD", result.Reason)
	}
	if len(result.Points) != 2 {
		t.Errorf("points = %d, want 2", len(result.Points))
	}
}

func TestResolveCloudSparseLocalServes(t *testing.T) {
	// Cloud reachable but holding a single point: not enough for a
	// trend, local takes over.
	resolver, store := newTestResolver(t, &fakeCloud{enabled: true, points: cloudPoints("k", 1)})
	seedLocal(t, store, "k", 3)

	result := resolver.Resolve(context.Background(), "k", 30)
	if result.Reason != history.ReasonOKLocal {
		t.Errorf("reason = %s, want OK_LOCAL", result.Reason)
	}
	if len(result.Points) != 3 {
		t.Errorf("points = %d, want 3", len(result.Points))
	}
}

func TestResolveInsufficientEverywhere(t *testing.T) {
	resolver, store := newTestResolver(t, nil)
	seedLocal(t, store, "k", 1)

	result := resolver.Resolve(context.Background(), "k", 30)
	if result.Reason != history.ReasonInsufficient {
		t.Errorf("reason = %s, want INSUFFICIENT_LOCAL_DATA", result.Reason)
	}
	if len(result.Points) != 0 {
		t.Errorf("points = %d, a one-point series is not a trend", len(result.Points))
	}
	if result.Points == nil {
		t.Error("points must be an empty slice, not nil")
	}
}

func TestResolveWindowFiltersLocal(t *testing.T) {
	resolver, store := newTestResolver(t, nil)

	now := time.Now()
	for i, age := range []time.Duration{40 * 24 * time.Hour, 2 * 24 * time.Hour, 24 * time.Hour} {
		point := models.PriceHistoryPoint{MarketKey: "k", Price: float64(i + 1), Timestamp: now.Add(-age)}
		if err := store.AppendHistory(point); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	result := resolver.Resolve(context.Background(), "k", 7)
	if len(result.Points) != 2 {
		t.Errorf("points = %d, want 2 inside the 7 day window", len(result.Points))
	}
}
