package prices

import (
	"context"
	"log/slog"
	"time"

	"skinvault/internal/models"
	"skinvault/internal/services/cloud"
	"skinvault/internal/services/remote"
	"skinvault/internal/storage"
)

// Feed pulls the current price list. Implemented by remote.PriceClient.
type Feed interface {
	FetchPrices(ctx context.Context) ([]remote.PriceEntry, error)
}

// Replicator is the optional cloud replica write side.
// Implemented by cloud.ReplicaClient.
type Replicator interface {
	Enabled() bool
	WriteSnapshot(ctx context.Context, payload cloud.SnapshotPayload) error
}

// Service maintains the current price cache and the append-only price
// history log.
type Service struct {
	Store         *storage.PriceStore
	Meta          *storage.MetaStore
	Feed          Feed
	Replica       Replicator
	RetentionDays int
	DeviceID      string
	Logger        *slog.Logger
}

func (s *Service) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) retentionDays() int {
	if s.RetentionDays > 0 {
		return s.RetentionDays
	}
	return 30
}

// RefreshFromFeed runs one full refresh cycle against the remote feed.
// A failed fetch leaves both stores untouched; callers keep serving the
// last known cache values.
func (s *Service) RefreshFromFeed(ctx context.Context) (int, error) {
	entries, err := s.Feed.FetchPrices(ctx)
	if err != nil {
		return 0, err
	}
	return s.Refresh(entries)
}

// Refresh upserts every entry into the price cache and appends one
// history point per entry with a positive price. A non-positive price
// still updates the cache (the feed reports zero when there are no
// listings) but is never recorded in history. After a successful pass
// the cloud replica write is dispatched detached and old history is
// pruned.
func (s *Service) Refresh(entries []remote.PriceEntry) (int, error) {
	now := time.Now()
	refreshed := 0

	for _, e := range entries {
		if e.MarketKey == "" {
			continue
		}
		snap := models.PriceSnapshot{
			MarketKey: e.MarketKey,
			Price:     e.Price,
			MinPrice:  e.MinPrice,
			AvgPrice:  e.AvgPrice,
			MaxPrice:  e.MaxPrice,
			Quantity:  e.Quantity,
			UpdatedAt: now,
		}
		if err := s.Store.UpsertSnapshot(snap); err != nil {
			return refreshed, err
		}
		if e.Price > 0 {
			point := models.PriceHistoryPoint{
				MarketKey: e.MarketKey,
				Price:     e.Price,
				Timestamp: now,
			}
			if err := s.Store.AppendHistory(point); err != nil {
				return refreshed, err
			}
		}
		refreshed++
	}

	if err := s.Meta.SetTime(models.MetaLastPriceUpdate, now); err != nil {
		s.log().Warn("failed to record price update time", "err", err)
	}

	s.dispatchReplicaWrite(entries, now)

	if _, err := s.PruneHistory(s.retentionDays()); err != nil {
		s.log().Warn("history prune failed", "err", err)
	}

	return refreshed, nil
}

// dispatchReplicaWrite is strictly fire-and-forget: it runs detached
// from the polling cycle and its failure never reaches the local write
// path.
func (s *Service) dispatchReplicaWrite(entries []remote.PriceEntry, at time.Time) {
	if s.Replica == nil || !s.Replica.Enabled() {
		return
	}

	payload := cloud.SnapshotPayload{
		DeviceID:  s.DeviceID,
		Timestamp: at.Unix(),
	}
	for _, e := range entries {
		if e.Price <= 0 {
			continue
		}
		payload.Prices = append(payload.Prices, cloud.SnapshotPrice{
			MarketKey: e.MarketKey,
			Price:     e.Price,
		})
	}
	if len(payload.Prices) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Replica.WriteSnapshot(ctx, payload); err != nil {
			s.log().Warn("cloud replica write failed", "err", err)
		}
	}()
}

// GetCurrent returns the last successfully fetched stats for a market
// key, or nil when no refresh has ever succeeded for it.
func (s *Service) GetCurrent(marketKey string) (*models.PriceSnapshot, error) {
	return s.Store.GetSnapshot(marketKey)
}

// PruneHistory deletes history points older than the retention horizon.
func (s *Service) PruneHistory(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	pruned, err := s.Store.PruneHistory(cutoff)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.log().Info("pruned history", "rows", pruned, "retention_days", retentionDays)
	}
	return pruned, nil
}
