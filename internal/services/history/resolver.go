package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"skinvault/internal/models"
	"skinvault/internal/storage"
)

// Reason explains which tier served a history query, or why no series
// could be produced. A resolved series always carries one.
type Reason string

const (
	ReasonOK           Reason = "OK"                      // served by the cloud replica
	ReasonOKLocal      Reason = "OK_LOCAL"                // cloud had too little data, local served
	ReasonNoCloud      Reason = "NO_CLOUD"                // replica absent or unreachable, local served
	ReasonTimeout      Reason = "TIMEOUT"                 // replica timed out, local served
	ReasonInsufficient Reason = "INSUFFICIENT_LOCAL_DATA" // fewer than 2 points everywhere
)

// Result is a resolved price series. Points may be empty; Resolve never
// fails outright.
type Result struct {
	Points []models.PriceHistoryPoint `json:"points"`
	Source string                     `json:"source"`
	Reason Reason                     `json:"reason"`
}

// CloudReader is the replica read side. Implemented by
// cloud.ReplicaClient; a nil client reports itself as disabled.
type CloudReader interface {
	Enabled() bool
	ReadSeries(ctx context.Context, marketKey string, since time.Time) ([]models.PriceHistoryPoint, error)
}

// Resolver answers historical-price queries by falling across storage
// tiers in a fixed order: durable cloud replica, then the local history
// log, then "insufficient data". The replica is the cross-device source
// of truth when reachable but must never block a query past its
// timeout; the local log guarantees an answer once one poll cycle has
// run on this device.
type Resolver struct {
	Cloud        CloudReader
	Local        *storage.PriceStore
	CloudTimeout time.Duration
	Logger       *slog.Logger
}

func (r *Resolver) log() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Resolver) cloudTimeout() time.Duration {
	if r.CloudTimeout > 0 {
		return r.CloudTimeout
	}
	return 4 * time.Second
}

// Resolve returns the price series for a market key over the last
// `days` days. A series needs at least 2 points to express a trend;
// fewer is reported as insufficient, not as an empty success.
func (r *Resolver) Resolve(ctx context.Context, marketKey string, days int) Result {
	since := time.Now().AddDate(0, 0, -days)

	points, fallback := r.fromCloud(ctx, marketKey, since)
	if len(points) >= 2 {
		return Result{Points: points, Source: "cloud", Reason: ReasonOK}
	}

	points = r.fromLocal(marketKey, since)
	if len(points) >= 2 {
		return Result{Points: points, Source: "local", Reason: fallback}
	}

	return Result{Points: []models.PriceHistoryPoint{}, Source: "none", Reason: ReasonInsufficient}
}

// fromCloud queries the replica with a bounded wait. The second return
// is the reason a later tier should carry if this one cannot serve.
func (r *Resolver) fromCloud(ctx context.Context, marketKey string, since time.Time) ([]models.PriceHistoryPoint, Reason) {
	if r.Cloud == nil || !r.Cloud.Enabled() {
		return nil, ReasonNoCloud
	}

	cctx, cancel := context.WithTimeout(ctx, r.cloudTimeout())
	defer cancel()

	points, err := r.Cloud.ReadSeries(cctx, marketKey, since)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		r.log().Warn("cloud history query timed out", "market_key", marketKey)
		return nil, ReasonTimeout
	case err != nil:
		r.log().Warn("cloud history query failed", "market_key", marketKey, "err", err)
		return nil, ReasonNoCloud
	}
	return points, ReasonOKLocal
}

func (r *Resolver) fromLocal(marketKey string, since time.Time) []models.PriceHistoryPoint {
	points, err := r.Local.History(marketKey, since)
	if err != nil {
		r.log().Warn("local history query failed", "market_key", marketKey, "err", err)
		return nil
	}
	return points
}
