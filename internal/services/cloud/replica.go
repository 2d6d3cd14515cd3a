package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skinvault/internal/models"

	"github.com/go-resty/resty/v2"
)

// ReplicaClient talks to the optional durable cloud replica used for
// cross-device price-history continuity. A nil *ReplicaClient is a
// valid "not configured" client: every call reports ErrCloudUnavailable
// and the system runs local-only.
type ReplicaClient struct {
	baseURL string
	client  *resty.Client
}

// SnapshotPayload is one full poll-cycle snapshot, keyed by timestamp.
type SnapshotPayload struct {
	DeviceID  string          `json:"device_id"`
	Timestamp int64           `json:"timestamp"`
	Prices    []SnapshotPrice `json:"prices"`
}

type SnapshotPrice struct {
	MarketKey string  `json:"market_key"`
	Price     float64 `json:"price"`
}

type seriesPoint struct {
	MarketKey string  `json:"market_key"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// New returns nil when baseURL is empty, which disables the replica.
func New(baseURL, apiKey string) *ReplicaClient {
	if baseURL == "" {
		return nil
	}

	client := resty.New()
	client.SetTimeout(15 * time.Second)
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}

	return &ReplicaClient{
		baseURL: baseURL,
		client:  client,
	}
}

func (c *ReplicaClient) Enabled() bool {
	return c != nil
}

// WriteSnapshot pushes one cycle's snapshot. Callers treat any error as
// non-fatal; the local write path never waits on this.
func (c *ReplicaClient) WriteSnapshot(ctx context.Context, payload SnapshotPayload) error {
	if c == nil {
		return models.ErrCloudUnavailable
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Put(fmt.Sprintf("%s/v1/snapshots/%d", c.baseURL, payload.Timestamp))
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrCloudUnavailable, err)
	}
	if resp.StatusCode() >= 300 {
		return fmt.Errorf("%w: replica returned %d", models.ErrCloudUnavailable, resp.StatusCode())
	}
	return nil
}

// ReadSeries returns the replica's points for a market key since the
// given time, oldest first. A context deadline is reported unwrapped so
// the resolver can distinguish a timeout from an unreachable replica.
func (c *ReplicaClient) ReadSeries(ctx context.Context, marketKey string, since time.Time) ([]models.PriceHistoryPoint, error) {
	if c == nil {
		return nil, models.ErrCloudUnavailable
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("market_key", marketKey).
		SetQueryParam("since", fmt.Sprintf("%d", since.Unix())).
		Get(c.baseURL + "/v1/series")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, fmt.Errorf("%w: %v", models.ErrCloudUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: replica returned %d", models.ErrCloudUnavailable, resp.StatusCode())
	}

	var raw []seriesPoint
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("%w: bad series payload: %v", models.ErrCloudUnavailable, err)
	}

	points := make([]models.PriceHistoryPoint, 0, len(raw))
	for _, p := range raw {
		points = append(points, models.PriceHistoryPoint{
			MarketKey: p.MarketKey,
			Price:     p.Price,
			Timestamp: time.Unix(p.Timestamp, 0),
		})
	}
	return points, nil
}
