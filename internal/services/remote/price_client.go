package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skinvault/internal/models"

	"github.com/go-resty/resty/v2"
)

// PriceEntry is one normalized row from the price feed.
type PriceEntry struct {
	MarketKey string  `json:"market_key"`
	Price     float64 `json:"price"`
	MinPrice  float64 `json:"min_price"`
	AvgPrice  float64 `json:"avg_price"`
	MaxPrice  float64 `json:"max_price"`
	Quantity  int     `json:"quantity"`
}

// PriceClient fetches the current market prices for all tracked keys.
type PriceClient struct {
	feedURL string
	client  *resty.Client
}

func NewPriceClient(feedURL string) *PriceClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &PriceClient{
		feedURL: feedURL,
		client:  client,
	}
}

// FetchPrices downloads the full price list from the feed.
func (c *PriceClient) FetchPrices(ctx context.Context) ([]PriceEntry, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetworkUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: price feed returned %d", models.ErrRemoteError, resp.StatusCode())
	}

	var entries []PriceEntry
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, fmt.Errorf("%w: bad price payload: %v", models.ErrRemoteError, err)
	}
	return entries, nil
}
