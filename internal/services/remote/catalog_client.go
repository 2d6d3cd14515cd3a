package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"skinvault/internal/models"

	"github.com/go-resty/resty/v2"
)

// CatalogClient fetches the full skin catalog from the remote catalog
// API and flattens its nested classification objects into CatalogItem
// rows.
type CatalogClient struct {
	baseURL string
	client  *resty.Client
}

type catalogEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Weapon struct {
		Name string `json:"name"`
	} `json:"weapon"`
	Category struct {
		Name string `json:"name"`
	} `json:"category"`
	Rarity struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	} `json:"rarity"`
	Wear struct {
		Name string `json:"name"`
	} `json:"wear"`
	MinFloat float64 `json:"min_float"`
	MaxFloat float64 `json:"max_float"`
	StatTrak bool    `json:"stattrak"`
	Souvenir bool    `json:"souvenir"`
	Image    string  `json:"image"`
}

func NewCatalogClient(baseURL string) *CatalogClient {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &CatalogClient{
		baseURL: baseURL,
		client:  client,
	}
}

// FetchAll downloads the complete catalog. Transport failures map to
// ErrNetworkUnavailable, non-2xx responses to ErrRemoteError.
func (c *CatalogClient) FetchAll(ctx context.Context) ([]models.CatalogItem, error) {
	resp, err := c.client.R().SetContext(ctx).Get(c.baseURL + "/skins.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrNetworkUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: catalog API returned %d", models.ErrRemoteError, resp.StatusCode())
	}

	var entries []catalogEntry
	if err := json.Unmarshal(resp.Body(), &entries); err != nil {
		return nil, fmt.Errorf("%w: bad catalog payload: %v", models.ErrRemoteError, err)
	}

	items := make([]models.CatalogItem, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		items = append(items, models.CatalogItem{
			ID:          e.ID,
			Name:        e.Name,
			Weapon:      e.Weapon.Name,
			Category:    e.Category.Name,
			Rarity:      e.Rarity.Name,
			RarityColor: e.Rarity.Color,
			Wear:        e.Wear.Name,
			MinFloat:    e.MinFloat,
			MaxFloat:    e.MaxFloat,
			StatTrak:    e.StatTrak,
			Souvenir:    e.Souvenir,
			ImageURL:    e.Image,
			UpdatedAt:   time.Now(),
		})
	}
	return items, nil
}
