// Package wikiprices provides item catalog and price fetching from the public
// real-time prices API, with persistent caching.
package wikiprices

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/clientdata"
	"github.com/flipsight/flipsight/internal/domain"
)

// Client for the public prices API.
// The API requires a descriptive User-Agent on every request.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a new prices API client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL, userAgent string, cacheRepo *clientdata.Repository, log zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       log.With().Str("client", "wikiprices").Logger(),
		cacheRepo: cacheRepo,
	}
}

// mappingEntry matches the /mapping response schema.
type mappingEntry struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Members  bool   `json:"members"`
	BuyLimit int    `json:"limit"`
	Value    int    `json:"value"`
}

// latestEntry matches one value of the /latest "data" map.
type latestEntry struct {
	High     *int64 `json:"high"`
	HighTime *int64 `json:"highTime"`
	Low      *int64 `json:"low"`
	LowTime  *int64 `json:"lowTime"`
}

// volumeResponse matches the /volumes response schema.
type volumeResponse struct {
	Timestamp int64            `json:"timestamp"`
	Data      map[string]int64 `json:"data"`
}

// GetMapping fetches the item catalog with cache.
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) GetMapping() ([]domain.Item, error) {
	if c.cacheRepo != nil {
		var cached []domain.Item
		found, err := c.cacheRepo.GetIfFresh("item_mapping", "all", &cached)
		if err == nil && found {
			c.log.Debug().Int("items", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	var entries []mappingEntry
	if err := c.fetch("/mapping", &entries); err != nil {
		var stale []domain.Item
		if c.staleFromCache("item_mapping", "all", &stale) {
			c.log.Warn().Err(err).Int("items", len(stale)).Msg("API failed, using stale cached mapping")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch item mapping: %w", err)
	}

	items := make([]domain.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, domain.Item{
			ID:       e.ID,
			Name:     e.Name,
			Members:  e.Members,
			BuyLimit: e.BuyLimit,
			Value:    e.Value,
		})
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("item_mapping", "all", items, clientdata.TTLItemMapping); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache item mapping")
		}
	}

	c.log.Info().Int("items", len(items)).Msg("Fetched item mapping")
	return items, nil
}

// GetLatest fetches the latest high/low prices for all items with cache.
func (c *Client) GetLatest() (map[int]domain.PriceQuote, error) {
	if c.cacheRepo != nil {
		var cached map[int]domain.PriceQuote
		found, err := c.cacheRepo.GetIfFresh("latest_prices", "all", &cached)
		if err == nil && found {
			c.log.Debug().Int("items", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	var resp struct {
		Data map[string]latestEntry `json:"data"`
	}
	if err := c.fetch("/latest", &resp); err != nil {
		var stale map[int]domain.PriceQuote
		if c.staleFromCache("latest_prices", "all", &stale) {
			c.log.Warn().Err(err).Int("items", len(stale)).Msg("API failed, using stale cached prices")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch latest prices: %w", err)
	}

	quotes := make(map[int]domain.PriceQuote, len(resp.Data))
	for idStr, e := range resp.Data {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		q := domain.PriceQuote{ItemID: id}
		if e.High != nil {
			q.High = *e.High
		}
		if e.HighTime != nil {
			q.HighTime = *e.HighTime
		}
		if e.Low != nil {
			q.Low = *e.Low
		}
		if e.LowTime != nil {
			q.LowTime = *e.LowTime
		}
		quotes[id] = q
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("latest_prices", "all", quotes, clientdata.TTLLatestPrices); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache latest prices")
		}
	}

	c.log.Info().Int("items", len(quotes)).Msg("Fetched latest prices")
	return quotes, nil
}

// GetVolumes fetches 24h traded volumes for all items with cache.
func (c *Client) GetVolumes() (map[int]int64, error) {
	if c.cacheRepo != nil {
		var cached map[int]int64
		found, err := c.cacheRepo.GetIfFresh("daily_volumes", "all", &cached)
		if err == nil && found {
			c.log.Debug().Int("items", len(cached)).Msg("Cache hit")
			return cached, nil
		}
	}

	var resp volumeResponse
	if err := c.fetch("/volumes", &resp); err != nil {
		var stale map[int]int64
		if c.staleFromCache("daily_volumes", "all", &stale) {
			c.log.Warn().Err(err).Int("items", len(stale)).Msg("API failed, using stale cached volumes")
			return stale, nil
		}
		return nil, fmt.Errorf("failed to fetch daily volumes: %w", err)
	}

	volumes := make(map[int]int64, len(resp.Data))
	for idStr, v := range resp.Data {
		id, err := strconv.Atoi(idStr)
		if err != nil {
			continue
		}
		volumes[id] = v
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store("daily_volumes", "all", volumes, clientdata.TTLDailyVolumes); err != nil {
			c.log.Warn().Err(err).Msg("Failed to cache daily volumes")
		}
	}

	c.log.Info().Int("items", len(volumes)).Msg("Fetched daily volumes")
	return volumes, nil
}

// fetch performs a GET against the API and decodes the JSON response.
func (c *Client) fetch(path string, dest interface{}) error {
	url := c.baseURL + path
	c.log.Debug().Str("url", url).Msg("Fetching")

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// staleFromCache retrieves cached data even if expired.
// Use this as a fallback when API calls fail - stale data is better than no data.
func (c *Client) staleFromCache(table, key string, dest interface{}) bool {
	if c.cacheRepo == nil {
		return false
	}

	found, err := c.cacheRepo.Get(table, key, dest)
	return err == nil && found
}
