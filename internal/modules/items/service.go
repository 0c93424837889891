package items

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/domain"
	"github.com/flipsight/flipsight/internal/events"
)

// CatalogClient fetches the item catalog, prices and volumes.
// Satisfied by the wikiprices client.
type CatalogClient interface {
	GetMapping() ([]domain.Item, error)
	GetLatest() (map[int]domain.PriceQuote, error)
	GetVolumes() (map[int]int64, error)
}

// Snapshot is an immutable view of the catalog taken at sync time.
// Query translation and blocklist evaluation read snapshots, never live state,
// so a refresh mid-request cannot change results.
type Snapshot struct {
	Items   []domain.Item
	Prices  map[int]domain.PriceQuote
	Volumes map[int]int64
}

// Service owns the current catalog snapshot and the fuzzy matcher built
// over it. The snapshot swaps atomically on Sync.
type Service struct {
	client CatalogClient
	bus    *events.Bus
	log    zerolog.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
	matcher  *Matcher
}

// NewService creates a new items service. The service is unusable until the
// first successful Sync; startup fails fast if that sync cannot complete.
func NewService(client CatalogClient, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		client:  client,
		bus:     bus,
		log:     log.With().Str("service", "items").Logger(),
		matcher: NewMatcher(nil),
	}
}

// Sync refreshes the catalog snapshot from the prices API and rebuilds the
// matcher dictionary.
func (s *Service) Sync() error {
	items, err := s.client.GetMapping()
	if err != nil {
		return fmt.Errorf("failed to sync item mapping: %w", err)
	}

	prices, err := s.client.GetLatest()
	if err != nil {
		return fmt.Errorf("failed to sync latest prices: %w", err)
	}

	// Volumes are optional enrichment: blocklist volume rules simply have no
	// data to match when this fails.
	volumes, err := s.client.GetVolumes()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to sync daily volumes, continuing without")
		volumes = map[int]int64{}
	}

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}

	snap := &Snapshot{Items: items, Prices: prices, Volumes: volumes}
	matcher := NewMatcher(names)

	s.mu.Lock()
	s.snapshot = snap
	s.matcher = matcher
	s.mu.Unlock()

	s.log.Info().
		Int("items", len(items)).
		Int("prices", len(prices)).
		Int("volumes", len(volumes)).
		Msg("Catalog synced")

	if s.bus != nil {
		s.bus.Publish("items", events.PricesRefreshed, map[string]interface{}{
			"items":  len(items),
			"prices": len(prices),
		})
	}

	return nil
}

// Snapshot returns the current catalog snapshot, or nil before the first sync.
func (s *Service) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Matcher returns the fuzzy matcher over the current snapshot.
func (s *Service) Matcher() *Matcher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.matcher
}

// Ready reports whether a snapshot is available.
func (s *Service) Ready() bool {
	return s.Snapshot() != nil
}
