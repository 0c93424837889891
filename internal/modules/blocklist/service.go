package blocklist

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/events"
	"github.com/flipsight/flipsight/internal/modules/items"
)

// CatalogSource provides the item snapshot rules evaluate against.
// Satisfied by the items service.
type CatalogSource interface {
	Snapshot() *items.Snapshot
}

// defaultTimeframe, in minutes, matches what the client plugin assumes when
// the caller does not pick one.
const defaultTimeframe = 5

// ErrNotReady is returned when no catalog snapshot exists yet.
var ErrNotReady = errors.New("item catalog not synced yet")

// Service parses filtering intent, evaluates it over the catalog and builds
// export profiles.
type Service struct {
	catalog   CatalogSource
	evaluator *Evaluator
	bus       *events.Bus
	log       zerolog.Logger
}

// NewService creates the blocklist service.
func NewService(catalog CatalogSource, bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		catalog:   catalog,
		evaluator: NewEvaluator(log),
		bus:       bus,
		log:       log.With().Str("service", "blocklist").Logger(),
	}
}

// GenerateResult pairs the parsed config with its evaluation and the export
// profile.
type GenerateResult struct {
	Config  RuleConfig `json:"config"`
	Result  EvalResult `json:"result"`
	Profile Profile    `json:"profile"`
}

// Preview parses filtering intent without touching the catalog, so the
// caller can confirm the interpretation before generating.
func (s *Service) Preview(text string) (*RuleConfig, error) {
	return ParseIntent(text)
}

// Generate parses the text, evaluates the rules over the current snapshot
// and builds the export profile.
func (s *Service) Generate(text string, timeframe int) (*GenerateResult, error) {
	cfg, err := ParseIntent(text)
	if err != nil {
		return nil, err
	}
	return s.GenerateFromConfig(*cfg, timeframe)
}

// GenerateFromConfig evaluates an already-built rule config, for callers
// that edited the parsed rules before generating.
func (s *Service) GenerateFromConfig(cfg RuleConfig, timeframe int) (*GenerateResult, error) {
	snap := s.catalog.Snapshot()
	if snap == nil {
		return nil, ErrNotReady
	}
	if timeframe <= 0 {
		timeframe = defaultTimeframe
	}

	result := s.evaluator.Evaluate(cfg, snap)
	profile := BuildProfile(cfg, result, timeframe)

	s.log.Info().
		Int("blocked", len(profile.BlockedItemIDs)).
		Int("included", len(result.IncludedIDs)).
		Bool("f2p_only", profile.F2POnlyMode).
		Msg("Blocklist generated")

	if s.bus != nil {
		s.bus.Publish("blocklist", events.BlocklistGenerated, map[string]interface{}{
			"blocked":  len(profile.BlockedItemIDs),
			"included": len(result.IncludedIDs),
		})
	}

	return &GenerateResult{Config: cfg, Result: result, Profile: profile}, nil
}
