// Package forecast projects future flipping profit with a Monte Carlo
// simulation fitted to the observed daily profits.
package forecast

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/flipsight/flipsight/internal/modules/flips"
	"github.com/flipsight/flipsight/pkg/formulas"
)

// Simulation bounds. Daily profits are modelled as i.i.d. normal draws,
// which is crude but honest for a dashboard projection.
const (
	DefaultDays  = 30
	DefaultPaths = 1000
	MaxDays      = 365
	MaxPaths     = 100_000
	minHistory   = 5
)

// StatsSource provides the observed daily aggregates. Satisfied by the
// flips service.
type StatsSource interface {
	DailyStats(ctx context.Context, from, to time.Time) ([]flips.DailyStat, error)
}

// Band holds the cumulative-profit percentile spread for one simulated day.
type Band struct {
	Day int     `json:"day"`
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// Result is a full forecast: the fitted model, the per-day bands and the
// final-value distribution.
type Result struct {
	Days        int     `json:"days"`
	Paths       int     `json:"paths"`
	HistoryDays int     `json:"history_days"`
	DailyMean   float64 `json:"daily_mean"`
	DailyStdDev float64 `json:"daily_std_dev"`
	Bands       []Band  `json:"bands"`
	FinalMean   float64 `json:"final_mean"`
	FinalStdDev float64 `json:"final_std_dev"`
	FinalP10    float64 `json:"final_p10"`
	FinalP50    float64 `json:"final_p50"`
	FinalP90    float64 `json:"final_p90"`
}

// Service runs profit forecasts.
type Service struct {
	stats StatsSource
	log   zerolog.Logger
	seed  func() uint64
}

// NewService creates a forecast service.
func NewService(stats StatsSource, log zerolog.Logger) *Service {
	return &Service{
		stats: stats,
		log:   log.With().Str("service", "forecast").Logger(),
		seed:  func() uint64 { return uint64(time.Now().UnixNano()) },
	}
}

// Forecast fits a normal distribution to the observed daily profits and
// simulates paths cumulative days forward. seed 0 picks a fresh seed; any
// other value makes the run reproducible.
func (s *Service) Forecast(ctx context.Context, days, paths int, seed uint64) (*Result, error) {
	if days <= 0 {
		days = DefaultDays
	}
	if paths <= 0 {
		paths = DefaultPaths
	}
	if days > MaxDays {
		return nil, fmt.Errorf("days must be at most %d", MaxDays)
	}
	if paths > MaxPaths {
		return nil, fmt.Errorf("paths must be at most %d", MaxPaths)
	}
	if seed == 0 {
		seed = s.seed()
	}

	stats, err := s.stats.DailyStats(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load daily stats: %w", err)
	}
	if len(stats) < minHistory {
		return nil, fmt.Errorf("need at least %d days of history, have %d", minHistory, len(stats))
	}

	profits := make([]float64, len(stats))
	for i, d := range stats {
		profits[i] = d.Profit
	}
	mean, stdDev := formulas.MeanStdDev(profits)

	result := &Result{
		Days:        days,
		Paths:       paths,
		HistoryDays: len(stats),
		DailyMean:   mean,
		DailyStdDev: stdDev,
	}
	s.simulate(result, seed)

	s.log.Debug().
		Int("days", days).
		Int("paths", paths).
		Float64("daily_mean", mean).
		Float64("daily_std_dev", stdDev).
		Msg("Forecast simulated")

	return result, nil
}

// simulate fills the percentile bands. cumulative[p] tracks path p's running
// total; bands are re-quantiled every simulated day.
func (s *Service) simulate(result *Result, seed uint64) {
	normal := distuv.Normal{
		Mu:    result.DailyMean,
		Sigma: result.DailyStdDev,
		Src:   rand.NewPCG(seed, seed),
	}

	cumulative := make([]float64, result.Paths)
	result.Bands = make([]Band, 0, result.Days)

	for day := 1; day <= result.Days; day++ {
		for p := range cumulative {
			cumulative[p] += normal.Rand()
		}
		result.Bands = append(result.Bands, Band{
			Day: day,
			P10: formulas.Quantile(0.10, cumulative),
			P25: formulas.Quantile(0.25, cumulative),
			P50: formulas.Quantile(0.50, cumulative),
			P75: formulas.Quantile(0.75, cumulative),
			P90: formulas.Quantile(0.90, cumulative),
		})
	}

	result.FinalMean, result.FinalStdDev = formulas.MeanStdDev(cumulative)
	result.FinalP10 = formulas.Quantile(0.10, cumulative)
	result.FinalP50 = formulas.Quantile(0.50, cumulative)
	result.FinalP90 = formulas.Quantile(0.90, cumulative)
}
