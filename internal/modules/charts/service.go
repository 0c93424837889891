// Package charts turns daily flip aggregates into chart-ready series for
// the dashboard.
package charts

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/modules/flips"
	"github.com/flipsight/flipsight/pkg/formulas"
)

// ChartDataPoint represents a single point on a chart
type ChartDataPoint struct {
	Time  string  `json:"time"` // YYYY-MM-DD format
	Value float64 `json:"value"`
}

// Series tags accepted by GetSeries.
const (
	SeriesDailyProfit      = "daily_profit"
	SeriesCumulativeProfit = "cumulative_profit"
	SeriesDailyROI         = "daily_roi"
	SeriesFlipCount        = "flip_count"
)

// Smoothing methods accepted by GetSeries.
const (
	SmoothingNone = ""
	SmoothingSMA  = "sma"
	SmoothingEMA  = "ema"
)

// StatsSource provides pre-aggregated daily stats. Satisfied by the flips
// service.
type StatsSource interface {
	DailyStats(ctx context.Context, from, to time.Time) ([]flips.DailyStat, error)
}

// Service provides chart data operations
type Service struct {
	stats StatsSource
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a new charts service
func NewService(stats StatsSource, log zerolog.Logger) *Service {
	return &Service{
		stats: stats,
		log:   log.With().Str("service", "charts").Logger(),
		now:   time.Now,
	}
}

// GetSeries returns one chart series over the given date range, optionally
// smoothed. Range strings follow the dashboard convention 7D/1M/3M/6M/1Y/all.
func (s *Service) GetSeries(ctx context.Context, series, dateRange, smoothing string, window int) ([]ChartDataPoint, error) {
	from, err := parseDateRange(dateRange, s.now())
	if err != nil {
		return nil, err
	}

	stats, err := s.stats.DailyStats(ctx, from, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load daily stats: %w", err)
	}

	points, err := buildSeries(series, stats)
	if err != nil {
		return nil, err
	}

	return applySmoothing(points, smoothing, window)
}

func buildSeries(series string, stats []flips.DailyStat) ([]ChartDataPoint, error) {
	points := make([]ChartDataPoint, 0, len(stats))

	switch series {
	case SeriesDailyProfit:
		for _, d := range stats {
			points = append(points, ChartDataPoint{Time: d.Date, Value: d.Profit})
		}
	case SeriesCumulativeProfit:
		profits := make([]float64, len(stats))
		for i, d := range stats {
			profits[i] = d.Profit
		}
		for i, total := range formulas.CumulativeSum(profits) {
			points = append(points, ChartDataPoint{Time: stats[i].Date, Value: total})
		}
	case SeriesDailyROI:
		for _, d := range stats {
			points = append(points, ChartDataPoint{Time: d.Date, Value: d.AvgROI})
		}
	case SeriesFlipCount:
		for _, d := range stats {
			points = append(points, ChartDataPoint{Time: d.Date, Value: float64(d.Flips)})
		}
	default:
		return nil, fmt.Errorf("unknown series: %s", series)
	}

	return points, nil
}

// defaultSmoothingWindow applies when a smoothing method is requested
// without a window.
const defaultSmoothingWindow = 7

func applySmoothing(points []ChartDataPoint, smoothing string, window int) ([]ChartDataPoint, error) {
	if smoothing == SmoothingNone {
		return points, nil
	}
	if window <= 0 {
		window = defaultSmoothingWindow
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	var smoothed []float64
	switch smoothing {
	case SmoothingSMA:
		smoothed = formulas.SmoothSMA(values, window)
	case SmoothingEMA:
		smoothed = formulas.SmoothEMA(values, window)
	default:
		return nil, fmt.Errorf("unknown smoothing method: %s (must be sma or ema)", smoothing)
	}

	out := make([]ChartDataPoint, len(points))
	for i, p := range points {
		out[i] = ChartDataPoint{Time: p.Time, Value: smoothed[i]}
	}
	return out, nil
}

// parseDateRange converts a range string to a start date; "all" or empty
// means no lower bound.
func parseDateRange(rangeStr string, now time.Time) (time.Time, error) {
	switch rangeStr {
	case "all", "":
		return time.Time{}, nil
	case "7D":
		return now.AddDate(0, 0, -7), nil
	case "1M":
		return now.AddDate(0, -1, 0), nil
	case "3M":
		return now.AddDate(0, -3, 0), nil
	case "6M":
		return now.AddDate(0, -6, 0), nil
	case "1Y":
		return now.AddDate(-1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("invalid range: %s (must be 7D, 1M, 3M, 6M, 1Y or all)", rangeStr)
	}
}
