package flips

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/domain"
	"github.com/flipsight/flipsight/internal/events"
	"github.com/flipsight/flipsight/internal/modules/items"
	"github.com/flipsight/flipsight/internal/modules/query"
)

// Service owns flip ingestion and read access. It implements
// query.RowSource: the query executor runs against rows converted from the
// stored records.
type Service struct {
	repo      *Repository
	bus       *events.Bus
	importDir string
	log       zerolog.Logger
}

// ImportReport is returned to the caller after an import.
type ImportReport struct {
	BatchID  string       `json:"batch_id"`
	Source   string       `json:"source"`
	Filename string       `json:"filename"`
	Imported int          `json:"imported"`
	Skipped  []SkippedRow `json:"skipped,omitempty"`
}

// NewService creates the flips service. importDir is the directory the
// scheduled scan watches for new CSV exports; empty disables scanning.
func NewService(repo *Repository, bus *events.Bus, importDir string, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		bus:       bus,
		importDir: importDir,
		log:       log.With().Str("service", "flips").Logger(),
	}
}

// Import parses a CSV export and stores the resulting batch. When replace
// is set, all previously stored data is wiped first. Bad rows are skipped
// and reported, never fatal.
func (s *Service) Import(ctx context.Context, r io.Reader, filename string, replace bool) (*ImportReport, error) {
	result, err := ParseCSV(r)
	if err != nil {
		return nil, err
	}

	if replace {
		if err := s.repo.DeleteAll(ctx); err != nil {
			return nil, err
		}
	}

	batch := Batch{
		ID:        uuid.NewString(),
		Source:    result.Source,
		Filename:  filename,
		Imported:  len(result.Records),
		Skipped:   len(result.Skipped),
		CreatedAt: time.Now(),
	}

	if err := s.repo.InsertBatch(ctx, batch, result.Records); err != nil {
		return nil, err
	}

	if err := s.repo.RebuildDailyStats(ctx); err != nil {
		s.log.Error().Err(err).Msg("Daily stats rebuild after import failed")
	}

	for _, skip := range result.Skipped {
		s.log.Warn().Int("line", skip.Line).Str("file", filename).Str("reason", skip.Reason).Msg("Skipped CSV row")
	}
	s.log.Info().
		Str("batch", batch.ID).
		Str("source", result.Source).
		Int("imported", batch.Imported).
		Int("skipped", batch.Skipped).
		Msg("Import completed")

	if s.bus != nil {
		s.bus.Publish("flips", events.ImportCompleted, map[string]interface{}{
			"batch":    batch.ID,
			"source":   result.Source,
			"imported": batch.Imported,
			"skipped":  batch.Skipped,
		})
	}

	return &ImportReport{
		BatchID:  batch.ID,
		Source:   result.Source,
		Filename: filename,
		Imported: batch.Imported,
		Skipped:  result.Skipped,
	}, nil
}

// ImportFile imports a single CSV file from disk.
func (s *Service) ImportFile(ctx context.Context, path string) (*ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f, filepath.Base(path), false)
}

// ScanImportDir imports every CSV in the watch directory that has not been
// imported yet. Returns the number of files imported.
func (s *Service) ScanImportDir(ctx context.Context) (int, error) {
	if s.importDir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(s.importDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read import dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	imported := 0
	for _, name := range files {
		known, err := s.repo.HasBatchForFile(ctx, name)
		if err != nil {
			return imported, err
		}
		if known {
			continue
		}
		if _, err := s.ImportFile(ctx, filepath.Join(s.importDir, name)); err != nil {
			s.log.Error().Err(err).Str("file", name).Msg("Import scan failed for file")
			continue
		}
		imported++
	}
	return imported, nil
}

// QueryRows converts every stored flip into executor rows.
func (s *Service) QueryRows(ctx context.Context) ([]query.Row, error) {
	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rows := make([]query.Row, 0, len(records))
	for i := range records {
		rows = append(rows, RowFromRecord(&records[i], now))
	}
	return rows, nil
}

// RowFromRecord flattens a record into an executor row: stored fields plus
// the derived fields queries filter and sort on. now anchors recency fields
// so one batch of rows is internally consistent.
func RowFromRecord(f *domain.FlipRecord, now time.Time) query.Row {
	return query.Row{
		"id":                    f.ID,
		"account":               f.Account,
		"item_id":               f.ItemID,
		"item_name":             f.ItemName,
		"quantity":              float64(f.Quantity),
		"avg_buy_price":         f.AvgBuyPrice,
		"avg_sell_price":        f.AvgSellPrice,
		"tax":                   f.Tax,
		"profit":                f.Profit,
		"roi":                   f.ROI,
		"opened_at":             f.OpenedAt,
		"closed_at":             f.ClosedAt,
		"date":                  f.ClosedAt.UTC().Format("2006-01-02"),
		"flip_duration_minutes": f.FlipDurationMinutes(),
		"profit_velocity":       f.ProfitVelocity(),
		"margin_percent":        f.MarginPercent(),
		"profit_per_item":       f.ProfitPerItem(),
		"total_value":           f.TotalValue(),
		"week_of_year":          f.WeekOfYear(),
		"days_since_flip":       f.DaysSinceFlip(now),
		"category":              items.Categorize(f.ItemName),
	}
}

// Summary returns lifetime aggregates.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return s.repo.Summary(ctx)
}

// DailyStats returns per-day aggregates in [from, to).
func (s *Service) DailyStats(ctx context.Context, from, to time.Time) ([]DailyStat, error) {
	return s.repo.DailyStats(ctx, from, to)
}

// Batches lists recorded imports.
func (s *Service) Batches(ctx context.Context) ([]Batch, error) {
	return s.repo.Batches(ctx)
}

// RebuildDailyStats recomputes the daily aggregates, for the scheduled job
// and manual triggers.
func (s *Service) RebuildDailyStats(ctx context.Context) error {
	if err := s.repo.RebuildDailyStats(ctx); err != nil {
		return err
	}
	if s.bus != nil {
		s.bus.Publish("flips", events.DailyStatsRebuilt, nil)
	}
	return nil
}
