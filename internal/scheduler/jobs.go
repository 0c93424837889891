package scheduler

import (
	"context"
	"time"

	"github.com/flipsight/flipsight/internal/modules/flips"
	"github.com/flipsight/flipsight/internal/modules/items"
)

// jobTimeout bounds a single job run so a stuck upstream cannot pile up
// overlapping executions.
const jobTimeout = 2 * time.Minute

// PriceRefreshJob re-syncs the item catalog, prices, and volumes from the
// public API. The items service serves the previous snapshot until the
// sync succeeds.
type PriceRefreshJob struct {
	Items *items.Service
}

func (j *PriceRefreshJob) Name() string { return "price-refresh" }

func (j *PriceRefreshJob) Run() error {
	return j.Items.Sync()
}

// ImportScanJob picks up CSV exports dropped into the watched import
// directory. Already-imported files are skipped by filename.
type ImportScanJob struct {
	Flips *flips.Service
}

func (j *ImportScanJob) Name() string { return "import-scan" }

func (j *ImportScanJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	_, err := j.Flips.ScanImportDir(ctx)
	return err
}

// StatsRebuildJob recomputes the daily_stats aggregate from the flips
// table. Imports already rebuild incrementally; the nightly pass catches
// drift from manual edits.
type StatsRebuildJob struct {
	Flips *flips.Service
}

func (j *StatsRebuildJob) Name() string { return "stats-rebuild" }

func (j *StatsRebuildJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	return j.Flips.RebuildDailyStats(ctx)
}
