package flips

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsight/flipsight/internal/database"
	"github.com/flipsight/flipsight/internal/domain"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "flips.db"),
		Name: "flips",
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	return NewRepository(db, zerolog.Nop())
}

func testFlip(name string, profit float64, closedAt time.Time) domain.FlipRecord {
	qty := 10
	buy := 1000.0
	sell := buy + profit/float64(qty)
	return domain.FlipRecord{
		Account:      "main",
		ItemName:     name,
		Quantity:     qty,
		AvgBuyPrice:  buy,
		AvgSellPrice: sell,
		Profit:       profit,
		ROI:          profit / (buy * float64(qty)) * 100,
		OpenedAt:     closedAt.Add(-time.Hour),
		ClosedAt:     closedAt,
	}
}

func TestInsertBatchAndAll(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	batch := Batch{
		ID:        "batch-1",
		Source:    SourceCopilot,
		Filename:  "export.csv",
		Imported:  2,
		CreatedAt: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
	records := []domain.FlipRecord{
		testFlip("Abyssal whip", 5000, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)),
		testFlip("Shark", 1200, time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)),
	}

	require.NoError(t, repo.InsertBatch(ctx, batch, records))

	flips, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, flips, 2)

	// Oldest close first.
	assert.Equal(t, "Abyssal whip", flips[0].ItemName)
	assert.Equal(t, "batch-1", flips[0].ImportBatch)
	assert.InDelta(t, 5000.0, flips[0].Profit, 0.001)
	assert.Equal(t, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC), flips[0].ClosedAt)
	assert.NotZero(t, flips[0].ID)
}

func TestBetween(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	batch := Batch{ID: "batch-1", Source: SourceCopilot, CreatedAt: time.Now()}
	records := []domain.FlipRecord{
		testFlip("Early", 100, time.Date(2026, 8, 18, 10, 0, 0, 0, time.UTC)),
		testFlip("Inside", 200, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)),
		testFlip("Boundary", 300, time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, repo.InsertBatch(ctx, batch, records))

	from := time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)

	flips, err := repo.Between(ctx, from, to)
	require.NoError(t, err)
	// Half-open interval: the upper bound is excluded.
	require.Len(t, flips, 1)
	assert.Equal(t, "Inside", flips[0].ItemName)
}

func TestHasBatchForFile(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	found, err := repo.HasBatchForFile(ctx, "export.csv")
	require.NoError(t, err)
	assert.False(t, found)

	batch := Batch{ID: "batch-1", Source: SourceCopilot, Filename: "export.csv", CreatedAt: time.Now()}
	require.NoError(t, repo.InsertBatch(ctx, batch, nil))

	found, err = repo.HasBatchForFile(ctx, "export.csv")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestBatchesNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	older := Batch{ID: "b1", Source: SourceCopilot, Filename: "a.csv",
		CreatedAt: time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)}
	newer := Batch{ID: "b2", Source: SourceFlippingUtilities, Filename: "b.csv",
		CreatedAt: time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)}
	require.NoError(t, repo.InsertBatch(ctx, older, nil))
	require.NoError(t, repo.InsertBatch(ctx, newer, nil))

	batches, err := repo.Batches(ctx)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "b2", batches[0].ID)
	assert.Equal(t, "b1", batches[1].ID)
}

func TestDeleteAll(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	batch := Batch{ID: "b1", Source: SourceCopilot, CreatedAt: time.Now()}
	records := []domain.FlipRecord{testFlip("Shark", 100, time.Now().UTC())}
	require.NoError(t, repo.InsertBatch(ctx, batch, records))
	require.NoError(t, repo.RebuildDailyStats(ctx))

	require.NoError(t, repo.DeleteAll(ctx))

	flips, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, flips)

	batches, err := repo.Batches(ctx)
	require.NoError(t, err)
	assert.Empty(t, batches)

	stats, err := repo.DailyStats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestSummary(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	empty, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.TotalFlips)
	assert.Zero(t, empty.TotalProfit)

	batch := Batch{ID: "b1", Source: SourceCopilot, CreatedAt: time.Now()}
	records := []domain.FlipRecord{
		testFlip("Abyssal whip", 5000, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)),
		testFlip("Shark", 1000, time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)),
		testFlip("Shark", 3000, time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, repo.InsertBatch(ctx, batch, records))

	summary, err := repo.Summary(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 9000.0, summary.TotalProfit, 0.001)
	assert.Equal(t, 3, summary.TotalFlips)
	assert.Equal(t, 30, summary.TotalQuantity)
	assert.Equal(t, 1, summary.Accounts)
	assert.Equal(t, 2, summary.Items)
	assert.Equal(t, "2026-08-20T10:00:00Z", summary.FirstFlip)
	assert.Equal(t, "2026-08-22T10:00:00Z", summary.LastFlip)
}

func TestRebuildDailyStats(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	batch := Batch{ID: "b1", Source: SourceCopilot, CreatedAt: time.Now()}
	records := []domain.FlipRecord{
		testFlip("Abyssal whip", 4000, time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)),
		testFlip("Shark", 2000, time.Date(2026, 8, 20, 18, 0, 0, 0, time.UTC)),
		testFlip("Shark", 1000, time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, repo.InsertBatch(ctx, batch, records))
	require.NoError(t, repo.RebuildDailyStats(ctx))

	stats, err := repo.DailyStats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "2026-08-20", stats[0].Date)
	assert.InDelta(t, 6000.0, stats[0].Profit, 0.001)
	assert.Equal(t, 2, stats[0].Flips)
	assert.Equal(t, 20, stats[0].Quantity)

	assert.Equal(t, "2026-08-21", stats[1].Date)
	assert.InDelta(t, 1000.0, stats[1].Profit, 0.001)

	// Rebuilding is idempotent.
	require.NoError(t, repo.RebuildDailyStats(ctx))
	again, err := repo.DailyStats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, stats, again)
}

func TestDailyStatsBounds(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	batch := Batch{ID: "b1", Source: SourceCopilot, CreatedAt: time.Now()}
	records := []domain.FlipRecord{
		testFlip("A", 100, time.Date(2026, 8, 18, 10, 0, 0, 0, time.UTC)),
		testFlip("B", 200, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)),
		testFlip("C", 300, time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC)),
	}
	require.NoError(t, repo.InsertBatch(ctx, batch, records))
	require.NoError(t, repo.RebuildDailyStats(ctx))

	stats, err := repo.DailyStats(ctx,
		time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "2026-08-20", stats[0].Date)

	fromOnly, err := repo.DailyStats(ctx, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), time.Time{})
	require.NoError(t, err)
	assert.Len(t, fromOnly, 2)
}
