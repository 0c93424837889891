// Package domain contains the core data types of the flipping dashboard.
// The domain layer is pure: no infrastructure dependencies.
package domain

import (
	"math"
	"time"
)

// FlipRecord represents one completed buy-then-sell trade cycle on a single item.
// Records are created by ingestion and are read-only during query evaluation.
//
// Profit is derived: sell revenue minus buy cost minus tax. Ingestion rejects
// rows where the stored profit disagrees with the recomputation beyond rounding.
// ROI is always stored as a percentage; sources emitting fractions are
// normalized at the ingestion boundary.
type FlipRecord struct {
	ID           int64     `json:"id"`
	Account      string    `json:"account"`
	ItemID       int       `json:"item_id"`
	ItemName     string    `json:"item_name"`
	Quantity     int       `json:"quantity"`
	AvgBuyPrice  float64   `json:"avg_buy_price"`
	AvgSellPrice float64   `json:"avg_sell_price"`
	Tax          float64   `json:"tax"`
	Profit       float64   `json:"profit"`
	ROI          float64   `json:"roi"`
	OpenedAt     time.Time `json:"opened_at"`
	ClosedAt     time.Time `json:"closed_at"`
	ImportBatch  string    `json:"import_batch"`
}

// DerivedProfit recomputes profit from prices and quantity.
// Used by ingestion to enforce the profit invariant.
func (f *FlipRecord) DerivedProfit() float64 {
	return f.AvgSellPrice*float64(f.Quantity) - f.AvgBuyPrice*float64(f.Quantity) - f.Tax
}

// FlipDurationMinutes returns how long the flip was held, in minutes,
// floored at 1 so downstream rate calculations never divide by zero.
func (f *FlipRecord) FlipDurationMinutes() float64 {
	minutes := f.ClosedAt.Sub(f.OpenedAt).Minutes()
	if minutes < 1 {
		return 1
	}
	return minutes
}

// ProfitVelocity returns profit per hour held.
func (f *FlipRecord) ProfitVelocity() float64 {
	hours := f.FlipDurationMinutes() / 60
	if hours < 1.0/60 {
		hours = 1.0 / 60
	}
	return f.Profit / hours
}

// MarginPercent returns the sell-over-buy margin as a percentage.
func (f *FlipRecord) MarginPercent() float64 {
	buy := f.AvgBuyPrice
	if buy == 0 {
		buy = 1
	}
	return (f.AvgSellPrice - f.AvgBuyPrice) / buy * 100
}

// DaysSinceFlip returns whole days elapsed between the flip closing and now.
func (f *FlipRecord) DaysSinceFlip(now time.Time) float64 {
	return math.Floor(now.Sub(f.ClosedAt).Hours() / 24)
}

// WeekOfYear returns the ISO week number of the closing timestamp.
func (f *FlipRecord) WeekOfYear() float64 {
	_, week := f.ClosedAt.ISOWeek()
	return float64(week)
}

// ProfitPerItem returns profit divided by quantity, guarding zero quantity.
func (f *FlipRecord) ProfitPerItem() float64 {
	qty := f.Quantity
	if qty == 0 {
		qty = 1
	}
	return f.Profit / float64(qty)
}

// TotalValue returns the capital committed to the flip (buy side).
func (f *FlipRecord) TotalValue() float64 {
	return f.AvgBuyPrice * float64(f.Quantity)
}

// Item is a tradeable catalog entity from the prices API mapping.
type Item struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Members  bool   `json:"members"` // F2P items have Members == false
	BuyLimit int    `json:"limit"`
	Value    int    `json:"value"`
}

// PriceQuote holds the latest high/low trade prices for an item.
type PriceQuote struct {
	ItemID   int   `json:"item_id"`
	High     int64 `json:"high"`
	Low      int64 `json:"low"`
	HighTime int64 `json:"high_time"`
	LowTime  int64 `json:"low_time"`
}

// DailyVolume holds the 24h traded volume of an item.
type DailyVolume struct {
	ItemID int   `json:"item_id"`
	Volume int64 `json:"volume"`
}
