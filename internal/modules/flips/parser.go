// Package flips handles flip record ingestion from CSV exports, storage,
// and aggregation. It is the data backbone the query pipeline executes
// against.
package flips

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/flipsight/flipsight/internal/domain"
)

// Export source tags stored on import batches.
const (
	SourceFlippingUtilities = "flipping_utilities"
	SourceCopilot           = "copilot"
)

// profitTolerance is the allowed disagreement, in GP, between a row's stated
// profit and the profit recomputed from its prices.
const profitTolerance = 1.0

// SkippedRow records one rejected CSV line. Rejection is per-row: a bad line
// never aborts the rest of the file.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ParseResult is the outcome of parsing one CSV export.
type ParseResult struct {
	Source  string              `json:"source"`
	Records []domain.FlipRecord `json:"-"`
	Skipped []SkippedRow        `json:"skipped,omitempty"`
}

// ParseCSV detects the export layout from the header row and parses the
// remaining lines. Unknown layouts are an error; malformed rows are skipped
// and reported.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}

	switch {
	case hasColumns(cols, "received_post_tax", "spent"):
		return parseRows(cr, cols, SourceFlippingUtilities, parseFlippingUtilitiesRow)
	case hasColumns(cols, "avg_buy_price", "avg_sell_price"):
		return parseRows(cr, cols, SourceCopilot, parseCopilotRow)
	default:
		return nil, fmt.Errorf("unrecognized CSV layout: %s", strings.Join(header, ","))
	}
}

func normalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

func hasColumns(cols map[string]int, names ...string) bool {
	for _, n := range names {
		if _, ok := cols[n]; !ok {
			return false
		}
	}
	return true
}

type rowParser func(fields func(string) string) (domain.FlipRecord, error)

func parseRows(cr *csv.Reader, cols map[string]int, source string, parse rowParser) (*ParseResult, error) {
	result := &ParseResult{Source: source}
	line := 1

	for {
		line++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		flip, err := parse(field)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}

		if err := checkFlip(&flip); err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}

		result.Records = append(result.Records, flip)
	}

	return result, nil
}

// checkFlip enforces the cross-source invariants: sane timestamps, positive
// quantity, and stated profit within tolerance of the recomputation.
func checkFlip(f *domain.FlipRecord) error {
	if f.ItemName == "" {
		return fmt.Errorf("missing item name")
	}
	if f.Quantity <= 0 {
		return fmt.Errorf("non-positive quantity %d", f.Quantity)
	}
	if f.ClosedAt.Before(f.OpenedAt) {
		return fmt.Errorf("closed before opened")
	}
	if diff := math.Abs(f.Profit - f.DerivedProfit()); diff > profitTolerance {
		return fmt.Errorf("stated profit %.0f disagrees with derived %.0f", f.Profit, f.DerivedProfit())
	}
	return nil
}

// parseFlippingUtilitiesRow parses the Flipping Utilities export layout:
// account, item, status, opened time, closed time, quantity, spent,
// received post tax, tax paid, profit. Prices come as totals, so unit
// prices are derived. Only finished flips are imported.
func parseFlippingUtilitiesRow(field func(string) string) (domain.FlipRecord, error) {
	var f domain.FlipRecord

	if status := strings.ToUpper(field("status")); status != "" && status != "FINISHED" {
		return f, fmt.Errorf("flip not finished: %s", status)
	}

	qty, err := strconv.Atoi(field("quantity"))
	if err != nil {
		return f, fmt.Errorf("bad quantity %q", field("quantity"))
	}

	spent, err := parseNumber(field("spent"))
	if err != nil {
		return f, fmt.Errorf("bad spent %q", field("spent"))
	}
	received, err := parseNumber(field("received_post_tax"))
	if err != nil {
		return f, fmt.Errorf("bad received %q", field("received_post_tax"))
	}
	tax, err := parseNumber(field("tax_paid"))
	if err != nil {
		return f, fmt.Errorf("bad tax %q", field("tax_paid"))
	}
	profit, err := parseNumber(field("profit"))
	if err != nil {
		return f, fmt.Errorf("bad profit %q", field("profit"))
	}

	opened, err := parseTimestamp(field("opened_time"))
	if err != nil {
		return f, fmt.Errorf("bad opened time %q", field("opened_time"))
	}
	closed, err := parseTimestamp(field("closed_time"))
	if err != nil {
		return f, fmt.Errorf("bad closed time %q", field("closed_time"))
	}

	if qty <= 0 {
		return f, fmt.Errorf("non-positive quantity %d", qty)
	}

	f.Account = field("account")
	f.ItemName = field("item")
	f.Quantity = qty
	f.AvgBuyPrice = spent / float64(qty)
	// Received is post-tax; the pre-tax unit sell price adds the tax back.
	f.AvgSellPrice = (received + tax) / float64(qty)
	f.Tax = tax
	f.Profit = profit
	f.ROI = roiPercent(profit, spent)
	f.OpenedAt = opened
	f.ClosedAt = closed

	return f, nil
}

// parseCopilotRow parses the Copilot export layout: item_id, item_name,
// account, quantity, avg_buy_price, avg_sell_price, tax, profit, roi,
// opened_at, closed_at. Copilot emits ROI as a fraction, normalized here to
// a percentage.
func parseCopilotRow(field func(string) string) (domain.FlipRecord, error) {
	var f domain.FlipRecord

	qty, err := strconv.Atoi(field("quantity"))
	if err != nil {
		return f, fmt.Errorf("bad quantity %q", field("quantity"))
	}

	buy, err := parseNumber(field("avg_buy_price"))
	if err != nil {
		return f, fmt.Errorf("bad buy price %q", field("avg_buy_price"))
	}
	sell, err := parseNumber(field("avg_sell_price"))
	if err != nil {
		return f, fmt.Errorf("bad sell price %q", field("avg_sell_price"))
	}
	tax, err := parseNumber(field("tax"))
	if err != nil {
		return f, fmt.Errorf("bad tax %q", field("tax"))
	}
	profit, err := parseNumber(field("profit"))
	if err != nil {
		return f, fmt.Errorf("bad profit %q", field("profit"))
	}

	opened, err := parseTimestamp(field("opened_at"))
	if err != nil {
		return f, fmt.Errorf("bad opened_at %q", field("opened_at"))
	}
	closed, err := parseTimestamp(field("closed_at"))
	if err != nil {
		return f, fmt.Errorf("bad closed_at %q", field("closed_at"))
	}

	if id := field("item_id"); id != "" {
		f.ItemID, _ = strconv.Atoi(id)
	}

	f.Account = field("account")
	f.ItemName = field("item_name")
	f.Quantity = qty
	f.AvgBuyPrice = buy
	f.AvgSellPrice = sell
	f.Tax = tax
	f.Profit = profit
	f.OpenedAt = opened
	f.ClosedAt = closed

	if roiStr := field("roi"); roiStr != "" {
		roi, errROI := parseNumber(roiStr)
		if errROI != nil {
			return f, fmt.Errorf("bad roi %q", roiStr)
		}
		f.ROI = roi * 100
	} else {
		f.ROI = roiPercent(profit, buy*float64(qty))
	}

	return f, nil
}

// roiPercent computes return on investment as a percentage of capital spent.
func roiPercent(profit, spent float64) float64 {
	if spent == 0 {
		return 0
	}
	return profit / spent * 100
}

// parseNumber accepts plain numbers with optional thousands separators.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

// parseTimestamp accepts RFC3339 or unix seconds; both appear in the wild.
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
