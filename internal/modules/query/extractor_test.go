package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsight/flipsight/internal/modules/items"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog(defaultCatalogJSON)
	require.NoError(t, err)
	return c
}

func testMatcher() *items.Matcher {
	return items.NewMatcher([]string{
		"Dragon scimitar",
		"Dragon bones",
		"Abyssal whip",
		"Twisted bow",
		"Nature rune",
		"Rune scimitar",
		"Shark",
		"Cannonball",
	})
}

func TestExtractTimeRanges(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	tests := []struct {
		name  string
		query string
		want  *TimeRange
	}{
		{"preset last week", "top flips last week", &TimeRange{Kind: TimeRangePreset, Preset: PresetLastWeek}},
		{"preset this month", "profit this month", &TimeRange{Kind: TimeRangePreset, Preset: PresetThisMonth}},
		{"preset today", "what did I make today", &TimeRange{Kind: TimeRangePreset, Preset: PresetToday}},
		{"preset all time", "all time profit", &TimeRange{Kind: TimeRangePreset, Preset: PresetAllTime}},
		{
			"specific last tuesday",
			"flips from last tuesday",
			&TimeRange{Kind: TimeRangeDayOfWeek, DayOfWeek: "tuesday", Specific: true},
		},
		{
			"all tuesdays",
			"tuesday flips",
			&TimeRange{Kind: TimeRangeDayOfWeek, DayOfWeek: "tuesday", All: true},
		},
		{
			"plural day form",
			"profit on saturdays",
			&TimeRange{Kind: TimeRangeDayOfWeek, DayOfWeek: "saturday", All: true},
		},
		{
			"weekend vs weekday comparison",
			"weekend vs weekday profit",
			&TimeRange{Kind: TimeRangeComparison, Comparison: ComparisonWeekendVsWeekday},
		},
		{
			"comparison wins over embedded presets",
			"this week vs last week",
			&TimeRange{Kind: TimeRangeComparison, Comparison: ComparisonThisWeekVsLastWeek},
		},
		{
			"explicit date range",
			"profit from 2026-01-01 to 2026-02-01",
			&TimeRange{Kind: TimeRangeCustom, From: "2026-01-01", To: "2026-02-01"},
		},
		{"no time range", "top 10 most profitable items", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.query, nil)
			assert.Equal(t, tt.want, got.TimeRange)
		})
	}
}

func TestExtractThresholds(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	tests := []struct {
		name  string
		query string
		want  []Filter
	}{
		{
			"profit over with m suffix",
			"flips with over 5m profit",
			[]Filter{{Field: "profit", Operator: OpGT, Value: 5000000.0}},
		},
		{
			"profit over with k suffix",
			"items over 100k profit",
			[]Filter{{Field: "profit", Operator: OpGT, Value: 100000.0}},
		},
		{
			"profit under",
			"flips under 50k profit",
			[]Filter{{Field: "profit", Operator: OpLT, Value: 50000.0}},
		},
		{
			"roi over bare number",
			"items with roi over 50",
			[]Filter{{Field: "roi", Operator: OpGT, Value: 50.0}},
		},
		{
			"roi over with percent sign",
			"items with roi over 25%",
			[]Filter{{Field: "roi", Operator: OpGT, Value: 25.0}},
		},
		{
			"duration in hours normalized to minutes",
			"flips held over 24 hours",
			[]Filter{{Field: "flip_duration_minutes", Operator: OpGT, Value: 1440.0}},
		},
		{
			"duration in minutes",
			"flips under 30 minutes",
			[]Filter{{Field: "flip_duration_minutes", Operator: OpLT, Value: 30.0}},
		},
		{"no thresholds", "top 10 items by profit", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.query, nil)
			assert.Equal(t, tt.want, got.Filters)
		})
	}
}

func TestExtractLimit(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	tests := []struct {
		name  string
		query string
		want  LimitSpec
	}{
		{"top N", "top 10 most profitable items", LimitSpec{Kind: LimitExact, N: 10}},
		{"first N", "first 5 flips this week", LimitSpec{Kind: LimitExact, N: 5}},
		{"best N", "best 3 items", LimitSpec{Kind: LimitExact, N: 3}},
		{"show me N", "show me 25 recent flips", LimitSpec{Kind: LimitExact, N: 25}},
		{"show all", "show all flips from last week", LimitSpec{Kind: LimitNone}},
		{"everything", "show me everything", LimitSpec{Kind: LimitNone}},
		{"unspecified", "most profitable items", LimitSpec{Kind: LimitUnspecified}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.query, nil)
			assert.Equal(t, tt.want, got.Limit)
		})
	}
}

func TestExtractMetricsAndDimensions(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	got := e.Extract("profit and roi by item last week", nil)
	assert.Equal(t, []string{"profit", "roi"}, got.Metrics)
	assert.Equal(t, []string{"item"}, got.Dimensions)

	got = e.Extract("daily flip count", nil)
	assert.Contains(t, got.Metrics, "flips")
	assert.Equal(t, []string{"date"}, got.Dimensions)

	got = e.Extract("profit by account", nil)
	assert.Equal(t, []string{"account"}, got.Dimensions)
}

func TestExtractItems(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	m := testMatcher()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"multi word item", "how did dragon scimitar perform", []string{"dragon scimitar"}},
		{"abbreviation", "whip profit this week", []string{"abyssal whip"}},
		{"plural catalog name", "profit from sharks", []string{"shark"}},
		{"no items in generic query", "top 10 most profitable flips last week", nil},
		{"numbers never match", "top 10 flips over 100k profit", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.query, m)
			assert.Equal(t, tt.want, got.Items)
		})
	}
}

func TestExtractModifiers(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	got := e.Extract("top items without ammo", nil)
	assert.Equal(t, []string{"ammo"}, got.Modifiers.Exclude)

	got = e.Extract("only weapons by profit", nil)
	assert.Equal(t, []string{"weapons"}, got.Modifiers.Include)

	got = e.Extract("only profitable flips last week", nil)
	assert.True(t, got.Modifiers.OnlyProfitable)

	got = e.Extract("excluding armor and no ammo", nil)
	assert.ElementsMatch(t, []string{"armor", "ammo"}, got.Modifiers.Exclude)
}

func TestExtractSort(t *testing.T) {
	e := NewExtractor(testCatalog(t))

	got := e.Extract("highest profit items", nil)
	assert.Equal(t, "profit", got.SortBy)
	assert.Equal(t, "desc", got.SortOrder)

	got = e.Extract("lowest roi flips", nil)
	assert.Equal(t, "roi", got.SortBy)
	assert.Equal(t, "asc", got.SortOrder)

	// Order keyword without a metric yields no explicit sort.
	got = e.Extract("best items", nil)
	assert.Empty(t, got.SortBy)
	assert.Empty(t, got.SortOrder)
}

func TestExtractIsIdempotent(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	m := testMatcher()

	queries := []string{
		"top 10 most profitable items last week",
		"how did dragon scimitar perform this month",
		"weekend vs weekday profit",
		"show all flips held over 24 hours",
	}

	for _, q := range queries {
		first := e.Extract(q, m)
		second := e.Extract(q, m)
		assert.Equal(t, first, second, q)
	}
}

func TestExtractNeverPanicsOnGarbage(t *testing.T) {
	e := NewExtractor(testCatalog(t))
	m := testMatcher()

	for _, q := range []string{"", "   ", "?????", "🜲🜲🜲", "top top top over under", "-1 to 2"} {
		assert.NotPanics(t, func() { e.Extract(q, m) }, q)
	}
}
