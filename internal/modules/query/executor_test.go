package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []Row {
	return []Row{
		{"item_name": "Dragon scimitar", "account": "main", "profit": 150000.0, "roi": 2.5, "quantity": 3.0, "flip_duration_minutes": 45.0, "date": "2026-08-20"},
		{"item_name": "Abyssal whip", "account": "main", "profit": 900000.0, "roi": 4.1, "quantity": 1.0, "flip_duration_minutes": 120.0, "date": "2026-08-20"},
		{"item_name": "Dragon scimitar", "account": "alt", "profit": -20000.0, "roi": -0.4, "quantity": 2.0, "flip_duration_minutes": 30.0, "date": "2026-08-21"},
		{"item_name": "Cannonball", "account": "main", "profit": 400000.0, "roi": 8.0, "quantity": 20000.0, "flip_duration_minutes": 600.0, "date": "2026-08-21"},
		{"item_name": "Shark", "account": "alt", "profit": 50000.0, "roi": 1.2, "quantity": 5000.0, "flip_duration_minutes": 90.0, "date": "2026-08-22"},
	}
}

func TestExecuteFiltersThenSortsThenLimits(t *testing.T) {
	limit := 2
	result := ExecuteSpec(sampleRows(), QuerySpec{
		Intent:  IntentRecentActivity,
		Filters: []Filter{{Field: "profit", Operator: OpGT, Value: 0.0}},
		Sort:    []SortSpec{{By: "profit", Order: "desc"}},
		Limit:   &limit,
	})

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "Abyssal whip", result.Rows[0]["item_name"])
	assert.Equal(t, "Cannonball", result.Rows[1]["item_name"])
	assert.Empty(t, result.Warnings)
}

func TestExecuteGroupByItem(t *testing.T) {
	result := ExecuteSpec(sampleRows(), QuerySpec{
		Intent: IntentTopItemsByProfit,
		Metrics: []MetricSpec{
			{Metric: "profit", Op: AggSum},
			{Metric: "flips", Op: AggCount},
		},
		Dimensions: []string{"item"},
		Sort:       []SortSpec{{By: "profit", Order: "desc"}},
	})

	require.Len(t, result.Rows, 4)
	assert.Equal(t, "Abyssal whip", result.Rows[0]["item_name"])
	assert.Equal(t, 900000.0, result.Rows[0]["profit"])

	// Both dragon scimitar flips collapse into one group.
	var scim Row
	for _, row := range result.Rows {
		if row["item_name"] == "Dragon scimitar" {
			scim = row
		}
	}
	require.NotNil(t, scim)
	assert.Equal(t, 130000.0, scim["profit"])
	assert.Equal(t, int64(2), scim["flips"])
}

func TestExecuteGroupByAccountAverages(t *testing.T) {
	result := ExecuteSpec(sampleRows(), QuerySpec{
		Intent:     IntentAccountComparison,
		Metrics:    []MetricSpec{{Metric: "roi", Op: AggAvg}},
		Dimensions: []string{"account"},
		Sort:       []SortSpec{{By: "roi", Order: "desc"}},
	})

	require.Len(t, result.Rows, 2)
	assert.Equal(t, "main", result.Rows[0]["account"])
	assert.InDelta(t, (2.5+4.1+8.0)/3, result.Rows[0]["roi"].(float64), 1e-9)
	assert.InDelta(t, (-0.4+1.2)/2, result.Rows[1]["roi"].(float64), 1e-9)
}

func TestExecuteUnknownOperatorPassesRowsWithWarning(t *testing.T) {
	result := ExecuteSpec(sampleRows(), QuerySpec{
		Intent:  IntentRecentActivity,
		Filters: []Filter{{Field: "profit", Operator: "~~", Value: 0.0}},
	})

	assert.Len(t, result.Rows, len(sampleRows()))
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "~~")
}

func TestExecuteSortNullsLastBothDirections(t *testing.T) {
	rows := []Row{
		{"item_name": "a", "profit": 10.0},
		{"item_name": "b"},
		{"item_name": "c", "profit": 5.0},
	}

	result := Execute(rows, ExecConfig{SortBy: "profit", SortOrder: "desc"})
	assert.Equal(t, "a", result.Rows[0]["item_name"])
	assert.Equal(t, "c", result.Rows[1]["item_name"])
	assert.Equal(t, "b", result.Rows[2]["item_name"])

	result = Execute(rows, ExecConfig{SortBy: "profit", SortOrder: "asc"})
	assert.Equal(t, "c", result.Rows[0]["item_name"])
	assert.Equal(t, "a", result.Rows[1]["item_name"])
	assert.Equal(t, "b", result.Rows[2]["item_name"])
}

func TestExecuteSortStringsCaseInsensitive(t *testing.T) {
	rows := []Row{
		{"item_name": "zulrah's scales"},
		{"item_name": "Abyssal whip"},
		{"item_name": "cannonball"},
	}

	result := Execute(rows, ExecConfig{SortBy: "item_name", SortOrder: "asc"})
	assert.Equal(t, "Abyssal whip", result.Rows[0]["item_name"])
	assert.Equal(t, "cannonball", result.Rows[1]["item_name"])
	assert.Equal(t, "zulrah's scales", result.Rows[2]["item_name"])
}

func TestExecuteSortIsStable(t *testing.T) {
	rows := []Row{
		{"item_name": "first", "profit": 100.0},
		{"item_name": "second", "profit": 100.0},
		{"item_name": "third", "profit": 100.0},
	}

	result := Execute(rows, ExecConfig{SortBy: "profit", SortOrder: "desc"})
	assert.Equal(t, "first", result.Rows[0]["item_name"])
	assert.Equal(t, "second", result.Rows[1]["item_name"])
	assert.Equal(t, "third", result.Rows[2]["item_name"])
}

func TestExecuteCamelCaseFieldAlias(t *testing.T) {
	rows := []Row{
		{"item_name": "a", "flip_duration_minutes": 45.0},
		{"item_name": "b", "flip_duration_minutes": 10.0},
	}

	result := Execute(rows, ExecConfig{
		Filters: []Filter{{Field: "flipDurationMinutes", Operator: OpGT, Value: 30.0}},
	})
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "a", result.Rows[0]["item_name"])
}

func TestExecuteEmptyInput(t *testing.T) {
	result := ExecuteSpec(nil, QuerySpec{Intent: IntentSummary})
	assert.NotNil(t, result.Rows)
	assert.Empty(t, result.Rows)
}

func TestExecuteGlobalAggregate(t *testing.T) {
	result := ExecuteSpec(sampleRows(), QuerySpec{
		Intent: IntentSummary,
		Metrics: []MetricSpec{
			{Metric: "profit", Op: AggSum},
			{Metric: "roi", Op: AggAvg},
			{Metric: "flips", Op: AggCount},
		},
	})

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, 150000.0+900000.0-20000.0+400000.0+50000.0, row["profit"])
	assert.Equal(t, int64(5), row["flips"])
	assert.InDelta(t, (2.5+4.1-0.4+8.0+1.2)/5, row["roi"].(float64), 1e-9)
}

func TestExecuteBetweenFilter(t *testing.T) {
	result := Execute(sampleRows(), ExecConfig{
		Filters: []Filter{{Field: "profit", Operator: OpBetween, Value: 50000.0, Value2: 500000.0}},
	})

	require.Len(t, result.Rows, 3)
	for _, row := range result.Rows {
		p := row["profit"].(float64)
		assert.GreaterOrEqual(t, p, 50000.0)
		assert.LessOrEqual(t, p, 500000.0)
	}
}
