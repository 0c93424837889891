package query

import (
	"fmt"
	"sort"
	"strings"
)

// Result is the executor's output: shaped rows plus non-fatal warnings
// accumulated along the way (skipped filters, unknown fields).
type Result struct {
	Rows     []Row    `json:"rows"`
	Warnings []string `json:"warnings,omitempty"`
}

// dimensionFields maps spec dimension keys to row fields.
var dimensionFields = map[string]string{
	"item":        "item_name",
	"date":        "date",
	"account":     "account",
	"time_period": "time_period",
}

// metricFields maps metric tags to the row field they aggregate over.
// "flips" is special-cased as a row count.
var metricFields = map[string]string{
	"profit":        "profit",
	"roi":           "roi",
	"volume":        "quantity",
	"quantity":      "quantity",
	"avg_hold_time": "flip_duration_minutes",
	"tax":           "tax",
}

// ExecuteSpec runs a full QuerySpec against in-memory rows. The stages run
// in fixed order: filter, group, sort, limit. Execution never errors; rows
// that cannot satisfy a stage drop out or pass through with a warning.
func ExecuteSpec(rows []Row, spec QuerySpec) Result {
	cfg := ExecConfig{
		Filters: spec.Filters,
		Limit:   spec.Limit,
	}
	if len(spec.Dimensions) > 0 {
		cfg.GroupBy = spec.Dimensions[0]
	}
	if len(spec.Sort) > 0 {
		cfg.SortBy = spec.Sort[0].By
		cfg.SortOrder = spec.Sort[0].Order
	}
	return execute(rows, cfg, spec.Metrics, spec.Sort)
}

// Execute runs a hand-written ExecConfig against in-memory rows. Grouped
// configs aggregate the standard metric set.
func Execute(rows []Row, cfg ExecConfig) Result {
	var sorts []SortSpec
	if cfg.SortBy != "" {
		order := cfg.SortOrder
		if order == "" {
			order = "desc"
		}
		sorts = []SortSpec{{By: cfg.SortBy, Order: order}}
	}
	var metrics []MetricSpec
	if cfg.GroupBy != "" {
		metrics = defaultGroupMetrics
	}
	return execute(rows, cfg, metrics, sorts)
}

// defaultGroupMetrics is the aggregate set for ExecConfig group-bys.
var defaultGroupMetrics = []MetricSpec{
	{Metric: "flips", Op: AggCount},
	{Metric: "profit", Op: AggSum},
	{Metric: "quantity", Op: AggSum},
	{Metric: "roi", Op: AggAvg},
}

func execute(rows []Row, cfg ExecConfig, metrics []MetricSpec, sorts []SortSpec) Result {
	var result Result

	filtered := rows
	for _, f := range cfg.Filters {
		if !operatorKnown(f.Operator) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("unrecognized operator %q on field %q; filter skipped", f.Operator, f.Field))
			continue
		}
		kept := filtered[:0:0]
		for _, row := range filtered {
			matched, _ := EvaluateCondition(ResolveField(row, f.Field), f.Operator, f.Value, f.Value2)
			if matched {
				kept = append(kept, row)
			}
		}
		filtered = kept
	}

	shaped := filtered
	switch {
	case cfg.GroupBy != "":
		shaped = groupRows(filtered, cfg.GroupBy, metrics)
	case len(metrics) > 0 && allAggregates(metrics):
		// Aggregate metrics without a dimension collapse to one totals row.
		shaped = []Row{aggregateAll(filtered, metrics)}
	}

	sortRows(shaped, sorts)

	if cfg.Limit != nil && *cfg.Limit >= 0 && *cfg.Limit < len(shaped) {
		shaped = shaped[:*cfg.Limit]
	}

	result.Rows = shaped
	if result.Rows == nil {
		result.Rows = []Row{}
	}
	return result
}

// ResolveField looks a field up in a row, falling back to the snake_case
// form of a camelCase name so hand-written configs can use either spelling.
func ResolveField(row Row, field string) interface{} {
	if v, ok := row[field]; ok {
		return v
	}
	if v, ok := row[camelToSnake(field)]; ok {
		return v
	}
	return nil
}

func camelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// groupRows buckets rows by the dimension field and emits one aggregate row
// per group, in first-seen order.
func groupRows(rows []Row, dimension string, metrics []MetricSpec) []Row {
	field := dimension
	if mapped, ok := dimensionFields[dimension]; ok {
		field = mapped
	}

	type bucket struct {
		key  interface{}
		rows []Row
	}
	var order []string
	buckets := make(map[string]*bucket)

	for _, row := range rows {
		key := ResolveField(row, field)
		ks := fmt.Sprintf("%v", key)
		b, ok := buckets[ks]
		if !ok {
			b = &bucket{key: key}
			buckets[ks] = b
			order = append(order, ks)
		}
		b.rows = append(b.rows, row)
	}

	out := make([]Row, 0, len(order))
	for _, ks := range order {
		b := buckets[ks]
		row := Row{field: b.key}
		for _, m := range metrics {
			row[m.Metric] = aggregate(b.rows, m)
		}
		// Row counts are always useful alongside aggregates.
		if _, ok := row["flips"]; !ok {
			row["flips"] = int64(len(b.rows))
		}
		out = append(out, row)
	}
	return out
}

func allAggregates(metrics []MetricSpec) bool {
	for _, m := range metrics {
		if !validAggregateOps[m.Op] {
			return false
		}
	}
	return true
}

// aggregateAll folds every row into a single totals row.
func aggregateAll(rows []Row, metrics []MetricSpec) Row {
	row := Row{}
	for _, m := range metrics {
		row[m.Metric] = aggregate(rows, m)
	}
	if _, ok := row["flips"]; !ok {
		row["flips"] = int64(len(rows))
	}
	return row
}

func aggregate(rows []Row, m MetricSpec) interface{} {
	if m.Op == AggCount || m.Metric == "flips" {
		return int64(len(rows))
	}

	field := m.Metric
	if mapped, ok := metricFields[m.Metric]; ok {
		field = mapped
	}

	var sum float64
	var count int
	var minV, maxV float64
	for _, row := range rows {
		v, ok := toFloat(ResolveField(row, field))
		if !ok {
			continue
		}
		if count == 0 {
			minV, maxV = v, v
		} else {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		sum += v
		count++
	}

	if count == 0 {
		return nil
	}

	switch m.Op {
	case AggSum:
		return sum
	case AggAvg:
		return sum / float64(count)
	case AggMin:
		return minV
	case AggMax:
		return maxV
	default:
		return sum
	}
}

// sortRows sorts in place, stably, over multiple keys. Nil values sort last
// in both directions; strings compare case-insensitively.
func sortRows(rows []Row, sorts []SortSpec) {
	if len(sorts) == 0 {
		return
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, s := range sorts {
			a := ResolveField(rows[i], s.By)
			b := ResolveField(rows[j], s.By)

			if a == nil && b == nil {
				continue
			}
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}

			cmp, ok := compareValues(a, b)
			if !ok || cmp == 0 {
				continue
			}
			if s.Order == "asc" {
				return cmp < 0
			}
			return cmp > 0
		}
		return false
	})
}
