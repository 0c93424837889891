package query

import (
	"fmt"
	"strings"
)

// metricPhrases maps op+metric pairs to reading-order phrases.
var metricPhrases = map[string]string{
	AggSum + ":profit":                "total profit",
	AggAvg + ":profit":                "average profit",
	AggSum + ":quantity":              "total quantity",
	AggSum + ":volume":                "total volume",
	AggAvg + ":roi":                   "average ROI",
	AggCount + ":flips":               "flip count",
	AggAvg + ":avg_hold_time":         "average hold time",
	AggMin + ":profit":                "lowest profit",
	AggMax + ":profit":                "highest profit",
	AggAvg + ":flip_duration_minutes": "average flip duration",
}

// dimensionPhrases maps dimension keys to grouping phrases.
var dimensionPhrases = map[string]string{
	"item":        "per item",
	"date":        "per day",
	"account":     "per account",
	"time_period": "per time period",
}

// timeRangePhrases maps preset tags to phrases.
var timeRangePhrases = map[string]string{
	PresetToday:     "today",
	PresetYesterday: "yesterday",
	PresetThisWeek:  "this week",
	PresetLastWeek:  "last week",
	PresetThisMonth: "this month",
	PresetLastMonth: "last month",
	PresetAllTime:   "all time",
}

// comparisonPhrases maps comparison tags to phrases.
var comparisonPhrases = map[string]string{
	ComparisonWeekendVsWeekday:     "weekends vs weekdays",
	ComparisonThisWeekVsLastWeek:   "this week vs last week",
	ComparisonThisMonthVsLastMonth: "this month vs last month",
}

// Preview renders a human-readable restatement of a spec, shown to the user
// before execution so they can confirm the pipeline understood them.
func Preview(spec QuerySpec) string {
	var parts []string

	parts = append(parts, metricsPhrase(spec.Metrics))

	for _, d := range spec.Dimensions {
		if p, ok := dimensionPhrases[d]; ok {
			parts = append(parts, p)
		} else {
			parts = append(parts, "per "+d)
		}
	}

	if tr := timeRangePhrase(spec.TimeRange); tr != "" {
		parts = append(parts, tr)
	}

	for _, f := range spec.Filters {
		parts = append(parts, filterPhrase(f))
	}

	if spec.Limit != nil {
		parts = append(parts, fmt.Sprintf("top %d", *spec.Limit))
	}

	return strings.Join(parts, ", ")
}

func metricsPhrase(metrics []MetricSpec) string {
	if len(metrics) == 0 {
		return "all fields"
	}
	phrases := make([]string, 0, len(metrics))
	for _, m := range metrics {
		if p, ok := metricPhrases[m.Op+":"+m.Metric]; ok {
			phrases = append(phrases, p)
		} else {
			phrases = append(phrases, m.Op+" of "+m.Metric)
		}
	}
	return strings.Join(phrases, " and ")
}

func timeRangePhrase(tr *TimeRange) string {
	if tr == nil {
		return ""
	}
	switch tr.Kind {
	case TimeRangePreset:
		if p, ok := timeRangePhrases[tr.Preset]; ok {
			return p
		}
		return tr.Preset
	case TimeRangeDayOfWeek:
		if tr.Specific {
			return "last " + tr.DayOfWeek
		}
		return "every " + tr.DayOfWeek
	case TimeRangeComparison:
		if p, ok := comparisonPhrases[tr.Comparison]; ok {
			return p
		}
		return tr.Comparison
	case TimeRangeCustom:
		return fmt.Sprintf("from %s to %s", tr.From, tr.To)
	}
	return ""
}

func filterPhrase(f Filter) string {
	field := strings.ReplaceAll(f.Field, "_", " ")
	switch f.Operator {
	case OpGT:
		return fmt.Sprintf("%s over %s", field, formatValue(f.Value))
	case OpLT:
		return fmt.Sprintf("%s under %s", field, formatValue(f.Value))
	case OpGTE:
		return fmt.Sprintf("%s at least %s", field, formatValue(f.Value))
	case OpLTE:
		return fmt.Sprintf("%s at most %s", field, formatValue(f.Value))
	case OpEq, OpEqAlias:
		return fmt.Sprintf("%s is %s", field, formatValue(f.Value))
	case OpNotEq:
		return fmt.Sprintf("%s is not %s", field, formatValue(f.Value))
	case OpContains:
		return fmt.Sprintf("%s matching %q", field, f.Value)
	case OpBetween:
		return fmt.Sprintf("%s between %s and %s", field, formatValue(f.Value), formatValue(f.Value2))
	case OpIn:
		return fmt.Sprintf("%s in %v", field, f.Value)
	default:
		return fmt.Sprintf("%s %s %v", field, f.Operator, f.Value)
	}
}

// formatValue renders large GP amounts back into shorthand for readability.
func formatValue(v interface{}) string {
	f, ok := toFloat(v)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	switch {
	case f >= 1e9 && f == float64(int64(f/1e9))*1e9:
		return fmt.Sprintf("%gb", f/1e9)
	case f >= 1e6 && f == float64(int64(f/1e6))*1e6:
		return fmt.Sprintf("%gm", f/1e6)
	case f >= 1e3 && f == float64(int64(f/1e3))*1e3:
		return fmt.Sprintf("%gk", f/1e3)
	default:
		return fmt.Sprintf("%g", f)
	}
}
