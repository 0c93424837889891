package query

import "fmt"

// knownFields is the closed set of row fields specs may reference: stored
// record fields, derived fields computed at row conversion, and aggregate
// output columns.
var knownFields = map[string]bool{
	"account":               true,
	"item_id":               true,
	"item_name":             true,
	"quantity":              true,
	"avg_buy_price":         true,
	"avg_sell_price":        true,
	"tax":                   true,
	"profit":                true,
	"roi":                   true,
	"opened_at":             true,
	"closed_at":             true,
	"date":                  true,
	"flip_duration_minutes": true,
	"profit_velocity":       true,
	"margin_percent":        true,
	"profit_per_item":       true,
	"total_value":           true,
	"days_since_flip":       true,
	"category":              true,
	"week_of_year":          true,
	"time_period":           true,
	"flips":                 true,
}

// validMetricTags is the closed set of metric tags the executor aggregates.
var validMetricTags = map[string]bool{
	"profit":        true,
	"roi":           true,
	"flips":         true,
	"volume":        true,
	"quantity":      true,
	"avg_hold_time": true,
	"tax":           true,
}

// Validate inspects a spec and returns every problem found, never just the
// first one. An empty slice means the spec is executable.
func Validate(spec QuerySpec) []string {
	var problems []string

	if spec.Intent == "" {
		problems = append(problems, "spec has no intent")
	}
	if spec.Confidence < 0 || spec.Confidence > 1 {
		problems = append(problems, fmt.Sprintf("confidence %g outside [0, 1]", spec.Confidence))
	}

	if len(spec.Metrics) == 0 && len(spec.Dimensions) > 0 {
		problems = append(problems, "grouped spec has no metrics")
	}
	for _, m := range spec.Metrics {
		if !validMetricTags[m.Metric] {
			problems = append(problems, fmt.Sprintf("unknown metric %q", m.Metric))
		}
		if len(spec.Dimensions) > 0 && !validAggregateOps[m.Op] {
			problems = append(problems, fmt.Sprintf("grouped metric %q has non-aggregate op %q", m.Metric, m.Op))
		}
	}

	for _, d := range spec.Dimensions {
		if _, ok := dimensionFields[d]; !ok {
			problems = append(problems, fmt.Sprintf("unknown dimension %q", d))
		}
	}

	for _, f := range spec.Filters {
		if !knownFields[f.Field] {
			problems = append(problems, fmt.Sprintf("filter on unknown field %q", f.Field))
		}
		if !operatorKnown(f.Operator) {
			problems = append(problems, fmt.Sprintf("filter on %q has unknown operator %q", f.Field, f.Operator))
		}
		if f.Operator == OpBetween && (f.Value == nil || f.Value2 == nil) {
			problems = append(problems, fmt.Sprintf("between filter on %q needs two values", f.Field))
		}
	}

	for _, s := range spec.Sort {
		if !knownFields[s.By] && !validMetricTags[s.By] {
			problems = append(problems, fmt.Sprintf("sort on unknown field %q", s.By))
		}
		if s.Order != "asc" && s.Order != "desc" {
			problems = append(problems, fmt.Sprintf("sort on %q has invalid order %q", s.By, s.Order))
		}
	}

	if spec.Limit != nil && *spec.Limit < 0 {
		problems = append(problems, fmt.Sprintf("negative limit %d", *spec.Limit))
	}

	if spec.TimeRange != nil {
		problems = append(problems, validateTimeRange(spec.TimeRange)...)
	}

	return problems
}

func validateTimeRange(tr *TimeRange) []string {
	var problems []string
	switch tr.Kind {
	case TimeRangePreset:
		if tr.Preset == "" {
			problems = append(problems, "preset time range has no preset")
		}
	case TimeRangeDayOfWeek:
		if tr.DayOfWeek == "" {
			problems = append(problems, "day-of-week time range has no day")
		}
		if tr.Specific == tr.All {
			problems = append(problems, "day-of-week time range must be either specific or all")
		}
	case TimeRangeComparison:
		if tr.Comparison == "" {
			problems = append(problems, "comparison time range has no comparison")
		}
	case TimeRangeCustom:
		if tr.From == "" || tr.To == "" {
			problems = append(problems, "custom time range needs both dates")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown time range kind %q", tr.Kind))
	}
	return problems
}
