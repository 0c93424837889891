// Package query implements the natural-language query understanding pipeline:
// component extraction, intent classification, confidence scoring, structured
// spec construction, and local execution against in-memory flip records.
package query

// Intent tags produced by the classifier. The catalog is the source of truth
// for which intents exist; these constants cover the built-in set.
const (
	IntentTopItemsByProfit  = "top_items_by_profit"
	IntentTopItemsByROI     = "top_items_by_roi"
	IntentItemPerformance   = "item_performance"
	IntentTimeComparison    = "time_comparison"
	IntentAccountComparison = "account_comparison"
	IntentRecentActivity    = "recent_activity"
	IntentDurationAnalysis  = "duration_analysis"
	IntentProfitAnalysis    = "profit_analysis"
	IntentSummary           = "summary"
)

// TimeRangeKind discriminates the time-range union.
type TimeRangeKind string

const (
	TimeRangePreset     TimeRangeKind = "preset"
	TimeRangeDayOfWeek  TimeRangeKind = "day_of_week"
	TimeRangeComparison TimeRangeKind = "comparison"
	TimeRangeCustom     TimeRangeKind = "custom"
)

// Preset time range tags.
const (
	PresetToday     = "today"
	PresetYesterday = "yesterday"
	PresetThisWeek  = "this_week"
	PresetLastWeek  = "last_week"
	PresetThisMonth = "this_month"
	PresetLastMonth = "last_month"
	PresetAllTime   = "all_time"
)

// Named comparison tags.
const (
	ComparisonWeekendVsWeekday     = "weekend_vs_weekday"
	ComparisonThisWeekVsLastWeek   = "this_week_vs_last_week"
	ComparisonThisMonthVsLastMonth = "this_month_vs_last_month"
)

// TimeRange is a discriminated union over the four ways a query can scope
// time. Exactly the fields for the active Kind are set; the rest stay zero.
type TimeRange struct {
	Kind TimeRangeKind `json:"kind"`

	// Kind == preset
	Preset string `json:"preset,omitempty"`

	// Kind == day_of_week. Specific means a single concrete date
	// ("last tuesday"); All means every occurrence ("tuesdays").
	DayOfWeek string `json:"day_of_week,omitempty"`
	Specific  bool   `json:"specific,omitempty"`
	All       bool   `json:"all,omitempty"`

	// Kind == comparison
	Comparison string `json:"comparison,omitempty"`

	// Kind == custom, dates as YYYY-MM-DD
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// LimitKind distinguishes "not mentioned" from "user explicitly said show
// all" from an explicit count. Intent-default limits apply only to
// LimitUnspecified.
type LimitKind string

const (
	LimitUnspecified LimitKind = "unspecified"
	LimitNone        LimitKind = "none"
	LimitExact       LimitKind = "exact"
)

// LimitSpec is the tri-state limit component.
type LimitSpec struct {
	Kind LimitKind `json:"kind"`
	N    int       `json:"n,omitempty"`
}

// Filter operators form a closed set validated at build time. The executor
// additionally accepts OpEqAlias, OpStartsWith and OpEndsWith for
// hand-written configs.
const (
	OpGT         = ">"
	OpLT         = "<"
	OpGTE        = ">="
	OpLTE        = "<="
	OpEq         = "="
	OpEqAlias    = "=="
	OpNotEq      = "!="
	OpContains   = "contains"
	OpStartsWith = "startsWith"
	OpEndsWith   = "endsWith"
	OpBetween    = "between"
	OpIn         = "in"
)

// Filter is a single field predicate. Value2 is used only by OpBetween.
type Filter struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	Value2   interface{} `json:"value2,omitempty"`
}

// Modifiers carry the include/exclude category vocabulary and the
// "profitable only" flag.
type Modifiers struct {
	Exclude        []string `json:"exclude,omitempty"`
	Include        []string `json:"include,omitempty"`
	OnlyProfitable bool     `json:"only_profitable,omitempty"`
}

// ParsedComponents is the transient output of the extractor. Every field
// defaults to an empty/neutral value: extraction never fails on absence.
type ParsedComponents struct {
	TimeRange  *TimeRange `json:"time_range,omitempty"`
	Items      []string   `json:"items,omitempty"`
	Metrics    []string   `json:"metrics,omitempty"`
	Dimensions []string   `json:"dimensions,omitempty"`
	Filters    []Filter   `json:"filters,omitempty"`
	Limit      LimitSpec  `json:"limit"`
	SortBy     string     `json:"sort_by,omitempty"`
	SortOrder  string     `json:"sort_order,omitempty"`
	Modifiers  Modifiers  `json:"modifiers"`
}

// IntentResult is produced once per query by the classifier and consumed
// only by the confidence scorer and spec builder.
type IntentResult struct {
	Intent  string  `json:"intent"`
	Pattern string  `json:"pattern"` // matched catalog key, or "fallback"
	Score   float64 `json:"score"`   // 0..1
}

// Aggregate operations for grouped metrics.
const (
	AggSum   = "sum"
	AggAvg   = "avg"
	AggCount = "count"
	AggMin   = "min"
	AggMax   = "max"
)

// MetricSpec pairs a metric with its aggregate operation.
type MetricSpec struct {
	Metric string `json:"metric"`
	Op     string `json:"op"`
}

// SortSpec is one sort key with direction ("asc" or "desc").
type SortSpec struct {
	By    string `json:"by"`
	Order string `json:"order"`
}

// QuerySpec is the declarative output contract of the builder: what data to
// fetch and how to shape it, independent of execution backend. Immutable
// after hand-off to execution.
//
// Invariant: when Dimensions is non-empty, every Metrics entry is an
// aggregate operation. Grouped queries only emit aggregates.
type QuerySpec struct {
	Intent               string       `json:"intent"`
	Confidence           float64      `json:"confidence"`
	Metrics              []MetricSpec `json:"metrics"`
	Dimensions           []string     `json:"dimensions,omitempty"`
	Filters              []Filter     `json:"filters,omitempty"`
	TimeRange            *TimeRange   `json:"time_range,omitempty"`
	Sort                 []SortSpec   `json:"sort,omitempty"`
	Limit                *int         `json:"limit,omitempty"` // nil means unlimited
	RequiresConfirmation bool         `json:"requires_confirmation"`
}

// Row is one result record: a raw flip row or an aggregate group row.
type Row map[string]interface{}

// ExecConfig is the narrower, already-resolved execution config accepted by
// the local executor alongside full QuerySpecs.
type ExecConfig struct {
	Filters   []Filter   `json:"filters,omitempty"`
	GroupBy   string     `json:"group_by,omitempty"`
	SortBy    string     `json:"sort_by,omitempty"`
	SortOrder string     `json:"sort_order,omitempty"`
	Limit     *int       `json:"limit,omitempty"`
	TimeRange *TimeRange `json:"time_range,omitempty"`
}
