package query

import (
	"strconv"
	"strings"
)

// Builder assembles immutable QuerySpecs from classified intents and
// extracted components. Construction copies everything it takes from the
// catalog: a built spec shares no mutable state with the pattern it came
// from or with any other spec.
type Builder struct {
	catalog *Catalog
}

// NewBuilder creates a builder over a validated catalog.
func NewBuilder(catalog *Catalog) *Builder {
	return &Builder{catalog: catalog}
}

// confirmationFloor is the confidence below which execution requires an
// explicit user go-ahead.
const confirmationFloor = 0.65

// maxUnconfirmedLimit is the largest result limit served without
// confirmation.
const maxUnconfirmedLimit = 100

// metricAggOps maps extracted metric tags to their aggregate operation.
var metricAggOps = map[string]string{
	"profit":        AggSum,
	"roi":           AggAvg,
	"flips":         AggCount,
	"volume":        AggSum,
	"avg_hold_time": AggAvg,
}

// fieldSynonyms normalizes filter field vocabulary to canonical record
// fields.
var fieldSynonyms = map[string]string{
	"gp":        "profit",
	"money":     "profit",
	"earnings":  "profit",
	"gold":      "profit",
	"return":    "roi",
	"time":      "flip_duration_minutes",
	"duration":  "flip_duration_minutes",
	"hold":      "flip_duration_minutes",
	"hold_time": "flip_duration_minutes",
	"item":      "item_name",
	"name":      "item_name",
	"amount":    "quantity",
	"volume":    "quantity",
	"date":      "closed_at",
}

// operatorSynonyms normalizes filter operator vocabulary to the closed
// operator set.
var operatorSynonyms = map[string]string{
	"over":         OpGT,
	"above":        OpGT,
	"greater than": OpGT,
	"more than":    OpGT,
	"gt":           OpGT,
	"under":        OpLT,
	"below":        OpLT,
	"less than":    OpLT,
	"lt":           OpLT,
	"at least":     OpGTE,
	"gte":          OpGTE,
	"at most":      OpLTE,
	"lte":          OpLTE,
	"equals":       OpEq,
	"is":           OpEq,
	"eq":           OpEq,
	OpEqAlias:      OpEq,
	"not":          OpNotEq,
	"not equals":   OpNotEq,
	"neq":          OpNotEq,
	"has":          OpContains,
	"like":         OpContains,
}

// Build produces the final QuerySpec for a classified query. The original
// query text participates only in the confirmation heuristics.
func (b *Builder) Build(query string, components ParsedComponents, intent IntentResult, confidence float64) QuerySpec {
	pattern := b.lookupPattern(query, intent)

	spec := QuerySpec{
		Intent:     intent.Intent,
		Confidence: confidence,
		Metrics:    copyMetrics(pattern.DefaultSpec.Metrics),
		Dimensions: copyStrings(pattern.DefaultSpec.Dimensions),
		Sort:       copySorts(pattern.DefaultSpec.Sort),
		TimeRange:  copyTimeRange(components.TimeRange),
	}

	if len(components.Dimensions) > 0 {
		spec.Dimensions = copyStrings(components.Dimensions)
	}

	// Extracted metrics override the pattern defaults. Grouped specs only
	// carry aggregates, so every metric maps through its aggregate op;
	// ungrouped specs return raw rows and keep defaults as-is.
	if len(components.Metrics) > 0 && len(spec.Dimensions) > 0 {
		spec.Metrics = spec.Metrics[:0]
		for _, m := range components.Metrics {
			op, ok := metricAggOps[m]
			if !ok {
				continue
			}
			spec.Metrics = append(spec.Metrics, MetricSpec{Metric: m, Op: op})
		}
		if len(spec.Metrics) == 0 {
			spec.Metrics = copyMetrics(pattern.DefaultSpec.Metrics)
		}
	}

	spec.Filters = b.buildFilters(components)
	spec.Limit = resolveLimit(components.Limit, pattern)

	if components.SortBy != "" && components.SortOrder != "" {
		spec.Sort = []SortSpec{{By: components.SortBy, Order: components.SortOrder}}
	}

	spec.RequiresConfirmation = requiresConfirmation(query, spec)

	return spec
}

// lookupPattern resolves the catalog pattern backing a spec. Resolution
// order: the classifier's matched pattern, then any pattern declaring the
// intent, then the best example phrase similarity above 0.7, then a generic
// skeleton.
func (b *Builder) lookupPattern(query string, intent IntentResult) *Pattern {
	if intent.Pattern != "" && intent.Pattern != "fallback" {
		if p, ok := b.catalog.PatternByKey(intent.Pattern); ok {
			return p
		}
	}

	if p, ok := b.catalog.PatternByIntent(intent.Intent); ok {
		return p
	}

	var best *Pattern
	bestSim := 0.7
	for i := range b.catalog.Patterns {
		p := &b.catalog.Patterns[i]
		for _, example := range p.Examples {
			if sim := PhraseSimilarity(query, example); sim > bestSim {
				bestSim = sim
				best = p
			}
		}
	}
	if best != nil {
		return best
	}

	return fallbackPattern(query)
}

// fallbackPattern picks the last-resort skeleton from coarse wording cues:
// analysis-flavoured queries get the per-item breakdown, summary-flavoured
// ones the lifetime totals, everything else the generic listing.
func fallbackPattern(query string) *Pattern {
	switch {
	case strings.Contains(query, "analysis") || strings.Contains(query, "performance"):
		return &Pattern{
			Key:    "generic_analysis",
			Intent: IntentProfitAnalysis,
			DefaultSpec: DefaultSpec{
				Metrics:    []MetricSpec{{Metric: "profit", Op: AggSum}},
				Dimensions: []string{"item"},
				Sort:       []SortSpec{{By: "profit", Order: "desc"}},
			},
		}
	case strings.Contains(query, "summary") || strings.Contains(query, "total"):
		return &Pattern{
			Key:    "generic_summary",
			Intent: IntentSummary,
			DefaultSpec: DefaultSpec{
				Metrics: []MetricSpec{
					{Metric: "profit", Op: AggSum},
					{Metric: "flips", Op: AggCount},
				},
			},
		}
	}
	return genericPattern()
}

// genericPattern is the ultimate default when nothing in the wording helps:
// total profit, newest first.
func genericPattern() *Pattern {
	return &Pattern{
		Key:    "generic",
		Intent: IntentProfitAnalysis,
		DefaultSpec: DefaultSpec{
			Metrics: []MetricSpec{{Metric: "profit", Op: AggSum}},
			Sort:    []SortSpec{{By: "closed_at", Order: "desc"}},
		},
	}
}

// buildFilters merges threshold filters, item filters and modifier filters
// into one normalized AND list.
func (b *Builder) buildFilters(components ParsedComponents) []Filter {
	var filters []Filter

	for _, f := range components.Filters {
		filters = append(filters, NormalizeFilter(f))
	}

	// One filter per item, on the single best match pattern.
	for _, name := range components.Items {
		filters = append(filters, Filter{Field: "item_name", Operator: OpContains, Value: name})
	}

	for _, cat := range components.Modifiers.Exclude {
		filters = append(filters, Filter{Field: "category", Operator: OpNotEq, Value: cat})
	}
	for _, cat := range components.Modifiers.Include {
		filters = append(filters, Filter{Field: "category", Operator: OpEq, Value: cat})
	}
	if components.Modifiers.OnlyProfitable {
		filters = append(filters, Filter{Field: "profit", Operator: OpGT, Value: 0.0})
	}

	return filters
}

// NormalizeFilter maps field and operator synonyms to their canonical forms
// and parses shorthand numeric values ("5m", "100k"). Unrecognized fields
// and operators pass through unchanged; validation decides what to do with
// them.
func NormalizeFilter(f Filter) Filter {
	field := strings.ToLower(strings.TrimSpace(f.Field))
	if canonical, ok := fieldSynonyms[field]; ok {
		field = canonical
	}

	op := strings.ToLower(strings.TrimSpace(f.Operator))
	if canonical, ok := operatorSynonyms[op]; ok {
		op = canonical
	} else {
		// Canonical operators keep their case-sensitive spelling.
		op = f.Operator
	}

	return Filter{
		Field:    field,
		Operator: op,
		Value:    normalizeValue(f.Value),
		Value2:   normalizeValue(f.Value2),
	}
}

// normalizeValue parses GP-shorthand strings into numbers: "5m" is five
// million, "100k" a hundred thousand. Non-shorthand values pass through.
func normalizeValue(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}

	trimmed := strings.ToLower(strings.TrimSpace(s))
	multiplier := 1.0
	switch {
	case strings.HasSuffix(trimmed, "k"):
		multiplier = 1e3
		trimmed = strings.TrimSuffix(trimmed, "k")
	case strings.HasSuffix(trimmed, "m"):
		multiplier = 1e6
		trimmed = strings.TrimSuffix(trimmed, "m")
	case strings.HasSuffix(trimmed, "b"):
		multiplier = 1e9
		trimmed = strings.TrimSuffix(trimmed, "b")
	}

	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return v
	}
	return n * multiplier
}

// resolveLimit turns the tri-state limit component into the spec's limit
// pointer. Pattern defaults apply only when the user said nothing about
// limits; an explicit "show all" stays unlimited.
func resolveLimit(limit LimitSpec, pattern *Pattern) *int {
	switch limit.Kind {
	case LimitExact:
		n := limit.N
		return &n
	case LimitNone:
		return nil
	default:
		if pattern.DefaultLimit > 0 {
			n := pattern.DefaultLimit
			return &n
		}
		return nil
	}
}

// requiresConfirmation flags specs that should not run without an explicit
// user go-ahead: low confidence, heavy filtering, custom date ranges, big
// result sets, or comparison phrasing the pipeline may have misread.
func requiresConfirmation(query string, spec QuerySpec) bool {
	if spec.Confidence < confirmationFloor {
		return true
	}
	if len(spec.Filters) > 3 {
		return true
	}
	if spec.TimeRange != nil && spec.TimeRange.Kind == TimeRangeCustom {
		return true
	}
	if spec.Limit != nil && *spec.Limit > maxUnconfirmedLimit {
		return true
	}
	q := Normalize(query)
	if strings.Contains(q, " vs ") || strings.Contains(q, "compare") || strings.Contains(q, "versus") {
		return true
	}
	return false
}

func copyMetrics(in []MetricSpec) []MetricSpec {
	out := make([]MetricSpec, len(in))
	copy(out, in)
	return out
}

func copySorts(in []SortSpec) []SortSpec {
	out := make([]SortSpec, len(in))
	copy(out, in)
	return out
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyTimeRange(tr *TimeRange) *TimeRange {
	if tr == nil {
		return nil
	}
	c := *tr
	return &c
}
