package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/flipsight/flipsight/internal/modules/items"
)

// customRangeRe matches explicit "YYYY-MM-DD to YYYY-MM-DD" literal ranges.
var customRangeRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+to\s+(\d{4}-\d{2}-\d{2})`)

// keywordRule is one entry of an ordered {predicate, effect} table.
// Tables are evaluated top to bottom and matches accumulate; the order is
// part of the contract and must not be rearranged casually.
type keywordRule struct {
	keywords []string
	effect   string
}

// metricRules maps query vocabulary to metric tags (accumulate semantics).
var metricRules = []keywordRule{
	{[]string{"profit", "money", "earnings", "made", "gp"}, "profit"},
	{[]string{"roi", "return", "percentage"}, "roi"},
	{[]string{"flip count", "flips", "trades", "transactions"}, "flips"},
	{[]string{"volume", "quantity"}, "volume"},
	{[]string{"hold time", "duration", "held"}, "avg_hold_time"},
}

// dimensionRules maps grouping vocabulary to dimension keys (accumulate).
var dimensionRules = []keywordRule{
	{[]string{"per item", "by item", "each item"}, "item"},
	{[]string{"per day", "by day", "daily", "over time", "by date"}, "date"},
	{[]string{"per account", "by account"}, "account"},
}

// modifier vocabulary is a small fixed set, not a general category ontology.
var modifierCategories = []string{"ammo", "armor", "weapons"}

// sortFieldForMetric maps a metric tag to the record field sorting uses.
var sortFieldForMetric = map[string]string{
	"profit":        "profit",
	"roi":           "roi",
	"flips":         "flips",
	"volume":        "quantity",
	"avg_hold_time": "flip_duration_minutes",
}

// stopwords are pipeline vocabulary that must never become item candidates.
var stopwords = map[string]bool{}

func init() {
	for _, w := range []string{
		"show", "me", "my", "i", "a", "an", "the", "of", "for", "with", "and", "or", "to", "from", "please",
		"top", "best", "worst", "most", "least", "highest", "lowest", "biggest",
		"profit", "profitable", "profits", "roi", "return", "returns", "percentage",
		"flip", "flips", "trade", "trades", "transactions", "item", "items",
		"recent", "latest", "last", "this", "past", "previous", "week", "weeks", "month", "months",
		"today", "yesterday", "time", "lifetime", "weekend", "weekends", "weekday", "weekdays",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"mondays", "tuesdays", "wednesdays", "thursdays", "fridays", "saturdays", "sundays",
		"vs", "versus", "compare", "compared", "comparison",
		"account", "accounts", "by", "per", "each", "over", "under", "above", "below",
		"than", "more", "less", "greater", "at", "in", "on",
		"held", "hold", "holds", "minutes", "minute", "mins", "min", "hours", "hour", "hrs", "hr",
		"days", "day", "all", "everything", "total", "summary", "stats", "overall",
		"how", "what", "which", "when", "did", "do", "does", "is", "are", "was", "were",
		"made", "money", "earnings", "gp", "sorted", "sort", "order", "limit", "first", "between",
		"without", "excluding", "except", "no", "only", "just",
		"ammo", "armor", "weapons", "performance", "perform", "performed", "analysis",
		"quick", "long", "longest", "slowest", "fastest", "shortest", "trending", "volume", "quantity",
	} {
		stopwords[w] = true
	}
}

// Extractor scans normalized query text and pulls out typed components.
// It is a pure function of (query, catalog, matcher snapshot): extraction
// never errors, and unparseable fragments leave components at their
// null/empty defaults.
type Extractor struct {
	catalog *Catalog
}

// NewExtractor creates an extractor over a validated catalog.
func NewExtractor(catalog *Catalog) *Extractor {
	return &Extractor{catalog: catalog}
}

// Normalize lower-cases, trims and collapses whitespace.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(query))), " ")
}

// Extract parses all components from a normalized query.
func (e *Extractor) Extract(query string, matcher *items.Matcher) ParsedComponents {
	query = Normalize(query)

	components := ParsedComponents{
		Limit: LimitSpec{Kind: LimitUnspecified},
	}

	components.TimeRange = e.extractTimeRange(query)
	components.Items = e.extractItems(query, matcher)
	components.Metrics = extractByRules(query, metricRules)
	components.Dimensions = extractByRules(query, dimensionRules)
	components.Filters = e.extractThresholds(query)
	components.Limit = e.extractLimit(query)
	components.SortBy, components.SortOrder = extractSort(query, components.Metrics)
	components.Modifiers = extractModifiers(query)

	return components
}

// extractTimeRange resolves the time-range union. Resolution order is fixed:
// preset keyword, day-of-week, named comparison, explicit date range.
// Comparison phrases embed preset words ("this week vs last week"), so the
// preset pass defers whenever a comparison keyword is present.
func (e *Extractor) extractTimeRange(query string) *TimeRange {
	comparison := e.matchComparison(query)

	if comparison == "" {
		for _, pk := range e.catalog.Extraction.TimeRanges {
			for _, kw := range pk.Keywords {
				if strings.Contains(query, kw) {
					return &TimeRange{Kind: TimeRangePreset, Preset: pk.Preset}
				}
			}
		}
	}

	// Day-of-week: "last tuesday" means the single most recent tuesday;
	// "tuesdays" / "tuesday flips" mean every occurrence.
	for _, day := range e.catalog.Extraction.DaysOfWeek {
		if !strings.Contains(query, day) {
			continue
		}
		if strings.Contains(query, "last "+day) {
			return &TimeRange{Kind: TimeRangeDayOfWeek, DayOfWeek: day, Specific: true}
		}
		return &TimeRange{Kind: TimeRangeDayOfWeek, DayOfWeek: day, All: true}
	}

	if comparison != "" {
		return &TimeRange{Kind: TimeRangeComparison, Comparison: comparison}
	}

	if m := customRangeRe.FindStringSubmatch(query); m != nil {
		return &TimeRange{Kind: TimeRangeCustom, From: m[1], To: m[2]}
	}

	return nil
}

func (e *Extractor) matchComparison(query string) string {
	for _, ck := range e.catalog.Extraction.TimeComparisons {
		for _, kw := range ck.Keywords {
			if strings.Contains(query, kw) {
				return ck.Comparison
			}
		}
	}
	return ""
}

// extractItems resolves item references via the fuzzy matcher. Candidate
// n-grams are built from consecutive non-stopword tokens, longest first, so
// "dragon scimitar" is tried before "dragon" and "scimitar" separately.
func (e *Extractor) extractItems(query string, matcher *items.Matcher) []string {
	if matcher == nil {
		return nil
	}

	tokens := strings.Fields(stripPunctuation(query))
	consumed := make([]bool, len(tokens))

	isCandidate := func(i int) bool {
		t := tokens[i]
		if consumed[i] || stopwords[t] || len(t) < 3 {
			return false
		}
		if _, err := strconv.ParseFloat(t, 64); err == nil {
			return false
		}
		return true
	}

	var found []string
	seen := make(map[string]bool)

	for n := 3; n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			ok := true
			for j := i; j < i+n; j++ {
				if !isCandidate(j) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}

			fragment := strings.Join(tokens[i:i+n], " ")
			best, matched := matcher.Best(fragment)
			if !matched || best.Score < 0.6 {
				continue
			}
			if !seen[best.Name] {
				seen[best.Name] = true
				found = append(found, best.Name)
			}
			for j := i; j < i+n; j++ {
				consumed[j] = true
			}
		}
	}

	return found
}

// extractThresholds runs the profit/ROI/duration regexes and emits
// normalized filters. Values pass through the per-pattern unit-multiplier
// map so amounts land in base units (GP, percent, minutes).
func (e *Extractor) extractThresholds(query string) []Filter {
	var filters []Filter
	seen := make(map[string]bool)

	apply := func(patterns []ThresholdPattern) {
		for _, tp := range patterns {
			m := tp.re.FindStringSubmatch(query)
			if m == nil {
				continue
			}
			value, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			multiplier := 1.0
			if len(m) > 2 && m[2] != "" {
				if mult, ok := tp.Units[m[2]]; ok {
					multiplier = mult
				}
			}
			key := tp.Field + tp.Operator
			if seen[key] {
				continue
			}
			seen[key] = true
			filters = append(filters, Filter{
				Field:    tp.Field,
				Operator: tp.Operator,
				Value:    value * multiplier,
			})
		}
	}

	apply(e.catalog.Extraction.ProfitThresholds)
	apply(e.catalog.Extraction.ROIThresholds)
	apply(e.catalog.Extraction.DurationThresholds)

	return filters
}

// extractLimit recognizes explicit counts ("top 10") and the literal
// "show all" intent, which resolves to LimitNone - distinct from a limit
// that was simply never mentioned.
func (e *Extractor) extractLimit(query string) LimitSpec {
	for _, kw := range e.catalog.Extraction.ShowAllKeywords {
		if strings.Contains(query, kw) {
			return LimitSpec{Kind: LimitNone}
		}
	}

	for _, lp := range e.catalog.Extraction.Limits {
		m := lp.re.FindStringSubmatch(query)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		return LimitSpec{Kind: LimitExact, N: n}
	}

	return LimitSpec{Kind: LimitUnspecified}
}

// extractByRules evaluates an ordered keyword table with accumulate
// semantics: every matching rule contributes its effect once.
func extractByRules(query string, rules []keywordRule) []string {
	var out []string
	seen := make(map[string]bool)
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(query, kw) {
				if !seen[rule.effect] {
					seen[rule.effect] = true
					out = append(out, rule.effect)
				}
				break
			}
		}
	}
	return out
}

// extractSort derives an explicit sort only when the query carries both an
// order keyword and a detected metric to sort by.
func extractSort(query string, metrics []string) (string, string) {
	order := ""
	switch {
	case containsAny(query, []string{"lowest", "worst", "least", "smallest"}):
		order = "asc"
	case containsAny(query, []string{"highest", "most", "best", "biggest", "top"}):
		order = "desc"
	}

	if order == "" || len(metrics) == 0 {
		return "", ""
	}

	field, ok := sortFieldForMetric[metrics[0]]
	if !ok {
		return "", ""
	}
	return field, order
}

// extractModifiers extracts the fixed include/exclude category vocabulary
// and the only-profitable flag.
func extractModifiers(query string) Modifiers {
	var m Modifiers

	for _, cat := range modifierCategories {
		if containsAny(query, []string{"without " + cat, "excluding " + cat, "except " + cat, "no " + cat}) {
			m.Exclude = append(m.Exclude, cat)
			continue
		}
		if containsAny(query, []string{"only " + cat, "just " + cat}) {
			m.Include = append(m.Include, cat)
		}
	}

	if containsAny(query, []string{"only profitable", "profitable only", "winners only", "exclude losses"}) {
		m.OnlyProfitable = true
	}

	return m
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func stripPunctuation(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
