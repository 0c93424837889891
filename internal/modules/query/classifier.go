package query

import "strings"

// boostedWords carry double weight in phrase similarity: they discriminate
// intents far better than filler vocabulary.
var boostedWords = map[string]bool{
	"top":    true,
	"best":   true,
	"most":   true,
	"profit": true,
	"roi":    true,
}

// fallbackHeuristic is one entry of the ordered low-confidence fallback
// table. First predicate that fires wins.
type fallbackHeuristic struct {
	intent     string
	confidence float64
	match      func(query string, components ParsedComponents) bool
}

var fallbackHeuristics = []fallbackHeuristic{
	{IntentTopItemsByROI, 0.6, func(q string, _ ParsedComponents) bool {
		return containsAny(q, []string{"top", "best", "most", "highest"}) &&
			containsAny(q, []string{"roi", "return", "percentage"})
	}},
	{IntentTopItemsByProfit, 0.6, func(q string, _ ParsedComponents) bool {
		return containsAny(q, []string{"top", "best", "most", "highest"}) &&
			containsAny(q, []string{"profit", "money", "earnings"})
	}},
	{IntentItemPerformance, 0.6, func(_ string, c ParsedComponents) bool {
		return len(c.Items) > 0
	}},
	{IntentTimeComparison, 0.55, func(q string, _ ParsedComponents) bool {
		return containsAny(q, []string{" vs ", "versus", "compare"})
	}},
	{IntentRecentActivity, 0.55, func(q string, _ ParsedComponents) bool {
		return containsAny(q, []string{"recent", "latest", "just flipped"})
	}},
	{IntentAccountComparison, 0.55, func(q string, _ ParsedComponents) bool {
		return strings.Contains(q, "account")
	}},
	{IntentSummary, 0.5, func(q string, _ ParsedComponents) bool {
		return containsAny(q, []string{"summary", "overall", "total"})
	}},
}

// Classifier scores the query against every catalog pattern in declaration
// order and falls back to keyword heuristics below the confidence floor.
type Classifier struct {
	catalog *Catalog
}

// NewClassifier creates a classifier over a validated catalog.
func NewClassifier(catalog *Catalog) *Classifier {
	return &Classifier{catalog: catalog}
}

// patternFloor is the minimum pattern score accepted before the fallback
// heuristics take over.
const patternFloor = 0.5

// Classify picks the single best intent for a normalized query. Ties keep
// the earliest pattern in catalog order; a later pattern must score strictly
// higher to win.
func (c *Classifier) Classify(query string, components ParsedComponents) IntentResult {
	query = Normalize(query)

	best := IntentResult{Pattern: "fallback"}
	for i := range c.catalog.Patterns {
		p := &c.catalog.Patterns[i]
		score := c.scorePattern(query, components, p)
		if score > best.Score {
			best = IntentResult{Intent: p.Intent, Pattern: p.Key, Score: score}
		}
	}

	if best.Score >= patternFloor {
		return best
	}

	for _, h := range fallbackHeuristics {
		if h.match(query, components) {
			return IntentResult{Intent: h.intent, Pattern: "fallback", Score: h.confidence}
		}
	}

	// Nothing matched: a generic profit view is the least surprising answer.
	return IntentResult{Intent: IntentProfitAnalysis, Pattern: "fallback", Score: 0.4}
}

// scorePattern computes the pattern score: the best example phrase
// similarity, gated and boosted by the pattern's structural requirements.
// An unmet requirement zeroes the score outright.
func (c *Classifier) scorePattern(query string, components ParsedComponents, p *Pattern) float64 {
	requirements := 0
	satisfied := 0

	if p.RequiresItemFilter {
		requirements++
		if len(components.Items) > 0 {
			satisfied++
		}
	}
	if p.RequiresTimeComparison {
		requirements++
		if components.TimeRange != nil && components.TimeRange.Kind == TimeRangeComparison {
			satisfied++
		}
	}
	if p.RequiresDurationFilter {
		requirements++
		if hasFilterOn(components.Filters, "flip_duration_minutes") {
			satisfied++
		}
	}

	if satisfied < requirements {
		return 0
	}

	score := 0.0
	for _, example := range p.Examples {
		if sim := PhraseSimilarity(query, example); sim > score {
			score = sim
		}
	}

	// A satisfied structural requirement is strong evidence on its own.
	if requirements > 0 {
		score += 0.2
	}
	if score > 1 {
		score = 1
	}
	return score
}

// PhraseSimilarity measures how much of a phrase's vocabulary appears in the
// query. Word equivalence tolerates one edit ("flips"/"flip"), and boosted
// words count double. Returns 0..1.
func PhraseSimilarity(query, phrase string) float64 {
	queryWords := strings.Fields(Normalize(query))
	phraseWords := strings.Fields(Normalize(phrase))
	if len(phraseWords) == 0 {
		return 0
	}

	matched, total := 0, 0
	for _, pw := range phraseWords {
		weight := 1
		if boostedWords[pw] {
			weight = 2
		}
		total += weight
		for _, qw := range queryWords {
			if wordsEquivalent(qw, pw) {
				matched += weight
				break
			}
		}
	}
	return float64(matched) / float64(total)
}

// wordsEquivalent reports whether two words are within one edit of each
// other. Short words must match exactly: a single edit on a 3-letter word
// changes its meaning too easily.
func wordsEquivalent(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) <= 3 || len(b) <= 3 {
		return false
	}
	return editDistance(a, b) <= 1
}

// editDistance is plain Levenshtein over bytes; query vocabulary is ASCII.
func editDistance(a, b string) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(b); j++ {
		curr[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[i] = min3(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func hasFilterOn(filters []Filter, field string) bool {
	for _, f := range filters {
		if f.Field == field {
			return true
		}
	}
	return false
}
