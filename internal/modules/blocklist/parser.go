package blocklist

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/flipsight/flipsight/internal/modules/query"
)

// The filter vocabulary is deliberately small: membership, price bounds and
// volume bounds. Anything else in the text is ignored rather than guessed at.
var (
	f2pKeywords     = []string{"f2p", "free to play", "free-to-play", "non members", "non-members"}
	membersKeywords = []string{"members only", "members items", "p2p", "member items"}

	priceBetweenRe = regexp.MustCompile(`between\s+(\d+(?:\.\d+)?\s*[kmb]?)\s+and\s+(\d+(?:\.\d+)?\s*[kmb]?)`)
	priceOverRe    = regexp.MustCompile(`(?:over|above|more than|worth over|at least)\s+(\d+(?:\.\d+)?\s*[kmb]?)\b`)
	priceUnderRe   = regexp.MustCompile(`(?:under|below|less than|cheaper than|at most)\s+(\d+(?:\.\d+)?\s*[kmb]?)\b`)

	volumeOverRe  = regexp.MustCompile(`volume\s+(?:over|above|more than|of at least)\s+(\d+(?:\.\d+)?\s*[kmb]?)\b`)
	volumeUnderRe = regexp.MustCompile(`volume\s+(?:under|below|less than)\s+(\d+(?:\.\d+)?\s*[kmb]?)\b`)
)

// ParseIntent turns a free-text filtering request into a rule config: one
// include rule whose conditions are AND-combined, with everything else
// blocked by default. Text matching none of the vocabulary is an error, not
// an empty config.
func ParseIntent(text string) (*RuleConfig, error) {
	normalized := query.Normalize(text)
	if normalized == "" {
		return nil, fmt.Errorf("empty filter request")
	}

	var conditions []Condition

	// Volume bounds first, and consumed, so "volume over 1m" never doubles
	// as a price bound.
	if m := volumeOverRe.FindStringSubmatch(normalized); m != nil {
		conditions = append(conditions, numericCondition("volume", query.OpGT, m[1]))
		normalized = strings.Replace(normalized, m[0], "", 1)
	}
	if m := volumeUnderRe.FindStringSubmatch(normalized); m != nil {
		conditions = append(conditions, numericCondition("volume", query.OpLT, m[1]))
		normalized = strings.Replace(normalized, m[0], "", 1)
	}

	if m := priceBetweenRe.FindStringSubmatch(normalized); m != nil {
		cond := numericCondition("price", query.OpBetween, m[1])
		cond.Value2 = shorthandValue(m[2])
		conditions = append(conditions, cond)
	} else if m := priceOverRe.FindStringSubmatch(normalized); m != nil {
		conditions = append(conditions, numericCondition("price", query.OpGT, m[1]))
	} else if m := priceUnderRe.FindStringSubmatch(normalized); m != nil {
		conditions = append(conditions, numericCondition("price", query.OpLT, m[1]))
	}

	if containsAny(normalized, f2pKeywords) {
		conditions = append(conditions, Condition{Field: "f2p", Operator: query.OpEq, Value: true})
	} else if containsAny(normalized, membersKeywords) {
		conditions = append(conditions, Condition{Field: "members", Operator: query.OpEq, Value: true})
	}

	if len(conditions) == 0 {
		return nil, fmt.Errorf("no recognizable filter conditions in %q", text)
	}

	cfg := &RuleConfig{
		Interpretation: interpret(conditions),
		Rules: []Rule{{
			Type:        ActionInclude,
			Conditions:  conditions,
			CombineWith: CombineAnd,
		}},
		DefaultAction: ActionExclude,
	}
	return cfg, nil
}

func numericCondition(field, operator, raw string) Condition {
	return Condition{Field: field, Operator: operator, Value: shorthandValue(raw)}
}

// shorthandValue reuses the spec builder's k/m/b parsing so "100k" means
// the same thing in both vocabularies.
func shorthandValue(raw string) interface{} {
	f := query.NormalizeFilter(query.Filter{Field: "price", Operator: query.OpEq, Value: strings.ReplaceAll(raw, " ", "")})
	return f.Value
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// interpret renders the parsed conditions back as a sentence, so the caller
// can confirm what the text was understood to mean.
func interpret(conditions []Condition) string {
	parts := make([]string, 0, len(conditions))
	for _, c := range conditions {
		switch c.Operator {
		case query.OpBetween:
			parts = append(parts, fmt.Sprintf("%s between %v and %v", c.Field, c.Value, c.Value2))
		case query.OpEq:
			parts = append(parts, fmt.Sprintf("%s is %v", c.Field, c.Value))
		default:
			parts = append(parts, fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value))
		}
	}
	return "Include items where " + strings.Join(parts, " and ") + "; block everything else"
}
