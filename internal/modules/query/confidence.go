package query

import "strings"

// ScoreConfidence turns the intent score plus the extracted components into
// the final pipeline confidence. The rule is purely additive: every
// recognized component raises confidence, terse queries lower it, and the
// result is clamped to [0, 1]. Adding a component can never lower the score.
func ScoreConfidence(query string, components ParsedComponents, intent IntentResult) float64 {
	score := intent.Score

	if len(components.Items) > 0 {
		score += 0.1
	}
	if components.TimeRange != nil {
		score += 0.1
	}
	if len(components.Metrics) > 0 {
		score += 0.1
	}
	if components.Limit.Kind != LimitUnspecified {
		score += 0.1
	}

	q := Normalize(query)
	for _, indicator := range []string{"show me", "what", "how"} {
		if containsWord(q, indicator) {
			score += 0.05
			break
		}
	}

	if len(q) < 10 {
		score -= 0.2
	}
	if len(strings.Fields(q)) < 3 {
		score -= 0.1
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// containsWord reports whether phrase occurs in q on word boundaries, so
// "how" counts mid-sentence but "show" does not match "showing".
func containsWord(q, phrase string) bool {
	return strings.Contains(" "+q+" ", " "+phrase+" ")
}
