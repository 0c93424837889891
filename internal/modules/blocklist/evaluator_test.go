package blocklist

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsight/flipsight/internal/domain"
	"github.com/flipsight/flipsight/internal/modules/items"
	"github.com/flipsight/flipsight/internal/modules/query"
)

func testSnapshot() *items.Snapshot {
	return &items.Snapshot{
		Items: []domain.Item{
			{ID: 1, Name: "Bronze arrow", Members: false},
			{ID: 2, Name: "Abyssal whip", Members: true},
			{ID: 3, Name: "Shark", Members: false},
			{ID: 4, Name: "Twisted bow", Members: true},
			{ID: 5, Name: "Unpriced relic", Members: true},
		},
		Prices: map[int]domain.PriceQuote{
			1: {ItemID: 1, Low: 5, High: 6},
			2: {ItemID: 2, Low: 1_500_000, High: 1_550_000},
			3: {ItemID: 3, Low: 800, High: 900},
			4: {ItemID: 4, Low: 0, High: 1_200_000_000},
		},
		Volumes: map[int]int64{
			1: 2_000_000,
			2: 8_000,
			3: 500_000,
		},
	}
}

func includeRule(conditions ...Condition) RuleConfig {
	return RuleConfig{
		Rules:         []Rule{{Type: ActionInclude, Conditions: conditions, CombineWith: CombineAnd}},
		DefaultAction: ActionExclude,
	}
}

func TestEvaluateSkipsUnpricedItems(t *testing.T) {
	eval := NewEvaluator(zerolog.Nop())

	cfg := RuleConfig{DefaultAction: ActionInclude}
	result := eval.Evaluate(cfg, testSnapshot())

	assert.Equal(t, 4, result.Evaluated)
	assert.Equal(t, 1, result.NoPriceData)
	// Default include, so nothing priced is blocked; the unpriced item is
	// neither included nor blocked.
	assert.Equal(t, []int{1, 2, 3, 4}, result.IncludedIDs)
	assert.Empty(t, result.BlockedIDs)
}

func TestEvaluatePriceRange(t *testing.T) {
	eval := NewEvaluator(zerolog.Nop())

	cfg := includeRule(Condition{Field: "price", Operator: query.OpBetween, Value: 100.0, Value2: 2_000_000.0})
	result := eval.Evaluate(cfg, testSnapshot())

	assert.Equal(t, []int{2, 3}, result.IncludedIDs)
	assert.Equal(t, []int{1, 4}, result.BlockedIDs)
}

func TestEvaluateConditionsAreANDed(t *testing.T) {
	eval := NewEvaluator(zerolog.Nop())

	cfg := includeRule(
		Condition{Field: "f2p", Operator: query.OpEq, Value: true},
		Condition{Field: "price", Operator: query.OpGT, Value: 100.0},
	)
	result := eval.Evaluate(cfg, testSnapshot())

	// Only the shark is both F2P and over 100 gp.
	assert.Equal(t, []int{3}, result.IncludedIDs)
	assert.Equal(t, []int{1, 2, 4}, result.BlockedIDs)
}

func TestEvaluateFirstMatchingRuleWins(t *testing.T) {
	eval := NewEvaluator(zerolog.Nop())

	cfg := RuleConfig{
		Rules: []Rule{
			{Type: ActionExclude, Conditions: []Condition{
				{Field: "name", Operator: query.OpContains, Value: "whip"},
			}, CombineWith: CombineAnd},
			{Type: ActionInclude, Conditions: []Condition{
				{Field: "price", Operator: query.OpGT, Value: 100.0},
			}, CombineWith: CombineAnd},
		},
		DefaultAction: ActionExclude,
	}
	result := eval.Evaluate(cfg, testSnapshot())

	// The whip is over 100 gp but the earlier exclude rule already decided.
	assert.NotContains(t, result.IncludedIDs, 2)
	assert.Contains(t, result.BlockedIDs, 2)
	assert.Equal(t, []int{3, 4}, result.IncludedIDs)
}

func TestEvaluateVolumeConditionNeedsData(t *testing.T) {
	eval := NewEvaluator(zerolog.Nop())

	cfg := includeRule(Condition{Field: "volume", Operator: query.OpGT, Value: 100_000.0})
	result := eval.Evaluate(cfg, testSnapshot())

	// The twisted bow has a price but no volume data, so the condition
	// cannot hold for it.
	assert.Equal(t, []int{1, 3}, result.IncludedIDs)
	assert.Contains(t, result.BlockedIDs, 4)
}

func TestEvaluateEmptyRuleNeverMatches(t *testing.T) {
	eval := NewEvaluator(zerolog.Nop())

	cfg := RuleConfig{
		Rules:         []Rule{{Type: ActionInclude, CombineWith: CombineAnd}},
		DefaultAction: ActionExclude,
	}
	result := eval.Evaluate(cfg, testSnapshot())

	assert.Empty(t, result.IncludedIDs)
	assert.Len(t, result.BlockedIDs, 4)
}

func TestEvaluateHighQuoteFallback(t *testing.T) {
	eval := NewEvaluator(zerolog.Nop())

	// Item 4 has no low quote; its high quote stands in.
	cfg := includeRule(Condition{Field: "price", Operator: query.OpGT, Value: 1_000_000_000.0})
	result := eval.Evaluate(cfg, testSnapshot())

	require.Equal(t, []int{4}, result.IncludedIDs)
}
