// Package blocklist turns free-text filtering intent into ordered
// include/exclude rules over the item catalog and exports the resulting
// blocked-item profile.
package blocklist

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/domain"
	"github.com/flipsight/flipsight/internal/modules/items"
	"github.com/flipsight/flipsight/internal/modules/query"
)

// Rule actions and the condition combinator. Rules only AND their
// conditions; OR is expressed as multiple rules.
const (
	ActionInclude = "include"
	ActionExclude = "exclude"
	CombineAnd    = "AND"
)

// Condition is one predicate over a catalog item.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	Value2   interface{} `json:"value2,omitempty"`
}

// Rule is an ordered include/exclude decision. The first rule whose
// conditions all hold decides an item's fate.
type Rule struct {
	Type        string      `json:"type"`
	Conditions  []Condition `json:"conditions"`
	CombineWith string      `json:"combineWith"`
}

// RuleConfig is the full declarative filter: rules in priority order plus
// the action applied when no rule matches.
type RuleConfig struct {
	Interpretation string `json:"interpretation"`
	Rules          []Rule `json:"rules"`
	DefaultAction  string `json:"defaultAction"`
}

// EvalResult is the outcome of evaluating a RuleConfig over a catalog
// snapshot.
type EvalResult struct {
	IncludedIDs []int `json:"included_ids"`
	BlockedIDs  []int `json:"blocked_ids"`
	Evaluated   int   `json:"evaluated"`
	NoPriceData int   `json:"no_price_data"`
}

// Evaluator applies rule configs to catalog snapshots.
type Evaluator struct {
	log zerolog.Logger
}

// NewEvaluator creates a rule evaluator.
func NewEvaluator(log zerolog.Logger) *Evaluator {
	return &Evaluator{log: log.With().Str("component", "blocklist_evaluator").Logger()}
}

// Evaluate runs the rules over every item in the snapshot. Items without
// price data are skipped entirely: they are neither included nor blocked.
// The blocked list is the complement of the included set, sorted by ID.
func (e *Evaluator) Evaluate(cfg RuleConfig, snap *items.Snapshot) EvalResult {
	result := EvalResult{
		IncludedIDs: []int{},
		BlockedIDs:  []int{},
	}

	for i := range snap.Items {
		item := &snap.Items[i]

		price, ok := itemPrice(snap, item.ID)
		if !ok {
			result.NoPriceData++
			continue
		}
		result.Evaluated++

		if e.included(cfg, candidateFields(item, price, snap.Volumes[item.ID])) {
			result.IncludedIDs = append(result.IncludedIDs, item.ID)
		} else {
			result.BlockedIDs = append(result.BlockedIDs, item.ID)
		}
	}

	sort.Ints(result.IncludedIDs)
	sort.Ints(result.BlockedIDs)

	e.log.Debug().
		Int("evaluated", result.Evaluated).
		Int("included", len(result.IncludedIDs)).
		Int("blocked", len(result.BlockedIDs)).
		Int("no_price", result.NoPriceData).
		Msg("Rule config evaluated")

	return result
}

// included walks the rules in order; the first rule whose conditions all
// hold decides, otherwise the default action applies.
func (e *Evaluator) included(cfg RuleConfig, fields map[string]interface{}) bool {
	for _, rule := range cfg.Rules {
		if ruleMatches(rule, fields) {
			return rule.Type == ActionInclude
		}
	}
	return cfg.DefaultAction == ActionInclude
}

func ruleMatches(rule Rule, fields map[string]interface{}) bool {
	if len(rule.Conditions) == 0 {
		return false
	}
	for _, cond := range rule.Conditions {
		matched, known := query.EvaluateCondition(fields[cond.Field], cond.Operator, cond.Value, cond.Value2)
		if !known || !matched {
			return false
		}
	}
	return true
}

// candidateFields flattens an item into the vocabulary rules predicate on.
func candidateFields(item *domain.Item, price float64, volume int64) map[string]interface{} {
	fields := map[string]interface{}{
		"name":      item.Name,
		"price":     price,
		"members":   item.Members,
		"f2p":       !item.Members,
		"buy_limit": item.BuyLimit,
		"value":     item.Value,
	}
	if volume > 0 {
		fields["volume"] = volume
	}
	return fields
}

// itemPrice picks the effective price: the instant-sell (low) quote when
// present, otherwise the instant-buy (high) quote.
func itemPrice(snap *items.Snapshot, id int) (float64, bool) {
	quote, ok := snap.Prices[id]
	if !ok {
		return 0, false
	}
	switch {
	case quote.Low > 0:
		return float64(quote.Low), true
	case quote.High > 0:
		return float64(quote.High), true
	default:
		return 0, false
	}
}
