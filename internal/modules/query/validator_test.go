package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validSpec() QuerySpec {
	limit := 10
	return QuerySpec{
		Intent:     IntentTopItemsByProfit,
		Confidence: 0.9,
		Metrics:    []MetricSpec{{Metric: "profit", Op: AggSum}},
		Dimensions: []string{"item"},
		Filters:    []Filter{{Field: "profit", Operator: OpGT, Value: 0.0}},
		Sort:       []SortSpec{{By: "profit", Order: "desc"}},
		Limit:      &limit,
		TimeRange:  &TimeRange{Kind: TimeRangePreset, Preset: PresetLastWeek},
	}
}

func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	assert.Empty(t, Validate(validSpec()))
}

func TestValidateAcceptsDerivedRecencyField(t *testing.T) {
	spec := validSpec()
	spec.Filters = []Filter{{Field: "days_since_flip", Operator: OpGT, Value: 5.0}}
	assert.Empty(t, Validate(spec))
}

func TestValidateReportsAllProblems(t *testing.T) {
	negative := -1
	spec := QuerySpec{
		Confidence: 2.0,
		Metrics:    []MetricSpec{{Metric: "nonsense", Op: "median"}},
		Dimensions: []string{"colour"},
		Filters:    []Filter{{Field: "mystery", Operator: "~~", Value: 1.0}},
		Sort:       []SortSpec{{By: "mystery", Order: "sideways"}},
		Limit:      &negative,
	}

	problems := Validate(spec)
	assert.GreaterOrEqual(t, len(problems), 7)

	joined := ""
	for _, p := range problems {
		joined += p + "\n"
	}
	assert.Contains(t, joined, "no intent")
	assert.Contains(t, joined, "confidence")
	assert.Contains(t, joined, "nonsense")
	assert.Contains(t, joined, "colour")
	assert.Contains(t, joined, "mystery")
	assert.Contains(t, joined, "sideways")
	assert.Contains(t, joined, "negative limit")
}

func TestValidateBetweenNeedsTwoValues(t *testing.T) {
	spec := validSpec()
	spec.Filters = []Filter{{Field: "profit", Operator: OpBetween, Value: 1.0}}
	problems := Validate(spec)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "two values")
}

func TestValidateTimeRanges(t *testing.T) {
	spec := validSpec()

	spec.TimeRange = &TimeRange{Kind: TimeRangeDayOfWeek, DayOfWeek: "tuesday"}
	problems := Validate(spec)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "specific or all")

	spec.TimeRange = &TimeRange{Kind: TimeRangeCustom, From: "2026-01-01"}
	problems = Validate(spec)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "both dates")

	spec.TimeRange = &TimeRange{Kind: "sometimes"}
	problems = Validate(spec)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "unknown time range kind")
}

func TestValidateGroupedSpecNeedsAggregates(t *testing.T) {
	spec := validSpec()
	spec.Metrics = []MetricSpec{{Metric: "profit", Op: "raw"}}
	problems := Validate(spec)
	assert.Len(t, problems, 1)
	assert.Contains(t, problems[0], "non-aggregate")
}
