package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/modules/items"
)

// clarificationFloor is the confidence below which the service asks the
// user to rephrase instead of guessing.
const clarificationFloor = 0.4

// RowSource supplies the flip records to execute against, already converted
// to executor rows.
type RowSource interface {
	QueryRows(ctx context.Context) ([]Row, error)
}

// MatcherSource supplies the current item matcher snapshot.
type MatcherSource interface {
	Matcher() *items.Matcher
}

// Understanding is the full pipeline output for one query, before any data
// is touched.
type Understanding struct {
	Query         string           `json:"query"`
	Components    ParsedComponents `json:"components"`
	Intent        IntentResult     `json:"intent"`
	Confidence    float64          `json:"confidence"`
	Spec          QuerySpec        `json:"spec"`
	Preview       string           `json:"preview"`
	Clarification *Clarification   `json:"clarification,omitempty"`
}

// Clarification is a first-class response payload, not an error: the
// pipeline understood too little to act and is asking for a rephrase.
type Clarification struct {
	Question    string   `json:"question"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// AskResponse is the answer to an ask or refine call. Exactly one of three
// shapes comes back: a clarification, a pending spec awaiting confirmation,
// or executed rows.
type AskResponse struct {
	Understanding Understanding `json:"understanding"`
	Pending       bool          `json:"pending"`
	Rows          []Row         `json:"rows,omitempty"`
	Warnings      []string      `json:"warnings,omitempty"`
}

// Service wires the pipeline stages together and executes specs against the
// flip row source.
type Service struct {
	catalog    *Catalog
	extractor  *Extractor
	classifier *Classifier
	builder    *Builder
	rows       RowSource
	matchers   MatcherSource
	log        zerolog.Logger
	now        func() time.Time
}

// NewService creates the query service over a validated catalog.
func NewService(catalog *Catalog, rows RowSource, matchers MatcherSource, log zerolog.Logger) *Service {
	return &Service{
		catalog:    catalog,
		extractor:  NewExtractor(catalog),
		classifier: NewClassifier(catalog),
		builder:    NewBuilder(catalog),
		rows:       rows,
		matchers:   matchers,
		log:        log.With().Str("service", "query").Logger(),
		now:        time.Now,
	}
}

// Understand runs the pipeline stages in order - extract, classify, score,
// build - without executing anything.
func (s *Service) Understand(queryText string) Understanding {
	var matcher *items.Matcher
	if s.matchers != nil {
		matcher = s.matchers.Matcher()
	}

	components := s.extractor.Extract(queryText, matcher)
	intent := s.classifier.Classify(queryText, components)
	confidence := ScoreConfidence(queryText, components, intent)
	spec := s.builder.Build(queryText, components, intent, confidence)

	u := Understanding{
		Query:      queryText,
		Components: components,
		Intent:     intent,
		Confidence: confidence,
		Spec:       spec,
		Preview:    Preview(spec),
	}

	if confidence < clarificationFloor {
		u.Clarification = s.clarify()
	}

	s.log.Debug().
		Str("query", queryText).
		Str("intent", intent.Intent).
		Float64("confidence", confidence).
		Bool("needs_confirmation", spec.RequiresConfirmation).
		Msg("Query understood")

	return u
}

// Ask understands a query and, unless the spec needs confirmation or a
// clarification, executes it.
func (s *Service) Ask(ctx context.Context, queryText string, confirmed bool) (*AskResponse, error) {
	u := s.Understand(queryText)
	return s.respond(ctx, u, confirmed)
}

// Refine merges a follow-up query into a previously built spec. Refinement
// is stateless: the client sends the previous spec back with the new text.
// Components present in the refinement override their counterparts; absent
// ones keep the previous values.
func (s *Service) Refine(ctx context.Context, previous QuerySpec, queryText string, confirmed bool) (*AskResponse, error) {
	u := s.Understand(queryText)

	merged := previous
	merged.Filters = mergeFilters(previous.Filters, u.Spec.Filters)

	if u.Components.TimeRange != nil {
		merged.TimeRange = u.Spec.TimeRange
	}
	if u.Components.Limit.Kind != LimitUnspecified {
		merged.Limit = u.Spec.Limit
	}
	if u.Components.SortBy != "" {
		merged.Sort = u.Spec.Sort
	}
	if len(u.Components.Metrics) > 0 && len(merged.Dimensions) > 0 {
		merged.Metrics = u.Spec.Metrics
	}
	if len(u.Components.Dimensions) > 0 {
		merged.Dimensions = u.Spec.Dimensions
	}

	merged.Confidence = u.Confidence
	merged.RequiresConfirmation = requiresConfirmation(queryText, merged)

	u.Spec = merged
	u.Preview = Preview(merged)
	u.Clarification = nil

	return s.respond(ctx, u, confirmed)
}

// Execute validates a spec and runs it against the row source.
func (s *Service) Execute(ctx context.Context, spec QuerySpec) (*Result, error) {
	if problems := Validate(spec); len(problems) > 0 {
		return nil, fmt.Errorf("invalid query spec: %s", strings.Join(problems, "; "))
	}

	rows, err := s.rows.QueryRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load flip rows: %w", err)
	}

	scoped := ApplyTimeRange(rows, spec.TimeRange, s.now())
	result := ExecuteSpec(scoped, spec)

	s.log.Debug().
		Str("intent", spec.Intent).
		Int("input_rows", len(rows)).
		Int("result_rows", len(result.Rows)).
		Msg("Query executed")

	return &result, nil
}

func (s *Service) respond(ctx context.Context, u Understanding, confirmed bool) (*AskResponse, error) {
	resp := &AskResponse{Understanding: u}

	if u.Clarification != nil {
		return resp, nil
	}
	if u.Spec.RequiresConfirmation && !confirmed {
		resp.Pending = true
		return resp, nil
	}

	result, err := s.Execute(ctx, u.Spec)
	if err != nil {
		return nil, err
	}
	resp.Rows = result.Rows
	resp.Warnings = result.Warnings
	return resp, nil
}

// clarify builds the rephrase prompt, seeding suggestions from catalog
// pattern examples.
func (s *Service) clarify() *Clarification {
	c := &Clarification{
		Question: "I couldn't work out what you're asking. Could you rephrase, or try one of these?",
	}
	for _, p := range s.catalog.Patterns {
		if len(p.Examples) > 0 {
			c.Suggestions = append(c.Suggestions, p.Examples[0])
		}
		if len(c.Suggestions) == 3 {
			break
		}
	}
	return c
}

// mergeFilters overlays refinement filters onto previous ones: a new filter
// on the same field and operator replaces the old, anything else appends.
func mergeFilters(previous, refinement []Filter) []Filter {
	merged := make([]Filter, len(previous))
	copy(merged, previous)

	for _, f := range refinement {
		replaced := false
		for i, existing := range merged {
			if existing.Field == f.Field && existing.Operator == f.Operator {
				merged[i] = f
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, f)
		}
	}
	return merged
}
