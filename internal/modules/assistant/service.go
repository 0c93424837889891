package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/flipsight/flipsight/internal/database"
	"github.com/flipsight/flipsight/internal/modules/query"
)

// Request size and result caps.
const (
	maxRequestQueryLength = 2000
	maxRunRows            = 500
)

// Boundary validation errors, surfaced as 400s.
var (
	ErrMissingQuery = errors.New("query is required")
	ErrQueryTooLong = fmt.Errorf("query must be at most %d characters", maxRequestQueryLength)
)

// Completer is the SQL-generation backend. Satisfied by the llm client.
type Completer interface {
	Complete(systemPrompt, userPrompt string) (string, error)
	Configured() bool
}

// GenerateRequest mirrors the SPA's request body. Refinement is stateless:
// the previous turn travels in the request, a new query simply omits it.
type GenerateRequest struct {
	Query           string           `json:"query"`
	PreviousQuery   string           `json:"previousQuery,omitempty"`
	PreviousSQL     string           `json:"previousSQL,omitempty"`
	SessionID       string           `json:"sessionId,omitempty"`
	IsOwner         bool             `json:"isOwner,omitempty"`
	TemporalContext string           `json:"temporalContext,omitempty"`
	StructuredSpec  *query.QuerySpec `json:"structuredSpec,omitempty"`
	IsHybridQuery   bool             `json:"isHybridQuery,omitempty"`
}

// Service generates SQL via the LLM backend and runs vetted statements
// read-only against the flips database.
type Service struct {
	llm Completer
	db  *database.DB
	log zerolog.Logger
}

// NewService creates the assistant service. db is the flips database the
// /run endpoint queries.
func NewService(llm Completer, db *database.DB, log zerolog.Logger) *Service {
	return &Service{
		llm: llm,
		db:  db,
		log: log.With().Str("service", "assistant").Logger(),
	}
}

// Generate asks the backend for a SQL statement answering the request and
// applies the safety boundary to the reply. No automatic retry: upstream
// failures surface to the caller, who re-submits.
func (s *Service) Generate(req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", ErrMissingQuery
	}
	if len(req.Query) > maxRequestQueryLength {
		return "", ErrQueryTooLong
	}

	sql, err := s.llm.Complete(systemPrompt, userPrompt(req))
	if err != nil {
		s.log.Error().Err(err).Msg("SQL generation failed")
		return "", fmt.Errorf("generation failed: %w", err)
	}

	if err := CheckSQL(sql); err != nil {
		s.log.Warn().Str("sql", sql).Err(err).Msg("Generated SQL failed safety check")
		return "", err
	}

	return sql, nil
}

// Run executes a statement read-only against the flips database, after
// re-applying the safety check. Results are capped at maxRunRows.
func (s *Service) Run(ctx context.Context, sqlText string) ([]map[string]interface{}, error) {
	if err := CheckSQL(sqlText); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	results := make([]map[string]interface{}, 0)
	for rows.Next() {
		if len(results) >= maxRunRows {
			s.log.Warn().Int("cap", maxRunRows).Msg("Result set truncated")
			break
		}

		values := make([]interface{}, len(columns))
		scanTargets := make([]interface{}, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

// systemPrompt pins the model to the flips schema and to bare SELECT output.
const systemPrompt = `You translate questions about trading flips into SQLite SELECT statements.

Schema:
  flips(id, account, item_id, item_name, quantity, avg_buy_price, avg_sell_price, tax, profit, roi, opened_at, closed_at, import_batch)
  daily_stats(date, profit, tax, flips, quantity, avg_roi)

opened_at and closed_at are RFC3339 text timestamps; daily_stats.date is YYYY-MM-DD.
Reply with a single SELECT (or WITH ... SELECT) statement and nothing else.
Never modify data.`

// userPrompt renders the request, including the stateless refinement
// context when present.
func userPrompt(req GenerateRequest) string {
	var b strings.Builder

	if req.TemporalContext != "" {
		fmt.Fprintf(&b, "Current time context: %s\n", req.TemporalContext)
	}
	if req.PreviousQuery != "" && req.PreviousSQL != "" {
		fmt.Fprintf(&b, "Previous question: %s\nPrevious SQL: %s\nRefine the previous SQL to answer the follow-up.\n", req.PreviousQuery, req.PreviousSQL)
	}
	if req.StructuredSpec != nil {
		fmt.Fprintf(&b, "Structured interpretation: intent=%s filters=%d\n", req.StructuredSpec.Intent, len(req.StructuredSpec.Filters))
	}

	fmt.Fprintf(&b, "Question: %s", req.Query)
	return b.String()
}
