package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsight/flipsight/internal/database"
	"github.com/flipsight/flipsight/internal/modules/assistant"
	"github.com/flipsight/flipsight/internal/ratelimit"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(systemPrompt, userPrompt string) (string, error) {
	return s.reply, s.err
}

func (s *stubCompleter) Configured() bool { return true }

type allowAll struct{}

func (allowAll) Allow(string) bool { return true }

func newTestRouter(t *testing.T, llm assistant.Completer, limiter ratelimit.Limiter) (chi.Router, *database.DB) {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "flips.db"),
		Name: "flips",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	svc := assistant.NewService(llm, db, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/query", func(r chi.Router) {
		NewHandler(svc, limiter, zerolog.Nop()).RegisterRoutes(r)
	})
	return r, db
}

func postJSON(t *testing.T, router chi.Router, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGenerateReturnsSQL(t *testing.T) {
	router, _ := newTestRouter(t, &stubCompleter{reply: "SELECT * FROM flips"}, allowAll{})

	rec := postJSON(t, router, "/query/sql", map[string]string{"query": "show my flips"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SELECT * FROM flips", body["sql"])
}

func TestGenerateRejectsMissingQuery(t *testing.T) {
	router, _ := newTestRouter(t, &stubCompleter{reply: "SELECT 1"}, allowAll{})

	rec := postJSON(t, router, "/query/sql", map[string]string{"query": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateRejectsUnsafeReply(t *testing.T) {
	router, _ := newTestRouter(t, &stubCompleter{reply: "DROP TABLE flips"}, allowAll{})

	rec := postJSON(t, router, "/query/sql", map[string]string{"query": "clean up"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "DROP")
}

func TestGenerateRateLimited(t *testing.T) {
	limiter := ratelimit.NewKeyedLimiter(1, time.Minute)
	router, _ := newTestRouter(t, &stubCompleter{reply: "SELECT 1"}, limiter)

	body := map[string]string{"query": "anything", "sessionId": "sess-1"}
	rec := postJSON(t, router, "/query/sql", body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/query/sql", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different session gets its own budget.
	rec = postJSON(t, router, "/query/sql", map[string]string{"query": "anything", "sessionId": "sess-2"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunExecutesStatement(t *testing.T) {
	router, db := newTestRouter(t, &stubCompleter{}, allowAll{})

	_, err := db.Exec(`INSERT INTO import_batches (id, source, filename, imported, skipped, created_at)
		VALUES ('b1', 'test', 'test.csv', 1, 0, '2026-08-20T09:00:00Z')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO flips (account, item_id, item_name, quantity, avg_buy_price, avg_sell_price, tax, profit, roi, opened_at, closed_at, import_batch)
		VALUES ('main', 4151, 'Abyssal whip', 1, 1000, 1100, 10, 90, 9.0, '2026-08-20T10:00:00Z', '2026-08-20T11:00:00Z', 'b1')`)
	require.NoError(t, err)

	rec := postJSON(t, router, "/query/sql/run", map[string]string{"sql": "SELECT item_name FROM flips"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data     []map[string]interface{} `json:"data"`
		Metadata struct {
			Rows int `json:"rows"`
		} `json:"metadata"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "Abyssal whip", body.Data[0]["item_name"])
	assert.Equal(t, 1, body.Metadata.Rows)
}

func TestRunRequiresSQL(t *testing.T) {
	router, _ := newTestRouter(t, &stubCompleter{}, allowAll{})

	rec := postJSON(t, router, "/query/sql/run", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunRefusesMutations(t *testing.T) {
	router, _ := newTestRouter(t, &stubCompleter{}, allowAll{})

	rec := postJSON(t, router, "/query/sql/run", map[string]string{"sql": "DELETE FROM flips"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "safety check failed")
}
