package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipsight/flipsight/internal/domain"
	"github.com/flipsight/flipsight/internal/modules/items"
)

type stubClient struct {
	items []domain.Item
	err   error
}

func (c *stubClient) GetMapping() ([]domain.Item, error) {
	return c.items, c.err
}

func (c *stubClient) GetLatest() (map[int]domain.PriceQuote, error) {
	return map[int]domain.PriceQuote{}, c.err
}

func (c *stubClient) GetVolumes() (map[int]int64, error) {
	return map[int]int64{}, c.err
}

func newTestRouter(t *testing.T, client items.CatalogClient) chi.Router {
	t.Helper()

	svc := items.NewService(client, nil, zerolog.Nop())

	r := chi.NewRouter()
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(r)
	return r
}

func TestSearchReturnsMatches(t *testing.T) {
	client := &stubClient{items: []domain.Item{
		{ID: 4151, Name: "Abyssal whip"},
		{ID: 11802, Name: "Armadyl godsword"},
	}}
	router := newTestRouter(t, client)

	// Seed the matcher dictionary.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/sync", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/search?q=whip", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			Query   string   `json:"query"`
			Matches []string `json:"matches"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "whip", body.Data.Query)
	assert.Contains(t, body.Data.Matches, "Abyssal whip")
}

func TestSearchRequiresQuery(t *testing.T) {
	router := newTestRouter(t, &stubClient{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/search", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncFailureIs500(t *testing.T) {
	router := newTestRouter(t, &stubClient{err: errors.New("api down")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/sync", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
