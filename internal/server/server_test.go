package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/flipsight/flipsight/internal/database"
	"github.com/flipsight/flipsight/internal/events"
)

type markerRoutes struct {
	path string
}

func (m markerRoutes) RegisterRoutes(r chi.Router) {
	r.Get(m.path, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func newTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), name+".db"),
		Name: name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestServeMountsModulesUnderAPI(t *testing.T) {
	s := New(Config{
		Port:    0,
		Log:     zerolog.Nop(),
		Items:   markerRoutes{"/items/marker"},
		Flips:   markerRoutes{"/flips/marker"},
		Version: "test",
	})

	for _, path := range []string{"/api/items/marker", "/api/flips/marker"} {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
	}

	// Unwired modules are skipped, not 500s.
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/charts/marker", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryAndAssistantShareThePrefix(t *testing.T) {
	s := New(Config{
		Port:      0,
		Log:       zerolog.Nop(),
		Query:     markerRoutes{"/understand-marker"},
		Assistant: markerRoutes{"/sql-marker"},
	})

	for _, path := range []string{"/api/query/understand-marker", "/api/query/sql-marker"} {
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code, path)
	}
}

func TestHealthReportsDatabases(t *testing.T) {
	s := New(Config{
		Port:      0,
		Log:       zerolog.Nop(),
		Version:   "1.2.3",
		FlipsDB:   newTestDB(t, "flips"),
		CatalogDB: newTestDB(t, "catalog"),
	})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status    string            `json:"status"`
		Version   string            `json:"version"`
		Databases map[string]string `json:"databases"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "ok", body.Databases["flips"])
	assert.Equal(t, "ok", body.Databases["catalog"])
}

func TestSystemStatus(t *testing.T) {
	s := New(Config{
		Port:    0,
		Log:     zerolog.Nop(),
		Version: "1.2.3",
		FlipsDB: newTestDB(t, "flips"),
	})

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/system/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "running", body["status"])
	assert.Contains(t, body, "uptime_seconds")
	assert.Contains(t, body, "goroutines")

	databases, ok := body["databases"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, databases, "flips")
}

func TestWebsocketReceivesBusEvents(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	s := New(Config{
		Port: 0,
		Log:  zerolog.Nop(),
		Bus:  bus,
	})

	ts := httptest.NewServer(s.router)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := strings.Replace(ts.URL, "http://", "ws://", 1) + "/api/events/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The handler registers with the hub shortly after the handshake.
	require.Eventually(t, func() bool {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		return len(s.hub.clients) == 1
	}, 2*time.Second, 5*time.Millisecond)

	bus.Publish("flips", events.ImportCompleted, map[string]interface{}{"imported": 3})

	var event events.Event
	require.NoError(t, wsjson.Read(ctx, conn, &event))
	assert.Equal(t, events.ImportCompleted, event.Type)
	assert.Equal(t, "flips", event.Module)
	assert.EqualValues(t, 3, event.Data["imported"])
}

func TestHubDropsSlowClients(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	hub := newWSHub(bus, zerolog.Nop())

	ch, ok := hub.register()
	require.True(t, ok)

	// Nobody drains ch: once the buffer fills, the hub must evict the
	// client instead of blocking the publisher.
	for i := 0; i < wsClientBuffer+1; i++ {
		bus.Publish("flips", events.PricesRefreshed, nil)
	}

	select {
	case _, open := <-ch:
		assert.True(t, open) // buffered events are still readable
	default:
		t.Fatal("expected buffered events")
	}

	hub.mu.Lock()
	_, stillRegistered := hub.clients[ch]
	hub.mu.Unlock()
	assert.False(t, stillRegistered, "slow client must be evicted")
}
