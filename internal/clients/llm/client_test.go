package llm

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fences", "SELECT 1", "SELECT 1"},
		{"plain fences", "```\nSELECT 1\n```", "SELECT 1"},
		{"sql language tag", "```sql\nSELECT * FROM flips\n```", "SELECT * FROM flips"},
		{"surrounding whitespace", "  ```sql\nSELECT 1\n```  ", "SELECT 1"},
		{"multiline body", "```sql\nSELECT *\nFROM flips\nWHERE profit > 0\n```", "SELECT *\nFROM flips\nWHERE profit > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripFences(tt.input))
		})
	}
}

func TestCompleteSendsBearerAndStripsFences(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "` + "```" + `sql\nSELECT 1\n` + "```" + `"}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "test-model", zerolog.Nop())

	reply, err := client.Complete("system", "user")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", reply)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestCompleteSurfacesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", "test-model", zerolog.Nop())

	_, err := client.Complete("system", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestCompleteUnconfigured(t *testing.T) {
	client := NewClient("", "", "", zerolog.Nop())
	_, err := client.Complete("s", "u")
	assert.Error(t, err)
}
