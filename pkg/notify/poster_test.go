package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPPoster_PostsJSONPayload(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	poster := NewHTTPPoster(5 * time.Second)

	err := poster.Post(context.Background(), server.URL, map[string]any{
		"entity_type": "Lead",
		"record_id":   float64(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lead", received["entity_type"])
	assert.Equal(t, float64(7), received["record_id"])
}

func TestHTTPPoster_NonSuccessStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	poster := NewHTTPPoster(5 * time.Second)

	err := poster.Post(context.Background(), server.URL, map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestHTTPPoster_UnreachableEndpointFails(t *testing.T) {
	poster := NewHTTPPoster(time.Second)

	err := poster.Post(context.Background(), "http://127.0.0.1:1/hook", map[string]any{})
	require.Error(t, err)
}
