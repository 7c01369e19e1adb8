package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func up(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func TestHandleStatus(t *testing.T) {
	t.Run("reports reachable backend", func(t *testing.T) {
		w := serve(New("qwen2.5:0.5b", up), "/health")

		require.Equal(t, http.StatusOK, w.Code)
		var body StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "qwen2.5:0.5b", body.Model)
		assert.True(t, body.BackendReachable)
	})

	t.Run("stays 200 when backend is down", func(t *testing.T) {
		w := serve(New("qwen2.5:0.5b", down), "/health")

		require.Equal(t, http.StatusOK, w.Code)
		var body StatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.False(t, body.BackendReachable)
	})
}

func TestHandleReadiness(t *testing.T) {
	t.Run("ready when all checks pass", func(t *testing.T) {
		h := New("m", up)
		h.RegisterCheck("credential_store", up)

		w := serve(h, "/health/ready")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ready","checks":{"inference":"up","credential_store":"up"}}`, w.Body.String())
	})

	t.Run("503 when the store is down", func(t *testing.T) {
		h := New("m", up)
		h.RegisterCheck("credential_store", down)

		w := serve(h, "/health/ready")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		var body ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "down: connection refused", body.Checks["credential_store"])
	})
}

func TestHandleLiveness(t *testing.T) {
	w := serve(New("m", down), "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}
