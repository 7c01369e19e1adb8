package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "schemagate/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatLikeRequest struct {
	Message string `json:"message"`
}

type validatingRequest struct {
	Message string `json:"message"`
}

func (r *validatingRequest) Validate() error {
	if r.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

type fullRequest struct {
	Message    string `json:"message"`
	sanitized  bool
	normalized bool
}

func (r *fullRequest) Sanitize()  { r.sanitized = true }
func (r *fullRequest) Normalize() { r.normalized = true }
func (r *fullRequest) Validate() error {
	if r.Message == "" {
		return errors.New("message is required")
	}
	return nil
}

type domainErrorRequest struct {
	Schema string `json:"schema_json"`
}

func (r *domainErrorRequest) Validate() error {
	if r.Schema == "" {
		return dErrors.New(dErrors.CodeUnprocessable, "schema_json is required")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeJSON(t *testing.T) {
	logger := discardLogger()

	t.Run("successful decode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"hi"}`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[chatLikeRequest](w, req, logger, "req-1")

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.Equal(t, "hi", result.Message)
	})

	t.Run("invalid JSON returns bad_request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{invalid`))
		w := httptest.NewRecorder()

		result, ok := DecodeJSON[chatLikeRequest](w, req, logger, "req-1")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "bad_request", decodeBody(t, w)["error"])
	})

	t.Run("oversized body returns payload_too_large", func(t *testing.T) {
		payload := `{"message":"` + strings.Repeat("a", 512) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(payload))
		w := httptest.NewRecorder()
		req.Body = http.MaxBytesReader(w, req.Body, 64)

		_, ok := DecodeJSON[chatLikeRequest](w, req, logger, "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, "payload_too_large", decodeBody(t, w)["error"])
	})
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := discardLogger()

	t.Run("plain validation error maps to validation_error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":""}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[validatingRequest](w, req, logger, "req-1")

		assert.False(t, ok)
		assert.Nil(t, result)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "validation_error", body["error"])
		assert.Contains(t, body["error_description"], "message is required")
	})

	t.Run("calls all preparation methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(`{"message":"hi"}`))
		w := httptest.NewRecorder()

		result, ok := DecodeAndPrepare[fullRequest](w, req, logger, "req-1")

		assert.True(t, ok)
		require.NotNil(t, result)
		assert.True(t, result.sanitized)
		assert.True(t, result.normalized)
	})

	t.Run("preserves domain error code from Validate", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewBufferString(`{"schema_json":""}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[domainErrorRequest](w, req, logger, "req-1")

		assert.False(t, ok)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "unprocessable_entity", decodeBody(t, w)["error"])
	})
}

func TestWriteErrorWithFields(t *testing.T) {
	t.Run("adds extra fields without overriding error keys", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := dErrors.New(dErrors.CodeUnprocessable, "no JSON object in model output")

		WriteErrorWithFields(w, err, map[string]any{"raw": "sorry", "error": "ignored", "success": false})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "unprocessable_entity", body["error"])
		assert.Equal(t, "sorry", body["raw"])
		assert.Equal(t, false, body["success"])
	})

	t.Run("non-domain error becomes 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, errors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal_error", decodeBody(t, w)["error"])
	})
}

func TestDomainCodeToHTTPStatus(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeUnauthorized:    http.StatusUnauthorized,
		dErrors.CodeUnavailable:     http.StatusServiceUnavailable,
		dErrors.CodePayloadTooLarge: http.StatusRequestEntityTooLarge,
		dErrors.CodeUnprocessable:   http.StatusUnprocessableEntity,
		dErrors.CodeTimeout:         http.StatusGatewayTimeout,
		dErrors.CodeBadGateway:      http.StatusBadGateway,
		dErrors.CodeCanceled:        StatusClientClosedRequest,
		dErrors.Code("unknown"):     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, DomainCodeToHTTPStatus(code), string(code))
	}
}
