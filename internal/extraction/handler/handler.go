// Package handler exposes the extraction service over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schemagate/internal/extraction/coerce"
	"schemagate/internal/extraction/service"
	dErrors "schemagate/pkg/domain-errors"
	"schemagate/pkg/platform/httputil"
	"schemagate/pkg/requestcontext"
)

// Service defines the extraction operations the handlers call.
// Errors are domain errors.
type Service interface {
	Extract(ctx context.Context, req service.ExtractRequest) (*coerce.Result, error)
	Chat(ctx context.Context, req service.ChatRequest) (string, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the extraction routes. Callers are expected to have
// placed credential middleware in front of r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/extract", h.HandleExtract)
	r.Post("/chat", h.HandleChat)
}

// HandleExtract turns free text into a schema-shaped JSON object.
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.caller(ctx, w)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ExtractRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	result, err := h.service.Extract(ctx, service.ExtractRequest{
		Text:         req.Text,
		Schema:       req.SchemaJSON,
		Instructions: req.Instructions,
	})
	if err != nil {
		var ce *coerce.Error
		if errors.As(err, &ce) {
			httputil.WriteErrorWithFields(w, err, map[string]any{
				"success": false,
				"data":    nil,
				"raw":     ce.Raw,
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ExtractResponse{
		Success:  true,
		Data:     result,
		TenantID: caller.OwnerID,
	})
}

// HandleChat forwards a message to the model and returns its reply unmodified.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	caller, ok := h.caller(ctx, w)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ChatRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	reply, err := h.service.Chat(ctx, service.ChatRequest{Message: req.Message, System: req.System})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ChatResponse{Response: reply, TenantID: caller.OwnerID})
}

func (h *Handler) caller(ctx context.Context, w http.ResponseWriter) (requestcontext.Caller, bool) {
	caller, ok := requestcontext.CallerFrom(ctx)
	if !ok {
		h.logger.ErrorContext(ctx, "caller missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return requestcontext.Caller{}, false
	}
	return caller, true
}
