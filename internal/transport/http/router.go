// Package httptransport assembles the public HTTP surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schemagate/internal/extraction/handler"
	"schemagate/internal/platform/health"
	"schemagate/pkg/platform/middleware/auth"
	"schemagate/pkg/platform/middleware/metadata"
	"schemagate/pkg/platform/middleware/request"
)

// Deps are the collaborators the router mounts. Gatherer and Metrics may be
// nil to run without /metrics or request instrumentation.
type Deps struct {
	Logger         *slog.Logger
	Verifier       auth.CredentialVerifier
	Extraction     *handler.Handler
	Health         *health.Handler
	Metrics        *request.Metrics
	Gatherer       prometheus.Gatherer
	Metadata       *metadata.Config
	MaxBodyBytes   int64
	RequestTimeout time.Duration
}

// NewRouter wires all public endpoints with middleware. Health and metrics
// are open; extraction routes require a credential.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.NewMiddleware(d.Metadata).Handler)
	r.Use(request.Logger(d.Logger))
	r.Use(request.Instrument(d.Metrics))
	r.Use(request.BodyLimit(d.MaxBodyBytes))
	r.Use(request.ContentTypeJSON)

	d.Health.Register(r)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireCredential(d.Verifier, d.Logger))
		r.Use(request.Timeout(d.RequestTimeout))
		d.Extraction.Register(r)
	})

	return r
}
