// Package service runs the extraction pipeline: schema parsing, prompt
// rendering, one inference call and response coercion. Chat skips the
// schema and coercion steps and returns the model's text unmodified.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"schemagate/internal/extraction/coerce"
	"schemagate/internal/extraction/prompt"
	"schemagate/internal/extraction/schema"
	"schemagate/internal/inference"
	"schemagate/pkg/platform/tracer"
	"schemagate/pkg/requestcontext"
	strutil "schemagate/pkg/string"
)

const (
	opExtract = "extract"
	opChat    = "chat"

	// debugOutputChars bounds how much model output reaches debug logs.
	debugOutputChars = 200
)

// Completer sends one prompt to the model and returns its raw text.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts inference.Options) (string, error)
}

// ExtractRequest carries an extraction call. Schema is the caller's raw
// schema_json object.
type ExtractRequest struct {
	Text         string
	Schema       json.RawMessage
	Instructions string
}

type ChatRequest struct {
	Message string
	System  string
}

// Service is safe for concurrent use.
type Service struct {
	prompts   *prompt.Builder
	completer Completer
	logger    *slog.Logger
	metrics   *Metrics
	tracer    tracer.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func New(completer Completer, prompts *prompt.Builder, opts ...Option) (*Service, error) {
	if completer == nil {
		return nil, errors.New("completer is required")
	}
	if prompts == nil {
		return nil, errors.New("prompt builder is required")
	}
	s := &Service{
		prompts:   prompts,
		completer: completer,
		logger:    slog.Default(),
		tracer:    tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Extract returns the schema-shaped result for req.Text.
//
// Schema, size and instruction errors are returned before the model is
// called. Errors are domain errors; coercion failures keep *coerce.Error in
// the chain so the raw model output can be reported.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (result *coerce.Result, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanExtract)
	start := time.Now()
	defer func() {
		s.metrics.recordRequest(opExtract, outcome(err))
		span.End(err)
		err = toDomainError(err)
	}()

	decl, err := schema.Parse(req.Schema)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.Int(tracer.AttrSchemaFields, decl.Len()))

	rendered, err := s.prompts.Render(req.Text, decl, req.Instructions)
	if err != nil {
		return nil, err
	}

	raw, err := s.completer.Complete(ctx, rendered, inference.Options{System: prompt.SystemInstruction})
	if err != nil {
		s.logFailure(ctx, opExtract, err)
		return nil, err
	}

	result, err = s.coerce(ctx, raw, decl)
	if err != nil {
		s.logFailure(ctx, opExtract, err)
		s.logger.DebugContext(ctx, "unparseable model output",
			"request_id", requestcontext.RequestID(ctx),
			"output", strutil.Truncate(raw, debugOutputChars),
		)
		return nil, err
	}

	adjusted := make(map[string]string, len(result.Adjustments()))
	for name, adj := range result.Adjustments() {
		adjusted[name] = string(adj)
	}
	s.metrics.recordResult(decl.Len(), adjusted, result.Repaired())
	s.logger.InfoContext(ctx, "extraction completed",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID(ctx),
		"fields", decl.Len(),
		"adjusted_fields", len(adjusted),
		"repaired", result.Repaired(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

func (s *Service) coerce(ctx context.Context, raw string, decl *schema.Declaration) (res *coerce.Result, err error) {
	_, span := s.tracer.Start(ctx, tracer.SpanCoerce)
	defer func() { span.End(err) }()

	res, err = coerce.Coerce(raw, decl)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		tracer.Int(tracer.AttrAdjustedFields, len(res.Adjustments())),
		tracer.Bool(tracer.AttrRepaired, res.Repaired()),
	)
	return res, nil
}

// Chat forwards the message to the model under the same input ceiling as
// extraction and returns the reply unmodified.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (reply string, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanChat)
	defer func() {
		s.metrics.recordRequest(opChat, outcome(err))
		span.End(err)
		err = toDomainError(err)
	}()

	if err := s.prompts.CheckInput(req.Message); err != nil {
		return "", err
	}

	reply, err = s.completer.Complete(ctx, req.Message, inference.Options{System: req.System})
	if err != nil {
		s.logFailure(ctx, opChat, err)
		return "", err
	}
	return reply, nil
}

func (s *Service) logFailure(ctx context.Context, op string, err error) {
	s.logger.WarnContext(ctx, op+" failed",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID(ctx),
		"error", err,
	)
}

func tenantID(ctx context.Context) string {
	if caller, ok := requestcontext.CallerFrom(ctx); ok {
		return caller.OwnerID
	}
	return ""
}
