// Package inference talks to the local model server (Ollama) through its
// OpenAI-compatible chat completions endpoint.
//
// Each call is a single synchronous request bounded by the configured
// timeout. There are no retries here: a loaded local model should not be
// hammered, so retry policy belongs to the caller.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"schemagate/pkg/platform/circuit"
	"schemagate/pkg/platform/tracer"
	strutil "schemagate/pkg/string"
)

const (
	opComplete = "complete"
	opHealth   = "health"
	opPull     = "pull"

	completionsPath = "/v1/chat/completions"
	tagsPath        = "/api/tags"
	pullPath        = "/api/pull"

	maxResponseBytes = 8 << 20
	maxErrorBodyLen  = 512
)

// Defaults used when Config leaves a field zero.
const (
	DefaultTimeout      = 120 * time.Second
	DefaultMaxTokens    = 1024
	DefaultTemperature  = 0.1
	DefaultProbeTimeout = 2 * time.Second
	DefaultPullTimeout  = 10 * time.Minute
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the backend and default generation settings.
type Config struct {
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// Options tune a single completion. Zero values fall back to Config.
type Options struct {
	System      string
	MaxTokens   int
	Temperature *float64
}

// Client is safe for concurrent use; connections are pooled by the
// underlying HTTP client.
type Client struct {
	baseURL      string
	model        string
	timeout      time.Duration
	probeTimeout time.Duration
	pullTimeout  time.Duration
	maxTokens    int
	temperature  float64

	http    HTTPDoer
	breaker *circuit.Breaker
	logger  *slog.Logger
	metrics *Metrics
	tracer  tracer.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

// WithBreaker enables fail-fast behaviour while the backend is down.
func WithBreaker(b *circuit.Breaker) Option {
	return func(c *Client) {
		c.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(c *Client) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithProbeTimeout bounds the health probe sent while the circuit is open.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

func WithPullTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pullTimeout = d
		}
	}
}

// New creates a client for the backend at cfg.BaseURL.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = DefaultTemperature
	}

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		timeout:      cfg.Timeout,
		probeTimeout: DefaultProbeTimeout,
		pullTimeout:  DefaultPullTimeout,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		// Deadlines come from the request context so expiry can be told apart
		// from a caller that went away.
		http:   &http.Client{},
		logger: slog.Default(),
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name sent with every request.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type backendError struct {
	Error any `json:"error"`
}

// Complete sends prompt as the user message and returns the completion text
// unmodified.
//
// Errors: always *Error. KindCanceled when ctx ends before the backend
// answers; the in-flight HTTP request is aborted in that case.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (text string, err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanInferenceComplete,
		tracer.String(tracer.AttrModel, c.model),
		tracer.Int(tracer.AttrPromptChars, len(prompt)),
	)
	start := time.Now()
	defer func() {
		outcome := outcomeOK
		if err != nil {
			outcome = string(KindOf(err))
			span.SetAttributes(tracer.String(tracer.AttrErrorKind, outcome))
		} else {
			span.SetAttributes(tracer.Int(tracer.AttrCompletionLen, len(text)))
		}
		c.metrics.observe(opComplete, outcome, time.Since(start).Seconds())
		span.End(err)
	}()

	if err := c.admit(ctx); err != nil {
		return "", err
	}

	body, err := json.Marshal(c.buildRequest(prompt, opts))
	if err != nil {
		return "", newError(KindBadResponse, opComplete, "failed to encode request", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, status, err := c.do(ctx, callCtx, opComplete, http.MethodPost, completionsPath, body)
	if err == nil {
		err = checkStatus(opComplete, status, payload)
	}
	if err != nil {
		c.recordOutcome(err)
		return "", err
	}

	c.recordOutcome(nil)

	var resp completionResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return "", newError(KindBadResponse, opComplete, "failed to decode completion", err)
	}

	if len(resp.Choices) == 0 {
		return "", newError(KindEmptyCompletion, opComplete, "backend returned no choices", nil)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", newError(KindEmptyCompletion, opComplete, "backend returned blank content", nil)
	}
	return content, nil
}

func (c *Client) buildRequest(prompt string, opts Options) completionRequest {
	req := completionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if strings.TrimSpace(opts.System) != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: opts.System})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})
	return req
}

// Health reports whether the backend answers its model listing.
func (c *Client) Health(ctx context.Context) (err error) {
	ctx, span := c.tracer.Start(ctx, tracer.SpanInferenceHealth,
		tracer.String(tracer.AttrModel, c.model),
	)
	start := time.Now()
	defer func() {
		outcome := outcomeOK
		if err != nil {
			outcome = string(KindOf(err))
		}
		c.metrics.observe(opHealth, outcome, time.Since(start).Seconds())
		span.End(err)
	}()

	callCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	payload, status, err := c.do(ctx, callCtx, opHealth, http.MethodGet, tagsPath, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &Error{Kind: KindUnavailable, Op: opHealth, Message: backendMessage(payload), StatusCode: status}
	}
	return nil
}

// Pull asks the backend to download the configured model and waits for it.
func (c *Client) Pull(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		outcome := outcomeOK
		if err != nil {
			outcome = string(KindOf(err))
		}
		c.metrics.observe(opPull, outcome, time.Since(start).Seconds())
	}()

	body, err := json.Marshal(map[string]any{"name": c.model, "stream": false})
	if err != nil {
		return newError(KindBadResponse, opPull, "failed to encode request", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.pullTimeout)
	defer cancel()

	payload, status, err := c.do(ctx, callCtx, opPull, http.MethodPost, pullPath, body)
	if err != nil {
		return err
	}
	return checkStatus(opPull, status, payload)
}

// admit fails fast while the circuit is open, letting one health probe
// through per probe interval to detect recovery.
func (c *Client) admit(ctx context.Context) error {
	if c.breaker == nil || !c.breaker.IsOpen() {
		return nil
	}
	if !c.breaker.ShouldProbe() {
		return newError(KindUnavailable, opComplete, "backend circuit open", nil)
	}
	if err := c.Health(ctx); err != nil {
		c.metrics.probeFailed()
		if IsKind(err, KindCanceled) {
			return err
		}
		return newError(KindUnavailable, opComplete, "backend circuit open", err)
	}
	if closed, change := c.breaker.RecordSuccess(); closed && change.Closed {
		c.metrics.setBreakerOpen(false)
		c.logger.InfoContext(ctx, "inference backend recovered, circuit closed",
			"breaker", c.breaker.Name(),
		)
	}
	return nil
}

// recordOutcome feeds the breaker. Only unavailability counts as a failure;
// a slow or chatty model is still up.
func (c *Client) recordOutcome(err error) {
	if c.breaker == nil {
		return
	}
	if IsKind(err, KindUnavailable) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.metrics.setBreakerOpen(true)
			c.logger.Warn("inference backend unavailable, circuit opened",
				"breaker", c.breaker.Name(),
				"error", err,
			)
		}
		return
	}
	if err == nil {
		c.breaker.RecordSuccess()
	}
}

// do sends one request on callCtx and reads the bounded response body.
// parent is the caller's context, used to tell cancellation from timeout.
func (c *Client) do(parent, callCtx context.Context, op, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, newError(KindUnavailable, op, "failed to create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, classifyTransport(parent, callCtx, op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if callCtx.Err() != nil {
			return nil, resp.StatusCode, classifyTransport(parent, callCtx, op, err)
		}
		return nil, resp.StatusCode, newError(KindBadResponse, op, "failed to read response", err)
	}
	return payload, resp.StatusCode, nil
}

func classifyTransport(parent, callCtx context.Context, op string, err error) *Error {
	if perr := parent.Err(); perr != nil {
		if errors.Is(perr, context.DeadlineExceeded) {
			return newError(KindTimeout, op, "request deadline exceeded", err)
		}
		return newError(KindCanceled, op, "caller canceled the request", err)
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return newError(KindTimeout, op, "backend did not answer in time", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, op, "backend did not answer in time", err)
	}
	return newError(KindUnavailable, op, "backend unreachable", err)
}

func checkStatus(op string, status int, payload []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return &Error{Kind: KindUnavailable, Op: op, Message: "model not loaded: " + backendMessage(payload), StatusCode: status}
	case status == http.StatusTooManyRequests, status >= 500:
		return &Error{Kind: KindUnavailable, Op: op, Message: backendMessage(payload), StatusCode: status}
	default:
		return &Error{Kind: KindBadResponse, Op: op, Message: backendMessage(payload), StatusCode: status}
	}
}

// backendMessage extracts the backend's error text for diagnostics.
func backendMessage(payload []byte) string {
	var be backendError
	if err := json.Unmarshal(payload, &be); err == nil && be.Error != nil {
		switch v := be.Error.(type) {
		case string:
			return truncate(v)
		case map[string]any:
			if msg, ok := v["message"].(string); ok {
				return truncate(msg)
			}
		}
	}
	if len(payload) == 0 {
		return "empty response"
	}
	return truncate(string(payload))
}

func truncate(s string) string {
	return strutil.Truncate(strings.TrimSpace(s), maxErrorBodyLen)
}
