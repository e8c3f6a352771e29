package http

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ctxutil "3tcapital/goglosas/internal/infrastructure/context"
	"3tcapital/goglosas/internal/infrastructure/security"
)

// Observer receives the outcome of every traced request. status is 0 when
// the request failed before a response arrived.
type Observer func(operation string, status int, duration time.Duration, err error)

// TracedClient wraps an HTTP client to log every request and response with
// sanitized headers, URLs and bodies, and to propagate the correlation id.
type TracedClient struct {
	client      *http.Client
	log         *slog.Logger
	upstream    string
	observer    Observer
	logReqBody  bool
	logRespBody bool
	maxBodySize int
}

// TracedClientConfig holds configuration for the traced HTTP client.
type TracedClientConfig struct {
	Timeout         time.Duration
	LogRequestBody  bool
	LogResponseBody bool
	MaxBodySize     int
	MaxConnsPerHost int
	Observer        Observer
}

// NewTracedClient creates a traced client for the upstream named upstream.
func NewTracedClient(cfg TracedClientConfig, log *slog.Logger, upstream string) *TracedClient {
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 16 * 1024
	}
	return &TracedClient{
		client:      NewClient(&ClientConfig{Timeout: cfg.Timeout, MaxConnsPerHost: cfg.MaxConnsPerHost}),
		log:         log,
		upstream:    upstream,
		observer:    cfg.Observer,
		logReqBody:  cfg.LogRequestBody,
		logRespBody: cfg.LogResponseBody,
		maxBodySize: cfg.MaxBodySize,
	}
}

// Do executes req and returns the response with its body still readable.
func (c *TracedClient) Do(req *http.Request) (*http.Response, error) {
	correlationID := ctxutil.GetCorrelationID(req.Context())
	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}
	operation := c.operation(req)

	var requestBody []byte
	if req.Body != nil && c.logReqBody {
		var err error
		requestBody, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(requestBody))
	}

	base := []any{
		"correlation_id", correlationID,
		"upstream", c.upstream,
		"operation", operation,
		"method", req.Method,
		"url", security.SanitizeURL(req.URL.String()),
	}
	reqAttrs := base
	if len(requestBody) > 0 {
		reqAttrs = append(base[:len(base):len(base)], "request_body", string(security.SanitizeBody(requestBody, c.maxBodySize)))
	}
	c.log.Debug("upstream_request", reqAttrs...)

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.observer != nil {
		c.observer(operation, status, duration, err)
	}

	attrs := append(base, "duration_ms", duration.Milliseconds())
	if err != nil {
		attrs = append(attrs, "error", err.Error())
		c.log.Error("upstream_request_failed", attrs...)
		return nil, err
	}

	attrs = append(attrs, "status", status)
	if c.logRespBody && resp.Body != nil {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}
		resp.Body = io.NopCloser(bytes.NewReader(body))
		attrs = append(attrs, "response_body", string(security.SanitizeBody(body, c.maxBodySize)))
	}

	switch {
	case status >= 500:
		c.log.Error("upstream_response", attrs...)
	case status >= 400:
		c.log.Warn("upstream_response", attrs...)
	default:
		c.log.Debug("upstream_response", attrs...)
	}
	return resp, nil
}

// operation names a request by its last path segment, e.g. "glosas" for
// /rest/v1/glosas.
func (c *TracedClient) operation(req *http.Request) string {
	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return strings.ToLower(req.Method) + "_" + c.upstream
}
