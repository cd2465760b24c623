package probax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UserAgent is sent with every backend request
var UserAgent = "probax-client/dev"

const maxBodyBytes = 4 << 20

var (
	// ErrRouteFailed marks a transport failure, a non-success status or an
	// error body on one route. The caller moves on to the next route.
	ErrRouteFailed = errors.New("route failed")
	// ErrMalformedResponse marks a body that matched no known shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is a non-success status, or a success status whose body carries
// a "detail" field.
type APIError struct {
	Route  string
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Route, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: status %d", e.Route, e.Status)
}

func (e *APIError) Unwrap() error { return ErrRouteFailed }

// Call describes one request to one backend route.
type Call struct {
	Capability string
	Method     string
	Path       string
	Query      url.Values
	Body       any
}

// Backend performs JSON calls against the prediction backend.
type Backend struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *Metrics
}

type BackendOption func(*Backend)

func WithHTTPClient(c *http.Client) BackendOption {
	return func(b *Backend) { b.httpClient = c }
}

func WithLogger(l *slog.Logger) BackendOption {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithMetrics(m *Metrics) BackendOption {
	return func(b *Backend) { b.metrics = m }
}

func NewBackend(cfg Config, opts ...BackendOption) *Backend {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	b := &Backend{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		timeout:    cfg.RequestTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) BaseURL() string { return b.baseURL }

// Do performs the call and returns the raw JSON body.
func (b *Backend) Do(ctx context.Context, call Call) ([]byte, error) {
	body, err := b.do(ctx, call)
	b.metrics.observeRoute(call.Capability, call.Method+" "+call.Path, err)
	if err != nil {
		b.logger.Debug("Backend route failed", "capability", call.Capability, "method", call.Method, "path", call.Path, "error", err)
	}
	return body, err
}

func (b *Backend) do(ctx context.Context, call Call) ([]byte, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	method := call.Method
	if method == "" {
		method = http.MethodGet
	}
	route := method + " " + call.Path

	target := b.baseURL + call.Path
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	var bodyReader io.Reader
	if call.Body != nil {
		payload, err := json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", route, ErrRouteFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: failed to read response body: %w", route, ErrRouteFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Route: route, Status: resp.StatusCode, Detail: errorDetail(data)}
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("%s: %w: body is not JSON", route, ErrMalformedResponse)
	}

	if detail := errorDetail(data); detail != "" {
		return nil, &APIError{Route: route, Status: resp.StatusCode, Detail: detail}
	}

	return data, nil
}

// errorDetail returns the "detail" field of an object body, if any. FastAPI
// style backends use either a string or a list of validation errors.
func errorDetail(data []byte) string {
	var probe struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}

	raw := bytes.TrimSpace(probe.Detail)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(raw)
}
