// API service for making raw HTTP requests to the price tracker backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/pricepal/internal/shared"
	"golang.org/x/time/rate"
)

// APIService provides methods for making raw HTTP requests to the backend.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *log.Logger
}

// APIOpts configures an [APIService]. Zero values select defaults.
type APIOpts struct {
	HTTPClient        *http.Client
	Timeout           time.Duration
	RequestsPerSecond float64
	Logger            *log.Logger
}

// NewAPIService creates a new API service instance for the backend at baseURL.
func NewAPIService(baseURL string, opts APIOpts) *APIService {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}
}

// BaseURL returns the backend root the service talks to.
func (a *APIService) BaseURL() string { return a.baseURL }

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status code is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *APIResponse) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Detail extracts the backend's "detail" message.
//
// FastAPI returns either a string or a list of validation entries with "msg" fields.
func (r *APIResponse) Detail() string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(r.Body, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(body.Detail, &text); err == nil {
		return text
	}

	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.Msg != "" {
				msgs = append(msgs, e.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path, token string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodGet, path, token, nil)
}

// Post performs a POST request with body encoded as JSON.
func (a *APIService) Post(ctx context.Context, path, token string, body any) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPost, path, token, body)
}

// Put performs a PUT request with body encoded as JSON.
func (a *APIService) Put(ctx context.Context, path, token string, body any) (*APIResponse, error) {
	return a.Do(ctx, http.MethodPut, path, token, body)
}

// Delete performs a DELETE request to the specified path.
func (a *APIService) Delete(ctx context.Context, path, token string) (*APIResponse, error) {
	return a.Do(ctx, http.MethodDelete, path, token, nil)
}

// Do performs a single request. An empty token sends no Authorization header.
//
// body may be nil, a []byte of raw JSON, or any value to marshal.
func (a *APIService) Do(ctx context.Context, method, path, token string, body any) (*APIResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, a.wrapTransportErr(ctx, err)
	}

	started := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, a.wrapTransportErr(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	a.logger.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(started))

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func (a *APIService) wrapTransportErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: request failed: %v", shared.ErrTimeout, err)
	}
	return fmt.Errorf("request failed: %w", err)
}
