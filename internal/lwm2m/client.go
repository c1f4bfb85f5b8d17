package lwm2m

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muurk/leshan-fleet/internal/logging"
)

const (
	// DefaultTimeout bounds every individual REST call
	DefaultTimeout = 10 * time.Second

	// DefaultServerURL is the management server used when none is configured
	DefaultServerURL = "http://mgmt.foundries.io:8080"

	// ClientsPath is the collection of registered clients
	ClientsPath = "/api/clients"

	// maxErrorBody caps how much of a rejected response body ends up in an error
	maxErrorBody = 256
)

// Accepted reports whether a status code counts as success for any call.
// Only 200 and 201 are accepted.
func Accepted(statusCode int) bool {
	switch statusCode {
	case http.StatusOK, http.StatusCreated:
		return true
	default:
		return false
	}
}

// Registration is one entry of the registered-clients listing
type Registration struct {
	Endpoint string `json:"endpoint"`
	Address  string `json:"address,omitempty"`
	Lifetime int    `json:"lifetime,omitempty"`
}

// readResponse is the body of a single-resource read
type readResponse struct {
	Status  string `json:"status,omitempty"`
	Content *struct {
		ID    int              `json:"id"`
		Value *json.RawMessage `json:"value"`
	} `json:"content"`
}

// writeRequest is the body of a single-resource write
type writeRequest struct {
	ID    int `json:"id"`
	Value any `json:"value"`
}

// Client issues synchronous read, write and execute calls against device
// resources through the management server's REST API. It never retries;
// polling callers decide what a failure means.
type Client struct {
	// BaseURL is the server base URL (e.g., "http://leshan:8080")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// RequestTimeout bounds each call, independent of any caller deadline
	RequestTimeout time.Duration
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		HTTPClient:     &http.Client{},
		RequestTimeout: DefaultTimeout,
	}
}

// SetTimeout sets the per-call request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.RequestTimeout = timeout
}

// ListClients returns every registered client that carries an endpoint name.
// Entries without an endpoint (or that are not objects) are skipped.
func (c *Client) ListClients(ctx context.Context) ([]Registration, error) {
	raw, err := c.ReadRaw(ctx, ClientsPath)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		perr := newParseError(http.MethodGet, ClientsPath, "client listing is not an array", err)
		logging.LogRequestFailure(http.MethodGet, ClientsPath, perr)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, perr)
	}

	regs := make([]Registration, 0, len(items))
	for _, item := range items {
		var reg Registration
		if err := json.Unmarshal(item, &reg); err != nil || reg.Endpoint == "" {
			continue
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// ReadRaw GETs apiPath and returns the JSON body without unwrapping it.
// Failures are logged and returned wrapped in ErrUnavailable.
func (c *Client) ReadRaw(ctx context.Context, apiPath string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, apiPath, nil)
	if err != nil {
		logging.LogRequestFailure(http.MethodGet, apiPath, err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if !json.Valid(body) {
		perr := newParseError(http.MethodGet, apiPath, "response is not valid JSON", nil)
		logging.LogRequestFailure(http.MethodGet, apiPath, perr)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, perr)
	}
	return json.RawMessage(body), nil
}

// Read GETs a resource and returns its content.value.
// Failures are logged and returned wrapped in ErrUnavailable.
func (c *Client) Read(ctx context.Context, p Path) (Value, error) {
	apiPath := p.APIPath()

	raw, err := c.ReadRaw(ctx, apiPath)
	if err != nil {
		return Value{}, err
	}

	var resp readResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		perr := newParseError(http.MethodGet, apiPath, "failed to parse read response", err)
		logging.LogRequestFailure(http.MethodGet, apiPath, perr)
		return Value{}, fmt.Errorf("%w: %w", ErrUnavailable, perr)
	}
	if resp.Content == nil || resp.Content.Value == nil {
		perr := newParseError(http.MethodGet, apiPath, "read response has no content.value", nil)
		logging.LogRequestFailure(http.MethodGet, apiPath, perr)
		return Value{}, fmt.Errorf("%w: %w", ErrUnavailable, perr)
	}

	var decoded any
	if err := json.Unmarshal(*resp.Content.Value, &decoded); err != nil {
		perr := newParseError(http.MethodGet, apiPath, "failed to decode content.value", err)
		logging.LogRequestFailure(http.MethodGet, apiPath, perr)
		return Value{}, fmt.Errorf("%w: %w", ErrUnavailable, perr)
	}
	return NewValue(decoded), nil
}

// ReadInt reads a resource and requires an integer value
func (c *Client) ReadInt(ctx context.Context, p Path) (int, error) {
	v, err := c.Read(ctx, p)
	if err != nil {
		return 0, err
	}
	n, ok := v.Int()
	if !ok {
		perr := newParseError(http.MethodGet, p.APIPath(), fmt.Sprintf("value %v is not an integer", v.Raw()), nil)
		logging.LogRequestFailure(http.MethodGet, p.APIPath(), perr)
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, perr)
	}
	return n, nil
}

// Write PUTs {id, value} to a resource. A nil error means the server
// accepted the write.
func (c *Client) Write(ctx context.Context, p Path, value any) error {
	payload, err := json.Marshal(writeRequest{ID: p.ResourceID, Value: value})
	if err != nil {
		return fmt.Errorf("failed to encode write for %s: %w", p, err)
	}

	if _, err := c.do(ctx, http.MethodPut, p.APIPath(), payload); err != nil {
		logging.LogRequestFailure(http.MethodPut, p.APIPath(), err)
		return err
	}
	return nil
}

// Execute POSTs to a resource with no body. A nil error means the server
// accepted the execute.
func (c *Client) Execute(ctx context.Context, p Path) error {
	if _, err := c.do(ctx, http.MethodPost, p.APIPath(), nil); err != nil {
		logging.LogRequestFailure(http.MethodPost, p.APIPath(), err)
		return err
	}
	return nil
}

// do performs one request. The caller's cancellation does not interrupt the
// call; only RequestTimeout does.
func (c *Client) do(ctx context.Context, method, apiPath string, payload []byte) ([]byte, error) {
	callCtx := context.WithoutCancel(ctx)
	if c.RequestTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, c.RequestTimeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.BaseURL+apiPath, body)
	if err != nil {
		return nil, &RequestError{Type: ErrTypeNetwork, Method: method, Path: apiPath, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, newTransportError(method, apiPath, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	logging.LogResourceRequest(method, apiPath, resp.StatusCode, time.Since(start))

	if !Accepted(resp.StatusCode) {
		snippet := strings.TrimSpace(string(respBody))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody] + "..."
		}
		return nil, newStatusError(method, apiPath, resp.StatusCode, snippet)
	}
	if err != nil {
		return nil, newTransportError(method, apiPath, err)
	}

	return respBody, nil
}
