package fgs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPConfig configures an HTTPClient.
type HTTPConfig struct {
	// Endpoint overrides https://functiongraph.<region>.myhuaweicloud.com.
	Endpoint string

	// Region selects the default endpoint.
	Region string

	// ProjectID is the project path segment of every request.
	ProjectID string

	// AuthToken is sent as X-Auth-Token.
	AuthToken string

	// Timeout bounds each HTTP request. Zero means 60 seconds.
	Timeout time.Duration

	// ReadRetries is how many times transient read failures are retried.
	// Mutations are never retried.
	ReadRetries uint

	// Transport is the base round tripper. Nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// HTTPClient talks to the FunctionGraph v2 REST API.
type HTTPClient struct {
	base        *url.URL
	projectID   string
	token       string
	readRetries uint
	http        *http.Client
}

// NewHTTPClient creates a FunctionGraph REST client.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("fgs: project id is required")
	}
	if cfg.AuthToken == "" {
		return nil, errors.New("fgs: auth token is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.Region == "" {
			return nil, errors.New("fgs: region or endpoint is required")
		}
		endpoint = fmt.Sprintf("https://functiongraph.%s.myhuaweicloud.com", cfg.Region)
	}
	base, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("fgs: invalid endpoint %q: %w", endpoint, err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &HTTPClient{
		base:        base,
		projectID:   cfg.ProjectID,
		token:       cfg.AuthToken,
		readRetries: cfg.ReadRetries,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}, nil
}

func (c *HTTPClient) path(segments ...string) string {
	escaped := make([]string, 0, len(segments)+3)
	escaped = append(escaped, "v2", url.PathEscape(c.projectID), "fgs")
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	return c.base.String() + "/" + strings.Join(escaped, "/")
}

// do sends one request. in is JSON encoded when non-nil; out is decoded
// from a 2xx body when non-nil.
func (c *HTTPClient) do(ctx context.Context, op, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return &APIError{Operation: op, Message: "failed to encode request", Err: err}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &APIError{Operation: op, Message: "failed to build request", Err: err}
	}
	req.Header.Set("X-Auth-Token", c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Operation: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Operation: op, StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			RequestID:  resp.Header.Get("X-Request-Id"),
		}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &APIError{Operation: op, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
		}
	}
	return nil
}

// read retries transient and throttled failures with exponential backoff.
func (c *HTTPClient) read(ctx context.Context, op, target string, out any) error {
	if c.readRetries == 0 {
		return c.do(ctx, op, http.MethodGet, target, nil, out)
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := c.do(ctx, op, http.MethodGet, target, nil, out)
		if err == nil {
			return struct{}{}, nil
		}
		status := StatusOf(err)
		if status == http.StatusTooManyRequests || status == 0 || status >= http.StatusInternalServerError {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.readRetries+1),
	)
	return err
}

// GetFunction fetches the function configuration by URN.
func (c *HTTPClient) GetFunction(ctx context.Context, urn string) (*FunctionRecord, error) {
	var rec FunctionRecord
	if err := c.read(ctx, OpGetFunction, c.path("functions", urn, "config"), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateFunction creates a function.
func (c *HTTPClient) CreateFunction(ctx context.Context, req *FunctionRequest) (*FunctionRecord, error) {
	var rec FunctionRecord
	if err := c.do(ctx, OpCreateFunction, http.MethodPost, c.path("functions"), req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

type codeUpdate struct {
	CodeType          string        `json:"code_type"`
	CodeURL           string        `json:"code_url,omitempty"`
	CodeFilename      string        `json:"code_filename,omitempty"`
	FuncCode          *FunctionCode `json:"func_code,omitempty"`
	DependVersionList []string      `json:"depend_version_list,omitempty"`
}

// UpdateFunction replaces the code and then the configuration of a function.
func (c *HTTPClient) UpdateFunction(ctx context.Context, urn string, req *FunctionRequest) (*FunctionRecord, error) {
	code := codeUpdate{
		CodeType:          req.CodeType,
		CodeURL:           req.CodeURL,
		CodeFilename:      req.CodeFilename,
		FuncCode:          req.FuncCode,
		DependVersionList: req.DependVersionList,
	}
	if code.CodeURL != "" || code.FuncCode != nil {
		if err := c.do(ctx, OpUpdateFunction, http.MethodPut, c.path("functions", urn, "code"), code, nil); err != nil {
			return nil, err
		}
	}

	var rec FunctionRecord
	if err := c.do(ctx, OpUpdateFunction, http.MethodPut, c.path("functions", urn, "config"), req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteFunction deletes a function by URN.
func (c *HTTPClient) DeleteFunction(ctx context.Context, urn string) error {
	return c.do(ctx, OpDeleteFunction, http.MethodDelete, c.path("functions", urn), nil, nil)
}

// ListTriggers lists every trigger attached to a function.
func (c *HTTPClient) ListTriggers(ctx context.Context, functionURN string) ([]TriggerRecord, error) {
	var recs []TriggerRecord
	if err := c.read(ctx, OpListTriggers, c.path("triggers", functionURN), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// CreateTrigger attaches a trigger to a function.
func (c *HTTPClient) CreateTrigger(ctx context.Context, functionURN string, req *CreateTriggerRequest) (*TriggerRecord, error) {
	var rec TriggerRecord
	if err := c.do(ctx, OpCreateTrigger, http.MethodPost, c.path("triggers", functionURN), req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateTrigger changes the status of a trigger.
func (c *HTTPClient) UpdateTrigger(ctx context.Context, functionURN string, req *UpdateTriggerRequest) (*TriggerRecord, error) {
	var rec TriggerRecord
	target := c.path("triggers", functionURN, req.TriggerTypeCode, req.TriggerID)
	if err := c.do(ctx, OpUpdateTrigger, http.MethodPut, target, req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteTrigger detaches a trigger from a function.
func (c *HTTPClient) DeleteTrigger(ctx context.Context, functionURN string, req *DeleteTriggerRequest) error {
	target := c.path("triggers", functionURN, req.TriggerTypeCode, req.TriggerID)
	return c.do(ctx, OpDeleteTrigger, http.MethodDelete, target, nil, nil)
}

var _ Client = (*HTTPClient)(nil)
