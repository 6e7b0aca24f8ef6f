package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Content types used by vendor APIs.
const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Request describes a single vendor call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header map[string]string
	Body   []byte
}

// Response keeps status, headers and the fully read body.
type Response struct {
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// NetworkError is returned for non-success HTTP responses.
type NetworkError struct {
	URL    string
	Status int
	Reason string
	Params string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Reason, e.URL)
}

// BaseClient provides simple GET/POST helpers.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewBaseClient builds client with base URL. Absolute paths bypass the base URL.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *BaseClient) buildURL(path string, query url.Values) string {
	full := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		full = c.baseURL + path
	}
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + query.Encode()
	}
	return full
}

// Do executes HTTP request and returns status/body.
func (c *BaseClient) Do(ctx context.Context, r Request) (*Response, error) {
	var reader io.Reader
	if len(r.Body) > 0 {
		reader = bytes.NewReader(r.Body)
	}
	method := r.Method
	if method == "" {
		method = http.MethodGet
	}
	target := c.buildURL(r.Path, r.Query)
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, err
	}
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}
	if r.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", ContentTypeJSON)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		URL:        target,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// Get issues a GET request.
func (c *BaseClient) Get(ctx context.Context, path string, query url.Values, headers map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query, Header: headers})
}

// PostForm issues a url-encoded POST request.
func (c *BaseClient) PostForm(ctx context.Context, path string, form url.Values, headers map[string]string) (*Response, error) {
	h := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	h["Content-Type"] = ContentTypeForm
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Header: h, Body: []byte(form.Encode())})
}

// Err converts a non-200 response into a NetworkError.
func (r *Response) Err(params string) error {
	if r.StatusCode == http.StatusOK {
		return nil
	}
	reason := http.StatusText(r.StatusCode)
	if parts := strings.SplitN(r.Status, " ", 2); len(parts) == 2 && parts[1] != "" {
		reason = parts[1]
	}
	return &NetworkError{URL: r.URL, Status: r.StatusCode, Reason: reason, Params: params}
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewNoRedirectHTTPClient returns a client that hands redirects back to the caller.
func NewNoRedirectHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
