package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPTool issues GET and POST requests on behalf of a flow. Input keys:
// "url" (required), "method" (default GET), "headers" (string-valued
// map), "body" (string, sent with either method when non-empty). The
// result carries "status_code",
// "headers", and "body". Timeouts come from the caller's context, not a
// client-level deadline, so a node's per-attempt timeout governs.
type HTTPTool struct {
	client *http.Client
}

// NewHTTPTool builds an HTTPTool with a default client.
func NewHTTPTool() *HTTPTool {
	return &HTTPTool{client: &http.Client{}}
}

// Name returns "http_request".
func (h *HTTPTool) Name() string { return "http_request" }

// Call executes the request described by input.
func (h *HTTPTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	rawURL, _ := input["url"].(string)
	if rawURL == "" {
		return nil, fmt.Errorf("http_request: url parameter is required")
	}

	method := http.MethodGet
	if m, ok := input["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("http_request: unsupported method %q", method)
	}

	var body io.Reader
	if s, ok := input["body"].(string); ok && s != "" {
		body = bytes.NewBufferString(s)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("http_request: build request: %w", err)
	}
	if headers, ok := input["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http_request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http_request: read body: %w", err)
	}

	respHeaders := make(map[string]interface{}, len(resp.Header))
	for k, vs := range resp.Header {
		if len(vs) == 1 {
			respHeaders[k] = vs[0]
		} else {
			respHeaders[k] = vs
		}
	}

	return map[string]interface{}{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        string(respBody),
	}, nil
}
