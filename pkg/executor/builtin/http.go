package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/smilemakc/flowgraph/pkg/executor"
)

// HTTPHandler executes HTTP requests. Transient failures (transport errors,
// 5xx responses) retry per the handler's policy; 4xx responses fail
// immediately.
type HTTPHandler struct {
	*executor.BaseHandler
	client *http.Client
	retry  *executor.RetryPolicy
}

// NewHTTPHandler creates an HTTP handler with a default client and the
// default retry policy.
func NewHTTPHandler() *HTTPHandler {
	return NewHTTPHandlerWithClient(&http.Client{
		Timeout: 30 * time.Second,
	})
}

// NewHTTPHandlerWithClient creates an HTTP handler with a custom client.
func NewHTTPHandlerWithClient(client *http.Client) *HTTPHandler {
	return &HTTPHandler{
		BaseHandler: executor.NewBaseHandler("http"),
		client:      client,
		retry:       executor.DefaultRetryPolicy(),
	}
}

// WithRetry replaces the handler's retry policy.
func (h *HTTPHandler) WithRetry(rp *executor.RetryPolicy) *HTTPHandler {
	if rp == nil {
		rp = executor.NoRetry()
	}
	h.retry = rp
	return h
}

// Execute performs the configured HTTP request and returns status, headers
// and the parsed body. Retryable failures re-run the request under the
// handler's policy before the final result is reported.
func (h *HTTPHandler) Execute(ctx context.Context, inv *executor.Invocation) (*executor.Result, error) {
	method, err := h.GetString(inv.Config, "method")
	if err != nil {
		return executor.Failf("%v", err), nil
	}

	url, err := h.GetString(inv.Config, "url")
	if err != nil {
		return executor.Failf("%v", err), nil
	}

	var bodyData []byte
	if raw, ok := inv.Config["body"]; ok && raw != nil {
		switch v := raw.(type) {
		case string:
			bodyData = []byte(v)
		case []byte:
			bodyData = v
		default:
			bodyData, err = json.Marshal(v)
			if err != nil {
				return executor.Failf("failed to marshal request body: %v", err), nil
			}
		}
	}

	var res *executor.Result
	doErr := h.retry.Do(ctx, func() error {
		res = h.doRequest(ctx, inv, method, url, bodyData)
		if !res.Success && res.Error != nil {
			return res.Error
		}
		return nil
	})

	// Context aborts surface through Do before a result exists.
	if res == nil && doErr != nil {
		return executor.Failf("request aborted: %v", doErr), nil
	}
	return res, nil
}

// doRequest performs one attempt.
func (h *HTTPHandler) doRequest(ctx context.Context, inv *executor.Invocation, method, url string, bodyData []byte) *executor.Result {
	var body io.Reader
	if bodyData != nil {
		body = bytes.NewReader(bodyData)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return executor.Failf("failed to create request: %v", err)
	}

	if headers, err := h.GetMap(inv.Config, "headers"); err == nil {
		for key, value := range headers {
			if strVal, ok := value.(string); ok {
				req.Header.Set(key, strVal)
			}
		}
	}
	if req.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return executor.Fail(&executor.NodeError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Code:      "http_request_failed",
			Retryable: ctx.Err() == nil,
		})
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return executor.Failf("failed to read response body: %v", err)
	}

	var parsed interface{}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		parsed = string(respBody)
	}

	data := map[string]interface{}{
		"status":  resp.StatusCode,
		"headers": flattenHeaders(resp.Header),
		"body":    parsed,
	}

	if resp.StatusCode >= 500 {
		res := executor.Fail(&executor.NodeError{
			Message:   fmt.Sprintf("server error: %s", resp.Status),
			Code:      "http_5xx",
			Retryable: true,
		})
		res.Data = data
		return res
	}
	if resp.StatusCode >= 400 {
		res := executor.Fail(&executor.NodeError{
			Message: fmt.Sprintf("client error: %s", resp.Status),
			Code:    "http_4xx",
		})
		res.Data = data
		return res
	}

	return executor.OK(data)
}

// Validate requires method and url.
func (h *HTTPHandler) Validate(config map[string]interface{}) error {
	return h.ValidateRequired(config, "method", "url")
}

func flattenHeaders(header http.Header) map[string]interface{} {
	out := make(map[string]interface{}, len(header))
	for k, v := range header {
		if len(v) == 1 {
			out[k] = v[0]
		} else {
			vals := make([]interface{}, len(v))
			for i, s := range v {
				vals[i] = s
			}
			out[k] = vals
		}
	}
	return out
}
