package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	apperrors "github.com/dpshade/pocket-forms/internal/errors"
	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/models"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a response body is kept
	maxResponseBytes = 4 << 20
)

// Request describes one prompt submission
type Request struct {
	// Prompt is the generated text written at Path
	Prompt string
	// Document is the decoded JSON template; it is never modified
	Document Document
	// Path is the dot-separated location of the prompt inside Document
	Path string
	// URL is the endpoint, with or without a scheme
	URL string
	// Method defaults to POST
	Method models.HTTPMethod
}

// Response is a completed exchange. Any status below 500 counts as completed.
type Response struct {
	StatusCode int
	// Body is the response decoded as JSON, or the raw text when it is not JSON
	Body interface{}
	// FullJSON is the document that was sent
	FullJSON json.RawMessage
}

// RawBody returns the response body as JSON, quoting non-JSON text
func (r *Response) RawBody() json.RawMessage {
	data, err := json.Marshal(r.Body)
	if err != nil {
		return json.RawMessage("null")
	}
	return data
}

// Client sends generated prompts to remote endpoints
type Client struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client
}

// NewClient creates a client with the given timeout (DefaultTimeout when zero)
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Submit writes the prompt into a copy of the document and sends it.
// Path and URL failures are reported before any network activity.
func (c *Client) Submit(ctx context.Context, req Request) (*Response, error) {
	endpoint, err := NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}

	body, err := SetAtPath(req.Document, req.Path, req.Prompt)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.JSONParseError(err)
	}

	method := req.Method
	if method == "" {
		method = models.MethodPOST
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(method), endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.InvalidURLError(req.URL, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		appErr := classifyTransportError(string(method), endpoint, err)
		logging.LogSubmission(string(method), endpoint, 0, appErr)
		return nil, appErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		appErr := classifyTransportError(string(method), endpoint, err)
		logging.LogSubmission(string(method), endpoint, resp.StatusCode, appErr)
		return nil, appErr
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		appErr := apperrors.TransportError(fmt.Sprintf("%s %s", method, endpoint), nil).
			WithDetails(fmt.Sprintf("server returned %d", resp.StatusCode)).
			WithContext("status", resp.StatusCode).
			WithContext("body", truncate(string(raw), 512))
		logging.LogSubmission(string(method), endpoint, resp.StatusCode, appErr)
		return nil, appErr
	}

	logging.LogSubmission(string(method), endpoint, resp.StatusCode, nil)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       decodeBody(raw),
		FullJSON:   payload,
	}, nil
}

// classifyTransportError reports every failure as TRANSPORT_ERROR and marks timeouts in the details
func classifyTransportError(method, endpoint string, err error) *apperrors.AppError {
	appErr := apperrors.TransportError(fmt.Sprintf("%s %s", method, endpoint), err)

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return appErr.WithDetails("request timed out").WithContext("timeout", true)
	}
	if errors.Is(err, context.Canceled) {
		return appErr.WithDetails("request canceled")
	}
	return appErr.WithDetails(err.Error())
}

func decodeBody(raw []byte) interface{} {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return string(raw)
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
