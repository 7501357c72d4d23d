package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"datalens/domain/dataset"
	"datalens/internal"
	"datalens/internal/errors"
	"datalens/ports"
)

// Client wraps outbound upload/analysis requests to the analysis backend.
// It owns request construction, timeout cancellation, envelope decoding, and
// error normalization. It never touches shared state.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	uploadTimeout  time.Duration
	analyzeTimeout time.Duration
	log            *internal.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithTimeouts overrides the default upload/analyze timeouts
func WithTimeouts(upload, analyze time.Duration) Option {
	return func(c *Client) {
		if upload > 0 {
			c.uploadTimeout = upload
		}
		if analyze > 0 {
			c.analyzeTimeout = analyze
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a transfer client targeting the given backend base URL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		uploadTimeout:  30 * time.Second,
		analyzeTimeout: 20 * time.Second,
		log:            internal.DefaultLogger.WithTag("transfer"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload posts a dataset file as a multipart body with field "file".
// On success the backend answers with the file identity, the ordered column
// list, and the full initial analysis report.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*ports.UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "build multipart body")
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, errors.Wrap(err, "copy file into multipart body")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "finalize multipart body")
	}

	env, err := c.send(ctx, ports.OpUpload, "/upload", &body, writer.FormDataContentType(), c.uploadTimeout)
	if err != nil {
		return nil, err
	}

	result := &ports.UploadResult{
		Filename: env.Filename,
		FileID:   env.FileID,
		Columns:  env.AvailableColumns,
	}
	// file_id is the canonical identity; older backend versions only return
	// the saved filename, which doubles as the id there.
	if result.FileID == "" {
		result.FileID = env.Filename
	}
	if len(env.Analysis) > 0 {
		var report dataset.AnalysisReport
		if err := json.Unmarshal(env.Analysis, &report); err != nil {
			return nil, errors.Decode(err)
		}
		result.Analysis = &report
	}
	return result, nil
}

// Analyze posts one analysis operation and returns the raw result payload
func (c *Client) Analyze(ctx context.Context, req ports.AnalyzeRequest) (json.RawMessage, error) {
	if req.Operation == "" || req.Operation == ports.OpUpload {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("invalid analyze operation %q", req.Operation))
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal analyze request")
	}

	env, err := c.send(ctx, req.Operation, "/analyze", bytes.NewReader(raw), "application/json", c.analyzeTimeout)
	if err != nil {
		return nil, err
	}
	return env.Result, nil
}

// send issues the HTTP call with a deadline, decodes the envelope, and maps
// every failure into the transfer error taxonomy. The deadline is always
// released on completion.
func (c *Client) send(ctx context.Context, op ports.Operation, path string, body io.Reader, contentType string, timeout time.Duration) (*envelope, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", contentType)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	c.log.Debug("%s %s request_id=%s", op, path, requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Timeout(string(op), err)
		}
		return nil, errors.Wrapf(err, "%s request failed", op)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, errors.Timeout(string(op), err)
		}
		return nil, errors.Wrap(err, "read response body")
	}

	var env envelope
	decodeErr := json.Unmarshal(respRaw, &env)

	// A decoded error field wins over everything, even HTTP 200.
	if decodeErr == nil && env.Error != "" {
		return nil, errors.ServerReported(env.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.HTTPStatus(resp.Status)
	}
	if decodeErr != nil {
		return nil, errors.Decode(decodeErr)
	}
	return &env, nil
}
