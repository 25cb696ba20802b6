package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// messagePath is the analyst endpoint under the account base URL.
const messagePath = "/api/v2/cortex/analyst/message"

// DefaultTimeout bounds a single analyst call. The analyst can take a
// long time on cold semantic models, so the bound is generous.
const DefaultTimeout = 500000 * time.Millisecond

// DefaultMaxTokens caps the analyst's output per response.
const DefaultMaxTokens = 40000

// Request is the analyst message request body. Messages carries the
// full conversation so far; SemanticModelFile is a stage path in
// "@<DATABASE>.<SCHEMA>.<STAGE>/<FILE>" form.
type Request struct {
	Messages          []Message `json:"messages"`
	SemanticModelFile string    `json:"semantic_model_file"`
	MaxTokens         int       `json:"max_tokens"`
}

// Response is a successful analyst payload. Content is kept raw so the
// classifier decides which block kinds survive.
type Response struct {
	Message struct {
		Role    string            `json:"role"`
		Content []json.RawMessage `json:"content"`
	} `json:"message"`
	RequestID string `json:"request_id"`
}

// APIError is a structured analyst API failure. Fields absent from the
// response body carry their fallback values ("N/A" / "unknown").
type APIError struct {
	Status    int
	RequestID string
	ErrorCode string
	Message   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analyst API error: status %d, error code %s: %s",
		e.Status, e.ErrorCode, e.Message)
}

// Display renders the failure as the analyst-turn text shown to the user.
func (e *APIError) Display() string {
	return fmt.Sprintf(`🚨 An Analyst API error has occurred 🚨

* response code: `+"`%d`"+`
* request-id: `+"`%s`"+`
* error code: `+"`%s`"+`

Message: %s`, e.Status, e.RequestID, e.ErrorCode, e.Message)
}

// Config holds analyst API connection settings.
type Config struct {
	AccountURL string // https://<account>.snowflakecomputing.com
	Token      string // programmatic access token
	Timeout    time.Duration
}

// Client issues analyst message requests.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an analyst API client. A zero Timeout falls back to
// DefaultTimeout.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.AccountURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SendMessage posts the conversation to the analyst endpoint and
// classifies the outcome by HTTP status: < 400 returns the parsed
// payload, >= 400 returns an *APIError assembled from the body. One
// attempt per call; retry policy belongs to the caller.
func (c *Client) SendMessage(ctx context.Context, req Request) (*Response, error) {
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal analyst request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analyst request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("X-Snowflake-Authorization-Token-Type", "PROGRAMMATIC_ACCESS_TOKEN")
	requestGUID := uuid.NewString()
	httpReq.Header.Set("X-Snowflake-Request-Id", requestGUID)

	c.logger.Debug("sending analyst request",
		"messages", len(req.Messages),
		"semantic_model_file", req.SemanticModelFile,
		"request_guid", requestGUID,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send analyst request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read analyst response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		c.logger.Warn("analyst request failed",
			"status", apiErr.Status,
			"request_id", apiErr.RequestID,
			"error_code", apiErr.ErrorCode,
		)
		return nil, apiErr
	}

	var payload Response
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("parse analyst response: %w", err)
	}
	return &payload, nil
}

// parseAPIError builds an APIError from a failure body, tolerating a
// body that is not JSON or lacks any of the expected fields.
func parseAPIError(status int, body []byte) *APIError {
	var payload struct {
		RequestID string `json:"request_id"`
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	if payload.RequestID == "" {
		payload.RequestID = "N/A"
	}
	if payload.ErrorCode == "" {
		payload.ErrorCode = "N/A"
	}
	if payload.Message == "" {
		payload.Message = "unknown"
	}
	return &APIError{
		Status:    status,
		RequestID: payload.RequestID,
		ErrorCode: payload.ErrorCode,
		Message:   payload.Message,
	}
}
