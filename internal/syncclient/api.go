package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// JobStatus is the server's view of a sync job.
type JobStatus struct {
	JobID       string     `json:"jobId"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Phase       string     `json:"phase"`
	StartedAt   *time.Time `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
)

// Email is a mirrored message as served by the API.
type Email struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	Subject    string    `json:"subject"`
	Sender     string    `json:"sender"`
	Snippet    string    `json:"snippet"`
	Labels     string    `json:"labels"`
	ReceivedAt time.Time `json:"received_at"`
	Category   string    `json:"category"`
	Company    string    `json:"company"`
	Position   string    `json:"position"`
}

// API is the sync service as seen by the client.
type API interface {
	// StartSync queues an asynchronous sync job and returns its id.
	StartSync(ctx context.Context, syncType string) (string, error)
	JobStatus(ctx context.Context, jobID string) (*JobStatus, error)
	FetchEmails(ctx context.Context, limit int) ([]Email, error)
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sync api error (%d %s): %s", e.Status, e.Code, e.Message)
}

// HTTPClient talks to the sync service with the service API key.
type HTTPClient struct {
	baseURL string
	apiKey  string
	ownerID string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey, ownerID string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		ownerID: ownerID,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) StartSync(ctx context.Context, syncType string) (string, error) {
	body := map[string]any{"syncType": syncType, "async": true}
	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/sync/trigger", body, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("trigger response carried no job id")
	}
	return resp.JobID, nil
}

func (c *HTTPClient) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	var status JobStatus
	if err := c.do(ctx, http.MethodGet, "/api/sync-status/"+url.PathEscape(jobID), nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *HTTPClient) FetchEmails(ctx context.Context, limit int) ([]Email, error) {
	var resp struct {
		Emails []Email `json:"emails"`
	}
	path := "/api/emails?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Emails, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-Owner-ID", c.ownerID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classify(status int, data []byte) error {
	var envelope struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.Unmarshal(data, &envelope)
	apiErr := &APIError{Status: status, Code: envelope.Code, Message: envelope.Error}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}

	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrNotAuthenticated, apiErr)
	case status == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %v", ErrMaintenance, apiErr)
	}
	return apiErr
}
