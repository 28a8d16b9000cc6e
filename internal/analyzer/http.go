package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Kassie406/familyvault-app-sub005/internal/inbox"
)

// HTTPClient talks to the remote analysis service over HTTP. All calls go
// through a circuit breaker so a degraded analyzer fails fast instead of
// holding up the review surface.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewHTTPClient constructs an analyzer client for the given base URL.
func NewHTTPClient(baseURL, apiKey string) (*HTTPClient, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("ANALYZER_BASE_URL is required")
	}
	timeout := 30 * time.Second
	if raw := strings.TrimSpace(os.Getenv("ANALYZER_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "analyzer",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &HTTPClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
	}, nil
}

type submitRequest struct {
	DocumentID string `json:"documentId"`
	Text       string `json:"text"`
}

type submitResponse struct {
	JobID string `json:"jobId"`
}

// Submit begins remote analysis and returns the job handle.
func (c *HTTPClient) Submit(ctx context.Context, documentID string, text string) (JobHandle, error) {
	body, err := c.doJSON(ctx, http.MethodPost, "/v1/analyses", submitRequest{DocumentID: documentID, Text: text})
	if err != nil {
		return "", fmt.Errorf("submit analysis document=%s: %w", documentID, err)
	}
	var parsed submitResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("submit analysis document=%s: decode: %w", documentID, err)
	}
	if strings.TrimSpace(parsed.JobID) == "" {
		return "", fmt.Errorf("submit analysis document=%s: empty job id", documentID)
	}
	return JobHandle(parsed.JobID), nil
}

type fetchResponse struct {
	Status     string            `json:"status"`
	Suggestion *inbox.Suggestion `json:"suggestion,omitempty"`
	Error      string            `json:"error,omitempty"`
	Retryable  bool              `json:"retryable,omitempty"`
}

// Fetch retrieves the current outcome for a job.
func (c *HTTPClient) Fetch(ctx context.Context, handle JobHandle) (Outcome, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "/v1/analyses/"+string(handle), nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch analysis job=%s: %w", handle, err)
	}
	var parsed fetchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Outcome{}, fmt.Errorf("fetch analysis job=%s: decode: %w", handle, err)
	}
	switch parsed.Status {
	case "pending", "processing":
		return Outcome{Kind: OutcomePending}, nil
	case "completed":
		if parsed.Suggestion == nil {
			return Outcome{}, fmt.Errorf("fetch analysis job=%s: completed without suggestion", handle)
		}
		return Outcome{Kind: OutcomeCompleted, Suggestion: parsed.Suggestion}, nil
	case "failed":
		return Outcome{Kind: OutcomeFailed, FailureMessage: parsed.Error, Retryable: parsed.Retryable}, nil
	default:
		return Outcome{}, fmt.Errorf("fetch analysis job=%s: unknown status %q", handle, parsed.Status)
	}
}

// ListItems returns the remote inbox listing for a user.
func (c *HTTPClient) ListItems(ctx context.Context, userID string) ([]inbox.InboxItem, error) {
	body, err := c.doJSON(ctx, http.MethodGet, "/v1/inbox?userId="+userID, nil)
	if err != nil {
		return nil, fmt.Errorf("list inbox items: %w", err)
	}
	var parsed []struct {
		DocumentID string            `json:"documentId"`
		Status     string            `json:"status"`
		Suggestion *inbox.Suggestion `json:"suggestion,omitempty"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("list inbox items: decode: %w", err)
	}
	items := make([]inbox.InboxItem, 0, len(parsed))
	for _, raw := range parsed {
		items = append(items, inbox.InboxItem{
			DocumentID: raw.DocumentID,
			UserID:     userID,
			Status:     inbox.Status(raw.Status),
			Suggestion: raw.Suggestion,
		})
	}
	return items, nil
}

type acceptPayload struct {
	MemberID string                 `json:"memberId"`
	Fields   []inbox.ExtractedField `json:"fields"`
}

// AcceptSuggestion persists the accept on the remote service.
func (c *HTTPClient) AcceptSuggestion(ctx context.Context, documentID, memberID string, fields []inbox.ExtractedField) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/v1/inbox/"+documentID+"/accept", acceptPayload{MemberID: memberID, Fields: fields})
	if err != nil {
		return fmt.Errorf("accept suggestion document=%s: %w", documentID, err)
	}
	return nil
}

// DismissItem records a dismissal on the remote service.
func (c *HTTPClient) DismissItem(ctx context.Context, documentID string) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/v1/inbox/"+documentID+"/dismiss", nil)
	if err != nil {
		return fmt.Errorf("dismiss item document=%s: %w", documentID, err)
	}
	return nil
}

// UpdateFilename persists a display filename change on the remote service.
func (c *HTTPClient) UpdateFilename(ctx context.Context, documentID, filename string) error {
	payload := map[string]string{"filename": filename}
	_, err := c.doJSON(ctx, http.MethodPatch, "/v1/documents/"+documentID+"/filename", payload)
	if err != nil {
		return fmt.Errorf("update filename document=%s: %w", documentID, err)
	}
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	return c.breaker.Execute(func() ([]byte, error) {
		var body io.Reader
		if payload != nil {
			encoded, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encode request: %w", err)
			}
			body = bytes.NewReader(encoded)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, err
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &HTTPStatusError{
				Operation:  method + " " + path,
				StatusCode: resp.StatusCode,
				Status:     resp.Status,
				Body:       string(raw),
			}
		}
		return raw, nil
	})
}

var (
	_ Client       = (*HTTPClient)(nil)
	_ inbox.Remote = (*HTTPClient)(nil)
)
