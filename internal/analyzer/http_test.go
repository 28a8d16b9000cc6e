package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sony/gobreaker/v2"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL, "test-key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSubmitReturnsJobHandle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/analyses" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing auth header: %q", got)
		}
		var req struct {
			DocumentID string `json:"documentId"`
			Text       string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.DocumentID != "doc-1" {
			t.Errorf("unexpected document: %q", req.DocumentID)
		}
		json.NewEncoder(w).Encode(map[string]string{"jobId": "job-42"})
	})

	handle, err := client.Submit(context.Background(), "doc-1", "some text")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle != JobHandle("job-42") {
		t.Fatalf("unexpected handle: %q", handle)
	}
}

func TestSubmitRejectsEmptyJobID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"jobId": "  "})
	})
	if _, err := client.Submit(context.Background(), "doc-1", "text"); err == nil {
		t.Fatal("expected error for empty job id")
	}
}

func TestFetchMapsStatuses(t *testing.T) {
	responses := map[string]string{
		"job-pending":    `{"status":"pending"}`,
		"job-processing": `{"status":"processing"}`,
		"job-completed":  `{"status":"completed","suggestion":{"memberId":"m-1","confidence":90}}`,
		"job-failed":     `{"status":"failed","error":"model overloaded","retryable":true}`,
	}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		job := r.URL.Path[len("/v1/analyses/"):]
		w.Write([]byte(responses[job]))
	})

	for _, job := range []string{"job-pending", "job-processing"} {
		out, err := client.Fetch(context.Background(), JobHandle(job))
		if err != nil {
			t.Fatalf("%s: %v", job, err)
		}
		if out.Kind != OutcomePending {
			t.Fatalf("%s: expected pending, got %v", job, out.Kind)
		}
	}

	out, err := client.Fetch(context.Background(), "job-completed")
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if out.Kind != OutcomeCompleted || out.Suggestion == nil || out.Suggestion.MemberID != "m-1" {
		t.Fatalf("unexpected completed outcome: %+v", out)
	}

	out, err = client.Fetch(context.Background(), "job-failed")
	if err != nil {
		t.Fatalf("failed: %v", err)
	}
	if out.Kind != OutcomeFailed || out.FailureMessage != "model overloaded" || !out.Retryable {
		t.Fatalf("unexpected failed outcome: %+v", out)
	}
}

func TestFetchCompletedWithoutSuggestion(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"completed"}`))
	})
	if _, err := client.Fetch(context.Background(), "job-1"); err == nil {
		t.Fatal("expected error for completed outcome without suggestion")
	}
}

func TestNon2xxBecomesStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.Submit(context.Background(), "doc-1", "text")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", statusErr.StatusCode)
	}
	if !IsRetryable(err) {
		t.Fatal("503 must be retryable")
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient("   ", ""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"circuit open", gobreaker.ErrOpenState, true},
		{"client error", &HTTPStatusError{StatusCode: http.StatusUnprocessableEntity}, false},
		{"rate limited", &HTTPStatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"bad gateway", &HTTPStatusError{StatusCode: http.StatusBadGateway}, true},
		{"network", &net.OpError{Op: "dial", Err: timeoutErr{}}, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("%s: IsRetryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
