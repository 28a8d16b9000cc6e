package analyzer

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sony/gobreaker/v2"
)

// HTTPStatusError reports a non-2xx response from the analyzer.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "analyzer status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("analyzer %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("analyzer %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// IsCircuitOpen reports whether the error came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// IsRetryable reports whether the caller may resubmit after this error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsCircuitOpen(err) {
		return true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
