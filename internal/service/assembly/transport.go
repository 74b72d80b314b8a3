package assembly

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nkiryanov/linesync/internal/apperrors"
	"github.com/nkiryanov/linesync/internal/logger"
)

const defaultRequestTimeout = 10 * time.Second

// StatusError is returned when the sequencer answers with non 2xx status
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// HTTPTransport sends JSON requests to the sequencer
type HTTPTransport struct {
	BaseURL string

	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

func NewHTTPTransport(baseURL string, l logger.Logger) (*HTTPTransport, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("error while creating transport. Err: %w", apperrors.ErrMissingCredentials)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid sequencer address %q", baseURL)
	}

	return &HTTPTransport{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		timeout: defaultRequestTimeout,
		logger:  l,
	}, nil
}

// Do sends request and returns response body.
// No content response gives empty body, non 2xx status gives *StatusError.
func (t *HTTPTransport) Do(ctx context.Context, method string, path string, token string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return []byte{}, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		t.logger.Debug("Sequencer response", "method", method, "path", path, "status_code", resp.StatusCode, "request_id", requestID)
		return respBody, nil
	default:
		t.logger.Warn("Sequencer request failed", "method", method, "path", path, "status_code", resp.StatusCode, "request_id", requestID)
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}
}
