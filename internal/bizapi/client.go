// Package bizapi is the JSON-over-HTTP client for the business endpoints the
// agents call: the drift bottle service and the quiz question banks.
package bizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/voicemesh/logging"
)

var (
	// ErrEncodeRequest is returned when a request payload cannot be encoded.
	ErrEncodeRequest = errors.New("encode request")
	// ErrDecodeResponse is returned when a response body is not the expected JSON.
	ErrDecodeResponse = errors.New("decode response")
	// ErrReadResponse is returned when the response body cannot be read.
	ErrReadResponse = errors.New("read response")
)

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Options configure a Client.
type Options struct {
	// BookReadingURL serves the drift bottle and quiz arena endpoints.
	BookReadingURL string
	// ResourceURL serves the book e-test endpoints. Defaults to BookReadingURL.
	ResourceURL string
	// Timeout bounds a single request.
	Timeout time.Duration
	// RateLimit is the sustained outbound requests per second; 0 disables limiting.
	RateLimit float64
	// Burst is the number of requests allowed at once.
	Burst      int
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client calls the business APIs. It is safe for concurrent use by all
// sessions; the rate limit is shared.
type Client struct {
	bookReadingURL string
	resourceURL    string
	httpClient     *http.Client
	limiter        *rate.Limiter
	logger         logging.Logger
}

// New creates a Client with a 10s timeout and 5 requests per second.
func New(optFns ...func(o *Options)) (*Client, error) {
	opts := Options{
		Timeout:   10 * time.Second,
		RateLimit: 5,
		Burst:     5,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	bookURL, err := normalizeBaseURL(opts.BookReadingURL)
	if err != nil {
		return nil, fmt.Errorf("new client: book reading url: %w", err)
	}

	resourceURL := bookURL
	if opts.ResourceURL != "" {
		if resourceURL, err = normalizeBaseURL(opts.ResourceURL); err != nil {
			return nil, fmt.Errorf("new client: resource url: %w", err)
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}

		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{
		bookReadingURL: bookURL,
		resourceURL:    resourceURL,
		httpClient:     httpClient,
		limiter:        limiter,
		logger:         logging.OrNoOp(opts.Logger),
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.New("base URL is required")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", errors.New("base URL must include scheme and host")
	}

	return strings.TrimRight(trimmed, "/"), nil
}

// postJSON posts payload to baseURL+path and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, baseURL, path string, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var encoded bytes.Buffer
	if err := json.NewEncoder(&encoded).Encode(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrEncodeRequest, err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, &encoded)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	request.Header.Set("Content-Type", "application/json")

	start := time.Now()

	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("bizapi.request.failed", "path", path, "error", err.Error())
		return fmt.Errorf("do request: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReadResponse, err)
	}

	c.logger.Debug("bizapi.request",
		"path", path,
		"status", response.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: response.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecodeResponse, err)
	}

	return nil
}
