package api

import (
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Client wraps an *http.Client with a retry loop for the gallery
// coordinator's outbound requests, grounded on the teacher's own
// civitai API client retry loop: a handful of attempts with
// exponential-ish backoff on 5xx and 429, no retry on 4xx.
type Client struct {
	HTTPClient *http.Client
	Token      string
	MaxRetries int
}

// NewClient builds a Client. timeout <= 0 keeps http.Client's zero
// value (no timeout). When logAPIRequests is true, transport wraps
// http.DefaultTransport in a LoggingTransport writing to logFilePath.
func NewClient(token string, timeout time.Duration, logAPIRequests bool, logFilePath string) (*Client, error) {
	httpClient := &http.Client{}
	if timeout > 0 {
		httpClient.Timeout = timeout
	}

	if logAPIRequests {
		lt, err := NewLoggingTransport(http.DefaultTransport, logFilePath)
		if err != nil {
			return nil, fmt.Errorf("setting up API request logging: %w", err)
		}
		httpClient.Transport = lt
	}

	return &Client{HTTPClient: httpClient, Token: token, MaxRetries: 3}, nil
}

// Close flushes and closes the logging transport, if one was enabled.
func (c *Client) Close() error {
	if lt, ok := c.HTTPClient.Transport.(*LoggingTransport); ok {
		return lt.Close()
	}
	return nil
}

// Do implements gallery.HTTPDoer with retry on transient failures.
// Each retry re-sends req, so callers must not pass a request whose
// body has already been drained (the gallery package never builds
// requests with a body).
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.Token != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed (attempt %d/%d): %w", attempt+1, maxRetries, err)
			if req.Context().Err() != nil {
				return nil, lastErr
			}
			if attempt < maxRetries-1 {
				log.WithError(err).Warnf("gallery api: retrying (%d/%d)", attempt+1, maxRetries)
				time.Sleep(backoff(attempt, false))
				continue
			}
			break
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		resp.Body.Close()
		lastErr = fmt.Errorf("gallery api: unexpected status %d", resp.StatusCode)
		if !retryable || attempt >= maxRetries-1 {
			break
		}
		log.WithError(lastErr).Warnf("gallery api: retrying (%d/%d) after status %d", attempt+1, maxRetries, resp.StatusCode)
		time.Sleep(backoff(attempt, resp.StatusCode == http.StatusTooManyRequests))
	}
	return nil, lastErr
}

func backoff(attempt int, rateLimited bool) time.Duration {
	unit := 2 * time.Second
	if rateLimited {
		unit = 5 * time.Second
	}
	return time.Duration(attempt+1) * unit
}
