// Package sourceclient implements the two SourceClient capability providers
// (Store, Meta): typed upstream fetchers that return contracts.RawRecord and
// know nothing about persistence. Grounded on the teacher's
// internal/solana.HTTPClient: an http.Client wrapped with exponential-backoff
// retry, generalized here with a response-classifying error taxonomy and a
// circuit breaker per spec.md §4.2.
package sourceclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	retryBaseDelay = 300 * time.Millisecond
	retryMaxDelay  = 5 * time.Second
	maxAttempts    = 3
	jitterFraction = 0.5
)

// transport issues GET requests against one upstream base URL with retry,
// jittered backoff, Retry-After handling, and a circuit breaker. Store and
// Meta clients each own one.
type transport struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *circuitBreaker
	rng     *rand.Rand
	sleep   func(ctx context.Context, d time.Duration) error
}

// newTransport builds a transport. httpClient defaults to a 30s-timeout
// client when nil.
func newTransport(baseURL, apiKey string, httpClient *http.Client) *transport {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &transport{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  httpClient,
		breaker: newCircuitBreaker(nil),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   ctxSleep,
	}
}

// jitter returns d randomized within ±jitterFraction, the same
// reserve-then-jitter shape as internal/ratelimit.MinDelaySpacer.jitter.
func (t *transport) jitter(d time.Duration) time.Duration {
	spread := int64(float64(d) * jitterFraction)
	if spread <= 0 {
		return d
	}
	offset := t.rng.Int63n(2*spread+1) - spread
	return d + time.Duration(offset)
}

// get issues one GET to baseURL+path, retrying on network errors and
// 429/5xx responses with exponential backoff, honoring Retry-After on 429.
// Returns the decoded body reader's bytes; callers json.Unmarshal them.
func (t *transport) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	if !t.breaker.allow() {
		return nil, ErrCircuitOpen
	}

	reqURL := t.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + encodeQuery(query)
	}

	delay := retryBaseDelay
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := t.sleep(ctx, t.jitter(delay)); err != nil {
				return nil, err
			}
			delay *= 2
			if delay > retryMaxDelay {
				delay = retryMaxDelay
			}
		}

		body, retryAfter, err := t.doOnce(ctx, reqURL)
		if err == nil {
			t.breaker.recordSuccess()
			return body, nil
		}

		lastErr = err
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMalformed) {
			// Not retryable: the request reached the upstream and it told us
			// definitively no / garbage. Retrying cannot help.
			return nil, err
		}
		if errors.Is(err, ErrNetwork) {
			t.breaker.recordNetworkFailure()
		}
		if retryAfter > 0 {
			delay = retryAfter
		}
	}

	return nil, fmt.Errorf("%w: attempts exhausted: %v", lastErr, lastErr)
}

func (t *transport) doOnce(ctx context.Context, url string) (body []byte, retryAfter time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: build request: %v", ErrNetwork, err)
	}
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read body: %v", ErrNetwork, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), ErrUpstream5xx
	case resp.StatusCode >= 400:
		return nil, 0, fmt.Errorf("%w: status %d", ErrMalformed, resp.StatusCode)
	}

	return respBody, 0, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return 0
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func encodeQuery(query map[string]string) string {
	values := url.Values{}
	for k, v := range query {
		values.Set(k, v)
	}
	return values.Encode()
}
