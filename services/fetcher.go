package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// botUserAgent identifies the crawler to remote servers, per the
// Crawl-Request headers contract.
const botUserAgent = "Broken Link Checker Bot/1.0 (+https://linksentry.example/bot)"
const contactAddress = "crawler-ops@linksentry.example"

// FetchResult is the shared shape returned by both check() and fetch().
type FetchResult struct {
	URL          string
	StatusCode   int
	ResponseTime time.Duration
	CheckedAt    time.Time
	IsWorking    bool
	ErrorType    string
	ErrorMessage string
	Body         string // only populated by Fetch, and only for text/html responses
	ContentType  string
}

// FetcherConfig configures one Fetcher instance. All fields are set once
// at construction.
type FetcherConfig struct {
	Timeout       time.Duration
	MaxRedirects  int
	MaxConcurrent int
	RetryAttempts int
	RetryDelay    time.Duration
}

// Fetcher performs safe, retriable HTTP requests on behalf of the
// Orchestrator. Every URL is checked against URLPolicy.IsSafe before any
// network call — no exceptions for redirects or retries.
type Fetcher struct {
	cfg    FetcherConfig
	client *http.Client
	policy *URLPolicy
	sem    chan struct{}
}

func NewFetcher(cfg FetcherConfig, policy *URLPolicy) *Fetcher {
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = 3
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	f := &Fetcher{
		cfg:    cfg,
		policy: policy,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
	}
	f.client = &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return http.ErrUseLastResponse
			}
			if safe, reason := policy.IsSafe(req.URL.String()); !safe {
				return errors.New("redirect target blocked by URL safety policy: " + reason)
			}
			setCrawlHeaders(req)
			return nil
		},
	}
	return f
}

// setCrawlHeaders sets the headers the Crawl-Request contract requires on
// every outbound request, including robots.txt fetches.
func setCrawlHeaders(req *http.Request) {
	req.Header.Set("User-Agent", botUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("From", contactAddress)
	req.Header.Set("Purpose", "link-validation")
}

// acquire/release implement the bounded in-flight capacity the Fetcher
// exposes to callers.
func (f *Fetcher) acquire(ctx context.Context) error {
	select {
	case f.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *Fetcher) release() { <-f.sem }

// Check performs a cheap liveness check: HEAD first, falling back to a
// ranged GET on any failure. It never returns the body.
func (f *Fetcher) Check(ctx context.Context, url string) FetchResult {
	if safe, reason := f.policy.IsSafe(url); !safe {
		return FetchResult{
			URL: url, CheckedAt: time.Now(), IsWorking: false,
			ErrorType: "security_blocked", ErrorMessage: reason,
		}
	}

	if err := f.acquire(ctx); err != nil {
		return FetchResult{URL: url, CheckedAt: time.Now(), IsWorking: false, ErrorType: "other", ErrorMessage: err.Error()}
	}
	defer f.release()

	result := f.doWithRetry(ctx, url, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return nil, err
		}
		setCrawlHeaders(req)
		resp, err := f.client.Do(req)
		if err == nil && resp.StatusCode >= 400 {
			resp.Body.Close()
			rangedReq, rerr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if rerr != nil {
				return resp, err
			}
			setCrawlHeaders(rangedReq)
			rangedReq.Header.Set("Range", "bytes=0-1023")
			return f.client.Do(rangedReq)
		}
		if err != nil {
			rangedReq, rerr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if rerr != nil {
				return nil, err
			}
			setCrawlHeaders(rangedReq)
			rangedReq.Header.Set("Range", "bytes=0-1023")
			return f.client.Do(rangedReq)
		}
		return resp, err
	})
	result.URL = url
	return result
}

// Fetch performs a full GET and returns the HTML body when the response's
// Content-Type contains text/html; otherwise Body is left empty.
func (f *Fetcher) Fetch(ctx context.Context, url string) FetchResult {
	if safe, reason := f.policy.IsSafe(url); !safe {
		return FetchResult{
			URL: url, CheckedAt: time.Now(), IsWorking: false,
			ErrorType: "security_blocked", ErrorMessage: reason,
		}
	}

	if err := f.acquire(ctx); err != nil {
		return FetchResult{URL: url, CheckedAt: time.Now(), IsWorking: false, ErrorType: "other", ErrorMessage: err.Error()}
	}
	defer f.release()

	var body string
	var contentType string
	result := f.doWithRetry(ctx, url, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		setCrawlHeaders(req)
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		contentType = resp.Header.Get("Content-Type")
		if strings.Contains(strings.ToLower(contentType), "text/html") {
			limited := io.LimitReader(resp.Body, 5*1024*1024)
			raw, readErr := io.ReadAll(limited)
			if readErr == nil {
				body = string(raw)
			}
		}
		return resp, nil
	})
	result.URL = url
	result.Body = body
	result.ContentType = contentType
	return result
}

// doWithRetry runs do up to cfg.RetryAttempts+1 times, retrying on
// transport errors and on the retriable status set, with linear backoff
// retryDelay*k before attempt k.
func (f *Fetcher) doWithRetry(ctx context.Context, url string, do func() (*http.Response, error)) FetchResult {
	var lastErr error
	var lastResp *http.Response

	for attempt := 0; attempt <= f.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(f.cfg.RetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return classifyFetchError(url, ctx.Err(), time.Now(), 0)
			}
		}

		start := time.Now()
		resp, err := do()
		elapsed := time.Since(start)

		if err != nil {
			lastErr = err
			if !isRetriableError(err) {
				return classifyFetchError(url, err, time.Now(), elapsed)
			}
			continue
		}

		lastResp = resp
		if resp.Body != nil {
			resp.Body.Close()
		}

		if isRetriableStatus(resp.StatusCode) && attempt < f.cfg.RetryAttempts {
			continue
		}

		return FetchResult{
			StatusCode:   resp.StatusCode,
			ResponseTime: elapsed,
			CheckedAt:    time.Now(),
			IsWorking:    resp.StatusCode >= 200 && resp.StatusCode < 400,
			ErrorType:    classifyStatusErrorType(resp.StatusCode),
		}
	}

	if lastResp != nil {
		return FetchResult{
			StatusCode: lastResp.StatusCode,
			CheckedAt:  time.Now(),
			IsWorking:  false,
			ErrorType:  classifyStatusErrorType(lastResp.StatusCode),
		}
	}
	return classifyFetchError(url, lastErr, time.Now(), 0)
}

func isRetriableStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func isRetriableError(err error) bool {
	if err == nil {
		return false
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof") ||
		strings.Contains(msg, "no such host")
}

// classifyStatusErrorType maps an HTTP status code to the spec's error
// taxonomy: the common client/server codes get their own bucket, any
// other 4xx is stringified, and 2xx/3xx carry no error at all.
func classifyStatusErrorType(code int) string {
	switch code {
	case 200, 201, 202, 204, 301, 302, 303, 304, 307, 308:
		return ""
	case 404:
		return "404"
	case 403:
		return "403"
	case 401:
		return "401"
	case 500:
		return "500"
	default:
		if code >= 400 && code < 500 {
			return strconv.Itoa(code)
		}
		return "other"
	}
}

// classifyFetchError turns a transport-level error into a synthetic
// FetchResult carrying the right errorType.
func classifyFetchError(url string, err error, checkedAt time.Time, elapsed time.Duration) FetchResult {
	result := FetchResult{
		URL: url, CheckedAt: checkedAt, IsWorking: false, ResponseTime: elapsed,
	}
	if err == nil {
		result.ErrorType = "other"
		return result
	}

	msg := strings.ToLower(err.Error())
	switch {
	case isCertError(err, msg):
		result.ErrorType = "ssl_error"
	case isTimeoutError(err):
		result.ErrorType = "timeout"
	case isDNSError(err):
		result.ErrorType = "dns_error"
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset"):
		result.ErrorType = "connection_error"
	case strings.Contains(msg, "invalid") && strings.Contains(msg, "url"):
		result.ErrorType = "invalid_url"
	default:
		result.ErrorType = "other"
	}
	result.ErrorMessage = err.Error()
	return result
}

func isCertError(_ error, lowerMsg string) bool {
	for _, needle := range []string{"certificate", "self-signed", "x509", "expired cert", "hostname mismatch"} {
		if strings.Contains(lowerMsg, needle) {
			return true
		}
	}
	return false
}

func isTimeoutError(err error) bool {
	if netErr, ok := err.(net.Error); ok {
		return netErr.Timeout()
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

func isDNSError(err error) bool {
	if _, ok := err.(*net.DNSError); ok {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such host")
}
