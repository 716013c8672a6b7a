package services_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Abhishek-J-Sudo/linksentry/services"
)

func newTestFetcher() *services.Fetcher {
	return services.NewFetcher(services.FetcherConfig{
		Timeout:       2 * time.Second,
		RetryAttempts: 1,
		RetryDelay:    10 * time.Millisecond,
	}, services.NewURLPolicy())
}

func TestFetcher_Check_WorkingPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	result := fetcher.Check(context.Background(), server.URL)

	assert.True(t, result.IsWorking)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Empty(t, result.ErrorType)
}

func TestFetcher_Check_404ClassifiedAsNotWorking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	result := fetcher.Check(context.Background(), server.URL)

	assert.False(t, result.IsWorking)
	assert.Equal(t, "404", result.ErrorType)
}

func TestFetcher_Check_HeadFailureFallsBackToRangedGet(t *testing.T) {
	var sawGet bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		sawGet = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	result := fetcher.Check(context.Background(), server.URL)

	assert.True(t, sawGet, "expected a GET fallback after the HEAD request failed")
	assert.True(t, result.IsWorking)
}

func TestFetcher_Check_RejectsUnsafeTargetWithoutNetworkCall(t *testing.T) {
	fetcher := newTestFetcher()
	result := fetcher.Check(context.Background(), "http://169.254.169.254/latest/meta-data")

	assert.False(t, result.IsWorking)
	assert.Equal(t, "security_blocked", result.ErrorType)
}

func TestFetcher_Fetch_ReturnsBodyForHTML(t *testing.T) {
	const page = "<html><head><title>T</title></head><body>hi</body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(page))
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	result := fetcher.Fetch(context.Background(), server.URL)

	assert.True(t, result.IsWorking)
	assert.Equal(t, page, result.Body)
}

func TestFetcher_Fetch_SkipsBodyForNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	result := fetcher.Fetch(context.Background(), server.URL)

	assert.True(t, result.IsWorking)
	assert.Empty(t, result.Body)
}

func TestFetcher_Check_RetriesRetriableStatus(t *testing.T) {
	// The first HEAD and its ranged-GET fallback both get 503, so a working
	// result needs a second attempt from the retry loop.
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fetcher := newTestFetcher()
	result := fetcher.Check(context.Background(), server.URL)

	assert.GreaterOrEqual(t, attempts, 3)
	assert.True(t, result.IsWorking)
}
