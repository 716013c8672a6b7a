package middleware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Abhishek-J-Sudo/linksentry/middleware"
)

func TestRateLimitMiddleware_BlocksAfterQuotaExhausted(t *testing.T) {
	var called int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.RateLimitMiddleware(next)

	// classAnalyze allows 10 requests per window; use a fresh IP so this
	// test doesn't share a bucket with any other test in the package.
	ip := "203.0.113.5:54321"

	var lastCode int
	for i := 0; i < 12; i++ {
		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, lastCode)
	assert.LessOrEqual(t, called, 10)
}

func TestRateLimitMiddleware_SeparateIPsHaveIndependentBuckets(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.RateLimitMiddleware(next)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.RemoteAddr = fmt.Sprintf("198.51.100.%d:1111", i)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "each IP should get its own fresh quota")
	}
}

func TestRateLimitMiddleware_AlwaysAllowsOptions(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.RateLimitMiddleware(next)

	ip := "203.0.113.9:1"
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
		req.RemoteAddr = ip
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
