package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishek-J-Sudo/linksentry/handlers"
)

func postCrawl(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/crawl", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handlers.HandleCrawl(rec, req)
	return rec
}

func TestHandleCrawl_RejectsInvalidJSON(t *testing.T) {
	rec := postCrawl(t, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCrawl_RejectsMissingURL(t *testing.T) {
	rec := postCrawl(t, `{"maxDepth": 2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp["error"])
}

func TestHandleCrawl_RejectsSSRFTarget(t *testing.T) {
	rec := postCrawl(t, `{"url": "http://169.254.169.254/latest/meta-data"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SECURITY_BLOCKED", resp["error"])
}

func TestHandleCrawl_RejectsNonHTTPScheme(t *testing.T) {
	rec := postCrawl(t, `{"url": "ftp://example.com/file"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, "non-HTTP schemes are rejected by the safety gate before reaching validation")
}

func TestHandleCrawl_RejectsOutOfRangeDepth(t *testing.T) {
	rec := postCrawl(t, `{"url": "https://example.com", "maxDepth": 9}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "maxDepth")
}

func TestHandleCrawl_RejectsInvalidCrawlMode(t *testing.T) {
	rec := postCrawl(t, `{"url": "https://example.com", "crawlMode": "bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["message"], "crawlMode")
}

func TestHandleStopCrawl_UnknownJobReturnsNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/jobs/does-not-exist/stop", nil)
	req = muxSetVar(req, "id", "does-not-exist")
	rec := httptest.NewRecorder()

	handlers.HandleStopCrawl(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
