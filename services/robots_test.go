package services_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Abhishek-J-Sudo/linksentry/services"
)

func TestConsultRobots_DisallowAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /\n"))
	}))
	defer server.Close()

	advice := services.ConsultRobots(server.URL)

	assert.False(t, advice.Allowed)
	assert.NotEmpty(t, advice.Reason)
}

func TestConsultRobots_AllowsWithCrawlDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nCrawl-delay: 2\nDisallow: /admin\n"))
	}))
	defer server.Close()

	advice := services.ConsultRobots(server.URL)

	assert.True(t, advice.Allowed)
	assert.GreaterOrEqual(t, advice.CrawlDelayMs, 1000)
	assert.Contains(t, advice.DisallowedPaths, "/admin")
}

func TestConsultRobots_MissingRobotsTxtDefaultsToAllowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	advice := services.ConsultRobots(server.URL)

	assert.True(t, advice.Allowed)
	assert.Equal(t, 1000, advice.CrawlDelayMs)
}

func TestConsultRobots_NetworkFailureDefaultsToAllowed(t *testing.T) {
	advice := services.ConsultRobots("http://127.0.0.1:1")

	assert.True(t, advice.Allowed)
	assert.Equal(t, 1000, advice.CrawlDelayMs)
}
