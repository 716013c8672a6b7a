package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishek-J-Sudo/linksentry/handlers"
)

func TestHandleHealth_DegradedWithoutBackingServices(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handlers.HandleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, "health always returns 200, degraded state is in the body")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])

	services, ok := body["services"].(map[string]interface{})
	require.True(t, ok)
	mongo, ok := services["mongodb"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, false, mongo["ping"])
}
