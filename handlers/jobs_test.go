package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/handlers"
	"github.com/Abhishek-J-Sudo/linksentry/models"
)

func TestHandleJobStatus_ServesFromActiveJobsWithoutTouchingMongo(t *testing.T) {
	job := &models.Job{
		ID:        "job-in-memory",
		SeedURL:   "https://example.com",
		Status:    models.JobRunning,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	config.JobsMutex.Lock()
	config.ActiveJobs[job.ID] = job
	config.JobsMutex.Unlock()
	defer func() {
		config.JobsMutex.Lock()
		delete(config.ActiveJobs, job.ID)
		config.JobsMutex.Unlock()
	}()

	req := httptest.NewRequest(http.MethodGet, "/jobs/job-in-memory", nil)
	req = muxSetVar(req, "id", "job-in-memory")
	rec := httptest.NewRecorder()

	handlers.HandleJobStatus(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.SeedURL, got.SeedURL)
}

func TestHandleJobStatus_UnknownJobWithoutMongoReturnsNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/jobs/never-existed", nil)
	req = muxSetVar(req, "id", "never-existed")
	rec := httptest.NewRecorder()

	handlers.HandleJobStatus(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleJobSummary_WithoutMongoReturnsInternalError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/jobs/any/summary", nil)
	req = muxSetVar(req, "id", "any")
	rec := httptest.NewRecorder()

	handlers.HandleJobSummary(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
