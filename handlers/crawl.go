package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/models"
	"github.com/Abhishek-J-Sudo/linksentry/services"
)

var (
	orchestrator = services.NewOrchestrator(services.NewJobStore())
	policy       = services.NewURLPolicy()
)

// HandleCrawl handles the POST /crawl endpoint
// @Summary Start a new crawl job
// @Description Starts a broken-link scan and optional on-page SEO analysis for a seed URL
// @Tags crawl
// @Accept json
// @Produce json
// @Param request body models.CrawlRequest true "Crawl parameters"
// @Success 200 {object} models.CrawlResponse
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Security ApiKeyAuth
// @Router /crawl [post]
func HandleCrawl(w http.ResponseWriter, r *http.Request) {
	var req models.CrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body")
		return
	}

	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "url is required")
		return
	}

	if safe, reason := policy.IsSafe(req.URL); !safe {
		services.LogSecurityEvent(models.SecurityEvent{
			EventType: models.EventBlockedURL, IP: clientIPFor(r), Endpoint: "/crawl",
			Details: reason, Severity: models.SeverityHigh, Blocked: true,
		})
		writeError(w, http.StatusForbidden, "SECURITY_BLOCKED", reason)
		return
	}
	if !policy.IsValid(req.URL) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "url must be a parsable http(s) URL")
		return
	}

	settings := models.Settings{
		MaxDepth:        req.MaxDepth,
		IncludeExternal: req.IncludeExternal,
		Timeout:         req.Timeout,
		CrawlMode:       req.CrawlMode,
		EnableSEO:       req.EnableSEO,
		RespectRobots:   true,
	}
	if req.RespectRobots != nil {
		settings.RespectRobots = *req.RespectRobots
	}
	if settings.MaxDepth == 0 {
		settings.MaxDepth = 2
	}
	if settings.Timeout == 0 {
		settings.Timeout = 10000
	}
	if settings.CrawlMode == "" {
		settings.CrawlMode = models.CrawlModeAuto
	}

	if err := validateSettings(settings); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	for _, pa := range req.PreAnalyzedURLs {
		if safe, reason := policy.IsSafe(pa.URL); !safe {
			services.LogSecurityEvent(models.SecurityEvent{
				EventType: models.EventBlockedURL, IP: clientIPFor(r), Endpoint: "/crawl",
				Details: reason, Severity: models.SeverityHigh, Blocked: true,
			})
			writeError(w, http.StatusForbidden, "SECURITY_BLOCKED", "preAnalyzedUrls: "+reason)
			return
		}
	}

	jobID := uuid.NewString()
	now := time.Now()
	job := &models.Job{
		ID: jobID, SeedURL: req.URL, Settings: settings,
		Status: models.JobRunning, CreatedAt: now, UpdatedAt: now,
	}

	store := services.NewJobStore()
	if err := store.CreateJob(job); err != nil {
		log.Printf("[CRAWL API] WARNING: failed to persist job %s: %v", jobID, err)
	}

	config.JobsMutex.Lock()
	config.ActiveJobs[jobID] = job
	config.JobsMutex.Unlock()

	orchestrator.Start(job, req.PreAnalyzedURLs)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CrawlResponse{
		JobID: jobID, Status: "accepted", Message: "crawl job started",
	})
}

// HandleStopCrawl handles the POST /jobs/{id}/stop endpoint
// @Summary Stop a running crawl job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /jobs/{id}/stop [post]
func HandleStopCrawl(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	if !orchestrator.Stop(jobID) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found or already finished")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"jobId": jobID, "status": "stopping"})
}

func validateSettings(s models.Settings) error {
	if s.MaxDepth < 1 || s.MaxDepth > 5 {
		return errInvalid("settings.maxDepth must be between 1 and 5")
	}
	if s.Timeout < 1000 || s.Timeout > 30000 {
		return errInvalid("settings.timeout must be between 1000 and 30000")
	}
	switch s.CrawlMode {
	case models.CrawlModeAuto, models.CrawlModeContentPages, models.CrawlModeDiscoveredLinks:
	default:
		return errInvalid("settings.crawlMode must be one of auto, content_pages, discovered_links")
	}
	return nil
}

type validationError string

func (e validationError) Error() string { return string(e) }
func errInvalid(msg string) error       { return validationError(msg) }

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

func clientIPFor(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
