package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/services"
)

var jobStore = services.NewJobStore()

func jobIDParam(r *http.Request) string {
	return mux.Vars(r)["id"]
}

// HandleJobStatus handles the GET /jobs/{id} endpoint
// @Summary Get job status
// @Description Retrieves the current status and progress of a crawl job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.Job
// @Failure 404 {object} map[string]string
// @Security ApiKeyAuth
// @Router /jobs/{id} [get]
func HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)

	config.JobsMutex.RLock()
	job, exists := config.ActiveJobs[jobID]
	config.JobsMutex.RUnlock()
	if exists {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(job)
		return
	}

	job, err := jobStore.GetJob(jobID)
	if err != nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// HandleListLinks handles the GET /jobs/{id}/links endpoint
// @Summary List discovered links for a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Param status query string false "Filter by status (pending, checked)"
// @Param isWorking query bool false "Filter by working state"
// @Param linkType query string false "Filter by link type"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(50)
// @Success 200 {array} models.DiscoveredLink
// @Security ApiKeyAuth
// @Router /jobs/{id}/links [get]
func HandleListLinks(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	page, limit := pageAndLimit(r)

	filter := services.LinkFilter{
		Status:   r.URL.Query().Get("status"),
		LinkType: r.URL.Query().Get("linkType"),
	}
	if v := r.URL.Query().Get("isWorking"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			filter.IsWorking = &b
		}
	}

	links, err := jobStore.ListDiscoveredLinks(jobID, filter, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list discovered links")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(links)
}

// HandleListBroken handles the GET /jobs/{id}/broken endpoint
// @Summary List broken links for a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(50)
// @Success 200 {array} models.BrokenLink
// @Security ApiKeyAuth
// @Router /jobs/{id}/broken [get]
func HandleListBroken(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	page, limit := pageAndLimit(r)

	links, err := jobStore.ListBrokenLinks(jobID, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list broken links")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(links)
}

// HandleListSeo handles the GET /jobs/{id}/seo endpoint
// @Summary List SEO records for a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(50)
// @Success 200 {array} models.SeoRecord
// @Security ApiKeyAuth
// @Router /jobs/{id}/seo [get]
func HandleListSeo(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	page, limit := pageAndLimit(r)

	records, err := jobStore.ListSeoRecords(jobID, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list seo records")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// HandleJobSummary handles the GET /jobs/{id}/summary endpoint
// @Summary Aggregate counts for a job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} models.Summary
// @Security ApiKeyAuth
// @Router /jobs/{id}/summary [get]
func HandleJobSummary(w http.ResponseWriter, r *http.Request) {
	jobID := jobIDParam(r)
	summary, err := jobStore.GetSummary(jobID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to compute summary")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func pageAndLimit(r *http.Request) (int, int) {
	page := 1
	limit := 50
	if v := r.URL.Query().Get("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page = p
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			limit = l
		}
	}
	return page, limit
}
