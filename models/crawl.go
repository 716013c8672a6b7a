package models

import "time"

// DiscoveredLink status values.
const (
	LinkPending = "pending"
	LinkChecked = "checked"
)

// DiscoveredLink records one URL seen during a job. Uniqueness is
// (JobID, URL); it is created once on discovery and mutated exactly once,
// when its check result lands.
type DiscoveredLink struct {
	JobID           string     `json:"jobId" bson:"job_id"`
	URL             string     `json:"url" bson:"url"`
	SourceURL       string     `json:"sourceUrl,omitempty" bson:"source_url,omitempty"`
	IsInternal      bool       `json:"isInternal" bson:"is_internal"`
	Depth           int        `json:"depth" bson:"depth"`
	Status          string     `json:"status" bson:"status" enum:"pending,checked"`
	LinkType        string     `json:"linkType,omitempty" bson:"link_type,omitempty"`
	HTTPStatusCode  int        `json:"httpStatusCode,omitempty" bson:"http_status_code,omitempty"`
	ResponseTime    int64      `json:"responseTime,omitempty" bson:"response_time_ms,omitempty"`
	CheckedAt       *time.Time `json:"checkedAt,omitempty" bson:"checked_at,omitempty"`
	IsWorking       bool       `json:"isWorking" bson:"is_working"`
	ErrorMessage    string     `json:"errorMessage,omitempty" bson:"error_message,omitempty"`
}

// BrokenLink is append-only: one row per check that concluded a URL is not
// working.
type BrokenLink struct {
	JobID     string    `json:"jobId" bson:"job_id"`
	URL       string    `json:"url" bson:"url"`
	SourceURL string    `json:"sourceUrl,omitempty" bson:"source_url,omitempty"`
	StatusCode int      `json:"statusCode,omitempty" bson:"status_code,omitempty"`
	ErrorType string    `json:"errorType" bson:"error_type"`
	LinkText  string    `json:"linkText,omitempty" bson:"link_text,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// PreAnalyzedURL is one entry of a Targeted-strategy request.
type PreAnalyzedURL struct {
	URL         string `json:"url" example:"https://example.com/blog/post-1"`
	SourceURL   string `json:"sourceUrl,omitempty"`
	Category    string `json:"category,omitempty" example:"content_pages"`
	IsContentPage bool `json:"isContentPage,omitempty"`
}

// CrawlRequest is the POST /crawl request body.
type CrawlRequest struct {
	URL             string           `json:"url" example:"https://example.com" binding:"required"`
	MaxDepth        int              `json:"maxDepth,omitempty" example:"2"`
	IncludeExternal bool             `json:"includeExternal,omitempty"`
	Timeout         int              `json:"timeout,omitempty" example:"10000"`
	CrawlMode       string           `json:"crawlMode,omitempty" example:"auto"`
	EnableSEO       bool             `json:"enableSEO,omitempty" example:"true"`
	RespectRobots   *bool            `json:"respectRobots,omitempty"`
	PreAnalyzedURLs []PreAnalyzedURL `json:"preAnalyzedUrls,omitempty"`
}

// CrawlResponse is the immediate POST /crawl response.
type CrawlResponse struct {
	JobID   string `json:"jobId" example:"8f14e45f-ceea-467e-aae0-1234567890ab"`
	Status  string `json:"status" example:"accepted"`
	Message string `json:"message" example:"crawl job started"`
}

// Summary is the aggregate view returned alongside a completed job.
type Summary struct {
	JobID          string `json:"jobId"`
	TotalDiscovered int   `json:"totalDiscovered"`
	TotalBroken    int    `json:"totalBroken"`
	TotalSeoRecords int   `json:"totalSeoRecords"`
}
