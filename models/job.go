package models

import "time"

// Job status values. A job is terminal once it reaches completed, failed,
// or stopped. After creation the Orchestrator writes this field, except
// that startup recovery marks jobs left running as failed.
const (
	JobPending   = "pending"
	JobRunning   = "running"
	JobCompleted = "completed"
	JobFailed    = "failed"
	JobStopped   = "stopped"
)

// Crawl modes accepted in Settings.CrawlMode.
const (
	CrawlModeAuto             = "auto"
	CrawlModeContentPages     = "content_pages"
	CrawlModeDiscoveredLinks  = "discovered_links"
)

// Settings is immutable once a Job is created.
type Settings struct {
	MaxDepth        int    `json:"maxDepth" bson:"max_depth" example:"2"`
	IncludeExternal bool   `json:"includeExternal" bson:"include_external"`
	Timeout         int    `json:"timeout" bson:"timeout" example:"10000"`
	CrawlMode       string `json:"crawlMode" bson:"crawl_mode" example:"auto"`
	EnableSEO       bool   `json:"enableSEO" bson:"enable_seo"`
	RespectRobots   bool   `json:"respectRobots" bson:"respect_robots"`
}

// Progress is a point-in-time snapshot, always monotonic non-decreasing
// within a job.
type Progress struct {
	Current    int `json:"current" bson:"current"`
	Total      int `json:"total" bson:"total"`
	Percentage int `json:"percentage" bson:"percentage"`
}

// Job is one scan invocation, created by the API and mutated by the
// Orchestrator (and by startup recovery, which fails interrupted jobs).
type Job struct {
	ID          string     `json:"id" bson:"_id" example:"8f14e45f-ceea-467e-aae0-1234567890ab"`
	SeedURL     string     `json:"seedUrl" bson:"seed_url" example:"https://example.com"`
	Settings    Settings   `json:"settings" bson:"settings"`
	Status      string     `json:"status" bson:"status" example:"running" enum:"pending,running,completed,failed,stopped"`
	Progress    Progress   `json:"progress" bson:"progress"`
	Error       string     `json:"error,omitempty" bson:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" bson:"updated_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
}
