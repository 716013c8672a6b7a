package models

// Issue severities, ordered worst-to-best in how scoring applies them.
const (
	IssueCritical = "critical"
	IssueMajor    = "major"
	IssueWarning  = "warning"
	IssueMinor    = "minor"
)

// Issue is one deduction applied by the SEO Analyzer.
type Issue struct {
	Type    string `json:"type" bson:"type" enum:"critical,major,warning,minor"`
	Message string `json:"message" bson:"message"`
}

// SeoMetrics groups, per scoring rule, the raw extracted facts behind a
// score so a client can explain it without re-deriving it.
type SeoMetrics struct {
	Title struct {
		Text   string `json:"text"`
		Length int    `json:"length"`
	} `json:"title"`
	MetaDescription struct {
		Text   string `json:"text"`
		Length int    `json:"length"`
	} `json:"metaDescription"`
	Headings struct {
		H1 int `json:"h1"`
		H2 int `json:"h2"`
		H3 int `json:"h3"`
	} `json:"headings"`
	Images struct {
		Total       int `json:"total"`
		MissingAlt  int `json:"missingAlt"`
	} `json:"images"`
	Technical struct {
		HTTPS          bool `json:"https"`
		Canonical      bool `json:"canonical"`
		ResponseTimeMs int64 `json:"responseTimeMs"`
	} `json:"technical"`
	Content struct {
		WordCount int `json:"wordCount"`
	} `json:"content"`
}

// SeoRecord is written once per HTML content page when SEO analysis is
// enabled. Uniqueness is (JobID, URL).
type SeoRecord struct {
	JobID   string     `json:"jobId" bson:"job_id"`
	URL     string     `json:"url" bson:"url"`
	Score   int        `json:"score" bson:"score"`
	Grade   string     `json:"grade" bson:"grade" enum:"A,B,C,D,F"`
	Issues  []Issue    `json:"issues" bson:"issues"`
	Metrics SeoMetrics `json:"metrics" bson:"metrics"`
	Error   string     `json:"error,omitempty" bson:"error,omitempty"`
}
