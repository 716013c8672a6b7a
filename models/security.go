package models

import "time"

// Security event kinds written to the audit log.
const (
	EventRateLimitViolation = "rate_limit_violation"
	EventBlockedURL         = "blocked_url"
	EventRobotsBlocked      = "robots_blocked"
	EventInvalidInput       = "invalid_input"
	EventSuspiciousPattern  = "suspicious_pattern"
)

// Security event severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SecurityEvent is one append-only audit log row. Writers never block the
// caller on a failed write.
type SecurityEvent struct {
	EventType string    `json:"eventType" bson:"event_type"`
	IP        string    `json:"ip" bson:"ip"`
	UserAgent string    `json:"userAgent,omitempty" bson:"user_agent,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty" bson:"endpoint,omitempty"`
	Details   string    `json:"details,omitempty" bson:"details,omitempty"`
	Severity  string    `json:"severity" bson:"severity" enum:"low,medium,high,critical"`
	Blocked   bool      `json:"blocked" bson:"blocked"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
