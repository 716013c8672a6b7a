package services

import (
	"context"
	"log"
	"time"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/models"
)

// LogSecurityEvent appends one row to the audit log. It never blocks or
// fails the caller: a write failure is logged and swallowed, mirroring
// the teacher's fire-and-forget PublishCrawlEvent.
func LogSecurityEvent(event models.SecurityEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	go func() {
		if config.SecurityEventsCollection == nil {
			log.Printf("[SECURITY] %s ip=%s endpoint=%s blocked=%v details=%s",
				event.EventType, event.IP, event.Endpoint, event.Blocked, event.Details)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if _, err := config.SecurityEventsCollection.InsertOne(ctx, event); err != nil {
			log.Printf("[SECURITY] failed to persist audit event: %v", err)
		}
	}()
}
