package services

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

const robotsFetchTimeout = 5 * time.Second

// RobotsAdvice is the result of consulting a site's robots.txt.
type RobotsAdvice struct {
	Allowed         bool
	CrawlDelayMs    int
	DisallowedPaths []string
	Reason          string
}

// ConsultRobots fetches baseURL's /robots.txt with a 5s timeout, finds the
// group that applies to this bot (matching "*" or any user-agent token
// containing "bot"), and returns the allow decision and crawl delay.
// Network failure is non-fatal: it yields an allow decision with the
// default 1s crawl delay, matching the teacher's "never let robots.txt
// fetch failures block a crawl" philosophy in its old ParseRobotsTxt.
func ConsultRobots(baseURL string) RobotsAdvice {
	robotsURL := robotsTxtURL(baseURL)

	client := &http.Client{Timeout: robotsFetchTimeout}
	req, err := http.NewRequest("GET", robotsURL, nil)
	if err != nil {
		log.Printf("[ROBOTS] failed to build request for %s: %v", robotsURL, err)
		return RobotsAdvice{Allowed: true, CrawlDelayMs: 1000}
	}
	setCrawlHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("[ROBOTS] fetch failed for %s: %v", robotsURL, err)
		return RobotsAdvice{Allowed: true, CrawlDelayMs: 1000}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("[ROBOTS] %s returned status %d, treating as no restrictions", robotsURL, resp.StatusCode)
		return RobotsAdvice{Allowed: true, CrawlDelayMs: 1000}
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		log.Printf("[ROBOTS] failed to parse %s: %v", robotsURL, err)
		return RobotsAdvice{Allowed: true, CrawlDelayMs: 1000}
	}

	group := findApplicableGroup(data)
	advice := RobotsAdvice{Allowed: true, CrawlDelayMs: 1000}

	if group != nil {
		if group.CrawlDelay > 0 {
			delayMs := int(group.CrawlDelay / time.Millisecond)
			if delayMs < 1000 {
				delayMs = 1000
			}
			advice.CrawlDelayMs = delayMs
		}
		for _, rule := range group.Rules {
			if rule.Allow {
				continue
			}
			advice.DisallowedPaths = append(advice.DisallowedPaths, rule.Path)
			if rule.Path == "/" {
				advice.Allowed = false
				advice.Reason = "Robots.txt disallows all crawling"
			}
		}
	}

	return advice
}

// findApplicableGroup picks the group matching "*" or a user-agent token
// containing "bot", the same matching rule the spec calls for.
func findApplicableGroup(data *robotstxt.RobotsData) *robotstxt.Group {
	if g := data.FindGroup("*"); g != nil && len(g.Rules) > 0 {
		return g
	}
	for _, candidate := range []string{"bot", "Bot", "linksentrybot"} {
		if g := data.FindGroup(candidate); g != nil && len(g.Rules) > 0 {
			return g
		}
	}
	return data.FindGroup("*")
}

func robotsTxtURL(baseURL string) string {
	trimmed := strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/robots.txt", trimmed)
}
