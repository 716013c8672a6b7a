package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/models"
	"github.com/Abhishek-J-Sudo/linksentry/services"
)

// endpointClass identifies one row of the rate-limit table.
type endpointClass string

const (
	classAnalyze    endpointClass = "analyze"
	classCrawlStart endpointClass = "crawl_start"
	classStatus     endpointClass = "status"
	classResults    endpointClass = "results"
	classHealth     endpointClass = "health"
	classGeneral    endpointClass = "general"
)

type classConfig struct {
	max       int
	window    time.Duration
	baseBlock time.Duration
}

var classConfigs = map[endpointClass]classConfig{
	classAnalyze:    {max: 10, window: 15 * time.Minute, baseBlock: 5 * time.Minute},
	classCrawlStart: {max: 20, window: 60 * time.Minute, baseBlock: 120 * time.Minute},
	classStatus:     {max: 5000, window: 60 * time.Minute, baseBlock: 5 * time.Minute},
	classResults:    {max: 500, window: 15 * time.Minute, baseBlock: 10 * time.Minute},
	classHealth:     {max: 2000, window: 5 * time.Minute, baseBlock: 2 * time.Minute},
	classGeneral:    {max: 200, window: 15 * time.Minute, baseBlock: 10 * time.Minute},
}

// bucketState pairs a token-bucket limiter (the admission check) with the
// violation bookkeeping the progressive-penalty rule needs (the block
// check). The limiter alone can't express "block for n*base minutes after
// the nth violation", so the two are kept side by side.
type bucketState struct {
	limiter      *rate.Limiter
	burst        int
	violations   int
	blockedUntil time.Time
}

// RateLimitStore is the single process-wide, per-(IP,endpoint) quota
// tracker described by the crawl-request rate-limit table. A horizontally
// scaled deployment would externalize this map to a shared cache; this
// process keeps it in memory behind one lock, same as the teacher's
// in-process ActiveJobs map.
type RateLimitStore struct {
	mu      sync.Mutex
	buckets map[string]*bucketState
}

var globalRateLimitStore = &RateLimitStore{buckets: make(map[string]*bucketState)}

// allow reports whether a request in class for ip may proceed. sizeMultiplier
// scales both the token bucket's burst/refill rate and (inversely, floored
// at 60s) the block duration, used by the status endpoint's job-size
// scaling rule.
func (s *RateLimitStore) allow(ip string, class endpointClass, sizeMultiplier int) (ok bool, retryAfter time.Duration, blockedUntil time.Time) {
	if sizeMultiplier < 1 {
		sizeMultiplier = 1
	}
	cfg := classConfigs[class]
	if cfg.max == 0 {
		cfg = classConfigs[classGeneral]
	}

	key := ip + "|" + string(class)
	burst := cfg.max * sizeMultiplier
	refillRate := rate.Limit(float64(burst) / cfg.window.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	state, exists := s.buckets[key]
	if !exists || state.burst != burst {
		state = &bucketState{limiter: rate.NewLimiter(refillRate, burst), burst: burst}
		if exists {
			state.violations = s.buckets[key].violations
			state.blockedUntil = s.buckets[key].blockedUntil
		}
		s.buckets[key] = state
	}

	if now.Before(state.blockedUntil) {
		return false, state.blockedUntil.Sub(now), state.blockedUntil
	}

	if state.limiter.AllowN(now, 1) {
		return true, 0, time.Time{}
	}

	state.violations++
	penalty := state.violations
	if penalty > 5 {
		penalty = 5
	}
	block := cfg.baseBlock * time.Duration(penalty)
	if sizeMultiplier > 1 {
		block = block / time.Duration(sizeMultiplier)
		if block < 60*time.Second {
			block = 60 * time.Second
		}
	}
	state.blockedUntil = now.Add(block)
	return false, block, state.blockedUntil
}

// classify maps a request's path and method to an endpoint class.
func classify(r *http.Request) endpointClass {
	path := r.URL.Path
	switch {
	case path == "/health":
		return classHealth
	case path == "/crawl" && r.Method == http.MethodPost:
		return classCrawlStart
	case strings.HasSuffix(path, "/links") || strings.HasSuffix(path, "/broken") || strings.HasSuffix(path, "/seo"):
		return classResults
	case strings.HasPrefix(path, "/jobs/") && strings.Count(path, "/") == 2:
		return classStatus
	case path == "/analyze":
		return classAnalyze
	default:
		return classGeneral
	}
}

// sizeMultiplier implements the status endpoint's job-size scaling rule:
// the quota widens (and the resulting block shortens) for jobs whose
// frontier has grown large or whose maxDepth is high.
func sizeMultiplier(r *http.Request, class endpointClass) int {
	if class != classStatus {
		return 1
	}
	jobID := jobIDFromPath(r.URL.Path)
	if jobID == "" {
		return 1
	}
	config.JobsMutex.RLock()
	job, ok := config.ActiveJobs[jobID]
	config.JobsMutex.RUnlock()
	if !ok {
		return 1
	}

	links := job.Progress.Total
	level := job.Settings.MaxDepth
	switch {
	case links > 1000 || level >= 5:
		return 6
	case links > 500 || level >= 4:
		return 4
	case links > 200 || level >= 3:
		return 2
	default:
		return 1
	}
}

func jobIDFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "jobs" {
		return parts[1]
	}
	return ""
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}

// RateLimitMiddleware enforces the process-wide per-(IP,endpoint) quotas.
// It sits after API key auth and before the handler.
func RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		class := classify(r)
		mult := sizeMultiplier(r, class)

		ok, retryAfter, blockedUntil := globalRateLimitStore.allow(ip, class, mult)
		if !ok {
			services.LogSecurityEvent(models.SecurityEvent{
				EventType: models.EventRateLimitViolation, IP: ip, Endpoint: r.URL.Path,
				UserAgent: r.UserAgent(), Severity: models.SeverityMedium, Blocked: true,
				Details: "exceeded " + string(class) + " quota",
			})

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", time.Duration(retryAfter).String())
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":        "RATE_LIMITED",
				"retryAfter":   retryAfter.Seconds(),
				"blockedUntil": blockedUntil.UTC(),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
