package services

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/models"
)

const (
	discoveryMaxPages      = 500
	discoveryBatchSize     = 5
	discoveryMaxConcurrent = 3
	targetedMaxConcurrent  = 4
	targetedBatchSize      = 20
	defaultPoliteDelayMs   = 200
	minPoliteDelayMs       = 100
	targetedInterBatchMs   = 500
)

type frontierEntry struct {
	URL       string
	Depth     int
	SourceURL string
}

// jobRunner owns all in-memory state for one running job. Every field
// below is mutated only while holding mu, except cancelled which is read
// and written atomically from Stop() and the run loop.
type jobRunner struct {
	jobID    string
	seedURL  string
	settings models.Settings

	mu         sync.Mutex
	visited    map[string]bool
	inFrontier map[string]bool
	frontier   []frontierEntry
	processed  int
	discovered int
	broken     int

	cancelled int32
	cancel    context.CancelFunc
}

func (j *jobRunner) isCancelled() bool { return atomic.LoadInt32(&j.cancelled) == 1 }

func (j *jobRunner) stop() {
	atomic.StoreInt32(&j.cancelled, 1)
	if j.cancel != nil {
		j.cancel()
	}
}

// Orchestrator drives Discovery and Targeted crawl strategies over the
// URL Policy, Fetcher, Link Extractor, SEO Analyzer, and Job Store. One
// supervising goroutine runs per job; the Orchestrator itself only owns
// the jobID -> jobRunner registry used to route Stop() calls.
type Orchestrator struct {
	store  *JobStore
	policy *URLPolicy

	mu      sync.Mutex
	runners map[string]*jobRunner
}

func NewOrchestrator(store *JobStore) *Orchestrator {
	return &Orchestrator{
		store:   store,
		policy:  NewURLPolicy(),
		runners: make(map[string]*jobRunner),
	}
}

// Start launches the appropriate strategy for job in a new goroutine and
// returns immediately. The caller (the /crawl handler) has already
// persisted and registered the job as running.
func (o *Orchestrator) Start(job *models.Job, preAnalyzed []models.PreAnalyzedURL) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &jobRunner{
		jobID:      job.ID,
		seedURL:    job.SeedURL,
		settings:   job.Settings,
		visited:    make(map[string]bool),
		inFrontier: make(map[string]bool),
		cancel:     cancel,
	}

	o.mu.Lock()
	o.runners[job.ID] = runner
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			delete(o.runners, job.ID)
			o.mu.Unlock()
		}()

		var err error
		if len(preAnalyzed) > 0 {
			err = o.runTargeted(ctx, runner, preAnalyzed)
		} else {
			err = o.runDiscovery(ctx, runner)
		}

		o.finalize(runner, err)
	}()
}

// Stop flips a running job's cancellation flag. The job transitions to
// stopped at its next quiescent point; in-flight requests are allowed to
// finish.
func (o *Orchestrator) Stop(jobID string) bool {
	o.mu.Lock()
	runner, ok := o.runners[jobID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	runner.stop()
	return true
}

func (o *Orchestrator) finalize(runner *jobRunner, err error) {
	status := models.JobCompleted
	errMsg := ""
	eventType := "completed"

	switch {
	case err != nil:
		status = models.JobFailed
		errMsg = err.Error()
		eventType = "error"
	case runner.isCancelled():
		status = models.JobStopped
		eventType = "stopped"
	}

	if storeErr := o.store.SetStatus(runner.jobID, status, errMsg); storeErr != nil {
		log.Printf("[ORCHESTRATOR] failed to persist final status for job %s: %v", runner.jobID, storeErr)
	}

	config.JobsMutex.Lock()
	if job, ok := config.ActiveJobs[runner.jobID]; ok {
		job.Status = status
		job.Error = errMsg
		job.UpdatedAt = time.Now()
		now := time.Now()
		job.CompletedAt = &now
	}
	config.JobsMutex.Unlock()

	PublishCrawlEvent(models.CrawlEvent{
		Type: eventType, JobID: runner.jobID, Timestamp: time.Now(),
		Error: errMsg, Total: runner.discovered, Current: runner.processed,
	})
	log.Printf("[ORCHESTRATOR] job %s finished with status=%s processed=%d discovered=%d broken=%d",
		runner.jobID, status, runner.processed, runner.discovered, runner.broken)
}

func (o *Orchestrator) setProgress(jobID string, current, total int) {
	if total < current {
		total = current
	}
	if err := o.store.SetProgress(jobID, current, total); err != nil {
		log.Printf("[ORCHESTRATOR] failed to persist progress for job %s: %v", jobID, err)
	}
	percentage := 0
	if total > 0 {
		percentage = int(float64(current) / float64(total) * 100.0)
	}
	config.JobsMutex.Lock()
	if job, ok := config.ActiveJobs[jobID]; ok {
		job.Progress = models.Progress{Current: current, Total: total, Percentage: percentage}
	}
	config.JobsMutex.Unlock()
	PublishCrawlEvent(models.CrawlEvent{Type: "progress", JobID: jobID, Timestamp: time.Now(), Current: current, Total: total})
}

// runDiscovery implements the BFS strategy described in §4.7.4.
func (o *Orchestrator) runDiscovery(ctx context.Context, runner *jobRunner) error {
	seed, err := o.policy.Normalize(runner.seedURL)
	if err != nil {
		return fmt.Errorf("invalid seed url: %w", err)
	}
	runner.frontier = append(runner.frontier, frontierEntry{URL: seed, Depth: 0})
	runner.inFrontier[seed] = true

	advice := RobotsAdvice{Allowed: true, CrawlDelayMs: 1000}
	if runner.settings.RespectRobots {
		origin, err := originOf(seed)
		if err == nil {
			advice = ConsultRobots(origin)
		}
		if !advice.Allowed {
			LogSecurityEvent(models.SecurityEvent{
				EventType: models.EventRobotsBlocked, Details: advice.Reason,
				Severity: models.SeverityLow, Blocked: true, Endpoint: "orchestrator",
			})
			o.setProgress(runner.jobID, 0, 0)
			return nil
		}
	}

	fetcher := NewFetcher(FetcherConfig{
		Timeout:       time.Duration(runner.settings.Timeout) * time.Millisecond,
		MaxConcurrent: discoveryMaxConcurrent,
		RetryAttempts: 2,
	}, o.policy)
	extractor := NewLinkExtractor(o.policy, runner.settings.IncludeExternal, false)
	seoAnalyzer := NewSeoAnalyzer()

	politeDelay := defaultPoliteDelayMs
	if advice.CrawlDelayMs > politeDelay {
		politeDelay = advice.CrawlDelayMs
	}
	if politeDelay < minPoliteDelayMs {
		politeDelay = minPoliteDelayMs
	}

	for !runner.isCancelled() {
		remaining := discoveryMaxPages - runner.processed
		if remaining <= 0 {
			break
		}
		batchSize := discoveryBatchSize
		if remaining < batchSize {
			batchSize = remaining
		}
		batch := runner.popBatch(batchSize)
		if len(batch) == 0 {
			break
		}

		urls := make([]string, len(batch))
		entryByURL := make(map[string]frontierEntry, len(batch))
		for i, e := range batch {
			urls[i] = e.URL
			entryByURL[e.URL] = e
		}

		RunBounded(ctx, discoveryMaxConcurrent, urls, func(ctx context.Context, u string) {
			o.processDiscoveryEntry(ctx, runner, entryByURL[u], fetcher, extractor, seoAnalyzer, seed)
		})

		o.setProgress(runner.jobID, runner.processed, maxInt(runner.processed, runner.discovered))

		if runner.isCancelled() {
			break
		}
		select {
		case <-time.After(time.Duration(politeDelay) * time.Millisecond):
		case <-ctx.Done():
			return nil
		}
	}

	return nil
}

func (o *Orchestrator) processDiscoveryEntry(
	ctx context.Context, runner *jobRunner, entry frontierEntry,
	fetcher *Fetcher, extractor *LinkExtractor, seoAnalyzer *SeoAnalyzer, seed string,
) {
	runner.mu.Lock()
	runner.visited[entry.URL] = true
	runner.processed++
	runner.mu.Unlock()

	isInternal := o.policy.IsInternal(entry.URL, seed)
	link := models.DiscoveredLink{
		JobID: runner.jobID, URL: entry.URL, SourceURL: entry.SourceURL,
		IsInternal: isInternal, Depth: entry.Depth, Status: models.LinkPending,
	}
	if err := o.store.UpsertDiscoveredLinks(runner.jobID, []models.DiscoveredLink{link}); err != nil {
		log.Printf("[ORCHESTRATOR] failed to upsert discovered link %s: %v", entry.URL, err)
	}

	checkResult := fetcher.Check(ctx, entry.URL)
	o.recordCheck(runner, entry.URL, entry.SourceURL, checkResult)

	if !checkResult.IsWorking || !isInternal || entry.Depth >= runner.settings.MaxDepth {
		return
	}

	fetchResult := fetcher.Fetch(ctx, entry.URL)
	if fetchResult.Body == "" {
		return
	}

	extraction, err := extractor.Extract(fetchResult.Body, entry.URL, entry.Depth)
	if err != nil {
		log.Printf("[ORCHESTRATOR] link extraction failed for %s: %v", entry.URL, err)
	} else {
		runner.mu.Lock()
		for _, l := range extraction.Links {
			if !l.IsInternal && !runner.settings.IncludeExternal {
				continue
			}
			if l.Depth > runner.settings.MaxDepth {
				continue
			}
			if runner.visited[l.URL] || runner.inFrontier[l.URL] {
				continue
			}
			runner.frontier = append(runner.frontier, frontierEntry{URL: l.URL, Depth: l.Depth, SourceURL: entry.URL})
			runner.inFrontier[l.URL] = true
			runner.discovered++
		}
		runner.mu.Unlock()
	}

	if runner.settings.EnableSEO {
		record := seoAnalyzer.Analyze(fetchResult.Body, entry.URL, fetchResult.ResponseTime)
		record.JobID = runner.jobID
		if err := o.store.UpsertSeoRecord(record); err != nil {
			log.Printf("[ORCHESTRATOR] failed to upsert seo record for %s: %v", entry.URL, err)
		}
	}
}

func (o *Orchestrator) recordCheck(runner *jobRunner, urlStr, sourceURL string, result FetchResult) {
	upd := DiscoveredLinkCheckUpdate{
		Status: models.LinkChecked, HTTPStatusCode: result.StatusCode,
		ResponseTime: result.ResponseTime.Milliseconds(), CheckedAt: time.Now(),
		IsWorking: result.IsWorking, ErrorMessage: result.ErrorMessage,
	}
	if err := o.store.UpdateDiscoveredLinkCheck(runner.jobID, urlStr, upd); err != nil {
		log.Printf("[ORCHESTRATOR] failed to record check for %s: %v", urlStr, err)
	}

	if !result.IsWorking {
		runner.mu.Lock()
		runner.broken++
		runner.mu.Unlock()

		if err := o.store.AddBrokenLink(models.BrokenLink{
			JobID: runner.jobID, URL: urlStr, SourceURL: sourceURL,
			StatusCode: result.StatusCode, ErrorType: errorTypeOrDefault(result.ErrorType),
		}); err != nil {
			log.Printf("[ORCHESTRATOR] failed to write broken link %s: %v", urlStr, err)
		}
		PublishCrawlEvent(models.CrawlEvent{Type: "broken", JobID: runner.jobID, URL: urlStr, Timestamp: time.Now()})
	} else {
		PublishCrawlEvent(models.CrawlEvent{Type: "checked", JobID: runner.jobID, URL: urlStr, Timestamp: time.Now()})
	}
}

func errorTypeOrDefault(errType string) string {
	if errType == "" {
		return "other"
	}
	return errType
}

// popBatch removes and returns up to n entries from the front of the
// frontier, serialized under runner.mu.
func (j *jobRunner) popBatch(n int) []frontierEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.frontier) == 0 {
		return nil
	}
	if n > len(j.frontier) {
		n = len(j.frontier)
	}
	batch := make([]frontierEntry, n)
	copy(batch, j.frontier[:n])
	j.frontier = j.frontier[n:]
	for _, e := range batch {
		delete(j.inFrontier, e.URL)
	}
	return batch
}

// runTargeted implements the Targeted strategy described in §4.7.5: an
// optional link-extraction phase over caller-flagged content pages,
// followed by batched checking of the deduplicated URL set.
func (o *Orchestrator) runTargeted(ctx context.Context, runner *jobRunner, preAnalyzed []models.PreAnalyzedURL) error {
	fetcher := NewFetcher(FetcherConfig{
		Timeout:       time.Duration(runner.settings.Timeout) * time.Millisecond,
		MaxConcurrent: targetedMaxConcurrent,
		RetryAttempts: 2,
	}, o.policy)
	extractor := NewLinkExtractor(o.policy, runner.settings.IncludeExternal, false)

	type dedupEntry struct {
		url       string
		sourceURL string
	}
	dedup := make(map[string]dedupEntry)

	for _, pa := range preAnalyzed {
		normalized, err := o.policy.Normalize(pa.URL)
		if err != nil {
			continue
		}
		if _, exists := dedup[normalized]; !exists {
			dedup[normalized] = dedupEntry{url: normalized, sourceURL: pa.SourceURL}
		}
	}

	// Phase A: extract links from caller-flagged content pages.
	contentPageURLs := make([]string, 0)
	for _, pa := range preAnalyzed {
		if pa.IsContentPage {
			if normalized, err := o.policy.Normalize(pa.URL); err == nil {
				contentPageURLs = append(contentPageURLs, normalized)
			}
		}
	}

	if len(contentPageURLs) > 0 {
		var mu sync.Mutex
		RunBounded(ctx, targetedMaxConcurrent, contentPageURLs, func(ctx context.Context, pageURL string) {
			if runner.isCancelled() {
				return
			}
			result := fetcher.Fetch(ctx, pageURL)
			if result.Body == "" {
				return
			}
			extraction, err := extractor.Extract(result.Body, pageURL, 0)
			if err != nil {
				log.Printf("[ORCHESTRATOR] targeted extraction failed for %s: %v", pageURL, err)
				return
			}
			mu.Lock()
			for _, l := range extraction.Links {
				if _, exists := dedup[l.URL]; !exists {
					dedup[l.URL] = dedupEntry{url: l.URL, sourceURL: pageURL}
				}
			}
			mu.Unlock()
		})
	}

	total := len(dedup)
	urls := make([]string, 0, total)
	for u, e := range dedup {
		urls = append(urls, u)
		// Targeted mode treats every supplied/extracted URL as in-scope
		// regardless of origin host.
		link := models.DiscoveredLink{
			JobID: runner.jobID, URL: u, SourceURL: e.sourceURL,
			IsInternal: true, Status: models.LinkPending,
		}
		if err := o.store.UpsertDiscoveredLinks(runner.jobID, []models.DiscoveredLink{link}); err != nil {
			log.Printf("[ORCHESTRATOR] failed to upsert targeted link %s: %v", u, err)
		}
	}

	checked := 0
	for start := 0; start < len(urls); start += targetedBatchSize {
		if runner.isCancelled() {
			break
		}
		end := start + targetedBatchSize
		if end > len(urls) {
			end = len(urls)
		}
		batch := urls[start:end]

		RunBounded(ctx, targetedMaxConcurrent, batch, func(ctx context.Context, u string) {
			result := fetcher.Check(ctx, u)
			o.recordCheck(runner, u, dedup[u].sourceURL, result)
		})

		checked += len(batch)
		runner.mu.Lock()
		runner.processed = checked
		runner.mu.Unlock()
		o.setProgress(runner.jobID, checked, total)

		if end < len(urls) {
			select {
			case <-time.After(targetedInterBatchMs * time.Millisecond):
			case <-ctx.Done():
				return nil
			}
		}
	}

	return nil
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
