package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/models"
)

// jobRetentionSeconds is the TTL of the created_at indexes on jobs and the
// three child collections, generalized from the teacher's 24-hour
// CreateJobsTTLIndex to a 30-day retention window. Only documents that carry
// created_at expire: jobs and broken links do; discovered-link and SEO rows
// are written without it, so their TTL index removes nothing.
const jobRetentionSeconds = 30 * 24 * 60 * 60

// InitMongoDB connects to MongoDB and wires up the four collections the
// Job Store Adapter depends on, creating their TTL indexes.
func InitMongoDB(mongoURI, dbName string) error {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(context.Background(), nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	config.MongoClient = client
	db := client.Database(dbName)
	config.JobsCollection = db.Collection("jobs")
	config.DiscoveredLinksCollection = db.Collection("discovered_links")
	config.BrokenLinksCollection = db.Collection("broken_links")
	config.SeoRecordsCollection = db.Collection("seo_records")
	config.SecurityEventsCollection = db.Collection("security_events")

	log.Printf("[JOBSTORE] Connected to MongoDB: %s/%s", mongoURI, dbName)

	if err := createTTLIndexes(); err != nil {
		log.Printf("[JOBSTORE] WARNING: failed to create TTL indexes: %v", err)
	}
	if err := createUniqueIndexes(); err != nil {
		log.Printf("[JOBSTORE] WARNING: failed to create uniqueness indexes: %v", err)
	}

	return nil
}

func createTTLIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ttlIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(jobRetentionSeconds),
	}

	for _, coll := range []*mongo.Collection{
		config.JobsCollection, config.DiscoveredLinksCollection,
		config.BrokenLinksCollection, config.SeoRecordsCollection,
	} {
		if coll == nil {
			continue
		}
		if _, err := coll.Indexes().CreateOne(ctx, ttlIndex); err != nil {
			return err
		}
	}
	log.Printf("[JOBSTORE] Created 30-day TTL indexes on jobs and cascaded collections")
	return nil
}

func createUniqueIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if config.DiscoveredLinksCollection != nil {
		_, err := config.DiscoveredLinksCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return err
		}
	}
	if config.SeoRecordsCollection != nil {
		_, err := config.SeoRecordsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "job_id", Value: 1}, {Key: "url", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// JobStore is the Job Store Adapter: the only component allowed to mutate
// persisted rows for a job.
type JobStore struct{}

func NewJobStore() *JobStore { return &JobStore{} }

func (s *JobStore) CreateJob(job *models.Job) error {
	if config.JobsCollection == nil {
		return fmt.Errorf("jobs collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := config.JobsCollection.InsertOne(ctx, job)
	return err
}

func (s *JobStore) SetStatus(jobID, status, errorMessage string) error {
	if config.JobsCollection == nil {
		return fmt.Errorf("jobs collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	update := bson.M{"status": status, "updated_at": time.Now()}
	if errorMessage != "" {
		update["error"] = errorMessage
	}
	if status == models.JobCompleted || status == models.JobFailed || status == models.JobStopped {
		now := time.Now()
		update["completed_at"] = now
	}

	_, err := config.JobsCollection.UpdateOne(ctx, bson.M{"_id": jobID}, bson.M{"$set": update})
	return err
}

func (s *JobStore) SetProgress(jobID string, current, total int) error {
	if config.JobsCollection == nil {
		return fmt.Errorf("jobs collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	percentage := 0
	if total > 0 {
		percentage = int(float64(current) / float64(total) * 100.0)
	}

	update := bson.M{
		"progress.current":    current,
		"progress.total":      total,
		"progress.percentage": percentage,
		"updated_at":          time.Now(),
	}
	_, err := config.JobsCollection.UpdateOne(ctx, bson.M{"_id": jobID}, bson.M{"$set": update})
	return err
}

// UpsertDiscoveredLinks writes each link's first-seen row. The unique
// index on (job_id, url) plus an upserting $setOnInsert makes
// concurrent duplicate discovery idempotent: whichever worker arrives
// first wins, and later arrivals are silent no-ops.
func (s *JobStore) UpsertDiscoveredLinks(jobID string, links []models.DiscoveredLink) error {
	if config.DiscoveredLinksCollection == nil {
		return fmt.Errorf("discovered links collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	for _, link := range links {
		link.JobID = jobID
		filter := bson.M{"job_id": jobID, "url": link.URL}
		update := bson.M{"$setOnInsert": link}
		opts := options.Update().SetUpsert(true)
		if _, err := config.DiscoveredLinksCollection.UpdateOne(ctx, filter, update, opts); err != nil {
			return err
		}
	}
	return nil
}

type DiscoveredLinkCheckUpdate struct {
	Status         string
	HTTPStatusCode int
	ResponseTime   int64
	CheckedAt      time.Time
	IsWorking      bool
	ErrorMessage   string
	LinkType       string
}

func (s *JobStore) UpdateDiscoveredLinkCheck(jobID, url string, upd DiscoveredLinkCheckUpdate) error {
	if config.DiscoveredLinksCollection == nil {
		return fmt.Errorf("discovered links collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	set := bson.M{
		"status":            upd.Status,
		"http_status_code":  upd.HTTPStatusCode,
		"response_time_ms":  upd.ResponseTime,
		"checked_at":        upd.CheckedAt,
		"is_working":        upd.IsWorking,
	}
	if upd.ErrorMessage != "" {
		set["error_message"] = upd.ErrorMessage
	}
	if upd.LinkType != "" {
		set["link_type"] = upd.LinkType
	}

	_, err := config.DiscoveredLinksCollection.UpdateOne(ctx,
		bson.M{"job_id": jobID, "url": url},
		bson.M{"$set": set},
	)
	return err
}

func (s *JobStore) AddBrokenLink(link models.BrokenLink) error {
	if config.BrokenLinksCollection == nil {
		return fmt.Errorf("broken links collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}
	_, err := config.BrokenLinksCollection.InsertOne(ctx, link)
	return err
}

func (s *JobStore) UpsertSeoRecord(record models.SeoRecord) error {
	if config.SeoRecordsCollection == nil {
		return fmt.Errorf("seo records collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	filter := bson.M{"job_id": record.JobID, "url": record.URL}
	update := bson.M{"$set": record}
	opts := options.Update().SetUpsert(true)
	_, err := config.SeoRecordsCollection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (s *JobStore) GetJob(jobID string) (*models.Job, error) {
	if config.JobsCollection == nil {
		return nil, fmt.Errorf("jobs collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var job models.Job
	err := config.JobsCollection.FindOne(ctx, bson.M{"_id": jobID}).Decode(&job)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// LinkFilter narrows ListDiscoveredLinks.
type LinkFilter struct {
	Status     string
	IsWorking  *bool
	LinkType   string
}

func (s *JobStore) ListDiscoveredLinks(jobID string, filter LinkFilter, page, limit int) ([]models.DiscoveredLink, error) {
	if config.DiscoveredLinksCollection == nil {
		return nil, fmt.Errorf("discovered links collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	query := bson.M{"job_id": jobID}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.IsWorking != nil {
		query["is_working"] = *filter.IsWorking
	}
	if filter.LinkType != "" {
		query["link_type"] = filter.LinkType
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit)).SetSort(bson.D{{Key: "url", Value: 1}})
	cursor, err := config.DiscoveredLinksCollection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var links []models.DiscoveredLink
	if err := cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (s *JobStore) ListBrokenLinks(jobID string, page, limit int) ([]models.BrokenLink, error) {
	if config.BrokenLinksCollection == nil {
		return nil, fmt.Errorf("broken links collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit)).SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := config.BrokenLinksCollection.Find(ctx, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var links []models.BrokenLink
	if err := cursor.All(ctx, &links); err != nil {
		return nil, err
	}
	return links, nil
}

func (s *JobStore) ListSeoRecords(jobID string, page, limit int) ([]models.SeoRecord, error) {
	if config.SeoRecordsCollection == nil {
		return nil, fmt.Errorf("seo records collection not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit)).SetSort(bson.D{{Key: "url", Value: 1}})
	cursor, err := config.SeoRecordsCollection.Find(ctx, bson.M{"job_id": jobID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.SeoRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *JobStore) GetSummary(jobID string) (models.Summary, error) {
	summary := models.Summary{JobID: jobID}
	if config.DiscoveredLinksCollection == nil || config.BrokenLinksCollection == nil || config.SeoRecordsCollection == nil {
		return summary, fmt.Errorf("link collections not initialized")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if config.DiscoveredLinksCollection != nil {
		count, err := config.DiscoveredLinksCollection.CountDocuments(ctx, bson.M{"job_id": jobID})
		if err != nil {
			return summary, err
		}
		summary.TotalDiscovered = int(count)
	}
	if config.BrokenLinksCollection != nil {
		count, err := config.BrokenLinksCollection.CountDocuments(ctx, bson.M{"job_id": jobID})
		if err != nil {
			return summary, err
		}
		summary.TotalBroken = int(count)
	}
	if config.SeoRecordsCollection != nil {
		count, err := config.SeoRecordsCollection.CountDocuments(ctx, bson.M{"job_id": jobID})
		if err != nil {
			return summary, err
		}
		summary.TotalSeoRecords = int(count)
	}
	return summary, nil
}

// LoadActiveJobsFromMongoDB recovers interrupted jobs on startup: any job
// still marked running when the process last exited could not have been
// driven to completion, so it is marked failed rather than silently
// resumed, matching the teacher's LoadActiveJobsFromMongoDB.
func LoadActiveJobsFromMongoDB() {
	if config.JobsCollection == nil {
		log.Println("[JOBSTORE] Jobs collection not initialized, skipping job recovery")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cursor, err := config.JobsCollection.Find(ctx, bson.M{"status": models.JobRunning})
	if err != nil {
		log.Printf("[JOBSTORE] Failed to load active jobs from MongoDB: %v", err)
		return
	}
	defer cursor.Close(ctx)

	var recovered []models.Job
	if err := cursor.All(ctx, &recovered); err != nil {
		log.Printf("[JOBSTORE] Failed to decode active jobs: %v", err)
		return
	}

	store := NewJobStore()
	config.JobsMutex.Lock()
	for i := range recovered {
		job := recovered[i]
		job.Status = models.JobFailed
		job.Error = "Job interrupted by server restart"
		job.UpdatedAt = time.Now()
		config.ActiveJobs[job.ID] = &job
		go func(j models.Job) {
			if err := store.SetStatus(j.ID, models.JobFailed, j.Error); err != nil {
				log.Printf("[JOBSTORE] Failed to persist recovered job %s: %v", j.ID, err)
			}
		}(job)
	}
	config.JobsMutex.Unlock()

	log.Printf("[JOBSTORE] Recovered %d interrupted jobs from MongoDB", len(recovered))
}
