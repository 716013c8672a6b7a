package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Abhishek-J-Sudo/linksentry/models"
	"github.com/Abhishek-J-Sudo/linksentry/services"
)

func main() {
	var (
		apiMode = flag.Bool("api", false, "Run as REST API server instead of CLI")
		port    = flag.String("port", "8080", "API server port")

		maxDepth        = flag.Int("depth", 2, "BFS depth bound (1-5)")
		timeoutMs       = flag.Int("timeout", 10000, "Per-request timeout in milliseconds")
		includeExternal = flag.Bool("include-external", false, "Check cross-origin links too")
		enableSEO       = flag.Bool("seo", false, "Run on-page SEO analysis")
		respectRobots   = flag.Bool("robots", true, "Consult robots.txt before crawling")
		mongoURI        = flag.String("mongo", "mongodb://localhost:27017", "MongoDB connection URI")
		mongoDB         = flag.String("db", "linksentry", "MongoDB database name")
		rabbitMQURL     = flag.String("rabbitmq", "amqp://localhost:5672", "RabbitMQ connection URL")
		waitTimeout     = flag.Duration("wait", 2*time.Minute, "Maximum time to wait for the scan to finish")
	)
	flag.Parse()

	if *apiMode {
		StartAPIServer(*port, *mongoURI, *mongoDB, *rabbitMQURL)
		return
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Println("Usage: linksentry [flags] <URL>")
		fmt.Println("Modes:")
		fmt.Println("  -api               Run as REST API server")
		fmt.Println("  -port string       API server port (default 8080)")
		fmt.Println("CLI flags:")
		fmt.Println("  -depth int             BFS depth bound, 1-5 (default 2)")
		fmt.Println("  -timeout int           Per-request timeout in ms (default 10000)")
		fmt.Println("  -include-external      Check cross-origin links too")
		fmt.Println("  -seo                   Run on-page SEO analysis")
		fmt.Println("  -robots                Consult robots.txt (default true)")
		fmt.Println("  -mongo string          MongoDB URI")
		fmt.Println("  -db string             MongoDB database name")
		fmt.Println("  -rabbitmq string       RabbitMQ URL")
		fmt.Println("  -wait duration         Max time to wait for the scan (default 2m)")
		fmt.Println("Examples:")
		fmt.Println("  CLI: linksentry -depth=2 -seo https://example.com")
		fmt.Println("  API: linksentry -api -port=8080")
		os.Exit(1)
	}

	targetURL := args[0]

	if err := services.InitMongoDB(*mongoURI, *mongoDB); err != nil {
		fmt.Printf("MongoDB unavailable, scan results will not be queryable afterward: %v\n", err)
	}
	if err := services.InitRabbitMQ(*rabbitMQURL); err != nil {
		fmt.Printf("RabbitMQ unavailable, live progress events will not be published: %v\n", err)
	}

	store := services.NewJobStore()
	orchestrator := services.NewOrchestrator(store)

	job := &models.Job{
		ID:      generateCLIJobID(),
		SeedURL: targetURL,
		Settings: models.Settings{
			MaxDepth: *maxDepth, IncludeExternal: *includeExternal, Timeout: *timeoutMs,
			CrawlMode: models.CrawlModeAuto, EnableSEO: *enableSEO, RespectRobots: *respectRobots,
		},
		Status:    models.JobRunning,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.CreateJob(job); err != nil {
		fmt.Printf("Failed to persist job: %v\n", err)
	}

	fmt.Printf("Starting scan of %s (job %s)\n", targetURL, job.ID)
	startTime := time.Now()
	orchestrator.Start(job, nil)

	deadline := time.Now().Add(*waitTimeout)
	for time.Now().Before(deadline) {
		time.Sleep(2 * time.Second)
		current, err := store.GetJob(job.ID)
		if err != nil {
			continue
		}
		if current.Status == models.JobCompleted || current.Status == models.JobFailed || current.Status == models.JobStopped {
			break
		}
	}

	duration := time.Since(startTime)
	summary, err := store.GetSummary(job.ID)
	if err != nil {
		fmt.Printf("Failed to load summary: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Finished in %v\n", duration)
	output, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(output))
}

func generateCLIJobID() string {
	return fmt.Sprintf("cli-%d", time.Now().UnixNano())
}
