package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Abhishek-J-Sudo/linksentry/handlers"
	"github.com/Abhishek-J-Sudo/linksentry/middleware"
	"github.com/Abhishek-J-Sudo/linksentry/services"
)

// @title LinkSentry API
// @version 1.0
// @description Broken-link scanner and on-page SEO analyzer
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url http://www.swagger.io/support
// @contact.email support@swagger.io

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API key authentication. Use the header 'X-API-Key: your-api-key-here'

// StartAPIServer starts the REST API server
func StartAPIServer(port string, mongoURI, dbName, rabbitMQURL string) {
	if err := services.InitMongoDB(mongoURI, dbName); err != nil {
		log.Printf("MongoDB initialization failed: %v", err)
		log.Println("API will run without persistent storage")
	} else {
		services.LoadActiveJobsFromMongoDB()
	}

	if err := services.InitRabbitMQ(rabbitMQURL); err != nil {
		log.Printf("RabbitMQ initialization failed: %v", err)
		log.Println("API will run without live progress events")
	}

	r := mux.NewRouter()

	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.APIKeyMiddleware)
	r.Use(middleware.RateLimitMiddleware)
	r.Use(corsMiddleware)

	r.HandleFunc("/crawl", handlers.HandleCrawl).Methods("POST", "OPTIONS")
	r.HandleFunc("/jobs/{id}", handlers.HandleJobStatus).Methods("GET", "OPTIONS")
	r.HandleFunc("/jobs/{id}/stop", handlers.HandleStopCrawl).Methods("POST", "OPTIONS")
	r.HandleFunc("/jobs/{id}/links", handlers.HandleListLinks).Methods("GET", "OPTIONS")
	r.HandleFunc("/jobs/{id}/broken", handlers.HandleListBroken).Methods("GET", "OPTIONS")
	r.HandleFunc("/jobs/{id}/seo", handlers.HandleListSeo).Methods("GET", "OPTIONS")
	r.HandleFunc("/jobs/{id}/summary", handlers.HandleJobSummary).Methods("GET", "OPTIONS")
	r.HandleFunc("/ws/{id}", handlers.HandleWebSocket).Methods("GET", "OPTIONS")
	r.HandleFunc("/health", handlers.HandleHealth).Methods("GET")

	r.PathPrefix("/notforhumans/").Handler(httpSwagger.WrapHandler)

	log.Printf("Starting API server on port %s", port)
	log.Printf("Endpoints:")
	log.Printf("  POST /crawl - Start a new crawl job")
	log.Printf("  GET  /jobs/{id} - Get job status")
	log.Printf("  POST /jobs/{id}/stop - Stop a running job")
	log.Printf("  GET  /jobs/{id}/links - List discovered links")
	log.Printf("  GET  /jobs/{id}/broken - List broken links")
	log.Printf("  GET  /jobs/{id}/seo - List SEO records")
	log.Printf("  GET  /jobs/{id}/summary - Aggregate counts")
	log.Printf("  GET  /ws/{id} - WebSocket live updates")
	log.Printf("  GET  /health - Health check")
	log.Printf("  GET  /notforhumans/ - API documentation")

	log.Fatal(http.ListenAndServe(":"+port, r))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
