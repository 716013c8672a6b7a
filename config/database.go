package config

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Abhishek-J-Sudo/linksentry/models"
)

// Global variables for the API server. The teacher keeps its shared
// mutable state as package-level globals behind a mutex rather than a
// dependency-injected struct; this project follows that pattern.
var (
	MongoClient            *mongo.Client
	JobsCollection         *mongo.Collection
	DiscoveredLinksCollection *mongo.Collection
	BrokenLinksCollection  *mongo.Collection
	SeoRecordsCollection   *mongo.Collection
	SecurityEventsCollection *mongo.Collection

	ActiveJobs = make(map[string]*models.Job)
	JobsMutex  sync.RWMutex

	// Upgrader upgrades GET /ws/{id} requests to a WebSocket connection.
	Upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // Allow all origins in development
		},
	}
)
