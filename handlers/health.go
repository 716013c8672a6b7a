package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Abhishek-J-Sudo/linksentry/config"
)

// HandleHealth handles the GET /health endpoint
// @Summary Health check
// @Description Reports MongoDB and RabbitMQ connectivity plus active job count
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	mongoOK := pingMongo()
	rabbitOK := config.RabbitChannel != nil && !config.RabbitChannel.IsClosed()

	status := "healthy"
	if !mongoOK || !rabbitOK {
		status = "degraded"
	}

	config.JobsMutex.RLock()
	activeJobs := len(config.ActiveJobs)
	config.JobsMutex.RUnlock()

	health := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"services": map[string]interface{}{
			"mongodb":  map[string]interface{}{"status": connStatus(mongoOK), "ping": mongoOK},
			"rabbitmq": map[string]interface{}{"status": connStatus(rabbitOK), "ping": rabbitOK},
		},
		"memory": map[string]interface{}{
			"active_jobs": activeJobs,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

func pingMongo() bool {
	if config.MongoClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return config.MongoClient.Ping(ctx, nil) == nil
}

func connStatus(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}
