package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/models"
	"github.com/Abhishek-J-Sudo/linksentry/services"
)

// HandleWebSocket handles WebSocket connections for live job updates
// @Summary Connect to live crawl updates
// @Description Streams discovered/checked/broken/progress/completed/error/stopped events for a job
// @Tags websocket
// @Param id path string true "Job ID"
// @Router /ws/{id} [get]
func HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	conn, err := config.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WEBSOCKET] upgrade failed for job %s: %v", jobID, err)
		return
	}
	defer conn.Close()

	queueName, err := services.CreateJobQueue(jobID)
	if err != nil {
		log.Printf("[WEBSOCKET] failed to create job queue for %s: %v", jobID, err)
		conn.WriteJSON(models.WebSocketMessage{Type: "error", JobID: jobID, Error: "failed to create event queue", Timestamp: time.Now()})
		return
	}

	if err := conn.WriteJSON(models.WebSocketMessage{Type: "connected", JobID: jobID, Timestamp: time.Now()}); err != nil {
		log.Printf("[WEBSOCKET] failed to send initial message for job %s: %v", jobID, err)
		return
	}

	eventChan := make(chan models.CrawlEvent, 100)
	stopChan := make(chan bool, 1)

	if err := services.ConsumeJobEvents(queueName, eventChan, stopChan); err != nil {
		log.Printf("[WEBSOCKET] failed to start consuming events for job %s: %v", jobID, err)
		conn.WriteJSON(models.WebSocketMessage{Type: "error", JobID: jobID, Error: "failed to start event consumption", Timestamp: time.Now()})
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				stopChan <- true
				return
			}
		}
	}()

	eventCount := 0
	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			eventCount++

			wsMessage := models.WebSocketMessage{
				Type: event.Type, JobID: event.JobID, URL: event.URL, Depth: event.Depth,
				Timestamp: event.Timestamp, Total: event.Total, Current: event.Current, Error: event.Error,
			}
			if err := conn.WriteJSON(wsMessage); err != nil {
				log.Printf("[WEBSOCKET] failed to send message #%d for job %s: %v", eventCount, jobID, err)
				stopChan <- true
				return
			}

			if event.Type == "completed" || event.Type == "error" || event.Type == "stopped" {
				log.Printf("[WEBSOCKET] job %s reached terminal event %s after %d messages", jobID, event.Type, eventCount)
			}

		case <-stopChan:
			log.Printf("[WEBSOCKET] connection closed for job %s after %d events", jobID, eventCount)
			return
		}
	}
}
