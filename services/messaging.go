package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Abhishek-J-Sudo/linksentry/config"
	"github.com/Abhishek-J-Sudo/linksentry/models"
)

// transientEventTypes are high-frequency, superseded-by-the-next-one
// signals: losing one on a broker restart costs nothing because another
// is published moments later. Every other event type (broken, completed,
// error, stopped) gets persistent delivery because it is the only record
// of something that happened exactly once.
var transientEventTypes = map[string]bool{
	"discovered": true,
	"checked":    true,
	"progress":   true,
}

// terminalEventTypes are the event types a job publishes at most once, as
// its very last act. A WebSocket bridge consuming a job's queue can stop
// as soon as one of these arrives instead of waiting for stopChan.
var terminalEventTypes = map[string]bool{
	"completed": true,
	"error":     true,
	"stopped":   true,
}

// allEventTypes drives the per-job queue binding in CreateJobQueue; it
// must list every type the Orchestrator publishes via PublishCrawlEvent.
var allEventTypes = []string{"discovered", "checked", "broken", "progress", "completed", "error", "stopped"}

func isTerminalEventType(t string) bool {
	return terminalEventTypes[t]
}

func deliveryModeFor(eventType string) uint8 {
	if transientEventTypes[eventType] {
		return amqp.Transient
	}
	return amqp.Persistent
}

// InitRabbitMQ initializes RabbitMQ connection
func InitRabbitMQ(rabbitURL string) error {
	var err error

	// Connect to RabbitMQ
	config.RabbitConnection, err = amqp.Dial(rabbitURL)
	if err != nil {
		return err
	}

	// Create channel
	config.RabbitChannel, err = config.RabbitConnection.Channel()
	if err != nil {
		return err
	}

	// Declare exchange
	err = config.RabbitChannel.ExchangeDeclare(
		config.ExchangeName, // name
		"topic",              // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		return err
	}

	log.Printf("Connected to RabbitMQ: %s", rabbitURL)
	return nil
}

// CreateJobQueue creates a temporary queue for a specific job ID and binds
// it to every event type the job's run can publish.
func CreateJobQueue(jobID string) (string, error) {
	if config.RabbitChannel == nil {
		return "", fmt.Errorf("RabbitMQ not connected")
	}

	// Check if channel is closed and reconnect if needed
	if config.RabbitChannel.IsClosed() {
		log.Printf("[RABBITMQ] Channel is closed, attempting to reconnect...")
		var err error
		config.RabbitChannel, err = config.RabbitConnection.Channel()
		if err != nil {
			return "", fmt.Errorf("failed to recreate channel: %v", err)
		}
		log.Printf("[RABBITMQ] Successfully recreated channel")
	}

	// Create a unique queue name for this job
	queueName := fmt.Sprintf("linksentry_ws_%s_%d", jobID, time.Now().UnixNano())

	// Declare temporary queue with TTL
	queue, err := config.RabbitChannel.QueueDeclare(
		queueName, // name
		false,     // durable (temporary)
		true,      // delete when unused
		true,      // exclusive
		false,     // no-wait
		amqp.Table{
			"x-message-ttl": int32(3600000), // 1 hour TTL
		},
	)
	if err != nil {
		return "", err
	}

	// Bind the queue to every routing key this job can emit, derived from
	// allEventTypes rather than hand-listed so a new event type only has
	// to be added in one place.
	for _, eventType := range allEventTypes {
		routingKey := fmt.Sprintf("linksentry.%s.%s", jobID, eventType)
		err = config.RabbitChannel.QueueBind(
			queue.Name,           // queue name
			routingKey,           // routing key
			config.ExchangeName, // exchange
			false,
			nil,
		)
		if err != nil {
			return "", err
		}
	}

	return queue.Name, nil
}

// ConsumeJobEvents consumes events for a specific job and sends them to a
// channel. It shuts itself down the moment a terminal event is forwarded,
// since a job never publishes anything after completed/error/stopped.
func ConsumeJobEvents(queueName string, eventChan chan<- models.CrawlEvent, stopChan <-chan bool) error {
	if config.RabbitChannel == nil {
		return fmt.Errorf("RabbitMQ not connected")
	}

	// Check if channel is closed and reconnect if needed
	if config.RabbitChannel.IsClosed() {
		log.Printf("[RABBITMQ] Channel is closed, attempting to reconnect...")
		var err error
		config.RabbitChannel, err = config.RabbitConnection.Channel()
		if err != nil {
			return fmt.Errorf("failed to recreate channel: %v", err)
		}
		log.Printf("[RABBITMQ] Successfully recreated channel")
	}

	consumerTag := fmt.Sprintf("linksentry-%d", time.Now().UnixNano())

	// Start consuming messages
	msgs, err := config.RabbitChannel.Consume(
		queueName,   // queue
		consumerTag, // consumer
		false,       // auto-ack
		true,        // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return err
	}

	// Process messages in background
	go func() {
		defer close(eventChan)

		for {
			select {
			case <-stopChan:
				config.RabbitChannel.Cancel(consumerTag, false)
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var event models.CrawlEvent
				err := json.Unmarshal(msg.Body, &event)
				if err != nil {
					log.Printf("Failed to unmarshal event: %v", err)
					msg.Nack(false, false)
					continue
				}

				// Send event to channel (non-blocking)
				select {
				case eventChan <- event:
					msg.Ack(false)
				case <-stopChan:
					msg.Nack(false, true) // Requeue message
					config.RabbitChannel.Cancel(consumerTag, false)
					return
				}

				if isTerminalEventType(event.Type) {
					config.RabbitChannel.Cancel(consumerTag, false)
					return
				}
			}
		}
	}()

	return nil
}

// PublishCrawlEvent publishes an event to RabbitMQ (lightweight). Delivery
// mode is chosen per event type: terminal and broken-link events survive a
// broker restart, the high-frequency progress/discovered/checked stream
// does not need to.
func PublishCrawlEvent(event models.CrawlEvent) {
	log.Printf("[RABBITMQ] Publishing event: JobID=%s, Type=%s", event.JobID, event.Type)

	if config.RabbitChannel == nil {
		log.Printf("[RABBITMQ] ERROR: RabbitChannel is nil, cannot publish event")
		return
	}

	if config.RabbitChannel.IsClosed() {
		log.Printf("[RABBITMQ] ERROR: RabbitChannel is closed, cannot publish event")
		return
	}

	// Convert event to JSON
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event: %v", err)
		return
	}

	// Determine routing key based on job_id and event type
	routingKey := fmt.Sprintf("linksentry.%s.%s", event.JobID, event.Type)
	mode := deliveryModeFor(event.Type)

	// Publish message (non-blocking, fire-and-forget)
	go func() {
		err := config.RabbitChannel.Publish(
			config.ExchangeName, // exchange
			routingKey,           // routing key
			false,                // mandatory
			false,                // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				Body:         body,
				Timestamp:    time.Now(),
				DeliveryMode: mode,
			},
		)
		if err != nil {
			log.Printf("[RABBITMQ] ERROR: Failed to publish event: %v", err)
		} else {
			log.Printf("[RABBITMQ] Successfully published event: %s", routingKey)
		}
	}()
}

// CloseRabbitMQ closes RabbitMQ connections
func CloseRabbitMQ() {
	if config.RabbitChannel != nil {
		config.RabbitChannel.Close()
	}
	if config.RabbitConnection != nil {
		config.RabbitConnection.Close()
	}
}
