// Package queue runs analyses received from RabbitMQ and publishes their progress.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Status is the lifecycle of a queued analysis.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Message asks for one résumé to be analyzed. Field names follow the HTTP analyze payload.
type Message struct {
	ID      string `json:"id" validate:"omitempty,uuid"`
	FileKey string `json:"fileKey" validate:"required"`
	Domain  string `json:"domain" validate:"required"`
	JD      string `json:"jd" validate:"required"`
}

// Update reports progress of an analysis on the updates exchange.
type Update struct {
	AnalysisID string    `json:"analysis_id"`
	Status     Status    `json:"status"`
	Message    string    `json:"message"`
	Score      *int      `json:"score,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers status updates.
type Publisher interface {
	Publish(ctx context.Context, update Update) error
}

// Sender puts analysis requests on the queue.
type Sender interface {
	Enqueue(ctx context.Context, msg Message) (string, error)
}

// RoutingKey is the topic key updates for id are published under.
func RoutingKey(id string) string {
	return fmt.Sprintf("analysis.%s", id)
}

// Decode parses and validates a message body. A missing id is generated.
func Decode(body []byte, validate *validator.Validate) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("decode message: %w", err)
	}
	if err := validate.Struct(msg); err != nil {
		return msg, fmt.Errorf("validate message: %w", err)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	return msg, nil
}
