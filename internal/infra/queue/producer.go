package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Event types double as routing keys on ex.leads.
const (
	EventLeadCreated      = "lead.created"
	EventLeadStageChanged = "lead.stage_changed"
	EventImportCompleted  = "import.completed"
	EventImportFailed     = "import.failed"
)

// LeadEvent is published after a write has been confirmed by the remote store.
type LeadEvent struct {
	Type      string  `json:"type"`
	LeadID    string  `json:"lead_id,omitempty"`
	LeadName  string  `json:"lead_name,omitempty"`
	Company   string  `json:"company,omitempty"`
	Stage     string  `json:"stage,omitempty"`
	FromStage string  `json:"from_stage,omitempty"`
	Value     float64 `json:"value,omitempty"`

	Imported int    `json:"imported,omitempty"`
	Total    int    `json:"total,omitempty"`
	Error    string `json:"error,omitempty"`

	Recipient  string    `json:"recipient,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher is the channel subset the producer needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishLeadEvent(ctx context.Context, event LeadEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Type:         event.Type,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}
