package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier turns lead events into messages for the signed-in user.
type Notifier interface {
	DealWon(ctx context.Context, event LeadEvent) error
	ImportSummary(ctx context.Context, event LeadEvent) error
}

type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type Worker struct {
	Channel  Consumer
	Notifier Notifier
}

func NewWorker(ch Consumer, notifier Notifier) *Worker {
	return &Worker{
		Channel:  ch,
		Notifier: notifier,
	}
}

// Start consumes queueName until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf(" [*] Notification worker waiting on '%s'", queueName)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				log.Printf("⚠️ [WORKER] delivery channel closed")
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var event LeadEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Printf("❌ [WORKER] invalid JSON: %s", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.processMessage(ctx, event); err != nil {
		log.Printf("❌ [WORKER] %s for %s: %s", event.Type, event.Recipient, err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func (w *Worker) processMessage(ctx context.Context, event LeadEvent) error {
	if event.Recipient == "" {
		return nil
	}

	switch event.Type {
	case EventLeadStageChanged:
		if !strings.EqualFold(event.Stage, "Won") {
			return nil
		}
		log.Printf("🏆 [WORKER] deal won: %s (%s)", event.LeadName, event.Company)
		return w.Notifier.DealWon(ctx, event)

	case EventImportCompleted, EventImportFailed:
		log.Printf("📊 [WORKER] import summary: %d/%d rows", event.Imported, event.Total)
		return w.Notifier.ImportSummary(ctx, event)

	default:
		return nil
	}
}
