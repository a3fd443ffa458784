package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"supply-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher appends domain events to the marketplace event topic.
// The topic is the durable record that makes at-most-once live push
// acceptable: a reconnecting client refreshes from persisted state.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderEvent publishes any order-scoped event keyed by order id
func (ep *EventPublisher) PublishOrderEvent(ctx context.Context, orderID int64, event interface{}) error {
	key := fmt.Sprintf("order-%d", orderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishReviewSubmitted publishes a review event keyed by supplier id
func (ep *EventPublisher) PublishReviewSubmitted(ctx context.Context, event *models.ReviewSubmittedEvent) error {
	key := fmt.Sprintf("supplier-%s", event.SupplierID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes consumed events to registered handlers. Unregistered
// event types are acknowledged and skipped.
type EventHandler struct {
	handlers map[string]MessageHandler
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{handlers: make(map[string]MessageHandler)}
}

// On registers a handler for an event type
func (eh *EventHandler) On(eventType string, handler MessageHandler) {
	eh.handlers[eventType] = handler
}

// HandleMessage routes messages to the handler for their event type
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	handler, ok := eh.handlers[base.EventType]
	if !ok {
		log.Printf("Unhandled event type: %s", base.EventType)
		return nil
	}

	return handler(ctx, msg)
}
