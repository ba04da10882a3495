package service

import (
	"context"
	"encoding/json"
	"fmt"

	"study-assistant-be/internal/pkg/apperror"
	"study-assistant-be/internal/pkg/logger"
	"study-assistant-be/internal/repository/contract"
	"study-assistant-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// chatEventPublisher puts events on the in-process bus so request handlers
// never wait on NATS.
type chatEventPublisher struct {
	publisher message.Publisher
	topic     string
}

func NewChatEventPublisher(publisher message.Publisher, topic string) events.Publisher {
	return &chatEventPublisher{publisher: publisher, topic: topic}
}

func (p *chatEventPublisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.publisher.Publish(p.topic, msg)
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type chatEventConsumer struct {
	subscriber    message.Subscriber
	topic         string
	conversations contract.ConversationRepository
	relay         events.Publisher
	log           logger.ILogger
}

// NewChatEventConsumer marks conversations as updated after each exchange and
// forwards the event to relay. relay may be nil.
func NewChatEventConsumer(
	subscriber message.Subscriber,
	topic string,
	conversations contract.ConversationRepository,
	relay events.Publisher,
	log logger.ILogger,
) IConsumerService {
	return &chatEventConsumer{
		subscriber:    subscriber,
		topic:         topic,
		conversations: conversations,
		relay:         relay,
		log:           log,
	}
}

func (c *chatEventConsumer) Consume(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			c.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: touching updatedAt is best effort and a nack on
// the in-process bus would redeliver in a tight loop.
func (c *chatEventConsumer) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.log.Error("chat-events", "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		return
	}

	exchange, ok := events.ChatExchangeFromEvent(event)
	if !ok {
		c.log.Warn("chat-events", "Ignoring unexpected event", map[string]interface{}{"type": event.Type})
		return
	}

	if err := c.conversations.Touch(ctx, exchange.ConversationId, exchange.OccurredAt); err != nil {
		level := c.log.Error
		if apperror.Is(err, apperror.KindNotFound) {
			level = c.log.Warn
		}
		level("chat-events", "Failed to touch conversation", map[string]interface{}{
			"conversation_id": exchange.ConversationId,
			"error":           err.Error(),
		})
	}

	if c.relay != nil {
		if err := c.relay.Publish(ctx, event); err != nil {
			c.log.Warn("chat-events", "Failed to relay event", map[string]interface{}{
				"conversation_id": exchange.ConversationId,
				"error":           err.Error(),
			})
		}
	}

	c.log.Debug("chat-events", "Chat exchange processed", map[string]interface{}{
		"conversation_id": exchange.ConversationId,
	})
}
