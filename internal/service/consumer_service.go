package service

import (
	"context"
	"os"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/internal/registry"
	"ai-dms-be/internal/repository/contract"
	"ai-dms-be/pkg/events"
	pktNats "ai-dms-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	// Consume starts the background handlers. They stop when ctx is cancelled.
	Consume(ctx context.Context) error
}

type consumerService struct {
	bus        *events.Bus
	usage      IUsageService
	cache      contract.ContextCache
	subscriber *pktNats.Subscriber
	log        logger.ILogger
}

// NewConsumerService wires the ledger writer to the in-process bus. subscriber
// may be nil; when set, file deletions on other instances evict cached context.
func NewConsumerService(
	bus *events.Bus,
	usage IUsageService,
	cache contract.ContextCache,
	subscriber *pktNats.Subscriber,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		bus:        bus,
		usage:      usage,
		cache:      cache,
		subscriber: subscriber,
		log:        log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.bus.Subscribe(ctx, events.UsageRecorded)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processUsage(ctx, msg)
		}
	}()

	if cs.subscriber != nil {
		durable := "context-cache"
		if host, err := os.Hostname(); err == nil {
			durable += "-" + host
		}
		if err := cs.subscriber.Subscribe(ctx, events.DocumentDeleted, durable, cs.evictContext); err != nil {
			cs.log.Warn("CONSUMER", "Context cache eviction disabled", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

func (cs *consumerService) processUsage(ctx context.Context, msg *message.Message) {
	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.log.Error("CONSUMER", "Failed to unmarshal event", map[string]interface{}{"message_id": msg.UUID, "error": err.Error()})
		msg.Ack()
		return
	}

	var payload dto.UsageRecordedMessage
	if err := events.Decode(event, &payload); err != nil || payload.UserId == "" {
		cs.log.Error("CONSUMER", "Invalid usage payload", map[string]interface{}{"message_id": msg.UUID})
		msg.Ack()
		return
	}

	if err := cs.usage.Record(ctx, payload); err != nil {
		cs.log.Error("CONSUMER", "Failed to record usage", map[string]interface{}{"user_id": payload.UserId, "error": err.Error()})
		msg.Nack()
		return
	}
	msg.Ack()
}

func (cs *consumerService) evictContext(ctx context.Context, event events.Event) error {
	data := event.Payload()
	if entity, _ := data["entity"].(string); entity != registry.File {
		return nil
	}
	if id, _ := data["id"].(string); id != "" {
		cs.cache.Delete(ctx, id)
	}
	return nil
}
