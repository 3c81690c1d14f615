package service

import (
	"context"
	"time"

	"ai-dms-be/internal/dto"
	"ai-dms-be/internal/pkg/logger"
	"ai-dms-be/pkg/events"
)

type IPublisherService interface {
	DocumentCreated(ctx context.Context, entity, id, by string)
	DocumentUpdated(ctx context.Context, entity, id, by string)
	DocumentDeleted(ctx context.Context, entity, id, by string)
	UsageRecorded(ctx context.Context, msg dto.UsageRecordedMessage) error
}

type publisherService struct {
	bus *events.Bus
	log logger.ILogger
	now func() time.Time
}

func NewPublisherService(bus *events.Bus, log logger.ILogger) IPublisherService {
	return &publisherService{bus: bus, log: log, now: time.Now}
}

// document events are notifications only; a failed publish never fails the write.
func (p *publisherService) document(ctx context.Context, eventType, entity, id, by string) {
	event := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"entity": entity,
			"id":     id,
			"by":     by,
		},
		OccurredAt: p.now().UTC(),
	}
	if err := p.bus.Publish(ctx, event); err != nil {
		p.log.Warn("EVENTS", "Failed to publish document event", map[string]interface{}{
			"type":   eventType,
			"entity": entity,
			"id":     id,
			"error":  err.Error(),
		})
	}
}

func (p *publisherService) DocumentCreated(ctx context.Context, entity, id, by string) {
	p.document(ctx, events.DocumentCreated, entity, id, by)
}

func (p *publisherService) DocumentUpdated(ctx context.Context, entity, id, by string) {
	p.document(ctx, events.DocumentUpdated, entity, id, by)
}

func (p *publisherService) DocumentDeleted(ctx context.Context, entity, id, by string) {
	p.document(ctx, events.DocumentDeleted, entity, id, by)
}

func (p *publisherService) UsageRecorded(ctx context.Context, msg dto.UsageRecordedMessage) error {
	if msg.At.IsZero() {
		msg.At = p.now().UTC()
	}
	event, err := events.FromStruct(events.UsageRecorded, msg, msg.At)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, event)
}
