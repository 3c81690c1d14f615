package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Forwarder receives a copy of every event published on the bus.
type Forwarder interface {
	Publish(ctx context.Context, event Event) error
}

// Bus is the in-process event bus. Topics are event types.
type Bus struct {
	pubSub    *gochannel.GoChannel
	forwarder Forwarder
}

func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Bus{pubSub: gochannel.NewGoChannel(gochannel.Config{}, logger)}
}

// WithForwarder mirrors published events to an external broker.
func (b *Bus) WithForwarder(f Forwarder) *Bus {
	b.forwarder = f
	return b
}

// Publish hands the event to local subscribers, then to the forwarder. A
// forwarder failure is returned but the local delivery already happened.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	payload, err := Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)
	if err := b.pubSub.Publish(event.EventType(), msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.EventType(), err)
	}

	if b.forwarder != nil {
		if err := b.forwarder.Publish(ctx, event); err != nil {
			return fmt.Errorf("failed to forward %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// Subscribe returns the message channel for one event type. It is closed
// when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, eventType string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, eventType)
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
