package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingForwarder struct {
	got []Event
	err error
}

func (f *recordingForwarder) Publish(_ context.Context, e Event) error {
	f.got = append(f.got, e)
	return f.err
}

func TestBusDeliversAndForwards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fwd := &recordingForwarder{}
	bus := NewBus(nil).WithForwarder(fwd)
	defer bus.Close()

	messages, err := bus.Subscribe(ctx, DocumentCreated)
	require.NoError(t, err)

	at := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, bus.Publish(ctx, BaseEvent{
		Type:       DocumentCreated,
		Data:       map[string]interface{}{"entity": "prompt", "id": "p1"},
		OccurredAt: at,
	}))

	select {
	case msg := <-messages:
		ev, err := Unmarshal(msg.Payload)
		require.NoError(t, err)
		msg.Ack()

		assert.Equal(t, DocumentCreated, ev.EventType())
		assert.Equal(t, "p1", ev.Payload()["id"])
		assert.True(t, at.Equal(ev.Timestamp()))
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}

	require.Len(t, fwd.got, 1)
	assert.Equal(t, DocumentCreated, fwd.got[0].EventType())
}

func TestBusReportsForwarderFailure(t *testing.T) {
	bus := NewBus(nil).WithForwarder(&recordingForwarder{err: errors.New("nats down")})
	defer bus.Close()

	err := bus.Publish(context.Background(), BaseEvent{Type: UsageRecorded})
	assert.ErrorContains(t, err, "nats down")
}

func TestFromStructAndDecode(t *testing.T) {
	type usage struct {
		UserID      string `json:"user_id"`
		TotalTokens int64  `json:"total_tokens"`
	}

	ev, err := FromStruct(UsageRecorded, usage{UserID: "u1", TotalTokens: 8}, time.Now())
	require.NoError(t, err)

	var out usage
	require.NoError(t, Decode(ev, &out))
	assert.Equal(t, usage{UserID: "u1", TotalTokens: 8}, out)
}
