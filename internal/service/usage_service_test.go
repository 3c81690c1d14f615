package service

import (
	"context"
	"testing"
	"time"

	"ai-dms-be/internal/dto"
	"ai-dms-be/pkg/authz"
	"ai-dms-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usageFor(userID, model string, prompt, completion int64) dto.UsageRecordedMessage {
	return dto.UsageRecordedMessage{
		UserId:   userID,
		Provider: "openai",
		Model:    model,
		Usage:    &llm.Usage{PromptTokens: prompt, CompletionTokens: completion},
		At:       time.Now().UTC(),
	}
}

func TestUsageSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withLedger(newLedger(t)))
	usage := NewUsageService(f.uow, f.log)

	for _, msg := range []dto.UsageRecordedMessage{
		usageFor(alice.ID, "gpt-4o", 10, 5),
		usageFor(alice.ID, "gpt-4o", 20, 5),
		usageFor(alice.ID, "gpt-4o-mini", 1, 1),
		usageFor(bob.ID, "gpt-4o", 100, 100),
	} {
		require.NoError(t, usage.Record(ctx, msg))
	}

	tt := []struct {
		name       string
		p          authz.Principal
		wantRecent int
		wantTotal  map[string]int64
	}{
		{"user sees own usage", alice, 3, map[string]int64{"gpt-4o": 40, "gpt-4o-mini": 2}},
		{"admin sees everyone", admin, 4, map[string]int64{"gpt-4o": 240, "gpt-4o-mini": 2}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			res, err := usage.Summary(ctx, tc.p)
			require.NoError(t, err)
			assert.Len(t, res.Recent, tc.wantRecent)

			got := map[string]int64{}
			for _, total := range res.Totals {
				got[total.Model] = total.TotalTokens
			}
			assert.Equal(t, tc.wantTotal, got)
		})
	}
}

func TestUsageWithoutLedger(t *testing.T) {
	f := newFixture(t)
	usage := NewUsageService(f.uow, f.log)

	require.NoError(t, usage.Record(context.Background(), usageFor(alice.ID, "gpt-4o", 1, 1)))
	res, err := usage.Summary(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, res.Totals)
	assert.NotNil(t, res.Recent)
}

func TestConsumerRecordsPublishedUsage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t, withLedger(newLedger(t)))
	usage := NewUsageService(f.uow, f.log)

	consumer := NewConsumerService(f.bus, usage, f.cache, nil, f.log)
	require.NoError(t, consumer.Consume(ctx))

	require.NoError(t, f.publisher.UsageRecorded(ctx, usageFor(alice.ID, "gpt-4o", 7, 3)))
	// no user: acknowledged and dropped
	require.NoError(t, f.publisher.UsageRecorded(ctx, usageFor("", "gpt-4o", 7, 3)))

	assert.Eventually(t, func() bool {
		res, err := usage.Summary(ctx, admin)
		return err == nil && len(res.Recent) == 1 && res.Recent[0].TotalTokens == 10
	}, 2*time.Second, 20*time.Millisecond)
}
