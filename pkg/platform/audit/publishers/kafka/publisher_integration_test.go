//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "smileid/pkg/platform/audit"
	"smileid/pkg/testutil/containers"
)

func TestPublisher_ProducesToRedpanda(t *testing.T) {
	broker := containers.NewRedpandaContainer(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	const topic = "smileid.job-events"
	require.NoError(t, broker.CreateTopic(ctx, topic))

	pub, err := New([]string{broker.SeedBroker}, topic)
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionJobSubmitted, JobID: "job-42"}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.SeedBroker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "job-42", string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, audit.ActionJobSubmitted, got.Action)
}
