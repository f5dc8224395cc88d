package ops

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "smileid/pkg/platform/audit"
	"smileid/pkg/platform/audit/store/memory"
)

type failingSink struct{ calls int }

func (f *failingSink) Emit(context.Context, audit.Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestPublisher_DeliversToSink(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := NewMetrics(prometheus.NewRegistry())
	pub := New(store, WithMetrics(m))

	err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionJobSubmitted, JobID: "job-1"})
	require.NoError(t, err)

	events, err := store.ListByJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Tracked))
}

func TestPublisher_SamplesPerAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	sampler := NewSampler(1)
	sampler.SetRate(audit.ActionJobStatusPolled, 0)
	m := NewMetrics(prometheus.NewRegistry())
	pub := New(store, WithSampler(sampler), WithMetrics(m))

	ctx := context.Background()
	require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionJobStatusPolled, JobID: "job-1"}))
	require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionJobCompleted, JobID: "job-1"}))

	assert.Equal(t, []audit.Action{audit.ActionJobCompleted}, store.Actions("job-1"))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Sampled))
}

func TestPublisher_FailuresOpenTheBreakerAndAreSwallowed(t *testing.T) {
	sink := &failingSink{}
	cb := NewCircuitBreaker(2, time.Hour)
	m := NewMetrics(prometheus.NewRegistry())
	pub := New(sink, WithCircuitBreaker(cb), WithMetrics(m))

	ctx := context.Background()
	for range 4 {
		require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionJobSubmitted}))
	}

	assert.Equal(t, 2, sink.calls, "breaker opens after two failures")
	assert.True(t, cb.IsOpen())
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CircuitBreakerDropped))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CircuitBreakerState))
}

func TestCircuitBreaker_HalfOpensAfterCooldown(t *testing.T) {
	now := time.Unix(0, 0)
	cb := NewCircuitBreaker(1, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.False(t, cb.Allow())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	assert.False(t, cb.IsOpen())
}

func TestSampler_ClampsRates(t *testing.T) {
	s := NewSampler(5)
	assert.True(t, s.ShouldSample(audit.ActionJobSubmitted))

	s.SetRate(audit.ActionJobStatusPolled, -1)
	assert.False(t, s.ShouldSample(audit.ActionJobStatusPolled))

	s.SetRate(audit.ActionJobFailed, 0.5)
	s.random = func() float64 { return 0.4 }
	assert.True(t, s.ShouldSample(audit.ActionJobFailed))
	s.random = func() float64 { return 0.6 }
	assert.False(t, s.ShouldSample(audit.ActionJobFailed))
}
