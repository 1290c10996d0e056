package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
)

func newTestBreaker() (*CircuitBreaker, *clock.Fake) {
	fake := clock.NewFake(t0)
	return NewCircuitBreaker(DefaultBreakerConfig(), fake), fake
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker()

	cb.RecordFailure()
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.AllowRequest())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.AllowRequest())
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker()

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	cb.RecordFailure()

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 2, cb.Stats().ConsecutiveFailures)
}

func TestCircuitBreaker_CooldownGrantsSingleProbe(t *testing.T) {
	cb, fake := newTestBreaker()
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}

	fake.Advance(29 * time.Second)
	assert.False(t, cb.AllowRequest())

	fake.Advance(time.Second)
	assert.True(t, cb.AllowRequest())
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.False(t, cb.AllowRequest(), "second caller in the same instant is refused")
}

func TestCircuitBreaker_ConcurrentProbeGrant(t *testing.T) {
	cb, fake := newTestBreaker()
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	fake.Advance(30 * time.Second)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cb.AllowRequest() {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), granted.Load())
}

func TestCircuitBreaker_ProbeSuccessCloses(t *testing.T) {
	cb, fake := newTestBreaker()
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	fake.Advance(30 * time.Second)
	require.True(t, cb.AllowRequest())

	cb.RecordSuccess()

	stats := cb.Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Equal(t, 0, stats.ConsecutiveFailures)
	assert.Nil(t, stats.OpenedAt)
	assert.True(t, cb.AllowRequest())
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	cb, fake := newTestBreaker()
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	fake.Advance(30 * time.Second)
	require.True(t, cb.AllowRequest())

	cb.RecordFailure()

	stats := cb.Stats()
	assert.Equal(t, StateOpen, stats.State)
	require.NotNil(t, stats.OpenedAt)
	assert.Equal(t, fake.Now(), *stats.OpenedAt)
	assert.False(t, cb.AllowRequest())

	fake.Advance(30 * time.Second)
	assert.True(t, cb.AllowRequest())
}

func TestCircuitBreaker_LostProbeIsReplaced(t *testing.T) {
	cb, fake := newTestBreaker()
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	fake.Advance(30 * time.Second)
	require.True(t, cb.AllowRequest())

	fake.Advance(10 * time.Second)
	assert.False(t, cb.AllowRequest())

	fake.Advance(20 * time.Second)
	assert.True(t, cb.AllowRequest(), "unreported probe expires after one cooldown")
	assert.False(t, cb.AllowRequest())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	fake := clock.NewFake(t0)
	var got []string
	cfg := DefaultBreakerConfig()
	cfg.OnStateChange = func(from, to CircuitState) {
		got = append(got, from.String()+"->"+to.String())
	}
	cb := NewCircuitBreaker(cfg, fake)

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	fake.Advance(30 * time.Second)
	cb.AllowRequest()
	cb.RecordSuccess()

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, got)
}

func TestCircuitState_MarshalText(t *testing.T) {
	b, err := StateHalfOpen.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "half-open", string(b))
}

func TestCircuitBreaker_ReleaseProbe(t *testing.T) {
	cb, fake := newTestBreaker()
	for i := 0; i < 3; i++ {
		cb.RecordFailure()
	}
	fake.Advance(30 * time.Second)
	require.True(t, cb.AllowRequest())
	require.False(t, cb.AllowRequest())

	cb.ReleaseProbe()

	assert.Equal(t, StateHalfOpen, cb.State())
	assert.Equal(t, 3, cb.Stats().ConsecutiveFailures)
	assert.True(t, cb.AllowRequest())

	closed, _ := newTestBreaker()
	closed.ReleaseProbe()
	assert.Equal(t, StateClosed, closed.State())
}
