package refresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewProviderBreaker(3, time.Minute)

	b.RecordFailure("lido")
	b.RecordFailure("lido")
	assert.Equal(t, BreakerClosed, b.State("lido"))
	assert.True(t, b.Allow("lido"))

	b.RecordFailure("lido")
	assert.Equal(t, BreakerOpen, b.State("lido"))
	assert.False(t, b.Allow("lido"))
}

func TestBreakerSuccessResetsStreak(t *testing.T) {
	b := NewProviderBreaker(3, time.Minute)

	b.RecordFailure("lido")
	b.RecordFailure("lido")
	b.RecordSuccess("lido")
	b.RecordFailure("lido")
	b.RecordFailure("lido")

	assert.Equal(t, BreakerClosed, b.State("lido"))
}

func TestBreakerIsolatedPerProvider(t *testing.T) {
	b := NewProviderBreaker(1, time.Minute)

	b.RecordFailure("lido")

	assert.False(t, b.Allow("lido"))
	assert.True(t, b.Allow("marinade"))
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewProviderBreaker(1, 10*time.Millisecond)

	b.RecordFailure("lido")
	assert.False(t, b.Allow("lido"))

	time.Sleep(20 * time.Millisecond)

	// Cooldown elapsed: one probe is allowed.
	assert.True(t, b.Allow("lido"))
	assert.Equal(t, BreakerHalfOpen, b.State("lido"))

	b.RecordSuccess("lido")
	assert.Equal(t, BreakerClosed, b.State("lido"))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewProviderBreaker(3, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		b.RecordFailure("lido")
	}
	time.Sleep(20 * time.Millisecond)
	assert.True(t, b.Allow("lido"))

	// A single failure in half-open reopens regardless of the threshold.
	b.RecordFailure("lido")
	assert.Equal(t, BreakerOpen, b.State("lido"))
	assert.False(t, b.Allow("lido"))
}

func TestBreakerReset(t *testing.T) {
	b := NewProviderBreaker(1, time.Hour)

	b.RecordFailure("lido")
	assert.Equal(t, BreakerOpen, b.State("lido"))

	b.Reset()
	assert.Equal(t, BreakerClosed, b.State("lido"))
	assert.True(t, b.Allow("lido"))
}
