package refresh

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// BreakerState represents the current state of one provider's breaker
type BreakerState int

// Breaker states
const (
	BreakerClosed   BreakerState = iota // Normal operation
	BreakerOpen                         // Tripped, provider is skipped
	BreakerHalfOpen                     // Probing whether the provider recovered
)

// ProviderBreaker tracks fetch health per provider. A provider that fails
// ConsecutiveFailures times in a row opens its breaker and is skipped until
// the cooldown elapses; the next run then probes it in half-open state, and
// a success closes the breaker again.
type ProviderBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	providers map[string]*breakerEntry
}

type breakerEntry struct {
	state    BreakerState
	failures int
	openedAt time.Time
}

// NewProviderBreaker creates a breaker that opens after threshold consecutive
// failures and cools down for the given duration before probing.
func NewProviderBreaker(threshold int, cooldown time.Duration) *ProviderBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &ProviderBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		providers: make(map[string]*breakerEntry),
	}
}

// Allow reports whether the provider may be fetched this run. An open breaker
// whose cooldown has elapsed transitions to half-open and allows one probe.
func (b *ProviderBreaker) Allow(provider string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(provider)
	if e.state != BreakerOpen {
		return true
	}
	if time.Since(e.openedAt) >= b.cooldown {
		e.state = BreakerHalfOpen
		logrus.WithField("provider", provider).Info("Provider breaker half-open, probing recovery")
		return true
	}
	return false
}

// RecordSuccess resets the provider's failure streak and closes its breaker.
func (b *ProviderBreaker) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(provider)
	if e.state != BreakerClosed {
		logrus.WithField("provider", provider).Info("Provider breaker closed, provider recovered")
	}
	e.state = BreakerClosed
	e.failures = 0
}

// RecordFailure counts a failed fetch; at the threshold (or on a failed
// half-open probe) the breaker opens.
func (b *ProviderBreaker) RecordFailure(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e := b.entry(provider)
	e.failures++
	if e.state == BreakerHalfOpen || e.failures >= b.threshold {
		e.state = BreakerOpen
		e.openedAt = time.Now()
		logrus.WithFields(logrus.Fields{
			"provider": provider,
			"failures": e.failures,
		}).Warn("Provider breaker opened")
	}
}

// State returns the provider's current breaker state.
func (b *ProviderBreaker) State(provider string) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entry(provider).state
}

// Reset forcibly closes every breaker.
func (b *ProviderBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = make(map[string]*breakerEntry)
}

func (b *ProviderBreaker) entry(provider string) *breakerEntry {
	e, ok := b.providers[provider]
	if !ok {
		e = &breakerEntry{}
		b.providers[provider] = e
	}
	return e
}
