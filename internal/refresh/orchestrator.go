// Package refresh runs all registered provider adapters concurrently,
// persists their results, and records a per-provider outcome log.
package refresh

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/yield-agg-api/internal/model"
	"github.com/yourorg/yield-agg-api/internal/provider"
	"github.com/yourorg/yield-agg-api/internal/store"
	"github.com/yourorg/yield-agg-api/internal/validation"
)

// Options configures an Orchestrator.
type Options struct {
	// Timeout bounds each adapter's attempt within a run.
	Timeout time.Duration

	// Sanitize is applied to every adapter's candidates before upserting.
	Sanitize validation.Options

	// Breaker, when set, skips providers whose breaker is open.
	Breaker *ProviderBreaker

	// Metrics, when set, records per-run counters.
	Metrics *Metrics
}

// Orchestrator fans out over all registered adapters, isolating each one's
// failure from the others. A run as a whole never fails; it reports
// per-provider status.
type Orchestrator struct {
	registry *provider.Registry
	store    *store.Store
	opts     Options
}

// New creates an orchestrator over the given registry and store.
func New(registry *provider.Registry, st *store.Store, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Sanitize.MaxAPRBasisPoints == 0 {
		opts.Sanitize = validation.DefaultOptions()
	}
	return &Orchestrator{registry: registry, store: st, opts: opts}
}

// Run executes one refresh across all registered adapters. Every adapter gets
// exactly one RefreshLogEntry, success or failure, and returns within the
// per-adapter timeout plus a small epsilon.
func (o *Orchestrator) Run(ctx context.Context) model.RefreshResult {
	adapters := o.registry.All()
	logrus.WithField("providers", len(adapters)).Info("Starting refresh run")

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		result model.RefreshResult
	)

	for _, adapter := range adapters {
		wg.Add(1)
		go func(a provider.Adapter) {
			defer wg.Done()

			rows, err := o.runAdapter(ctx, a)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, model.ProviderFailure{
					Provider: a.Name(),
					Error:    err.Error(),
				})
				return
			}
			result.Succeeded = append(result.Succeeded, a.Name())
			result.TotalRowsWritten += rows
		}(adapter)
	}

	wg.Wait()

	// Stable output regardless of completion order.
	sort.Strings(result.Succeeded)
	sort.Slice(result.Failed, func(i, j int) bool {
		return result.Failed[i].Provider < result.Failed[j].Provider
	})
	if result.Succeeded == nil {
		result.Succeeded = []string{}
	}
	if result.Failed == nil {
		result.Failed = []model.ProviderFailure{}
	}

	logrus.WithFields(logrus.Fields{
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
		"rows":      result.TotalRowsWritten,
	}).Info("Refresh run complete")

	if o.opts.Metrics != nil {
		o.opts.Metrics.rowsWritten.Add(float64(result.TotalRowsWritten))
		o.opts.Metrics.lastRun.SetToCurrentTime()
	}

	return result
}

// runAdapter executes one adapter's attempt end to end: breaker check, fetch
// with timeout, sanitation, upserts, and exactly one log entry. The returned
// row count is only meaningful on success.
func (o *Orchestrator) runAdapter(ctx context.Context, a provider.Adapter) (int, error) {
	name := a.Name()

	if o.opts.Breaker != nil && !o.opts.Breaker.Allow(name) {
		err := fmt.Errorf("circuit open: provider skipped after repeated failures")
		o.recordFailure(ctx, name, err)
		return 0, err
	}

	candidates, err := o.fetchWithTimeout(ctx, a)
	if err != nil {
		o.recordFailure(ctx, name, err)
		return 0, err
	}

	candidates = validation.SanitizeCandidates(candidates, o.opts.Sanitize)

	// Upserts are applied in list order; earlier writes are not retracted
	// when a later one fails.
	rows := 0
	for _, c := range candidates {
		if err := o.store.Upsert(ctx, c); err != nil {
			o.recordFailure(ctx, name, err)
			return 0, err
		}
		rows++
	}

	entry := model.RefreshLogEntry{
		Provider: name,
		Status:   model.RefreshStatusSuccess,
		Rows:     rows,
		Message:  fmt.Sprintf("Successfully fetched and upserted %d opportunities", rows),
	}
	if err := o.store.AppendLog(ctx, entry); err != nil {
		// The rows are already durable, but a run that cannot record its
		// audit entry is reported as a provider failure.
		logrus.WithField("provider", name).Errorf("Failed to append refresh log: %v", err)
		return 0, err
	}

	if o.opts.Breaker != nil {
		o.opts.Breaker.RecordSuccess(name)
	}
	logrus.WithFields(logrus.Fields{
		"provider": name,
		"rows":     rows,
	}).Info("Provider refresh succeeded")
	return rows, nil
}

// fetchWithTimeout races the adapter's fetch against the configured timeout.
// A timed-out fetch keeps running in the background; its eventual completion
// is irrelevant to the result.
func (o *Orchestrator) fetchWithTimeout(ctx context.Context, a provider.Adapter) ([]model.Opportunity, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	type outcome struct {
		candidates []model.Opportunity
		err        error
	}
	done := make(chan outcome, 1)

	go func() {
		candidates, err := a.Fetch(fetchCtx)
		done <- outcome{candidates, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, fmt.Errorf("fetch failed: %w", out.err)
		}
		return out.candidates, nil
	case <-fetchCtx.Done():
		return nil, fmt.Errorf("provider timeout after %s", o.opts.Timeout)
	}
}

// recordFailure appends the failure log entry and updates breaker and
// metrics. Failure entries always carry rows = 0.
func (o *Orchestrator) recordFailure(ctx context.Context, name string, cause error) {
	entry := model.RefreshLogEntry{
		Provider: name,
		Status:   model.RefreshStatusFailure,
		Rows:     0,
		Message:  cause.Error(),
	}
	if err := o.store.AppendLog(ctx, entry); err != nil {
		logrus.WithField("provider", name).Errorf("Failed to append refresh log: %v", err)
	}

	if o.opts.Breaker != nil {
		o.opts.Breaker.RecordFailure(name)
	}
	if o.opts.Metrics != nil {
		o.opts.Metrics.providerErrors.WithLabelValues(name).Inc()
	}
	logrus.WithField("provider", name).Warnf("Provider refresh failed: %v", cause)
}

// Metrics holds the Prometheus instruments the orchestrator updates.
type Metrics struct {
	providerErrors *prometheus.CounterVec
	rowsWritten    prometheus.Counter
	lastRun        prometheus.Gauge
}

// NewMetrics registers the refresh metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yield_provider_errors_total",
				Help: "Total number of provider refresh failures",
			},
			[]string{"provider"},
		),
		rowsWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "yield_refresh_rows_written_total",
				Help: "Total opportunities upserted by refresh runs",
			},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "yield_refresh_last_run_timestamp_seconds",
				Help: "Unix time of the last completed refresh run",
			},
		),
	}
	reg.MustRegister(m.providerErrors, m.rowsWritten, m.lastRun)
	return m
}
