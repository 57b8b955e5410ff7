// Package intel implements the multi-provider scan aggregator.
package intel

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/idtrace/idtrace/internal/domain"
)

// ErrInvalidIdentifier is returned when a scan is requested without an
// identifier. It is the only aggregator error surfaced to callers.
var ErrInvalidIdentifier = errors.New("identifier is required")

var tracer = otel.Tracer("idtrace-intel")

// DefaultProviderTimeout bounds each provider call when no timeout is
// configured. A timed-out provider is treated exactly like a failed one.
const DefaultProviderTimeout = 10 * time.Second

// Aggregator fans a scan out to all enabled providers concurrently and
// merges their findings into one deduplicated result.
type Aggregator struct {
	providers       []domain.Provider
	providerTimeout time.Duration
}

// NewAggregator creates an aggregator over the given providers.
func NewAggregator(providers []domain.Provider, providerTimeout time.Duration) *Aggregator {
	if providerTimeout <= 0 {
		providerTimeout = DefaultProviderTimeout
	}
	return &Aggregator{
		providers:       providers,
		providerTimeout: providerTimeout,
	}
}

// providerOutcome captures one provider call's result, success or not.
type providerOutcome struct {
	name      string
	exposures []domain.Exposure
	err       error
}

// Scan queries every enabled provider concurrently, waits for all of
// them to settle, and merges the successful contributions. Individual
// provider failures are recorded in the result's stats and never abort
// the scan.
func (a *Aggregator) Scan(ctx context.Context, identifier string) (*domain.IntelligenceResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrInvalidIdentifier
	}

	ctx, span := tracer.Start(ctx, "intel.scan")
	defer span.End()
	span.SetAttributes(attribute.Int("providers.total", len(a.providers)))

	enabled := make([]domain.Provider, 0, len(a.providers))
	for _, p := range a.providers {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}

	outcomes := make([]providerOutcome, len(enabled))
	var wg sync.WaitGroup

	for i, p := range enabled {
		wg.Add(1)
		go func(idx int, provider domain.Provider) {
			defer wg.Done()
			outcomes[idx] = a.scanOne(ctx, provider, identifier)
		}(i, p)
	}

	// Wait for every provider to settle before merging. This is a
	// wait-for-all join, not a race: slow providers are bounded by the
	// per-call timeout, never abandoned mid-flight.
	wg.Wait()

	result := a.merge(identifier, outcomes)

	span.SetAttributes(
		attribute.Int("providers.failed", len(result.Stats.FailedProviders)),
		attribute.Int("exposures.merged", len(result.Exposures)),
	)

	return result, nil
}

// scanOne calls a single provider with its own timeout and converts
// panics and errors into a captured outcome.
func (a *Aggregator) scanOne(ctx context.Context, provider domain.Provider, identifier string) (out providerOutcome) {
	out.name = provider.Name()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("provider panicked", "provider", out.name, "panic", r)
			out.exposures = nil
			out.err = errors.New("provider panicked")
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, a.providerTimeout)
	defer cancel()

	start := time.Now()
	exposures, err := provider.Scan(callCtx, identifier)
	elapsed := time.Since(start)

	if err != nil {
		slog.Warn("provider scan failed",
			"provider", out.name,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)
		out.err = err
		return out
	}

	slog.Debug("provider scan finished",
		"provider", out.name,
		"duration_ms", elapsed.Milliseconds(),
		"exposures", len(exposures),
	)
	out.exposures = exposures
	return out
}

// merge deduplicates exposures across providers by normalized source
// name. Duplicates contribute their data classes and may upgrade the
// severity; all other fields keep the first-seen values. Outcomes are
// merged in provider-name order so repeated scans of identical inputs
// produce identical results regardless of completion order.
func (a *Aggregator) merge(identifier string, outcomes []providerOutcome) *domain.IntelligenceResult {
	sorted := make([]providerOutcome, len(outcomes))
	copy(sorted, outcomes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].name < sorted[j].name })

	stats := domain.ProviderStats{
		ScannedProviders: []string{},
		SuccessProviders: []string{},
		FailedProviders:  []string{},
	}

	merged := make(map[string]int) // merge key -> index into exposures
	var exposures []domain.Exposure

	for _, out := range sorted {
		stats.ScannedProviders = append(stats.ScannedProviders, out.name)
		if out.err != nil {
			stats.FailedProviders = append(stats.FailedProviders, out.name)
			continue
		}
		stats.SuccessProviders = append(stats.SuccessProviders, out.name)

		for _, exp := range out.exposures {
			key := exp.MergeKey()
			idx, ok := merged[key]
			if !ok {
				merged[key] = len(exposures)
				exposures = append(exposures, exp)
				continue
			}
			mergeInto(&exposures[idx], &exp)
		}
	}

	breaches := 0
	for _, exp := range exposures {
		if exp.Type.IsBreach() {
			breaches++
		}
	}

	if exposures == nil {
		exposures = []domain.Exposure{}
	}

	return &domain.IntelligenceResult{
		Email:     identifier,
		Breaches:  breaches,
		Exposures: exposures,
		Stats:     stats,
	}
}

// mergeInto folds a duplicate exposure into an existing one: data
// classes are unioned and the severity upgraded when the duplicate
// ranks strictly higher. Ties and unranked severities keep the
// existing value, so a duplicate can never downgrade.
func mergeInto(existing *domain.Exposure, dup *domain.Exposure) {
	seen := make(map[string]bool, len(existing.DataClasses))
	for _, dc := range existing.DataClasses {
		seen[dc] = true
	}
	for _, dc := range dup.DataClasses {
		if !seen[dc] {
			seen[dc] = true
			existing.DataClasses = append(existing.DataClasses, dc)
		}
	}

	if dup.Severity.Rank() > existing.Severity.Rank() {
		existing.Severity = dup.Severity
	}
}
