// Package scoring turns a merged intelligence result into a bounded
// risk profile. The computation is pure and deterministic; only the
// location jitter for unknown sources is allowed to vary, and it never
// feeds back into the score.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/idtrace/idtrace/internal/domain"
	"github.com/idtrace/idtrace/internal/geo"
)

// Type penalties subtracted from the base score per exposure.
const (
	penaltyBreach  = 25.0
	penaltyLeak    = 20.0
	penaltyScrape  = 10.0
	penaltyAccount = 5.0
	penaltyUnknown = 10.0
)

// passwordExposureBonus is added to a single exposure's penalty when
// that exposure leaked a password.
const passwordExposureBonus = 15.0

// Global penalties applied once over the union of all data classes.
const (
	globalPasswordPenalty = 20.0
	globalPhonePenalty    = 10.0
	globalSSNPenalty      = 40.0
)

// breachCeiling caps the score whenever a confirmed breach or leak
// exists: confirmed compromise can never classify as safe.
const breachCeiling = 60

// Resolver maps a source name to an approximate location.
type Resolver func(sourceName string) domain.Location

// Engine computes risk profiles from intelligence results.
type Engine struct {
	resolve Resolver
}

// NewEngine creates a scoring engine using the built-in location table.
func NewEngine() *Engine {
	return &Engine{resolve: geo.Resolve}
}

// NewEngineWithResolver creates a scoring engine with a custom location
// resolver, used by tests to pin down the jittered default bucket.
func NewEngineWithResolver(resolve Resolver) *Engine {
	return &Engine{resolve: resolve}
}

// Score computes the risk profile for a merged result. Malformed
// exposures (missing data classes, unknown types) degrade to neutral
// values rather than failing the batch.
func (e *Engine) Score(result *domain.IntelligenceResult) *domain.RiskProfile {
	baseScore := 100.0
	hasBreach := false

	for i := range result.Exposures {
		exp := &result.Exposures[i]
		baseScore -= exposurePenalty(exp)
		if exp.Type.IsBreach() {
			hasBreach = true
		}
	}

	baseScore -= globalPenalty(result.Exposures)

	if hasBreach && baseScore > breachCeiling {
		baseScore = breachCeiling
	}

	score := clampScore(baseScore)
	level := domain.LevelForScore(score)

	return &domain.RiskProfile{
		Score:   score,
		Level:   level,
		Summary: e.summary(result, level),
		Details: domain.RiskDetails{
			IntelligenceResult: *result,
			Locations:          e.locations(result.Exposures),
		},
	}
}

// exposurePenalty computes one exposure's contribution: the type
// penalty scaled by the severity multiplier, plus a flat bonus when the
// exposure leaked a password.
func exposurePenalty(exp *domain.Exposure) float64 {
	var penalty float64
	switch exp.Type {
	case domain.TypeBreach:
		penalty = penaltyBreach
	case domain.TypeLeak:
		penalty = penaltyLeak
	case domain.TypeScrape:
		penalty = penaltyScrape
	case domain.TypeAccount:
		penalty = penaltyAccount
	default:
		penalty = penaltyUnknown
	}

	switch exp.Severity {
	case domain.SeverityCritical:
		penalty *= 2.0
	case domain.SeverityHigh:
		penalty *= 1.5
	case domain.SeverityLow:
		penalty *= 0.5
	}

	if exp.HasDataClass("password") {
		penalty += passwordExposureBonus
	}

	return penalty
}

// globalPenalty inspects the union of all data classes and applies the
// sensitive-category penalties. Each condition is checked independently
// and all applicable penalties stack.
func globalPenalty(exposures []domain.Exposure) float64 {
	union := make(map[string]bool)
	for _, exp := range exposures {
		for _, dc := range exp.DataClasses {
			union[strings.ToLower(dc)] = true
		}
	}

	contains := func(substr string) bool {
		for dc := range union {
			if strings.Contains(dc, substr) {
				return true
			}
		}
		return false
	}

	var penalty float64
	if contains("password") {
		penalty += globalPasswordPenalty
	}
	if contains("phone") {
		penalty += globalPhonePenalty
	}
	if contains("ssn") || contains("national id") {
		penalty += globalSSNPenalty
	}
	return penalty
}

func clampScore(score float64) int {
	score = math.Floor(score)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return int(score)
}

// locations resolves every exposure's source and groups the results by
// coordinate for map display.
func (e *Engine) locations(exposures []domain.Exposure) []domain.Location {
	type coord struct{ lat, lng float64 }

	index := make(map[coord]int)
	locations := []domain.Location{}

	for _, exp := range exposures {
		loc := e.resolve(exp.Source)
		key := coord{loc.Lat, loc.Lng}
		if idx, ok := index[key]; ok {
			locations[idx].Count++
			continue
		}
		loc.Count = 1
		index[key] = len(locations)
		locations = append(locations, loc)
	}

	return locations
}

func (e *Engine) summary(result *domain.IntelligenceResult, level domain.RiskLevel) string {
	return fmt.Sprintf(
		"Analysis across %d intelligence sources found %d breaches and leaks. Your overall profile shows a %s risk level.",
		len(result.Stats.ScannedProviders),
		result.Breaches,
		strings.ToLower(string(level)),
	)
}
