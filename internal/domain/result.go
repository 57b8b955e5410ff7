package domain

// ProviderStats records which providers took part in a scan, for
// transparency and debugging. It is never an input to scoring.
type ProviderStats struct {
	ScannedProviders []string `json:"scannedProviders"`
	SuccessProviders []string `json:"successProviders"`
	FailedProviders  []string `json:"failedProviders"`
}

// IntelligenceResult is the merged outcome of one scan across all
// enabled providers.
type IntelligenceResult struct {
	Email string `json:"email"`

	// Breaches counts merged exposures of type Breach or Leak.
	Breaches int `json:"breaches"`

	// Exposures is deduplicated by normalized source name.
	Exposures []Exposure `json:"exposures"`

	Stats ProviderStats `json:"stats"`
}

// RiskLevel is the discrete classification of a risk score. Note the
// inversion: LevelLow means low risk, which corresponds to a high score.
type RiskLevel string

const (
	LevelLow      RiskLevel = "Low"
	LevelMedium   RiskLevel = "Medium"
	LevelHigh     RiskLevel = "High"
	LevelCritical RiskLevel = "Critical"
)

// LevelForScore maps a clamped score to its risk level using fixed
// breakpoints.
func LevelForScore(score int) RiskLevel {
	switch {
	case score < 40:
		return LevelCritical
	case score < 65:
		return LevelHigh
	case score < 85:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Location is an approximate origin coordinate for map display.
type Location struct {
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Count   int     `json:"count,omitempty"`
}

// RiskDetails is the intelligence result plus grouped locations.
type RiskDetails struct {
	IntelligenceResult
	Locations []Location `json:"locations"`
}

// RiskProfile is the scored, leveled and summarized output of a scan.
type RiskProfile struct {
	Score   int         `json:"score"`
	Level   RiskLevel   `json:"level"`
	Summary string      `json:"summary"`
	Details RiskDetails `json:"details"`

	// Analysis and ActionPlan are optional advisor output. They are
	// best-effort narrative text and never affect the score.
	Analysis   string   `json:"analysis,omitempty"`
	ActionPlan []string `json:"actionPlan,omitempty"`
}
