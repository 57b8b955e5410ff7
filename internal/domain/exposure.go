// Package domain defines the core interfaces and types for IDTrace.
package domain

import "strings"

// Severity classifies how damaging a single exposure is.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Rank returns the numeric ordering of a severity for merge comparisons.
// An absent or unrecognized severity ranks 0, so a duplicate without a
// severity can never downgrade an existing one.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// ExposureType classifies how the identifier was exposed. The type governs
// the scoring penalty category.
type ExposureType string

const (
	TypeBreach  ExposureType = "Breach"
	TypeLeak    ExposureType = "Leak"
	TypeScrape  ExposureType = "Scrape"
	TypeAccount ExposureType = "Account"
)

// IsBreach reports whether the type counts as a confirmed breach or leak.
func (t ExposureType) IsBreach() bool {
	return t == TypeBreach || t == TypeLeak
}

// Exposure is one normalized finding about an identifier from one source.
type Exposure struct {
	ID          string       `json:"id"`
	Source      string       `json:"source"`
	Date        string       `json:"date"`
	Details     string       `json:"details"`
	DataClasses []string     `json:"dataClasses"`
	Severity    Severity     `json:"severity,omitempty"`
	Type        ExposureType `json:"type,omitempty"`
}

// MergeKey returns the normalized source name used to deduplicate
// exposures across providers.
func (e *Exposure) MergeKey() string {
	return strings.ToLower(strings.TrimSpace(e.Source))
}

// HasDataClass reports whether any data class contains the given
// substring, case-insensitively.
func (e *Exposure) HasDataClass(substr string) bool {
	substr = strings.ToLower(substr)
	for _, dc := range e.DataClasses {
		if strings.Contains(strings.ToLower(dc), substr) {
			return true
		}
	}
	return false
}
