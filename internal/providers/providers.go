// Package providers contains the adapters for external intelligence
// sources. Each adapter normalizes one source's native response into
// domain.Exposure records and isolates that source's failure modes.
package providers

import (
	"net/http"
	"strings"
	"time"

	"github.com/idtrace/idtrace/internal/domain"
)

// FromConfig builds all built-in provider adapters. Disabled adapters
// are still returned; the aggregator skips them based on Enabled().
func FromConfig(cfg domain.ProviderConfig, timeout time.Duration) []domain.Provider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	return []domain.Provider{
		NewLeakCheck(cfg, client),
		NewDeHashed(cfg, client),
		NewIntelX(cfg, client),
		NewMaigret(cfg),
	}
}

// inferSeverity applies the standard severity heuristic: a source that
// exposed a password is High, anything else Medium.
func inferSeverity(dataClasses []string) domain.Severity {
	for _, dc := range dataClasses {
		if strings.Contains(strings.ToLower(dc), "password") {
			return domain.SeverityHigh
		}
	}
	return domain.SeverityMedium
}

// usernameFromEmail derives a username from an email identifier by
// taking the local part. Non-email identifiers pass through unchanged.
func usernameFromEmail(identifier string) string {
	if at := strings.Index(identifier, "@"); at > 0 {
		return identifier[:at]
	}
	return identifier
}
