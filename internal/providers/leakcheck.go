package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/idtrace/idtrace/internal/domain"
)

const leakCheckBaseURL = "https://leakcheck.io/api/public"

// LeakCheck queries the LeakCheck public API. The public endpoint needs
// no credential, so the adapter is enabled unless switched off.
type LeakCheck struct {
	client  *http.Client
	baseURL string
	enabled bool
}

// NewLeakCheck creates the LeakCheck adapter.
func NewLeakCheck(cfg domain.ProviderConfig, client *http.Client) *LeakCheck {
	return &LeakCheck{
		client:  client,
		baseURL: leakCheckBaseURL,
		enabled: cfg.LeakCheckEnabled,
	}
}

// Name implements domain.Provider.
func (l *LeakCheck) Name() string { return "LeakCheck" }

// Enabled implements domain.Provider.
func (l *LeakCheck) Enabled() bool { return l.enabled }

type leakCheckResponse struct {
	Success bool     `json:"success"`
	Found   int      `json:"found"`
	Fields  []string `json:"fields"`
	Sources []struct {
		Name string `json:"name"`
		Date string `json:"date"`
	} `json:"sources"`
}

// Scan implements domain.Provider.
func (l *LeakCheck) Scan(ctx context.Context, identifier string) ([]domain.Exposure, error) {
	endpoint := l.baseURL + "?" + url.Values{"check": {identifier}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("leakcheck: build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leakcheck: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leakcheck: unexpected status %d", resp.StatusCode)
	}

	var body leakCheckResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("leakcheck: decode response: %w", err)
	}

	if !body.Success || body.Found == 0 {
		return nil, nil
	}

	severity := inferSeverity(body.Fields)
	today := time.Now().UTC().Format("2006-01-02")

	// Per-source entries when the API names the breached datasets.
	if len(body.Sources) > 0 {
		exposures := make([]domain.Exposure, 0, len(body.Sources))
		for _, src := range body.Sources {
			name := src.Name
			if name == "" {
				name = "Public Breach"
			}
			date := src.Date
			if date == "" {
				date = today
			}
			exposures = append(exposures, domain.Exposure{
				ID:          fmt.Sprintf("leakcheck-%s-%s", name, date),
				Source:      name,
				Date:        date,
				Details:     fmt.Sprintf("Specific breach identified in %s. Data points involved: %s.", name, strings.ToUpper(strings.Join(body.Fields, ", "))),
				DataClasses: body.Fields,
				Severity:    severity,
				Type:        domain.TypeLeak,
			})
		}
		return exposures, nil
	}

	// Aggregate fallback when only a hit count is available.
	fields := "UNKNOWN META-DATA"
	if len(body.Fields) > 0 {
		fields = strings.ToUpper(strings.Join(body.Fields, ", "))
	}
	return []domain.Exposure{{
		ID:          "leakcheck-public",
		Source:      "Public Leak Databases",
		Date:        today,
		Details:     fmt.Sprintf("Identity credential found in %d public breach compendiums. Exposed data points potentially include: %s. Recommended immediate credential rotation.", body.Found, fields),
		DataClasses: body.Fields,
		Severity:    severity,
		Type:        domain.TypeLeak,
	}}, nil
}
