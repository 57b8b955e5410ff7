package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/idtrace/idtrace/internal/domain"
)

const deHashedBaseURL = "https://api.dehashed.com/search"

// DeHashed queries the DeHashed search API. Requires the account email
// plus API key for HTTP basic auth; without a key the adapter is
// disabled.
type DeHashed struct {
	client  *http.Client
	baseURL string
	user    string
	apiKey  string
}

// NewDeHashed creates the DeHashed adapter.
func NewDeHashed(cfg domain.ProviderConfig, client *http.Client) *DeHashed {
	return &DeHashed{
		client:  client,
		baseURL: deHashedBaseURL,
		user:    cfg.DeHashedUser,
		apiKey:  cfg.DeHashedAPIKey,
	}
}

// Name implements domain.Provider.
func (d *DeHashed) Name() string { return "DeHashed" }

// Enabled implements domain.Provider.
func (d *DeHashed) Enabled() bool { return d.apiKey != "" }

type deHashedResponse struct {
	Success bool `json:"success"`
	Entries []struct {
		Email          string `json:"email"`
		DatabaseName   string `json:"database_name"`
		ObtainedDate   string `json:"obtained_date"`
		HashedPassword string `json:"hashed_password"`
	} `json:"entries"`
}

// Scan implements domain.Provider.
func (d *DeHashed) Scan(ctx context.Context, identifier string) ([]domain.Exposure, error) {
	query := url.Values{"query": {fmt.Sprintf("email:%q", identifier)}}
	endpoint := d.baseURL + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dehashed: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	user := d.user
	if user == "" {
		// DeHashed wants the account email as the basic auth user; a
		// placeholder keeps the request well-formed so the API can
		// report a proper auth error.
		user = "api_user"
	}
	req.SetBasicAuth(user, d.apiKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dehashed: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
		// Rejected credentials or an unusable query: degrade to an
		// empty contribution instead of failing the scan.
		slog.Debug("dehashed rejected request", "status", resp.StatusCode)
		return nil, nil
	default:
		return nil, fmt.Errorf("dehashed: unexpected status %d", resp.StatusCode)
	}

	var body deHashedResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("dehashed: decode response: %w", err)
	}

	if !body.Success || len(body.Entries) == 0 {
		return nil, nil
	}

	exposures := make([]domain.Exposure, 0, len(body.Entries))
	for i, entry := range body.Entries {
		source := entry.DatabaseName
		if source == "" {
			source = "DeHashed Entry"
		}
		date := entry.ObtainedDate
		if date == "" {
			date = "Unknown"
		}

		passwordClass := "Password"
		if entry.HashedPassword != "" {
			passwordClass = "Hashed Password"
		}

		exposures = append(exposures, domain.Exposure{
			ID:          fmt.Sprintf("dehashed-%d", i),
			Source:      source,
			Date:        date,
			Details:     fmt.Sprintf("Data point: %s found in %s", entry.Email, source),
			DataClasses: []string{"Email", passwordClass},
			Severity:    domain.SeverityHigh,
			Type:        domain.TypeBreach,
		})
	}

	return exposures, nil
}
