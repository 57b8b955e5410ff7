package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/idtrace/idtrace/internal/domain"
)

const intelXBaseURL = "https://2.intelx.io"

// intelXResultDelay is how long the search is given to collect results
// before the result list is fetched.
const intelXResultDelay = 2 * time.Second

// IntelX queries IntelligenceX. The API is two-phase: a search is
// initiated, then its result list is fetched by search id after a short
// delay. Disabled without an API key.
type IntelX struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	resultDelay time.Duration
}

// NewIntelX creates the IntelligenceX adapter.
func NewIntelX(cfg domain.ProviderConfig, client *http.Client) *IntelX {
	return &IntelX{
		client:      client,
		baseURL:     intelXBaseURL,
		apiKey:      cfg.IntelXAPIKey,
		resultDelay: intelXResultDelay,
	}
}

// Name implements domain.Provider.
func (x *IntelX) Name() string { return "IntelligenceX" }

// Enabled implements domain.Provider.
func (x *IntelX) Enabled() bool { return x.apiKey != "" }

type intelXSearchRequest struct {
	Term       string   `json:"term"`
	MaxResults int      `json:"maxresults"`
	Media      int      `json:"media"`
	Terminate  []string `json:"terminate"`
}

type intelXSearchResponse struct {
	ID string `json:"id"`
}

type intelXResultResponse struct {
	Records []struct {
		SystemID  string `json:"systemid"`
		Name      string `json:"name"`
		Date      string `json:"date"`
		StorageID string `json:"storageid"`
	} `json:"records"`
}

// Scan implements domain.Provider.
func (x *IntelX) Scan(ctx context.Context, identifier string) ([]domain.Exposure, error) {
	searchID, err := x.startSearch(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if searchID == "" {
		return nil, nil
	}

	// Give the search time to collect results.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(x.resultDelay):
	}

	return x.fetchResults(ctx, searchID)
}

func (x *IntelX) startSearch(ctx context.Context, identifier string) (string, error) {
	payload, err := json.Marshal(intelXSearchRequest{
		Term:       identifier,
		MaxResults: 10,
		Media:      0,
		Terminate:  []string{},
	})
	if err != nil {
		return "", fmt.Errorf("intelx: marshal search: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.baseURL+"/intelligent/search", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("intelx: build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-key", x.apiKey)

	resp, err := x.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("intelx: search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("intelx: unexpected search status %d", resp.StatusCode)
	}

	var body intelXSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("intelx: decode search response: %w", err)
	}
	return body.ID, nil
}

func (x *IntelX) fetchResults(ctx context.Context, searchID string) ([]domain.Exposure, error) {
	endpoint := fmt.Sprintf("%s/intelligent/search/result?id=%s", x.baseURL, searchID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("intelx: build result request: %w", err)
	}
	req.Header.Set("x-key", x.apiKey)

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("intelx: result request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("intelx: unexpected result status %d", resp.StatusCode)
	}

	var body intelXResultResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("intelx: decode result response: %w", err)
	}

	exposures := make([]domain.Exposure, 0, len(body.Records))
	for _, record := range body.Records {
		source := record.Name
		if source == "" {
			source = "IntelX Result"
		}
		date := record.Date
		if date == "" {
			date = "Unknown"
		}
		exposures = append(exposures, domain.Exposure{
			ID:          record.SystemID,
			Source:      source,
			Date:        date,
			Details:     fmt.Sprintf("Found in IntelligenceX database. Storage: %s", record.StorageID),
			DataClasses: []string{"Identity Data"},
			Severity:    domain.SeverityMedium,
			Type:        domain.TypeBreach,
		})
	}
	return exposures, nil
}
