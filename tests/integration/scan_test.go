//go:build integration
// +build integration

// Package integration provides end-to-end tests for the IDTrace exposure
// scanning service.
//
// These tests verify the COMPLETE scan pipeline:
//
//	Email → Providers (fan-out) → Merge → Score → Level → Summary
//
// and the monitor pipeline:
//
//	POST /monitors → bus → worker → scan → status + history + alert
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. EXPOSURE: One appearance of an identity in a compromised dataset.
//    Typed Breach, Leak, Scrape or Account; carries a severity and the
//    data classes that were exposed.
//
// 2. SCORE: Starts at 100 and loses points per exposure (weighted by
//    type and severity) plus global penalties for sensitive data
//    classes. Any Breach or Leak caps the score at 60.
//
// 3. LEVEL: Inverted mapping - a LOW score means HIGH risk:
//    - Score  0 - 39  → Critical
//    - Score 40 - 64  → High
//    - Score 65 - 84  → Medium
//    - Score 85 - 100 → Low
//
// 4. MONITOR: A registered email that is rescanned in the background.
//    Flips between CLEAN and LEAKED; every check appends to history.
//
// The whole stack runs in-process against stub providers, so the
// results are deterministic and no external API keys are needed.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/idtrace/idtrace/internal/advisor"
	"github.com/idtrace/idtrace/internal/api"
	"github.com/idtrace/idtrace/internal/bus"
	"github.com/idtrace/idtrace/internal/cache"
	"github.com/idtrace/idtrace/internal/domain"
	"github.com/idtrace/idtrace/internal/intel"
	"github.com/idtrace/idtrace/internal/policy"
	"github.com/idtrace/idtrace/internal/repository"
	"github.com/idtrace/idtrace/internal/scoring"
	"github.com/idtrace/idtrace/internal/worker"
)

// stubProvider returns canned exposures per email, emulating a breach
// intelligence source.
type stubProvider struct {
	name    string
	byEmail map[string][]domain.Exposure
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Enabled() bool { return true }

func (s *stubProvider) Scan(ctx context.Context, identifier string) ([]domain.Exposure, error) {
	return s.byEmail[identifier], nil
}

type stack struct {
	ts   *httptest.Server
	repo domain.Repository
}

// newStack wires the full service: repository, cache, bus, providers,
// scoring, policy, worker and HTTP server.
func newStack(t *testing.T, providerList []domain.Provider) *stack {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "integration.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	aggregator := intel.NewAggregator(providerList, 2*time.Second)
	engine := scoring.NewEngine()

	policyEngine, err := policy.NewEngine("")
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	w := worker.NewWorker(eventBus, repo, aggregator, engine, policyEngine)
	if err := w.Start(); err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}
	t.Cleanup(func() { w.Stop() })

	srv := api.NewServer(
		domain.ServerConfig{Host: "127.0.0.1", Port: 0},
		domain.ScanConfig{},
		repo,
		cache.NewLRUCache(100),
		eventBus,
		aggregator,
		engine,
		advisor.New(domain.AdvisorConfig{}),
		time.Minute,
		"integration",
	)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &stack{ts: ts, repo: repo}
}

func (s *stack) scan(t *testing.T, email string) domain.RiskProfile {
	t.Helper()

	resp, err := http.Get(s.ts.URL + "/scan?email=" + email)
	if err != nil {
		t.Fatalf("scan request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var profile domain.RiskProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		t.Fatalf("failed to decode profile: %v", err)
	}
	return profile
}

func TestScanPipeline(t *testing.T) {
	providerA := &stubProvider{
		name: "StubA",
		byEmail: map[string][]domain.Exposure{
			"one@example.com": {
				{ID: "a1", Source: "Adobe", Type: domain.TypeBreach,
					Severity: domain.SeverityLow, DataClasses: []string{"Email", "Username"}},
			},
			"many@example.com": {
				{ID: "a2", Source: "Adobe", Type: domain.TypeBreach,
					Severity: domain.SeverityMedium, DataClasses: []string{"Email"}},
				{ID: "a3", Source: "Canva", Type: domain.TypeBreach,
					Severity: domain.SeverityMedium, DataClasses: []string{"Email"}},
			},
		},
	}
	providerB := &stubProvider{
		name: "StubB",
		byEmail: map[string][]domain.Exposure{
			"many@example.com": {
				// Same source as providerA: must merge, not double count.
				{ID: "b1", Source: "adobe", Type: domain.TypeBreach,
					Severity: domain.SeverityMedium, DataClasses: []string{"Email"}},
				{ID: "b2", Source: "PDL", Type: domain.TypeScrape,
					Severity: domain.SeverityMedium, DataClasses: []string{"Email"}},
			},
		},
	}

	s := newStack(t, []domain.Provider{providerA, providerB})

	t.Run("CleanEmail", func(t *testing.T) {
		profile := s.scan(t, "clean@example.com")

		if profile.Score != 100 {
			t.Errorf("expected score 100, got %d", profile.Score)
		}
		if profile.Level != domain.LevelLow {
			t.Errorf("expected Low level, got %s", profile.Level)
		}
		if len(profile.Details.Exposures) != 0 {
			t.Errorf("expected no exposures, got %d", len(profile.Details.Exposures))
		}
	})

	t.Run("SingleBreachHitsCeiling", func(t *testing.T) {
		profile := s.scan(t, "one@example.com")

		if profile.Score != 60 {
			t.Errorf("expected score 60, got %d", profile.Score)
		}
		if profile.Level != domain.LevelHigh {
			t.Errorf("expected High level, got %s", profile.Level)
		}
	})

	t.Run("MergedMultiProviderResult", func(t *testing.T) {
		profile := s.scan(t, "many@example.com")

		// Adobe (from both providers) merges into one exposure; three
		// distinct sources survive.
		if len(profile.Details.Exposures) != 3 {
			t.Fatalf("expected 3 merged exposures, got %d", len(profile.Details.Exposures))
		}
		if profile.Details.Breaches != 2 {
			t.Errorf("expected 2 breaches, got %d", profile.Details.Breaches)
		}
		// 100 - 25 - 25 - 10 = 40, already under the ceiling.
		if profile.Score != 40 {
			t.Errorf("expected score 40, got %d", profile.Score)
		}
		if profile.Level != domain.LevelHigh {
			t.Errorf("expected High level, got %s", profile.Level)
		}
		if len(profile.Details.Stats.ScannedProviders) != 2 {
			t.Errorf("expected 2 scanned providers, got %v", profile.Details.Stats.ScannedProviders)
		}

		want := "Analysis across 2 intelligence sources found 2 breaches and leaks. Your overall profile shows a high risk level."
		if profile.Summary != want {
			t.Errorf("summary mismatch:\n got %q\nwant %q", profile.Summary, want)
		}
	})
}

func TestMonitorPipeline(t *testing.T) {
	provider := &stubProvider{
		name: "Stub",
		byEmail: map[string][]domain.Exposure{
			"leaked@example.com": {
				{ID: "1", Source: "Canva", Type: domain.TypeBreach,
					Severity: domain.SeverityHigh, DataClasses: []string{"Email", "Password"}},
			},
		},
	}
	s := newStack(t, []domain.Provider{provider})

	create := func(t *testing.T, email string) domain.Monitor {
		t.Helper()

		body, _ := json.Marshal(map[string]string{"email": email})
		resp, err := http.Post(s.ts.URL+"/monitors", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("create request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201, got %d", resp.StatusCode)
		}

		var m domain.Monitor
		if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
			t.Fatalf("failed to decode monitor: %v", err)
		}
		return m
	}

	// waitForStatus polls until the background check settles the monitor.
	waitForStatus := func(t *testing.T, id string) *domain.Monitor {
		t.Helper()

		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			m, err := s.repo.GetMonitor(context.Background(), id)
			if err != nil {
				t.Fatalf("GetMonitor failed: %v", err)
			}
			if m.Status != domain.MonitorScanning {
				return m
			}
			time.Sleep(50 * time.Millisecond)
		}
		t.Fatal("monitor never left SCANNING")
		return nil
	}

	t.Run("LeakedEmail", func(t *testing.T) {
		created := create(t, "leaked@example.com")

		m := waitForStatus(t, created.ID)
		if m.Status != domain.MonitorLeaked {
			t.Errorf("expected LEAKED, got %s", m.Status)
		}
		if m.LeakCount != 1 {
			t.Errorf("expected leak count 1, got %d", m.LeakCount)
		}

		// The check leaves a history record behind.
		resp, err := http.Get(fmt.Sprintf("%s/monitors/%s/history", s.ts.URL, created.ID))
		if err != nil {
			t.Fatalf("history request failed: %v", err)
		}
		defer resp.Body.Close()

		var history struct {
			Records []domain.ScanRecord `json:"records"`
			Count   int                 `json:"count"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&history); err != nil {
			t.Fatalf("failed to decode history: %v", err)
		}
		if history.Count != 1 {
			t.Fatalf("expected 1 history record, got %d", history.Count)
		}
		if history.Records[0].Breaches != 1 {
			t.Errorf("expected 1 breach recorded, got %d", history.Records[0].Breaches)
		}
	})

	t.Run("CleanEmail", func(t *testing.T) {
		created := create(t, "fine@example.com")

		m := waitForStatus(t, created.ID)
		if m.Status != domain.MonitorClean {
			t.Errorf("expected CLEAN, got %s", m.Status)
		}
		if m.LeakCount != 0 {
			t.Errorf("expected leak count 0, got %d", m.LeakCount)
		}
	})
}
