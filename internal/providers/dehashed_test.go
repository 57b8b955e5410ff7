package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/idtrace/idtrace/internal/domain"
)

func newTestDeHashed(t *testing.T, handler http.HandlerFunc) *DeHashed {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	d := NewDeHashed(domain.ProviderConfig{
		DeHashedUser:   "account@example.com",
		DeHashedAPIKey: "test-key",
	}, srv.Client())
	d.baseURL = srv.URL
	return d
}

func TestDeHashedScanEntries(t *testing.T) {
	d := newTestDeHashed(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "account@example.com" || pass != "test-key" {
			t.Errorf("unexpected basic auth: %s/%s", user, pass)
		}
		w.Write([]byte(`{
			"success": true,
			"entries": [
				{"email": "jdoe@example.com", "database_name": "Adobe", "obtained_date": "2013-10-04", "hashed_password": "abc"},
				{"email": "jdoe@example.com", "database_name": "", "obtained_date": ""}
			]
		}`))
	})

	exposures, err := d.Scan(context.Background(), "jdoe@example.com")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(exposures) != 2 {
		t.Fatalf("expected 2 exposures, got %d", len(exposures))
	}

	if exposures[0].Source != "Adobe" {
		t.Errorf("expected source Adobe, got %s", exposures[0].Source)
	}
	if exposures[0].Type != domain.TypeBreach {
		t.Errorf("expected type Breach, got %s", exposures[0].Type)
	}
	if exposures[0].DataClasses[1] != "Hashed Password" {
		t.Errorf("expected Hashed Password class, got %v", exposures[0].DataClasses)
	}

	if exposures[1].Source != "DeHashed Entry" {
		t.Errorf("expected default source, got %s", exposures[1].Source)
	}
	if exposures[1].Date != "Unknown" {
		t.Errorf("expected Unknown date, got %s", exposures[1].Date)
	}
	if exposures[1].DataClasses[1] != "Password" {
		t.Errorf("expected Password class, got %v", exposures[1].DataClasses)
	}
}

func TestDeHashedScanRejectedCredentials(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound} {
		d := newTestDeHashed(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		exposures, err := d.Scan(context.Background(), "jdoe@example.com")
		if err != nil {
			t.Errorf("status %d should degrade to empty result, got error: %v", status, err)
		}
		if len(exposures) != 0 {
			t.Errorf("status %d: expected no exposures, got %d", status, len(exposures))
		}
	}
}

func TestDeHashedScanServerError(t *testing.T) {
	d := newTestDeHashed(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := d.Scan(context.Background(), "jdoe@example.com"); err == nil {
		t.Error("expected error for upstream failure")
	}
}

func TestDeHashedDisabledWithoutKey(t *testing.T) {
	d := NewDeHashed(domain.ProviderConfig{}, http.DefaultClient)
	if d.Enabled() {
		t.Error("adapter should be disabled without an API key")
	}
}
