package worker

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/idtrace/idtrace/internal/bus"
	"github.com/idtrace/idtrace/internal/domain"
	"github.com/idtrace/idtrace/internal/intel"
	"github.com/idtrace/idtrace/internal/policy"
	"github.com/idtrace/idtrace/internal/repository"
	"github.com/idtrace/idtrace/internal/scoring"
)

type fakeProvider struct {
	name      string
	exposures []domain.Exposure
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Enabled() bool { return true }

func (f *fakeProvider) Scan(ctx context.Context, identifier string) ([]domain.Exposure, error) {
	return f.exposures, nil
}

func newTestWorker(t *testing.T, eventBus domain.EventBus, exposures []domain.Exposure) (*Worker, domain.Repository) {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "worker.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	aggregator := intel.NewAggregator([]domain.Provider{
		&fakeProvider{name: "Fake", exposures: exposures},
	}, time.Second)

	policyEngine, err := policy.NewEngine("")
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	return NewWorker(eventBus, repo, aggregator, scoring.NewEngine(), policyEngine), repo
}

func saveTestMonitor(t *testing.T, repo domain.Repository, email string) *domain.Monitor {
	t.Helper()

	m := &domain.Monitor{
		ID:        uuid.New().String(),
		Email:     email,
		Status:    domain.MonitorScanning,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.SaveMonitor(context.Background(), m); err != nil {
		t.Fatalf("failed to save monitor: %v", err)
	}
	return m
}

func publishCheck(t *testing.T, eventBus domain.EventBus, m *domain.Monitor) {
	t.Helper()

	payload, _ := json.Marshal(CheckMessage{MonitorID: m.ID, Email: m.Email})
	if err := eventBus.Publish(context.Background(), domain.TopicMonitorCheck, payload); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
}

func TestWorkerStartAndStop(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	w, _ := newTestWorker(t, eventBus, nil)

	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stats := w.GetStats()
	if stats.SubscriptionCount != 1 {
		t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
	}

	if err := w.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	stats = w.GetStats()
	if stats.SubscriptionCount != 0 {
		t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
	}
}

func TestWorkerProcessesCheck(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	w, repo := newTestWorker(t, eventBus, []domain.Exposure{
		{ID: "1", Source: "Adobe", Type: domain.TypeBreach,
			Severity: domain.SeverityHigh, DataClasses: []string{"Email", "Password"}},
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	var completedReceived atomic.Bool
	var completedPayload []byte

	eventBus.Subscribe(context.Background(), domain.TopicScanCompleted, func(ctx context.Context, msg *domain.Message) error {
		completedPayload = msg.Payload
		completedReceived.Store(true)
		return nil
	})

	time.Sleep(50 * time.Millisecond)

	m := saveTestMonitor(t, repo, "jdoe@example.com")
	publishCheck(t, eventBus, m)

	time.Sleep(200 * time.Millisecond)

	if !completedReceived.Load() {
		t.Fatal("expected scan completion to be published")
	}

	var completed CompletedMessage
	if err := json.Unmarshal(completedPayload, &completed); err != nil {
		t.Fatalf("failed to parse completion: %v", err)
	}
	if completed.MonitorID != m.ID {
		t.Errorf("expected monitorID %s, got %s", m.ID, completed.MonitorID)
	}
	if completed.Breaches != 1 {
		t.Errorf("expected 1 breach, got %d", completed.Breaches)
	}

	// Monitor flips to LEAKED with the exposure count.
	got, err := repo.GetMonitor(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetMonitor failed: %v", err)
	}
	if got.Status != domain.MonitorLeaked {
		t.Errorf("expected LEAKED status, got %s", got.Status)
	}
	if got.LeakCount != 1 {
		t.Errorf("expected leak count 1, got %d", got.LeakCount)
	}
	if got.LastChecked == nil {
		t.Error("expected lastChecked to be set")
	}

	// History records the scan.
	records, err := repo.ListScanRecords(context.Background(), m.ID, 10)
	if err != nil {
		t.Fatalf("ListScanRecords failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 scan record, got %d", len(records))
	}
	if records[0].Level != domain.LevelHigh {
		t.Errorf("expected High level record, got %s", records[0].Level)
	}
}

func TestWorkerCleanResult(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	w, repo := newTestWorker(t, eventBus, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	var alertReceived atomic.Bool
	eventBus.Subscribe(context.Background(), domain.TopicMonitorAlert, func(ctx context.Context, msg *domain.Message) error {
		alertReceived.Store(true)
		return nil
	})

	time.Sleep(50 * time.Millisecond)

	m := saveTestMonitor(t, repo, "clean@example.com")
	publishCheck(t, eventBus, m)

	time.Sleep(200 * time.Millisecond)

	got, err := repo.GetMonitor(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("GetMonitor failed: %v", err)
	}
	if got.Status != domain.MonitorClean {
		t.Errorf("expected CLEAN status, got %s", got.Status)
	}

	if alertReceived.Load() {
		t.Error("clean result must not trigger an alert")
	}
}

func TestWorkerAlertsOnBreach(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	w, repo := newTestWorker(t, eventBus, []domain.Exposure{
		{ID: "1", Source: "Canva", Type: domain.TypeBreach,
			Severity: domain.SeverityCritical, DataClasses: []string{"Email", "Password"}},
	})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	var alertReceived atomic.Bool
	eventBus.Subscribe(context.Background(), domain.TopicMonitorAlert, func(ctx context.Context, msg *domain.Message) error {
		alertReceived.Store(true)
		return nil
	})

	time.Sleep(50 * time.Millisecond)

	m := saveTestMonitor(t, repo, "breached@example.com")
	publishCheck(t, eventBus, m)

	time.Sleep(200 * time.Millisecond)

	if !alertReceived.Load() {
		t.Error("expected alert for breached monitor")
	}
}

func TestCheckMessageParsing(t *testing.T) {
	msg := CheckMessage{MonitorID: "mon-123", Email: "jdoe@example.com"}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var parsed CheckMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if parsed.MonitorID != msg.MonitorID || parsed.Email != msg.Email {
		t.Errorf("round trip mismatch: %+v", parsed)
	}
}
