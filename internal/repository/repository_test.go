package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/idtrace/idtrace/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newMonitor(email string) *domain.Monitor {
	return &domain.Monitor{
		ID:        uuid.New().String(),
		Email:     email,
		Status:    domain.MonitorClean,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestMonitorCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := newMonitor("jdoe@example.com")

	t.Run("Save", func(t *testing.T) {
		if err := repo.SaveMonitor(ctx, m); err != nil {
			t.Fatalf("SaveMonitor failed: %v", err)
		}
	})

	t.Run("GetByID", func(t *testing.T) {
		got, err := repo.GetMonitor(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetMonitor failed: %v", err)
		}
		if got.Email != m.Email {
			t.Errorf("expected email %s, got %s", m.Email, got.Email)
		}
		if got.Status != domain.MonitorClean {
			t.Errorf("expected CLEAN status, got %s", got.Status)
		}
		if got.LastChecked != nil {
			t.Errorf("expected nil lastChecked, got %v", got.LastChecked)
		}
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := repo.GetMonitorByEmail(ctx, m.Email)
		if err != nil {
			t.Fatalf("GetMonitorByEmail failed: %v", err)
		}
		if got.ID != m.ID {
			t.Errorf("expected id %s, got %s", m.ID, got.ID)
		}
	})

	t.Run("DuplicateEmailRejected", func(t *testing.T) {
		dup := newMonitor(m.Email)
		if err := repo.SaveMonitor(ctx, dup); err == nil {
			t.Error("expected error for duplicate email")
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		checkedAt := time.Now().UTC().Truncate(time.Second)
		err := repo.UpdateMonitorStatus(ctx, m.ID, domain.MonitorLeaked, 3, checkedAt)
		if err != nil {
			t.Fatalf("UpdateMonitorStatus failed: %v", err)
		}

		got, err := repo.GetMonitor(ctx, m.ID)
		if err != nil {
			t.Fatalf("GetMonitor failed: %v", err)
		}
		if got.Status != domain.MonitorLeaked {
			t.Errorf("expected LEAKED status, got %s", got.Status)
		}
		if got.LeakCount != 3 {
			t.Errorf("expected leak count 3, got %d", got.LeakCount)
		}
		if got.LastChecked == nil {
			t.Error("expected lastChecked to be set")
		}
	})

	t.Run("List", func(t *testing.T) {
		second := newMonitor("other@example.com")
		if err := repo.SaveMonitor(ctx, second); err != nil {
			t.Fatalf("SaveMonitor failed: %v", err)
		}

		monitors, err := repo.ListMonitors(ctx)
		if err != nil {
			t.Fatalf("ListMonitors failed: %v", err)
		}
		if len(monitors) != 2 {
			t.Errorf("expected 2 monitors, got %d", len(monitors))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := repo.DeleteMonitor(ctx, m.ID); err != nil {
			t.Fatalf("DeleteMonitor failed: %v", err)
		}

		if _, err := repo.GetMonitor(ctx, m.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		if err := repo.DeleteMonitor(ctx, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		err := repo.UpdateMonitorStatus(ctx, "nonexistent", domain.MonitorClean, 0, time.Now())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestScanRecords(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	m := newMonitor("jdoe@example.com")
	if err := repo.SaveMonitor(ctx, m); err != nil {
		t.Fatalf("SaveMonitor failed: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Second).Add(-time.Hour)
	for i := 0; i < 3; i++ {
		rec := &domain.ScanRecord{
			ID:        uuid.New().String(),
			MonitorID: m.ID,
			Email:     m.Email,
			Score:     60 - i*10,
			Level:     domain.LevelHigh,
			Breaches:  i,
			Exposures: i * 2,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.SaveScanRecord(ctx, rec); err != nil {
			t.Fatalf("SaveScanRecord failed: %v", err)
		}
	}

	t.Run("ListNewestFirst", func(t *testing.T) {
		records, err := repo.ListScanRecords(ctx, m.ID, 10)
		if err != nil {
			t.Fatalf("ListScanRecords failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		if records[0].Score != 40 {
			t.Errorf("expected newest record first (score 40), got %d", records[0].Score)
		}
	})

	t.Run("LimitApplied", func(t *testing.T) {
		records, err := repo.ListScanRecords(ctx, m.ID, 2)
		if err != nil {
			t.Fatalf("ListScanRecords failed: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("expected 2 records with limit, got %d", len(records))
		}
	})

	t.Run("DeleteMonitorClearsHistory", func(t *testing.T) {
		if err := repo.DeleteMonitor(ctx, m.ID); err != nil {
			t.Fatalf("DeleteMonitor failed: %v", err)
		}

		records, err := repo.ListScanRecords(ctx, m.ID, 10)
		if err != nil {
			t.Fatalf("ListScanRecords failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected empty history after monitor delete, got %d", len(records))
		}
	})
}

func TestRepositoryPing(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}
