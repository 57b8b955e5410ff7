package domain

import (
	"context"
	"time"
)

// Repository defines the interface for monitor and scan persistence.
// The scan pipeline itself never reads persisted state; the repository
// serves the monitor-tracking feature and scan history.
type Repository interface {
	// Monitor operations
	SaveMonitor(ctx context.Context, m *Monitor) error
	GetMonitor(ctx context.Context, id string) (*Monitor, error)
	GetMonitorByEmail(ctx context.Context, email string) (*Monitor, error)
	ListMonitors(ctx context.Context) ([]*Monitor, error)
	DeleteMonitor(ctx context.Context, id string) error
	UpdateMonitorStatus(ctx context.Context, id string, status MonitorStatus, leakCount int, checkedAt time.Time) error

	// Scan history
	SaveScanRecord(ctx context.Context, rec *ScanRecord) error
	ListScanRecords(ctx context.Context, monitorID string, limit int) ([]*ScanRecord, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
