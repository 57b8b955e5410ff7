// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/idtrace/idtrace/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveMonitor stores a monitor.
func (r *SQLRepository) SaveMonitor(ctx context.Context, m *domain.Monitor) error {
	if m.ID == "" || m.Email == "" {
		return fmt.Errorf("%w: id and email are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO monitors (id, email, status, leak_count, last_checked, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		m.ID, m.Email, m.Status, m.LeakCount, m.LastChecked, m.CreatedAt,
	)
	return err
}

// GetMonitor retrieves a monitor by ID.
func (r *SQLRepository) GetMonitor(ctx context.Context, id string) (*domain.Monitor, error) {
	query := `
		SELECT id, email, status, leak_count, last_checked, created_at
		FROM monitors
		WHERE id = ?
	`
	return r.scanMonitor(r.db.QueryRowContext(ctx, r.rebind(query), id))
}

// GetMonitorByEmail retrieves a monitor by its tracked email.
func (r *SQLRepository) GetMonitorByEmail(ctx context.Context, email string) (*domain.Monitor, error) {
	query := `
		SELECT id, email, status, leak_count, last_checked, created_at
		FROM monitors
		WHERE email = ?
	`
	return r.scanMonitor(r.db.QueryRowContext(ctx, r.rebind(query), email))
}

func (r *SQLRepository) scanMonitor(row *sql.Row) (*domain.Monitor, error) {
	var m domain.Monitor
	var lastChecked sql.NullTime

	err := row.Scan(&m.ID, &m.Email, &m.Status, &m.LeakCount, &lastChecked, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if lastChecked.Valid {
		m.LastChecked = &lastChecked.Time
	}
	return &m, nil
}

// ListMonitors retrieves all monitors, newest first.
func (r *SQLRepository) ListMonitors(ctx context.Context) ([]*domain.Monitor, error) {
	query := `
		SELECT id, email, status, leak_count, last_checked, created_at
		FROM monitors
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var monitors []*domain.Monitor
	for rows.Next() {
		var m domain.Monitor
		var lastChecked sql.NullTime

		if err := rows.Scan(&m.ID, &m.Email, &m.Status, &m.LeakCount, &lastChecked, &m.CreatedAt); err != nil {
			return nil, err
		}
		if lastChecked.Valid {
			m.LastChecked = &lastChecked.Time
		}
		monitors = append(monitors, &m)
	}

	return monitors, rows.Err()
}

// DeleteMonitor removes a monitor and its scan history.
func (r *SQLRepository) DeleteMonitor(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM monitors WHERE id = ?`), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	_, err = r.db.ExecContext(ctx, r.rebind(`DELETE FROM scan_records WHERE monitor_id = ?`), id)
	return err
}

// UpdateMonitorStatus records the outcome of a background check.
func (r *SQLRepository) UpdateMonitorStatus(ctx context.Context, id string, status domain.MonitorStatus, leakCount int, checkedAt time.Time) error {
	query := `
		UPDATE monitors
		SET status = ?, leak_count = ?, last_checked = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), status, leakCount, checkedAt, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveScanRecord appends a scan outcome to the history.
func (r *SQLRepository) SaveScanRecord(ctx context.Context, rec *domain.ScanRecord) error {
	if rec.ID == "" || rec.Email == "" {
		return fmt.Errorf("%w: id and email are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO scan_records (id, monitor_id, email, score, level, breaches, exposures, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.MonitorID, rec.Email, rec.Score, rec.Level,
		rec.Breaches, rec.Exposures, rec.CreatedAt,
	)
	return err
}

// ListScanRecords retrieves a monitor's scan history, newest first.
func (r *SQLRepository) ListScanRecords(ctx context.Context, monitorID string, limit int) ([]*domain.ScanRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, monitor_id, email, score, level, breaches, exposures, created_at
		FROM scan_records
		WHERE monitor_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), monitorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ScanRecord
	for rows.Next() {
		var rec domain.ScanRecord
		if err := rows.Scan(
			&rec.ID, &rec.MonitorID, &rec.Email, &rec.Score, &rec.Level,
			&rec.Breaches, &rec.Exposures, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
