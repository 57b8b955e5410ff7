package domain

import "time"

// MonitorStatus is the persisted state of a tracked identifier.
type MonitorStatus string

const (
	MonitorClean    MonitorStatus = "CLEAN"
	MonitorLeaked   MonitorStatus = "LEAKED"
	MonitorScanning MonitorStatus = "SCANNING"
)

// Monitor is an identifier tracked for recurring scans.
type Monitor struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Status      MonitorStatus `json:"status"`
	LeakCount   int           `json:"leakCount"`
	LastChecked *time.Time    `json:"lastChecked,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// ScanRecord is one persisted scan outcome, kept as monitor history.
type ScanRecord struct {
	ID        string    `json:"id"`
	MonitorID string    `json:"monitorId,omitempty"`
	Email     string    `json:"email"`
	Score     int       `json:"score"`
	Level     RiskLevel `json:"level"`
	Breaches  int       `json:"breaches"`
	Exposures int       `json:"exposures"`
	CreatedAt time.Time `json:"createdAt"`
}
