package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/idtrace/idtrace/internal/domain"
)

// Maigret discovers public accounts by shelling out to the maigret
// OSINT tool. The username is derived from the email's local part. Each
// invocation writes its report into a uuid-suffixed temp directory so
// concurrent scans of different identifiers never collide; the
// directory is removed on every exit path.
type Maigret struct {
	binary   string
	topSites int
	tmpDir   string
}

// NewMaigret creates the maigret adapter.
func NewMaigret(cfg domain.ProviderConfig) *Maigret {
	topSites := cfg.MaigretTopSites
	if topSites <= 0 {
		topSites = 20
	}
	return &Maigret{
		binary:   cfg.MaigretBinary,
		topSites: topSites,
		tmpDir:   os.TempDir(),
	}
}

// Name implements domain.Provider.
func (m *Maigret) Name() string { return "Maigret" }

// Enabled implements domain.Provider.
func (m *Maigret) Enabled() bool { return m.binary != "" }

type maigretReport struct {
	Status string `json:"status"`
	Sites  map[string]struct {
		URL string `json:"url"`
	} `json:"sites"`
}

// Scan implements domain.Provider.
func (m *Maigret) Scan(ctx context.Context, identifier string) ([]domain.Exposure, error) {
	username := usernameFromEmail(identifier)
	if username == "" {
		return nil, nil
	}

	reportDir := filepath.Join(m.tmpDir, "maigret-"+uuid.New().String())
	if err := os.MkdirAll(reportDir, 0o700); err != nil {
		return nil, fmt.Errorf("maigret: create report dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(reportDir); err != nil {
			slog.Warn("failed to clean up maigret report", "dir", reportDir, "error", err)
		}
	}()

	cmd := exec.CommandContext(ctx, m.binary, username,
		"--json", "simple",
		"--top-sites", strconv.Itoa(m.topSites),
		"--folderoutput", reportDir,
		"--no-progressbar",
	)

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			// Tool not installed: degrade silently, this host simply
			// has no account discovery.
			slog.Debug("maigret binary not found", "binary", m.binary)
			return nil, nil
		}
		return nil, fmt.Errorf("maigret: run failed: %w", err)
	}

	reportPath := filepath.Join(reportDir, fmt.Sprintf("report_%s_simple.json", username))
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, fmt.Errorf("maigret: read report: %w", err)
	}

	return parseMaigretReport(data)
}

// parseMaigretReport converts a maigret simple JSON report into
// exposures. Found accounts are Low-severity public profiles.
func parseMaigretReport(data []byte) ([]domain.Exposure, error) {
	var report maigretReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("maigret: parse report: %w", err)
	}

	if report.Status != "found" || len(report.Sites) == 0 {
		return nil, nil
	}

	today := time.Now().UTC().Format("2006-01-02")
	exposures := make([]domain.Exposure, 0, len(report.Sites))
	for site, info := range report.Sites {
		exposures = append(exposures, domain.Exposure{
			ID:          "maigret-" + site,
			Source:      site,
			Date:        today,
			Details:     fmt.Sprintf("Public profile found at %s", info.URL),
			DataClasses: []string{"Public Profile"},
			Severity:    domain.SeverityLow,
			Type:        domain.TypeAccount,
		})
	}
	return exposures, nil
}
