package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/idtrace/idtrace/internal/advisor"
	"github.com/idtrace/idtrace/internal/domain"
	"github.com/idtrace/idtrace/internal/intel"
	"github.com/idtrace/idtrace/internal/repository"
	"github.com/idtrace/idtrace/internal/scoring"
	"github.com/idtrace/idtrace/internal/worker"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo       domain.Repository
	cache      domain.Cache
	bus        domain.EventBus
	aggregator *intel.Aggregator
	engine     *scoring.Engine
	advisor    *advisor.Advisor
	profileTTL time.Duration
	version    string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, aggregator *intel.Aggregator, engine *scoring.Engine, adv *advisor.Advisor, profileTTL time.Duration, version string) *Handler {
	if profileTTL <= 0 {
		profileTTL = 15 * time.Minute
	}
	return &Handler{
		repo:       repo,
		cache:      cache,
		bus:        bus,
		aggregator: aggregator,
		engine:     engine,
		advisor:    adv,
		profileTTL: profileTTL,
		version:    version,
	}
}

// Scan handles GET /scan requests. The result is cached per lowercased
// email; refresh=true bypasses the cache, analyze=true adds advisor
// narrative output.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("email")))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "email query parameter is required",
		})
		return
	}

	analyze := r.URL.Query().Get("analyze") == "true"
	refresh := r.URL.Query().Get("refresh") == "true"

	if !refresh && h.cache != nil {
		cached, err := h.cache.GetProfile(ctx, email)
		if err != nil {
			slog.Warn("profile cache read failed", "error", err)
		}
		// A cached profile without narrative can't serve an analyze
		// request; fall through to a fresh scan in that case.
		if cached != nil && (!analyze || cached.Analysis != "") {
			slog.Debug("profile served from cache", "email", email)
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	result, err := h.aggregator.Scan(ctx, email)
	if err != nil {
		if errors.Is(err, intel.ErrInvalidIdentifier) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "email query parameter is required",
			})
			return
		}
		slog.Error("scan failed", "email", email, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "scan failed",
		})
		return
	}

	profile := h.engine.Score(result)

	if analyze && h.advisor != nil {
		profile.Analysis = h.advisor.Analyze(ctx, profile)
		profile.ActionPlan = h.advisor.ActionPlan(ctx, profile.Level, profile.Details.Exposures)
	}

	if h.cache != nil {
		if err := h.cache.SetProfile(ctx, email, profile, h.profileTTL); err != nil {
			slog.Warn("profile cache write failed", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, profile)
}

// CreateMonitorRequest is the request body for POST /monitors.
type CreateMonitorRequest struct {
	Email string `json:"email"`
}

// CreateMonitor registers an email for recurring background checks and
// queues its first scan.
func (h *Handler) CreateMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "email is required",
		})
		return
	}

	existing, err := h.repo.GetMonitorByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("monitor lookup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to create monitor",
		})
		return
	}
	if existing != nil {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "monitor already exists for this email",
		})
		return
	}

	m := &domain.Monitor{
		ID:        uuid.New().String(),
		Email:     email,
		Status:    domain.MonitorScanning,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.repo.SaveMonitor(ctx, m); err != nil {
		slog.Error("failed to save monitor", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to create monitor",
		})
		return
	}

	h.queueCheck(ctx, m)

	writeJSON(w, http.StatusCreated, m)
}

// ListMonitors returns all registered monitors.
func (h *Handler) ListMonitors(w http.ResponseWriter, r *http.Request) {
	monitors, err := h.repo.ListMonitors(r.Context())
	if err != nil {
		slog.Error("failed to list monitors", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list monitors",
		})
		return
	}

	if monitors == nil {
		monitors = []*domain.Monitor{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"monitors": monitors,
		"count":    len(monitors),
	})
}

// GetMonitor retrieves a single monitor by ID.
func (h *Handler) GetMonitor(w http.ResponseWriter, r *http.Request) {
	m, ok := h.findMonitor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMonitor removes a monitor and its history.
func (h *Handler) DeleteMonitor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.repo.DeleteMonitor(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "monitor not found",
		})
		return
	}
	if err != nil {
		slog.Error("failed to delete monitor", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete monitor",
		})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CheckMonitor queues an immediate background check.
func (h *Handler) CheckMonitor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	m, ok := h.findMonitor(w, r)
	if !ok {
		return
	}

	checkedAt := time.Now().UTC()
	if err := h.repo.UpdateMonitorStatus(ctx, m.ID, domain.MonitorScanning, m.LeakCount, checkedAt); err != nil {
		slog.Warn("failed to mark monitor scanning", "id", m.ID, "error", err)
	}

	h.queueCheck(ctx, m)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "check queued",
		"id":     m.ID,
	})
}

// MonitorHistory returns a monitor's persisted scan records.
func (h *Handler) MonitorHistory(w http.ResponseWriter, r *http.Request) {
	m, ok := h.findMonitor(w, r)
	if !ok {
		return
	}

	records, err := h.repo.ListScanRecords(r.Context(), m.ID, 50)
	if err != nil {
		slog.Error("failed to list scan records", "id", m.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load history",
		})
		return
	}

	if records == nil {
		records = []*domain.ScanRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"monitorId": m.ID,
		"records":   records,
		"count":     len(records),
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// findMonitor loads the monitor named by the {id} URL param, writing
// the error response on failure.
func (h *Handler) findMonitor(w http.ResponseWriter, r *http.Request) (*domain.Monitor, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "monitor id is required",
		})
		return nil, false
	}

	m, err := h.repo.GetMonitor(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "monitor not found",
		})
		return nil, false
	}
	if err != nil {
		slog.Error("failed to get monitor", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load monitor",
		})
		return nil, false
	}

	return m, true
}

// queueCheck publishes a monitor check request; the worker picks it up.
func (h *Handler) queueCheck(ctx context.Context, m *domain.Monitor) {
	if h.bus == nil {
		return
	}

	payload, _ := json.Marshal(worker.CheckMessage{MonitorID: m.ID, Email: m.Email})
	if err := h.bus.Publish(ctx, domain.TopicMonitorCheck, payload); err != nil {
		slog.Error("failed to queue monitor check", "id", m.ID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
