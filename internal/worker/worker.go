// Package worker runs background monitor checks off the event bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/idtrace/idtrace/internal/domain"
	"github.com/idtrace/idtrace/internal/intel"
	"github.com/idtrace/idtrace/internal/policy"
	"github.com/idtrace/idtrace/internal/scoring"
)

// Worker consumes monitor check requests, runs the scan pipeline, and
// persists the outcome.
type Worker struct {
	bus        domain.EventBus
	repo       domain.Repository
	aggregator *intel.Aggregator
	engine     *scoring.Engine
	policy     *policy.Engine

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a monitor check worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, aggregator *intel.Aggregator, engine *scoring.Engine, policyEngine *policy.Engine) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:        bus,
		repo:       repo,
		aggregator: aggregator,
		engine:     engine,
		policy:     policyEngine,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start subscribes to the monitor check topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicMonitorCheck, w.handleCheck)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("monitor worker started", "topic", domain.TopicMonitorCheck)
	return nil
}

// CheckMessage requests a background scan of one monitor.
type CheckMessage struct {
	MonitorID string `json:"monitorId"`
	Email     string `json:"email"`
}

// CompletedMessage summarizes a finished background scan. It is
// published on scan.completed for every check, and on monitor.alert
// when the alert policy matches.
type CompletedMessage struct {
	MonitorID string           `json:"monitorId"`
	Email     string           `json:"email"`
	Score     int              `json:"score"`
	Level     domain.RiskLevel `json:"level"`
	Breaches  int              `json:"breaches"`
	Exposures int              `json:"exposures"`
	CheckedAt time.Time        `json:"checkedAt"`
}

// handleCheck runs the full scan pipeline for one monitor.
func (w *Worker) handleCheck(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var check CheckMessage
	if err := json.Unmarshal(msg.Payload, &check); err != nil {
		slog.Error("failed to parse check message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("checking monitor",
		"monitor_id", check.MonitorID,
		"email", check.Email,
	)

	checkedAt := time.Now().UTC()

	result, err := w.aggregator.Scan(ctx, check.Email)
	if err != nil {
		// A failed check leaves the monitor CLEAN with a fresh timestamp
		// so it is retried on the next cycle instead of wedging in
		// SCANNING.
		slog.Error("monitor scan failed",
			"monitor_id", check.MonitorID,
			"error", err,
		)
		if updateErr := w.repo.UpdateMonitorStatus(ctx, check.MonitorID, domain.MonitorClean, 0, checkedAt); updateErr != nil {
			slog.Error("failed to reset monitor after scan failure",
				"monitor_id", check.MonitorID,
				"error", updateErr,
			)
		}
		return err
	}

	profile := w.engine.Score(result)

	// Status and leak count key on total exposures, not only
	// confirmed breaches.
	leakCount := len(result.Exposures)
	status := domain.MonitorClean
	if leakCount > 0 {
		status = domain.MonitorLeaked
	}

	if err := w.repo.UpdateMonitorStatus(ctx, check.MonitorID, status, leakCount, checkedAt); err != nil {
		slog.Error("failed to update monitor status",
			"monitor_id", check.MonitorID,
			"error", err,
		)
	}

	record := &domain.ScanRecord{
		ID:        uuid.New().String(),
		MonitorID: check.MonitorID,
		Email:     check.Email,
		Score:     profile.Score,
		Level:     profile.Level,
		Breaches:  result.Breaches,
		Exposures: len(result.Exposures),
		CreatedAt: checkedAt,
	}
	if err := w.repo.SaveScanRecord(ctx, record); err != nil {
		slog.Error("failed to save scan record",
			"monitor_id", check.MonitorID,
			"error", err,
		)
	}

	completed := CompletedMessage{
		MonitorID: check.MonitorID,
		Email:     check.Email,
		Score:     profile.Score,
		Level:     profile.Level,
		Breaches:  result.Breaches,
		Exposures: len(result.Exposures),
		CheckedAt: checkedAt,
	}
	payload, _ := json.Marshal(completed)

	if err := w.bus.Publish(ctx, domain.TopicScanCompleted, payload); err != nil {
		slog.Error("failed to publish scan completion",
			"monitor_id", check.MonitorID,
			"error", err,
		)
	}

	if w.policy != nil && w.policy.ShouldAlert(profile) {
		if err := w.bus.Publish(ctx, domain.TopicMonitorAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"monitor_id", check.MonitorID,
				"error", err,
			)
		}
	}

	slog.Info("monitor checked",
		"monitor_id", check.MonitorID,
		"status", status,
		"score", profile.Score,
		"breaches", result.Breaches,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("monitor worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
