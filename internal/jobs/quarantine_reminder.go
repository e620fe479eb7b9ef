// Package jobs contains background workers started alongside the HTTP server.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkgindex/pkgindex/internal/config"
	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/notify"
	"github.com/pkgindex/pkgindex/internal/telemetry"
)

// QuarantineReminder periodically re-notifies the admin channel about
// projects that have been sitting in quarantine past the review deadline.
type QuarantineReminder struct {
	projects *repositories.ProjectRepository
	notifier notify.Notifier
	cfg      config.QuarantineConfig
	logger   *slog.Logger
	interval time.Duration
	stopChan chan struct{}
}

// NewQuarantineReminder creates a reminder job. The check interval and
// reminder age fall back to defaults when unset in the config.
func NewQuarantineReminder(projects *repositories.ProjectRepository, notifier notify.Notifier, cfg config.QuarantineConfig, logger *slog.Logger) *QuarantineReminder {
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if cfg.ReminderAfter <= 0 {
		cfg.ReminderAfter = 168 * time.Hour
	}
	return &QuarantineReminder{
		projects: projects,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start runs the reminder loop until Stop is called or the context ends.
// It performs an immediate check on startup, then checks on each tick.
func (r *QuarantineReminder) Start(ctx context.Context) {
	if !r.cfg.ReminderEnabled {
		r.logger.Info("quarantine reminder job disabled")
		return
	}

	r.logger.Info("starting quarantine reminder job",
		"interval", r.interval,
		"reminder_after", r.cfg.ReminderAfter)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			r.runCheck(ctx)
		case <-r.stopChan:
			r.logger.Info("quarantine reminder job stopped")
			return
		case <-ctx.Done():
			r.logger.Info("quarantine reminder job stopped", "reason", ctx.Err())
			return
		}
	}
}

// Stop signals the reminder loop to exit.
func (r *QuarantineReminder) Stop() {
	close(r.stopChan)
}

func (r *QuarantineReminder) runCheck(ctx context.Context) {
	cutoff := time.Now().Add(-r.cfg.ReminderAfter)

	overdue, err := r.projects.ListQuarantinedSince(ctx, cutoff)
	if err != nil {
		r.logger.Error("failed to list overdue quarantined projects", "error", err)
		return
	}

	if len(overdue) == 0 {
		return
	}

	r.logger.Info("found quarantined projects awaiting review", "count", len(overdue))

	for _, project := range overdue {
		event := &notify.Event{
			Kind:        notify.KindQuarantineReminder,
			ProjectID:   project.ID,
			ProjectName: project.Name,
			ToStatus:    string(project.LifecycleStatus),
			Reason:      "quarantine review overdue",
			OccurredAt:  time.Now().UTC(),
		}

		notifyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := r.notifier.Notify(notifyCtx, event)
		cancel()
		if err != nil {
			r.logger.Error("failed to send quarantine reminder",
				"project", project.Name,
				"error", err)
			continue
		}

		telemetry.QuarantineRemindersSentTotal.Inc()
		r.logger.Info("sent quarantine reminder",
			"project", project.Name,
			"quarantined_at", project.UpdatedAt)
	}
}
