// Package lifecycle implements the project lifecycle state machine: which
// status transitions are legal, how they are persisted, and what follows from
// them. A transition is a single database transaction that locks the project
// row, re-validates the edge against the locked status, writes the new status,
// and appends an audit event. Two concurrent transitions on the same project
// therefore serialize: the second sees the first's committed status and fails
// validation if the edge is no longer legal.
//
// Notifications are deliberately outside the transaction. They fire after
// commit on a background goroutine and a delivery failure never unwinds a
// committed transition.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkgindex/pkgindex/internal/db/models"
	"github.com/pkgindex/pkgindex/internal/db/repositories"
	"github.com/pkgindex/pkgindex/internal/notify"
	"github.com/pkgindex/pkgindex/internal/safego"
	"github.com/pkgindex/pkgindex/internal/telemetry"
)

// Service coordinates lifecycle transitions across the project store, the
// transition audit log, and the notification pipeline.
type Service struct {
	db          *sql.DB
	projects    *repositories.ProjectRepository
	transitions *repositories.TransitionRepository
	notifier    notify.Notifier
	logger      *slog.Logger
}

// NewService creates a new lifecycle service
func NewService(db *sql.DB, projects *repositories.ProjectRepository, transitions *repositories.TransitionRepository, notifier notify.Notifier, logger *slog.Logger) *Service {
	return &Service{
		db:          db,
		projects:    projects,
		transitions: transitions,
		notifier:    notifier,
		logger:      logger,
	}
}

// Quarantine moves a project into quarantine. The reason is mandatory and is
// recorded on the audit event. Returns ErrProjectNotFound if the project does
// not exist, ErrReasonRequired if reason is blank, and InvalidTransitionError
// if the project is already quarantined.
func (s *Service) Quarantine(ctx context.Context, projectName, actorID, reason string) (*models.TransitionEvent, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	project, err := s.projects.GetProjectByName(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	return s.transition(ctx, project, models.StatusQuarantineEnter, actorID, &reason)
}

// Clear releases a project from quarantine. The project keeps its releases
// and reappears in the public index immediately. Returns
// InvalidTransitionError if the project is not currently quarantined.
func (s *Service) Clear(ctx context.Context, projectName, actorID string) (*models.TransitionEvent, error) {
	project, err := s.projects.GetProjectByName(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up project: %w", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}

	return s.transition(ctx, project, models.StatusQuarantineExit, actorID, nil)
}

// transition performs a single state machine step as one transaction.
// The row lock taken by GetStatusForUpdate is what serializes concurrent
// transitions on the same project: validation always runs against the status
// the previous transaction committed, never a stale read.
func (s *Service) transition(ctx context.Context, project *models.Project, to models.LifecycleStatus, actorID string, reason *string) (*models.TransitionEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	from, err := s.projects.GetStatusForUpdate(ctx, tx, project.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to read project status: %w", err)
	}

	if !from.CanTransitionTo(to) {
		return nil, &InvalidTransitionError{From: from, To: to}
	}

	if err := s.projects.SetStatusTx(ctx, tx, project.ID, to); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project status: %w", err)
	}

	event := &models.TransitionEvent{
		ProjectID:  project.ID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	}
	if err := s.transitions.CreateTx(ctx, tx, event); err != nil {
		return nil, fmt.Errorf("failed to record transition event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	telemetry.LifecycleTransitionsTotal.WithLabelValues(string(to)).Inc()
	s.logger.Info("lifecycle transition committed",
		"project", project.Name,
		"from", from,
		"to", to,
		"actor", actorID)

	s.notifyTransition(project, event)

	return event, nil
}

// notifyTransition emits a best-effort notification for a committed
// transition. It runs on a background goroutine with its own deadline so a
// slow notifier cannot stall the request that triggered the transition.
func (s *Service) notifyTransition(project *models.Project, event *models.TransitionEvent) {
	if s.notifier == nil {
		return
	}

	kind := notify.KindQuarantineEntered
	if event.ToStatus == models.StatusQuarantineExit {
		kind = notify.KindQuarantineCleared
	}

	ev := &notify.Event{
		Kind:        kind,
		ProjectID:   project.ID,
		ProjectName: project.Name,
		FromStatus:  string(event.FromStatus),
		ToStatus:    string(event.ToStatus),
		OccurredAt:  event.CreatedAt,
	}
	if event.Reason != nil {
		ev.Reason = *event.Reason
	}
	ev.ActorID = event.ActorID

	safego.Go("lifecycle notify", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, ev); err != nil {
			s.logger.Warn("transition notification failed",
				"project", project.Name,
				"kind", kind,
				"error", err)
		}
	})
}

// Status returns the current lifecycle status of the named project.
func (s *Service) Status(ctx context.Context, projectName string) (models.LifecycleStatus, error) {
	project, err := s.projects.GetProjectByName(ctx, projectName)
	if err != nil {
		return "", fmt.Errorf("failed to look up project: %w", err)
	}
	if project == nil {
		return "", ErrProjectNotFound
	}
	return project.LifecycleStatus, nil
}

// History returns the full transition history for a project, oldest first.
// The argument may be a project name or, for projects that have since been
// deleted, the historical project ID: events outlive the project row and stay
// queryable by ID.
func (s *Service) History(ctx context.Context, nameOrID string) ([]*models.TransitionEvent, error) {
	projectID := nameOrID

	project, err := s.projects.GetProjectByName(ctx, nameOrID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up project: %w", err)
	}
	if project != nil {
		projectID = project.ID
	}

	events, err := s.transitions.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transition events: %w", err)
	}

	if project == nil && len(events) == 0 {
		return nil, ErrProjectNotFound
	}

	return events, nil
}

// CheckMutable returns nil if actor may modify the project, and a
// ProjectQuarantinedError if the project is quarantined and the actor is not
// an admin. Admins stay exempt so they can remediate quarantined projects.
func (s *Service) CheckMutable(project *models.Project, actor *models.User) error {
	if !project.LifecycleStatus.BlocksMutation() {
		return nil
	}
	if actor != nil && actor.IsAdmin() {
		return nil
	}

	telemetry.BlockedMutationsTotal.Inc()
	return &ProjectQuarantinedError{ProjectName: project.Name}
}
