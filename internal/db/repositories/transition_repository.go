// transition_repository.go implements TransitionRepository, the append-only
// audit log of lifecycle transitions. Events are inserted inside the same
// transaction as the status write so the log can never disagree with the
// stored status, and they are never updated or deleted afterwards.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkgindex/pkgindex/internal/db/models"
)

// TransitionRepository handles transition event database operations
type TransitionRepository struct {
	db *sql.DB
}

// NewTransitionRepository creates a new TransitionRepository
func NewTransitionRepository(db *sql.DB) *TransitionRepository {
	return &TransitionRepository{db: db}
}

// CreateTx appends a transition event inside tx. The ID and timestamp are
// assigned here so the caller gets them back on the event it passed in.
// A failed insert must fail the caller's transaction: event persistence is
// not best-effort.
func (r *TransitionRepository) CreateTx(ctx context.Context, tx *sql.Tx, event *models.TransitionEvent) error {
	event.ID = uuid.New().String()
	event.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO transition_events (id, project_id, actor_id, from_status, to_status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := tx.ExecContext(ctx, query,
		event.ID,
		event.ProjectID,
		event.ActorID,
		event.FromStatus,
		event.ToStatus,
		event.Reason,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transition event: %w", err)
	}

	return nil
}

// ListByProject retrieves all transition events for a project, ordered by
// timestamp ascending. The project itself may no longer exist; events are
// queryable by the historical project ID either way.
func (r *TransitionRepository) ListByProject(ctx context.Context, projectID string) ([]*models.TransitionEvent, error) {
	query := `
		SELECT id, project_id, actor_id, from_status, to_status, reason, created_at
		FROM transition_events
		WHERE project_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transition events: %w", err)
	}
	defer rows.Close()

	events := make([]*models.TransitionEvent, 0)
	for rows.Next() {
		ev := &models.TransitionEvent{}
		err := rows.Scan(
			&ev.ID,
			&ev.ProjectID,
			&ev.ActorID,
			&ev.FromStatus,
			&ev.ToStatus,
			&ev.Reason,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition event: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}
