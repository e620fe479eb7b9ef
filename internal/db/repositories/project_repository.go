// project_repository.go implements ProjectRepository, the durable store for
// project records and their lifecycle status. Status reads and writes used by
// the lifecycle service come in transaction-scoped variants so that a
// transition can hold a row lock across read-validate-write.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkgindex/pkgindex/internal/db/models"
)

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateProject inserts a new project record. New projects always start in
// the normal lifecycle status (column default).
func (r *ProjectRepository) CreateProject(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (name, description, homepage, owner_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, lifecycle_status, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		project.Name,
		project.Description,
		project.Homepage,
		project.OwnerID,
	).Scan(&project.ID, &project.LifecycleStatus, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProjectByName retrieves a project by its unique name
func (r *ProjectRepository) GetProjectByName(ctx context.Context, name string) (*models.Project, error) {
	query := `
		SELECT p.id, p.name, p.lifecycle_status, p.description, p.homepage,
		       p.owner_id, p.created_at, p.updated_at, u.name as owner_name
		FROM projects p
		LEFT JOIN users u ON p.owner_id = u.id
		WHERE p.name = $1
	`
	return r.scanProject(r.db.QueryRowContext(ctx, query, name))
}

// GetProjectByID retrieves a project by its UUID
func (r *ProjectRepository) GetProjectByID(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT p.id, p.name, p.lifecycle_status, p.description, p.homepage,
		       p.owner_id, p.created_at, p.updated_at, u.name as owner_name
		FROM projects p
		LEFT JOIN users u ON p.owner_id = u.id
		WHERE p.id = $1
	`
	return r.scanProject(r.db.QueryRowContext(ctx, query, id))
}

func (r *ProjectRepository) scanProject(row *sql.Row) (*models.Project, error) {
	project := &models.Project{}
	err := row.Scan(
		&project.ID,
		&project.Name,
		&project.LifecycleStatus,
		&project.Description,
		&project.Homepage,
		&project.OwnerID,
		&project.CreatedAt,
		&project.UpdatedAt,
		&project.OwnerName,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// GetStatus returns the current lifecycle status of a project.
// Returns sql.ErrNoRows unchanged when the project does not exist so callers
// can map it to their own not-found error.
func (r *ProjectRepository) GetStatus(ctx context.Context, projectID string) (models.LifecycleStatus, error) {
	var status models.LifecycleStatus
	err := r.db.QueryRowContext(ctx,
		`SELECT lifecycle_status FROM projects WHERE id = $1`, projectID,
	).Scan(&status)
	if err != nil {
		return "", err
	}
	return status, nil
}

// GetStatusForUpdate reads the lifecycle status inside tx while taking a row
// lock on the project. Concurrent transitions targeting the same project
// serialize on this lock; the second transaction observes the first one's
// committed status. Returns sql.ErrNoRows unchanged when the project is gone.
func (r *ProjectRepository) GetStatusForUpdate(ctx context.Context, tx *sql.Tx, projectID string) (models.LifecycleStatus, error) {
	var status models.LifecycleStatus
	err := tx.QueryRowContext(ctx,
		`SELECT lifecycle_status FROM projects WHERE id = $1 FOR UPDATE`, projectID,
	).Scan(&status)
	if err != nil {
		return "", err
	}
	return status, nil
}

// SetStatusTx writes the lifecycle status inside tx. Legality of the edge is
// the lifecycle service's job, not the store's.
func (r *ProjectRepository) SetStatusTx(ctx context.Context, tx *sql.Tx, projectID string, status models.LifecycleStatus) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE projects SET lifecycle_status = $2, updated_at = NOW() WHERE id = $1`,
		projectID, status,
	)
	if err != nil {
		return fmt.Errorf("failed to set lifecycle status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// UpdateProject updates a project's owner-editable metadata
func (r *ProjectRepository) UpdateProject(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects
		SET description = $1, homepage = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		project.Description,
		project.Homepage,
		project.ID,
	).Scan(&project.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return nil
}

// ListIndex returns the public index feed: all projects whose lifecycle
// status is visible, with their latest release and release count fetched in
// a single lateral-join query.
func (r *ProjectRepository) ListIndex(ctx context.Context, limit, offset int) ([]*models.ProjectIndexEntry, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE lifecycle_status <> 'quarantine_enter'`,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count index projects: %w", err)
	}

	query := `
		SELECT p.id, p.name, p.lifecycle_status, p.description, p.homepage,
		       p.owner_id, p.created_at, p.updated_at,
		       agg.latest_version, COALESCE(agg.release_count, 0) AS release_count
		FROM projects p
		LEFT JOIN LATERAL (
			SELECT
				(SELECT r2.version FROM releases r2 WHERE r2.project_id = p.id ORDER BY r2.created_at DESC LIMIT 1) AS latest_version,
				COUNT(r.id) AS release_count
			FROM releases r
			WHERE r.project_id = p.id
		) agg ON true
		WHERE p.lifecycle_status <> 'quarantine_enter'
		ORDER BY p.name ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list index projects: %w", err)
	}
	defer rows.Close()

	var entries []*models.ProjectIndexEntry
	for rows.Next() {
		e := &models.ProjectIndexEntry{}
		err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.LifecycleStatus,
			&e.Description,
			&e.Homepage,
			&e.OwnerID,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.LatestVersion,
			&e.ReleaseCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan index entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating index entries: %w", err)
	}

	return entries, total, nil
}

// ListQuarantinedSince returns projects that entered quarantine before the
// cutoff and are still there. Used by the review reminder job.
func (r *ProjectRepository) ListQuarantinedSince(ctx context.Context, cutoff time.Time) ([]*models.Project, error) {
	query := `
		SELECT p.id, p.name, p.lifecycle_status, p.description, p.homepage,
		       p.owner_id, p.created_at, p.updated_at
		FROM projects p
		WHERE p.lifecycle_status = 'quarantine_enter' AND p.updated_at < $1
		ORDER BY p.updated_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list quarantined projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p := &models.Project{}
		err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.LifecycleStatus,
			&p.Description,
			&p.Homepage,
			&p.OwnerID,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quarantined project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// DeleteProject hard-deletes a project and all its releases (cascade).
// Transition events for the project are intentionally left in place.
// Returns sql.ErrNoRows unchanged when the project does not exist.
func (r *ProjectRepository) DeleteProject(ctx context.Context, projectID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
