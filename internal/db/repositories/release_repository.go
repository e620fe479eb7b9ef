// release_repository.go implements ReleaseRepository, providing database
// queries for release records and download counting.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkgindex/pkgindex/internal/db/models"
)

// ReleaseRepository handles database operations for releases
type ReleaseRepository struct {
	db *sql.DB
}

// NewReleaseRepository creates a new release repository
func NewReleaseRepository(db *sql.DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

// CreateRelease inserts a new release record
func (r *ReleaseRepository) CreateRelease(ctx context.Context, release *models.Release) error {
	query := `
		INSERT INTO releases
		  (project_id, version, storage_path, storage_backend, size_bytes, checksum, summary, readme, published_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		release.ProjectID,
		release.Version,
		release.StoragePath,
		release.StorageBackend,
		release.SizeBytes,
		release.Checksum,
		release.Summary,
		release.Readme,
		release.PublishedBy,
	).Scan(&release.ID, &release.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create release: %w", err)
	}

	return nil
}

// GetRelease retrieves a specific release of a project
func (r *ReleaseRepository) GetRelease(ctx context.Context, projectID, version string) (*models.Release, error) {
	query := `
		SELECT id, project_id, version, storage_path, storage_backend, size_bytes,
		       checksum, summary, readme, published_by, download_count, created_at
		FROM releases
		WHERE project_id = $1 AND version = $2
	`

	rel := &models.Release{}
	err := r.db.QueryRowContext(ctx, query, projectID, version).Scan(
		&rel.ID,
		&rel.ProjectID,
		&rel.Version,
		&rel.StoragePath,
		&rel.StorageBackend,
		&rel.SizeBytes,
		&rel.Checksum,
		&rel.Summary,
		&rel.Readme,
		&rel.PublishedBy,
		&rel.DownloadCount,
		&rel.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get release: %w", err)
	}

	return rel, nil
}

// ListReleases retrieves all releases for a project, newest first
func (r *ReleaseRepository) ListReleases(ctx context.Context, projectID string) ([]*models.Release, error) {
	query := `
		SELECT r.id, r.project_id, r.version, r.storage_path, r.storage_backend, r.size_bytes,
		       r.checksum, r.summary, r.published_by, u.name as published_by_name,
		       r.download_count, r.created_at
		FROM releases r
		LEFT JOIN users u ON r.published_by = u.id
		WHERE r.project_id = $1
		ORDER BY r.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer rows.Close()

	var releases []*models.Release
	for rows.Next() {
		rel := &models.Release{}
		err := rows.Scan(
			&rel.ID,
			&rel.ProjectID,
			&rel.Version,
			&rel.StoragePath,
			&rel.StorageBackend,
			&rel.SizeBytes,
			&rel.Checksum,
			&rel.Summary,
			&rel.PublishedBy,
			&rel.PublishedByName,
			&rel.DownloadCount,
			&rel.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		releases = append(releases, rel)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating releases: %w", err)
	}

	return releases, nil
}

// IncrementDownloadCount increments the download counter for a release
func (r *ReleaseRepository) IncrementDownloadCount(ctx context.Context, releaseID string) error {
	query := `
		UPDATE releases
		SET download_count = download_count + 1
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, releaseID)
	if err != nil {
		return fmt.Errorf("failed to increment download count: %w", err)
	}

	return nil
}
