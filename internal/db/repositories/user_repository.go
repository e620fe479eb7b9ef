// user_repository.go implements UserRepository using sqlx for struct scanning.
// Scopes are stored as a Postgres text array and handled via pq.StringArray.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkgindex/pkgindex/internal/db/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// userRow is the sqlx scan target; scopes need the pq array adapter.
type userRow struct {
	ID        string         `db:"id"`
	Email     string         `db:"email"`
	Name      string         `db:"name"`
	Scopes    pq.StringArray `db:"scopes"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (row *userRow) toModel() *models.User {
	return &models.User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		Scopes:    []string(row.Scopes),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// CreateUser inserts a new user record
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, name, scopes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Email,
		user.Name,
		pq.StringArray(user.Scopes),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by UUID
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var row userRow
	query := `SELECT id, email, name, scopes, created_at, updated_at FROM users WHERE id = $1`
	err := r.db.GetContext(ctx, &row, query, id)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return row.toModel(), nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	query := `SELECT id, email, name, scopes, created_at, updated_at FROM users WHERE email = $1`
	err := r.db.GetContext(ctx, &row, query, email)
	if err == sql.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return row.toModel(), nil
}

// ListUsers retrieves all users ordered by creation time
func (r *UserRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	query := `SELECT id, email, name, scopes, created_at, updated_at FROM users ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*models.User, 0, len(rows))
	for i := range rows {
		users = append(users, rows[i].toModel())
	}
	return users, nil
}

// UpdateUserScopes replaces a user's scope list
func (r *UserRepository) UpdateUserScopes(ctx context.Context, id string, scopes []string) error {
	query := `UPDATE users SET scopes = $1, updated_at = NOW() WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, pq.StringArray(scopes), id)
	if err != nil {
		return fmt.Errorf("failed to update user scopes: %w", err)
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

// DeleteUser removes a user record
func (r *UserRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
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

// CountUsers returns the total number of user accounts. Used by the bootstrap
// path in cmd/server to decide whether an initial admin must be created.
func (r *UserRepository) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
