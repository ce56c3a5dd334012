package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// PoolGetter is a function that returns the current database connection pool.
type PoolGetter func() *pgxpool.Pool

// PostgresUserRepository implements UserRepository for PostgreSQL.
type PostgresUserRepository struct {
	getPool PoolGetter
}

// NewPostgresUserRepository creates a new PostgreSQL user repository.
// The poolGetter function allows the repository to always use the current
// active connection pool, supporting automatic reconnection.
func NewPostgresUserRepository(poolGetter PoolGetter) *PostgresUserRepository {
	return &PostgresUserRepository{getPool: poolGetter}
}

// CreateUser creates a new user account.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.UserWithPassword) error {
	pool := r.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	query := `
		INSERT INTO lexivault.users
		(user_id, username, email, password_hash, is_admin, custom_instruction, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := pool.Exec(ctx, query,
		user.UserID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.CustomInstruction,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves a user by username.
func (r *PostgresUserRepository) GetUserByUsername(
	ctx context.Context,
	username string,
) (*models.UserWithPassword, error) {
	query := `
		SELECT user_id, username, email, password_hash, is_admin, custom_instruction, created_at, updated_at
		FROM lexivault.users
		WHERE username = $1`

	return r.scanUser(ctx, query, username)
}

// GetUserByID retrieves a user by their UUID.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserWithPassword, error) {
	query := `
		SELECT user_id, username, email, password_hash, is_admin, custom_instruction, created_at, updated_at
		FROM lexivault.users
		WHERE user_id = $1`

	return r.scanUser(ctx, query, userID)
}

// UpdateCustomInstruction sets a user's custom prompt instruction.
func (r *PostgresUserRepository) UpdateCustomInstruction(
	ctx context.Context,
	userID uuid.UUID,
	instruction string,
) error {
	pool := r.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	query := `
		UPDATE lexivault.users
		SET custom_instruction = $2, updated_at = $3
		WHERE user_id = $1`

	result, err := pool.Exec(ctx, query, userID, instruction, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update custom instruction: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}

	return nil
}

// IsUsernameExists checks if a username already exists.
func (r *PostgresUserRepository) IsUsernameExists(ctx context.Context, username string) (bool, error) {
	pool := r.getPool()
	if pool == nil {
		return false, errors.New("database connection not available")
	}

	query := `SELECT EXISTS(SELECT 1 FROM lexivault.users WHERE username = $1)`

	var exists bool
	if err := pool.QueryRow(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

// IsEmailExists checks if an email already exists.
func (r *PostgresUserRepository) IsEmailExists(ctx context.Context, email string) (bool, error) {
	pool := r.getPool()
	if pool == nil {
		return false, errors.New("database connection not available")
	}

	query := `SELECT EXISTS(SELECT 1 FROM lexivault.users WHERE email = $1)`

	var exists bool
	if err := pool.QueryRow(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

// scanUser is a helper method to scan user data from database rows.
func (r *PostgresUserRepository) scanUser(
	ctx context.Context,
	query string,
	args ...interface{},
) (*models.UserWithPassword, error) {
	pool := r.getPool()
	if pool == nil {
		return nil, errors.New("database connection not available")
	}

	var user models.UserWithPassword
	var email *string
	var customInstruction *string

	err := pool.QueryRow(ctx, query, args...).Scan(
		&user.UserID,
		&user.Username,
		&email,
		&user.PasswordHash,
		&user.IsAdmin,
		&customInstruction,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.Email = email
	if customInstruction != nil {
		user.CustomInstruction = *customInstruction
	}

	return &user, nil
}
