package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// PostgresPromptRepository implements PromptRepository for PostgreSQL.
type PostgresPromptRepository struct {
	getPool PoolGetter
}

// NewPostgresPromptRepository creates a new PostgreSQL prompt repository.
func NewPostgresPromptRepository(poolGetter PoolGetter) *PostgresPromptRepository {
	return &PostgresPromptRepository{getPool: poolGetter}
}

// GetTemplate retrieves the prompt template for one lookup action.
func (r *PostgresPromptRepository) GetTemplate(
	ctx context.Context,
	action models.LookupAction,
) (*models.PromptTemplate, error) {
	pool := r.getPool()
	if pool == nil {
		return nil, errors.New("database connection not available")
	}

	query := `
		SELECT action, template, updated_at
		FROM lexivault.prompt_templates
		WHERE action = $1`

	var tmpl models.PromptTemplate
	err := pool.QueryRow(ctx, query, action).Scan(&tmpl.Action, &tmpl.Template, &tmpl.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no prompt template for action %q", action)
		}
		return nil, fmt.Errorf("failed to get prompt template: %w", err)
	}

	return &tmpl, nil
}

// UpsertTemplate inserts or replaces the template for an action.
func (r *PostgresPromptRepository) UpsertTemplate(ctx context.Context, tmpl *models.PromptTemplate) error {
	pool := r.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	query := `
		INSERT INTO lexivault.prompt_templates (action, template, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (action) DO UPDATE
		SET template = EXCLUDED.template, updated_at = EXCLUDED.updated_at`

	tmpl.UpdatedAt = time.Now()
	if _, err := pool.Exec(ctx, query, tmpl.Action, tmpl.Template, tmpl.UpdatedAt); err != nil {
		return fmt.Errorf("failed to upsert prompt template: %w", err)
	}

	return nil
}

// ListTemplates returns all stored prompt templates.
func (r *PostgresPromptRepository) ListTemplates(ctx context.Context) ([]models.PromptTemplate, error) {
	pool := r.getPool()
	if pool == nil {
		return nil, errors.New("database connection not available")
	}

	query := `
		SELECT action, template, updated_at
		FROM lexivault.prompt_templates
		ORDER BY action`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompt templates: %w", err)
	}
	defer rows.Close()

	templates := make([]models.PromptTemplate, 0, 3)
	for rows.Next() {
		var tmpl models.PromptTemplate
		if scanErr := rows.Scan(&tmpl.Action, &tmpl.Template, &tmpl.UpdatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan prompt template: %w", scanErr)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prompt templates: %w", err)
	}

	return templates, nil
}
