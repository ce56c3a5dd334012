package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// PostgresVocabRepository implements VocabRepository for PostgreSQL.
type PostgresVocabRepository struct {
	getPool PoolGetter
}

// NewPostgresVocabRepository creates a new PostgreSQL vocabulary repository.
func NewPostgresVocabRepository(poolGetter PoolGetter) *PostgresVocabRepository {
	return &PostgresVocabRepository{getPool: poolGetter}
}

// AddWord inserts a word onto the user's list and fills in the generated ID
// and creation time.
func (r *PostgresVocabRepository) AddWord(ctx context.Context, word *models.VocabWord) error {
	pool := r.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	query := `
		INSERT INTO lexivault.vocab_words (user_id, word, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`

	word.CreatedAt = time.Now()
	err := pool.QueryRow(ctx, query, word.UserID, word.Word, word.CreatedAt).Scan(&word.ID)
	if err != nil {
		return fmt.Errorf("failed to add word: %w", err)
	}

	return nil
}

// DeleteWord removes a word and its notes. The user scope prevents deleting
// another user's entries.
func (r *PostgresVocabRepository) DeleteWord(ctx context.Context, userID uuid.UUID, wordID int64) error {
	pool := r.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	query := `DELETE FROM lexivault.vocab_words WHERE id = $1 AND user_id = $2`

	result, err := pool.Exec(ctx, query, wordID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete word: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrWordNotFound
	}

	return nil
}

// GetWord retrieves a single word entry scoped to the owning user.
func (r *PostgresVocabRepository) GetWord(
	ctx context.Context,
	userID uuid.UUID,
	wordID int64,
) (*models.VocabWord, error) {
	pool := r.getPool()
	if pool == nil {
		return nil, errors.New("database connection not available")
	}

	query := `
		SELECT id, user_id, word, definition, example, synonyms, created_at
		FROM lexivault.vocab_words
		WHERE id = $1 AND user_id = $2`

	var word models.VocabWord
	err := pool.QueryRow(ctx, query, wordID, userID).Scan(
		&word.ID,
		&word.UserID,
		&word.Word,
		&word.Definition,
		&word.Example,
		&word.Synonyms,
		&word.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrWordNotFound
		}
		return nil, fmt.Errorf("failed to get word: %w", err)
	}

	return &word, nil
}

// ListWords returns one page of the user's words, newest first. A non-empty
// search term filters by case-insensitive substring match.
func (r *PostgresVocabRepository) ListWords(
	ctx context.Context,
	userID uuid.UUID,
	search string,
	page, perPage int,
) ([]models.VocabWord, int, error) {
	pool := r.getPool()
	if pool == nil {
		return nil, 0, errors.New("database connection not available")
	}

	countQuery := `
		SELECT COUNT(*)
		FROM lexivault.vocab_words
		WHERE user_id = $1 AND ($2 = '' OR word ILIKE '%' || $2 || '%')`

	var total int
	if err := pool.QueryRow(ctx, countQuery, userID, search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count words: %w", err)
	}

	query := `
		SELECT id, user_id, word, definition, example, synonyms, created_at
		FROM lexivault.vocab_words
		WHERE user_id = $1 AND ($2 = '' OR word ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4`

	offset := (page - 1) * perPage
	rows, err := pool.Query(ctx, query, userID, search, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list words: %w", err)
	}
	defer rows.Close()

	words := make([]models.VocabWord, 0, perPage)
	for rows.Next() {
		var word models.VocabWord
		if scanErr := rows.Scan(
			&word.ID,
			&word.UserID,
			&word.Word,
			&word.Definition,
			&word.Example,
			&word.Synonyms,
			&word.CreatedAt,
		); scanErr != nil {
			return nil, 0, fmt.Errorf("failed to scan word: %w", scanErr)
		}
		words = append(words, word)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate words: %w", err)
	}

	return words, total, nil
}

// SaveGeneratedContent stores assistant output on the word row so repeat
// lookups can be served without another upstream call.
func (r *PostgresVocabRepository) SaveGeneratedContent(
	ctx context.Context,
	userID uuid.UUID,
	wordID int64,
	action models.LookupAction,
	content string,
) error {
	pool := r.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	var column string
	switch action {
	case models.ActionDefine:
		column = "definition"
	case models.ActionExample:
		column = "example"
	case models.ActionSynonyms:
		column = "synonyms"
	default:
		return fmt.Errorf("unknown lookup action: %s", action)
	}

	query := fmt.Sprintf(
		`UPDATE lexivault.vocab_words SET %s = $3 WHERE id = $1 AND user_id = $2`,
		column,
	)

	result, err := pool.Exec(ctx, query, wordID, userID, content)
	if err != nil {
		return fmt.Errorf("failed to save generated content: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrWordNotFound
	}

	return nil
}

// AddNote inserts a note attached to one of the user's words.
func (r *PostgresVocabRepository) AddNote(ctx context.Context, note *models.Note) error {
	pool := r.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	query := `
		INSERT INTO lexivault.notes (word_id, user_id, body, created_at, updated_at)
		SELECT $1, $2, $3, $4, $4
		FROM lexivault.vocab_words
		WHERE id = $1 AND user_id = $2
		RETURNING id`

	now := time.Now()
	err := pool.QueryRow(ctx, query, note.WordID, note.UserID, note.Body, now).Scan(&note.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrWordNotFound
		}
		return fmt.Errorf("failed to add note: %w", err)
	}

	note.CreatedAt = now
	note.UpdatedAt = now
	return nil
}

// UpdateNote replaces a note's body and returns the updated row.
func (r *PostgresVocabRepository) UpdateNote(
	ctx context.Context,
	userID uuid.UUID,
	noteID int64,
	body string,
) (*models.Note, error) {
	pool := r.getPool()
	if pool == nil {
		return nil, errors.New("database connection not available")
	}

	query := `
		UPDATE lexivault.notes
		SET body = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
		RETURNING id, word_id, user_id, body, created_at, updated_at`

	var note models.Note
	err := pool.QueryRow(ctx, query, noteID, userID, body, time.Now()).Scan(
		&note.ID,
		&note.WordID,
		&note.UserID,
		&note.Body,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to update note: %w", err)
	}

	return &note, nil
}

// DeleteNote removes a note scoped to the owning user.
func (r *PostgresVocabRepository) DeleteNote(ctx context.Context, userID uuid.UUID, noteID int64) error {
	pool := r.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	query := `DELETE FROM lexivault.notes WHERE id = $1 AND user_id = $2`

	result, err := pool.Exec(ctx, query, noteID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNoteNotFound
	}

	return nil
}

// ListNotes returns all notes on one of the user's words, oldest first.
func (r *PostgresVocabRepository) ListNotes(
	ctx context.Context,
	userID uuid.UUID,
	wordID int64,
) ([]models.Note, error) {
	pool := r.getPool()
	if pool == nil {
		return nil, errors.New("database connection not available")
	}

	query := `
		SELECT id, word_id, user_id, body, created_at, updated_at
		FROM lexivault.notes
		WHERE word_id = $1 AND user_id = $2
		ORDER BY created_at ASC, id ASC`

	rows, err := pool.Query(ctx, query, wordID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)
	for rows.Next() {
		var note models.Note
		if scanErr := rows.Scan(
			&note.ID,
			&note.WordID,
			&note.UserID,
			&note.Body,
			&note.CreatedAt,
			&note.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan note: %w", scanErr)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}
