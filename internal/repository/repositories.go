// Package repository defines the persistence interfaces for users,
// vocabulary words, notes, and prompt templates, with PostgreSQL
// implementations.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// UserRepository persists user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.UserWithPassword) error
	GetUserByUsername(ctx context.Context, username string) (*models.UserWithPassword, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*models.UserWithPassword, error)
	UpdateCustomInstruction(ctx context.Context, userID uuid.UUID, instruction string) error
	IsUsernameExists(ctx context.Context, username string) (bool, error)
	IsEmailExists(ctx context.Context, email string) (bool, error)
}

// VocabRepository persists personal word lists and their notes.
type VocabRepository interface {
	AddWord(ctx context.Context, word *models.VocabWord) error
	DeleteWord(ctx context.Context, userID uuid.UUID, wordID int64) error
	GetWord(ctx context.Context, userID uuid.UUID, wordID int64) (*models.VocabWord, error)
	// ListWords returns one page of the user's words, newest first,
	// optionally filtered by a case-insensitive substring search.
	ListWords(ctx context.Context, userID uuid.UUID, search string, page, perPage int) ([]models.VocabWord, int, error)
	SaveGeneratedContent(ctx context.Context, userID uuid.UUID, wordID int64, action models.LookupAction, content string) error

	AddNote(ctx context.Context, note *models.Note) error
	UpdateNote(ctx context.Context, userID uuid.UUID, noteID int64, body string) (*models.Note, error)
	DeleteNote(ctx context.Context, userID uuid.UUID, noteID int64) error
	ListNotes(ctx context.Context, userID uuid.UUID, wordID int64) ([]models.Note, error)
}

// PromptRepository persists the admin-managed prompt templates.
type PromptRepository interface {
	GetTemplate(ctx context.Context, action models.LookupAction) (*models.PromptTemplate, error)
	UpsertTemplate(ctx context.Context, tmpl *models.PromptTemplate) error
	ListTemplates(ctx context.Context) ([]models.PromptTemplate, error)
}
