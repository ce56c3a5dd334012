package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// MemoryUserRepository is the in-memory fallback used when PostgreSQL is
// not configured. Data does not survive restarts.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*models.UserWithPassword
}

// NewMemoryUserRepository creates an empty in-memory user repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[uuid.UUID]*models.UserWithPassword)}
}

func (r *MemoryUserRepository) CreateUser(_ context.Context, user *models.UserWithPassword) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Username == user.Username {
			return errors.New("username already exists")
		}
	}
	stored := *user
	r.users[user.UserID] = &stored
	return nil
}

func (r *MemoryUserRepository) GetUserByUsername(_ context.Context, username string) (*models.UserWithPassword, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r *MemoryUserRepository) GetUserByID(_ context.Context, userID uuid.UUID) (*models.UserWithPassword, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryUserRepository) UpdateCustomInstruction(_ context.Context, userID uuid.UUID, instruction string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	user.CustomInstruction = instruction
	user.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryUserRepository) IsUsernameExists(_ context.Context, username string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryUserRepository) IsEmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.Email != nil && *user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// MemoryVocabRepository is the in-memory fallback for word lists and notes.
type MemoryVocabRepository struct {
	mu     sync.RWMutex
	words  map[int64]*models.VocabWord
	notes  map[int64]*models.Note
	nextID int64
}

// NewMemoryVocabRepository creates an empty in-memory vocabulary
// repository.
func NewMemoryVocabRepository() *MemoryVocabRepository {
	return &MemoryVocabRepository{
		words: make(map[int64]*models.VocabWord),
		notes: make(map[int64]*models.Note),
	}
}

func (r *MemoryVocabRepository) AddWord(_ context.Context, word *models.VocabWord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	word.ID = r.nextID
	word.CreatedAt = time.Now()
	stored := *word
	r.words[word.ID] = &stored
	return nil
}

func (r *MemoryVocabRepository) DeleteWord(_ context.Context, userID uuid.UUID, wordID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	word, ok := r.words[wordID]
	if !ok || word.UserID != userID {
		return models.ErrWordNotFound
	}
	delete(r.words, wordID)
	for id, note := range r.notes {
		if note.WordID == wordID {
			delete(r.notes, id)
		}
	}
	return nil
}

func (r *MemoryVocabRepository) GetWord(_ context.Context, userID uuid.UUID, wordID int64) (*models.VocabWord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	word, ok := r.words[wordID]
	if !ok || word.UserID != userID {
		return nil, models.ErrWordNotFound
	}
	copied := *word
	return &copied, nil
}

func (r *MemoryVocabRepository) ListWords(
	_ context.Context,
	userID uuid.UUID,
	search string,
	page, perPage int,
) ([]models.VocabWord, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search = strings.ToLower(search)
	matched := make([]models.VocabWord, 0)
	for _, word := range r.words {
		if word.UserID != userID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(word.Word), search) {
			continue
		}
		matched = append(matched, *word)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := (page - 1) * perPage
	if start >= total {
		return []models.VocabWord{}, total, nil
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryVocabRepository) SaveGeneratedContent(
	_ context.Context,
	userID uuid.UUID,
	wordID int64,
	action models.LookupAction,
	content string,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	word, ok := r.words[wordID]
	if !ok || word.UserID != userID {
		return models.ErrWordNotFound
	}

	switch action {
	case models.ActionDefine:
		word.Definition = &content
	case models.ActionExample:
		word.Example = &content
	case models.ActionSynonyms:
		word.Synonyms = &content
	default:
		return errors.New("unknown lookup action")
	}
	return nil
}

func (r *MemoryVocabRepository) AddNote(_ context.Context, note *models.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	word, ok := r.words[note.WordID]
	if !ok || word.UserID != note.UserID {
		return models.ErrWordNotFound
	}

	r.nextID++
	note.ID = r.nextID
	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now
	stored := *note
	r.notes[note.ID] = &stored
	return nil
}

func (r *MemoryVocabRepository) UpdateNote(
	_ context.Context,
	userID uuid.UUID,
	noteID int64,
	body string,
) (*models.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	note, ok := r.notes[noteID]
	if !ok || note.UserID != userID {
		return nil, models.ErrNoteNotFound
	}
	note.Body = body
	note.UpdatedAt = time.Now()
	copied := *note
	return &copied, nil
}

func (r *MemoryVocabRepository) DeleteNote(_ context.Context, userID uuid.UUID, noteID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	note, ok := r.notes[noteID]
	if !ok || note.UserID != userID {
		return models.ErrNoteNotFound
	}
	delete(r.notes, noteID)
	return nil
}

func (r *MemoryVocabRepository) ListNotes(_ context.Context, userID uuid.UUID, wordID int64) ([]models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	notes := make([]models.Note, 0)
	for _, note := range r.notes {
		if note.WordID == wordID && note.UserID == userID {
			notes = append(notes, *note)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].CreatedAt.Equal(notes[j].CreatedAt) {
			return notes[i].CreatedAt.Before(notes[j].CreatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

// MemoryPromptRepository is the in-memory fallback for prompt templates.
type MemoryPromptRepository struct {
	mu        sync.RWMutex
	templates map[models.LookupAction]*models.PromptTemplate
}

// NewMemoryPromptRepository creates an empty in-memory prompt repository.
func NewMemoryPromptRepository() *MemoryPromptRepository {
	return &MemoryPromptRepository{templates: make(map[models.LookupAction]*models.PromptTemplate)}
}

func (r *MemoryPromptRepository) GetTemplate(_ context.Context, action models.LookupAction) (*models.PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tmpl, ok := r.templates[action]
	if !ok {
		return nil, errors.New("no prompt template for action " + string(action))
	}
	copied := *tmpl
	return &copied, nil
}

func (r *MemoryPromptRepository) UpsertTemplate(_ context.Context, tmpl *models.PromptTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmpl.UpdatedAt = time.Now()
	stored := *tmpl
	r.templates[tmpl.Action] = &stored
	return nil
}

func (r *MemoryPromptRepository) ListTemplates(_ context.Context) ([]models.PromptTemplate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	templates := make([]models.PromptTemplate, 0, len(r.templates))
	for _, tmpl := range r.templates {
		templates = append(templates, *tmpl)
	}
	sort.Slice(templates, func(i, j int) bool {
		return templates[i].Action < templates[j].Action
	})
	return templates, nil
}
