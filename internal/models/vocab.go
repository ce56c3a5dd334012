package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LookupAction identifies what the assistant should produce for a word.
type LookupAction string

const (
	// ActionDefine requests a dictionary-style definition.
	ActionDefine LookupAction = "define"
	// ActionExample requests usage examples.
	ActionExample LookupAction = "example"
	// ActionSynonyms requests a synonym list.
	ActionSynonyms LookupAction = "synonyms"
)

// ValidLookupAction reports whether the action is one of the supported
// lookup kinds.
func ValidLookupAction(a LookupAction) bool {
	switch a {
	case ActionDefine, ActionExample, ActionSynonyms:
		return true
	}
	return false
}

// VocabWord is one entry on a user's personal word list.
type VocabWord struct {
	ID         int64     `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Word       string    `json:"word"`
	Definition *string   `json:"definition,omitempty"`
	Example    *string   `json:"example,omitempty"`
	Synonyms   *string   `json:"synonyms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Note is a free-form annotation attached to a vocabulary word.
type Note struct {
	ID        int64     `json:"id"`
	WordID    int64     `json:"word_id"`
	UserID    uuid.UUID `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddWordRequest is the payload for adding a word to the list.
type AddWordRequest struct {
	Word string `json:"word"`
}

// Validate checks the add-word request.
func (r *AddWordRequest) Validate() ValidationErrors {
	if strings.TrimSpace(r.Word) == "" {
		return ValidationErrors{{Field: "word", Message: "is required"}}
	}
	return nil
}

// WordListResponse is one page of a user's word list.
type WordListResponse struct {
	Words   []VocabWord `json:"words"`
	Page    int         `json:"page"`
	PerPage int         `json:"per_page"`
	Total   int         `json:"total"`
}

// LookupRequest asks the assistant for generated content about a word.
type LookupRequest struct {
	Word   string       `json:"word"`
	Action LookupAction `json:"action"`
}

// Validate checks the lookup request.
func (r *LookupRequest) Validate() ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(r.Word) == "" {
		errs = append(errs, ValidationError{Field: "word", Message: "is required"})
	}
	if !ValidLookupAction(r.Action) {
		errs = append(errs, ValidationError{Field: "action", Message: "must be define, example, or synonyms"})
	}
	return errs
}

// LookupResponse carries the generated text for a lookup.
type LookupResponse struct {
	Word   string       `json:"word"`
	Action LookupAction `json:"action"`
	Result string       `json:"result"`
}

// SpeechRequest asks for synthesized audio of a text.
type SpeechRequest struct {
	Text string `json:"text"`
}

// Validate checks the speech request.
func (r *SpeechRequest) Validate() ValidationErrors {
	if strings.TrimSpace(r.Text) == "" {
		return ValidationErrors{{Field: "text", Message: "is required"}}
	}
	return nil
}

// SpeechResponse carries base64-encoded synthesized audio.
type SpeechResponse struct {
	Audio string `json:"audio"`
}

// NoteRequest is the payload for creating or updating a note.
type NoteRequest struct {
	Body string `json:"body"`
}

// Validate checks the note request.
func (r *NoteRequest) Validate() ValidationErrors {
	if strings.TrimSpace(r.Body) == "" {
		return ValidationErrors{{Field: "body", Message: "is required"}}
	}
	return nil
}

// PromptTemplate maps a lookup action to the prompt text sent upstream.
// Templates contain a %s placeholder for the word; a user's custom
// instruction, when set, is appended as a trailing system directive.
type PromptTemplate struct {
	Action    LookupAction `json:"action"`
	Template  string       `json:"template"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CustomInstructionRequest is the admin payload for setting a user's
// custom prompt instruction.
type CustomInstructionRequest struct {
	Instruction string `json:"instruction"`
}
