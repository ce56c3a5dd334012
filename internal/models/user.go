package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MinUsernameLength is the minimum allowed username length.
	MinUsernameLength = 3
	// MaxUsernameLength is the maximum allowed username length.
	MaxUsernameLength = 64
	// MinPasswordLength is the minimum allowed password length.
	MinPasswordLength = 8
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User represents a vocabulary service account as exposed through the API.
type User struct {
	// UserID is the unique account identifier.
	UserID uuid.UUID `json:"user_id"`
	// Username is the unique login name.
	Username string `json:"username"`
	// Email is the optional contact address.
	Email *string `json:"email,omitempty"`
	// IsAdmin grants access to prompt management and session stats.
	IsAdmin bool `json:"is_admin"`
	// CustomInstruction is an admin-managed addendum applied to every
	// AI prompt generated for this user.
	CustomInstruction string `json:"custom_instruction,omitempty"`
	// CreatedAt is the account creation time.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the last profile modification time.
	UpdatedAt time.Time `json:"updated_at"`
}

// UserWithPassword extends User with the stored password hash. It is never
// serialized to API responses.
type UserWithPassword struct {
	User

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"-"`
}

// RegistrationRequest is the payload for creating a new account.
type RegistrationRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	Email    *string `json:"email,omitempty"`
}

// Validate checks the registration request fields.
func (r *RegistrationRequest) Validate() ValidationErrors {
	var errs ValidationErrors

	username := strings.TrimSpace(r.Username)
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		errs = append(errs, ValidationError{
			Field:   "username",
			Message: "must be between 3 and 64 characters",
		})
	}

	if len(r.Password) < MinPasswordLength {
		errs = append(errs, ValidationError{
			Field:   "password",
			Message: "must be at least 8 characters",
		})
	}

	if r.Email != nil && *r.Email != "" && !emailPattern.MatchString(*r.Email) {
		errs = append(errs, ValidationError{
			Field:   "email",
			Message: "must be a valid email address",
		})
	}

	return errs
}

// LoginRequest is the payload for establishing a session.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks the login request fields.
func (r *LoginRequest) Validate() ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(r.Username) == "" {
		errs = append(errs, ValidationError{Field: "username", Message: "is required"})
	}
	if r.Password == "" {
		errs = append(errs, ValidationError{Field: "password", Message: "is required"})
	}

	return errs
}

// LoginResponse carries the new session token and the account profile.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}

// LogoutResponse acknowledges a logout request.
type LogoutResponse struct {
	Message string `json:"message"`
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error returns a string representation of the validation error in the
// format "field: message". It implements the error interface.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors is a slice of ValidationError that represents multiple
// field validation errors.
type ValidationErrors []ValidationError

// Error returns a string representation of the validation errors.
// It implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	parts := make([]string, len(e))
	for i := range e {
		parts[i] = e[i].Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors returns true if there are one or more validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
