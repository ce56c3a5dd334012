// Package session implements the server-side sliding-window session store
// and its companion logout audit log. A session is valid iff its expiry is
// in the future; every successful validation slides the expiry forward by
// the configured window, so an active user is only ever logged out for
// inactivity, never for session age.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// DefaultWindow is the sliding expiration window applied when no
// configuration is provided.
const DefaultWindow = 24 * time.Hour

// Store is the session lifecycle interface, decoupled from any transport.
//
// Failure semantics: read paths treat "not found" and "expired"
// identically (models.ErrSessionNotFound). Writes to the session table
// (create/delete/extend) propagate storage errors, since they gate
// authentication correctness. Writes to the audit trail are best-effort
// and never propagate.
type Store interface {
	// CreateSession inserts a new record with last_activity = now and
	// expires_at = now + window. A storage failure is fatal to the login.
	CreateSession(ctx context.Context, token string, userID uuid.UUID, isAdmin bool, userAgent, ipAddress string) error

	// GetSession returns the session for token if it has not expired.
	// As a side effect it updates last_activity and slides expires_at
	// forward; an expired or unknown token performs no writes and
	// returns models.ErrSessionNotFound.
	GetSession(ctx context.Context, token string) (*models.SessionData, error)

	// UpdateSessionActivity sets last_activity = now without touching
	// the expiry.
	UpdateSessionActivity(ctx context.Context, token string) error

	// ExtendSession recomputes expires_at = now + window for a
	// not-yet-expired token. It reports whether a row was actually
	// updated; expired sessions are never resurrected.
	ExtendSession(ctx context.Context, token string) (bool, error)

	// DeleteSession removes the session. Idempotent.
	DeleteSession(ctx context.Context, token string) error

	// DeleteAllUserSessions removes every session for a user
	// ("log out everywhere"). Idempotent.
	DeleteAllUserSessions(ctx context.Context, userID uuid.UUID) error

	// CleanupExpiredSessions deletes all expired rows and returns the
	// number removed. Intended for the janitor, not the request path.
	CleanupExpiredSessions(ctx context.Context) (int64, error)

	// GetUserSessionCount returns the number of currently-valid
	// sessions for a user.
	GetUserSessionCount(ctx context.Context, userID uuid.UUID) (int, error)

	// RecordLogoutEvent appends a logout audit record. Best-effort:
	// storage failures are logged and swallowed.
	RecordLogoutEvent(ctx context.Context, rec *models.LogoutAuditRecord)

	// GetSessionStats returns aggregate counts and the most recent
	// audit rows for operator diagnostics.
	GetSessionStats(ctx context.Context) (*models.SessionStats, error)
}

// statsRecentLimit is how many recent audit rows GetSessionStats returns.
const statsRecentLimit = 10

// statsLogoutWindow is the lookback for the weekly logout count.
const statsLogoutWindow = 7 * 24 * time.Hour
