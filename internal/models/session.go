package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionData represents a server-side session record. A record is valid
// iff ExpiresAt is in the future; validity is the sole authorization gate
// for protected requests.
type SessionData struct {
	// Token is the opaque bearer token and primary key.
	Token string `json:"token"`
	// UserID is the owning user's ID.
	UserID uuid.UUID `json:"user_id"`
	// IsAdmin mirrors the user's admin flag at login time.
	IsAdmin bool `json:"is_admin"`
	// CreatedAt is when the session was established.
	CreatedAt time.Time `json:"created_at"`
	// LastActivity is the time of the most recent successful validation.
	LastActivity time.Time `json:"last_activity"`
	// ExpiresAt slides forward on every successful validation.
	ExpiresAt time.Time `json:"expires_at"`
	// UserAgent is the client's User-Agent at login, if captured.
	UserAgent string `json:"user_agent,omitempty"`
	// IPAddress is the client's address at login, if captured.
	IPAddress string `json:"ip_address,omitempty"`
}

// LogoutEventType classifies why a session ended.
type LogoutEventType string

const (
	// LogoutManual is an explicit user-initiated logout.
	LogoutManual LogoutEventType = "manual"
	// LogoutAuto is a client-decided logout after repeated failures.
	LogoutAuto LogoutEventType = "auto"
	// LogoutServerError is a logout forced by a 401 from the server.
	LogoutServerError LogoutEventType = "server_error"
	// LogoutNetworkError is a logout attributed to connectivity loss.
	LogoutNetworkError LogoutEventType = "network_error"
)

// LogoutEvent records why and when a session ended. Events are created on
// every logout (explicit or inferred), never mutated, and kept newest-first
// in a bounded client-side log.
type LogoutEvent struct {
	Timestamp         time.Time       `json:"timestamp"`
	Type              LogoutEventType `json:"type"`
	Reason            string          `json:"reason"`
	UserAgent         string          `json:"user_agent,omitempty"`
	SessionDurationMs int64           `json:"session_duration_ms"`
	LastActivity      time.Time       `json:"last_activity"`
	ErrorDetails      string          `json:"error_details,omitempty"`
	APIEndpoint       string          `json:"api_endpoint,omitempty"`
	HTTPStatus        int             `json:"http_status,omitempty"`
}

// IsUnexpected reports whether the event was anything other than an
// explicit user action.
func (e *LogoutEvent) IsUnexpected() bool {
	return e.Type != LogoutManual
}

// LogoutAuditRecord is the server-side persisted form of a logout event.
// Writes are best-effort and never block the request path.
type LogoutAuditRecord struct {
	UserID            *uuid.UUID      `json:"user_id,omitempty"`
	EventType         LogoutEventType `json:"event_type"`
	Reason            string          `json:"reason"`
	SessionDurationMs *int64          `json:"session_duration_ms,omitempty"`
	ErrorDetails      string          `json:"error_details,omitempty"`
	APIEndpoint       string          `json:"api_endpoint,omitempty"`
	HTTPStatus        *int            `json:"http_status,omitempty"`
	UserAgent         string          `json:"user_agent,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// SessionStats aggregates session counts and recent logout audit rows for
// operator diagnostics.
type SessionStats struct {
	ActiveSessions  int                 `json:"active_sessions"`
	ExpiredSessions int                 `json:"expired_sessions"`
	LogoutsLastWeek int                 `json:"logouts_last_week"`
	RecentLogouts   []LogoutAuditRecord `json:"recent_logouts"`
}

// ReasonCount is one entry of a frequency-ranked logout reason list.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// SessionHealth is a derived snapshot computed on demand from the
// client-side logout event log. It is never stored.
type SessionHealth struct {
	TotalLogouts        int           `json:"total_logouts"`
	UnexpectedLogouts   int           `json:"unexpected_logouts"`
	AvgSessionDurationMs int64        `json:"avg_session_duration_ms"`
	TopReasons          []ReasonCount `json:"top_reasons"`
	RecentPatterns      []string      `json:"recent_patterns"`
}

// ClientSessionInfo is the client-side view of the current session state.
type ClientSessionInfo struct {
	HasToken                bool   `json:"has_token"`
	Username                string `json:"username"`
	IsAdmin                 bool   `json:"is_admin"`
	ConsecutiveFailureCount int    `json:"consecutive_failure_count"`
	HealthCheckActive       bool   `json:"health_check_active"`
}
