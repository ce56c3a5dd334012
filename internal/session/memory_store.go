package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// MemoryStore is an in-memory implementation of the Store interface. It
// provides the same sliding-window semantics as the Postgres store but
// without persistence, allowing local development without a database.
type MemoryStore struct {
	sessions map[string]*models.SessionData
	audit    []models.LogoutAuditRecord
	window   time.Duration
	logger   *logrus.Logger
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(window time.Duration, logger *logrus.Logger) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	store := &MemoryStore{
		sessions: make(map[string]*models.SessionData),
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
	logger.Info("In-memory session store initialized")
	return store
}

// SetClock overrides the store's time source. Test use only.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// CreateSession stores a new session record.
func (m *MemoryStore) CreateSession(
	_ context.Context,
	token string,
	userID uuid.UUID,
	isAdmin bool,
	userAgent, ipAddress string,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sessions[token] = &models.SessionData{
		Token:        token,
		UserID:       userID,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.window),
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
	}
	return nil
}

// GetSession validates the token and slides the window forward. Expired
// sessions are left untouched and reported as absent.
func (m *MemoryStore) GetSession(_ context.Context, token string) (*models.SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[token]
	now := m.now()
	if !exists || !sess.ExpiresAt.After(now) {
		return nil, models.ErrSessionNotFound
	}

	sess.LastActivity = now
	sess.ExpiresAt = now.Add(m.window)

	copied := *sess
	return &copied, nil
}

// UpdateSessionActivity touches last_activity only.
func (m *MemoryStore) UpdateSessionActivity(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, exists := m.sessions[token]; exists {
		sess.LastActivity = m.now()
	}
	return nil
}

// ExtendSession slides the window for a live token and reports whether
// anything was updated.
func (m *MemoryStore) ExtendSession(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[token]
	now := m.now()
	if !exists || !sess.ExpiresAt.After(now) {
		return false, nil
	}

	sess.LastActivity = now
	sess.ExpiresAt = now.Add(m.window)
	return true, nil
}

// DeleteSession removes the session. Idempotent.
func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, token)
	return nil
}

// DeleteAllUserSessions removes every session for the user. Idempotent.
func (m *MemoryStore) DeleteAllUserSessions(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token, sess := range m.sessions {
		if sess.UserID == userID {
			delete(m.sessions, token)
		}
	}
	return nil
}

// CleanupExpiredSessions removes expired rows and returns the count.
func (m *MemoryStore) CleanupExpiredSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var removed int64
	for token, sess := range m.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(m.sessions, token)
			removed++
		}
	}

	if removed > 0 {
		m.logger.WithField("expired_sessions", removed).Debug("Cleaned up expired sessions from memory store")
	}
	return removed, nil
}

// GetUserSessionCount counts the user's currently-valid sessions.
func (m *MemoryStore) GetUserSessionCount(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	count := 0
	for _, sess := range m.sessions {
		if sess.UserID == userID && sess.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

// RecordLogoutEvent appends an audit record to the in-memory log.
func (m *MemoryStore) RecordLogoutEvent(_ context.Context, rec *models.LogoutAuditRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *rec
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = m.now()
	}
	m.audit = append(m.audit, copied)
}

// GetSessionStats computes aggregates from the in-memory state.
func (m *MemoryStore) GetSessionStats(_ context.Context) (*models.SessionStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := &models.SessionStats{}

	for _, sess := range m.sessions {
		if sess.ExpiresAt.After(now) {
			stats.ActiveSessions++
		} else {
			stats.ExpiredSessions++
		}
	}

	cutoff := now.Add(-statsLogoutWindow)
	for i := range m.audit {
		if m.audit[i].CreatedAt.After(cutoff) {
			stats.LogoutsLastWeek++
		}
	}

	// Newest first, capped at the stats limit.
	for i := len(m.audit) - 1; i >= 0 && len(stats.RecentLogouts) < statsRecentLimit; i-- {
		stats.RecentLogouts = append(stats.RecentLogouts, m.audit[i])
	}

	return stats, nil
}
