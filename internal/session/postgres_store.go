package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// PoolGetter is a function that returns the current database connection pool.
type PoolGetter func() *pgxpool.Pool

// PostgresStore implements Store on PostgreSQL. The poolGetter indirection
// lets the store always use the current active pool, supporting automatic
// reconnection.
type PostgresStore struct {
	getPool PoolGetter
	window  time.Duration
	logger  *logrus.Logger
	now     func() time.Time
}

// NewPostgresStore creates a PostgreSQL-backed session store with the given
// sliding window.
func NewPostgresStore(poolGetter PoolGetter, window time.Duration, logger *logrus.Logger) *PostgresStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &PostgresStore{
		getPool: poolGetter,
		window:  window,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the store's time source. Test use only.
func (s *PostgresStore) SetClock(now func() time.Time) {
	s.now = now
}

// CreateSession inserts a new session record.
func (s *PostgresStore) CreateSession(
	ctx context.Context,
	token string,
	userID uuid.UUID,
	isAdmin bool,
	userAgent, ipAddress string,
) error {
	pool := s.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	now := s.now()
	query := `
		INSERT INTO lexivault.sessions
		(token, user_id, is_admin, created_at, last_activity, expires_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $4, $5, $6, $7)`

	_, err := pool.Exec(ctx, query,
		token,
		userID,
		isAdmin,
		now,
		now.Add(s.window),
		nullable(userAgent),
		nullable(ipAddress),
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession validates the token and slides the expiration window forward.
// The activity touch and the extension are applied in a single UPDATE so a
// partial write cannot leave the two timestamps disagreeing; the WHERE
// clause on expires_at makes the expiry check and the slide atomic.
func (s *PostgresStore) GetSession(ctx context.Context, token string) (*models.SessionData, error) {
	pool := s.getPool()
	if pool == nil {
		return nil, errors.New("database connection not available")
	}

	now := s.now()
	query := `
		UPDATE lexivault.sessions
		SET last_activity = $2, expires_at = $3
		WHERE token = $1 AND expires_at > $2
		RETURNING token, user_id, is_admin, created_at, last_activity, expires_at, user_agent, ip_address`

	return s.scanSession(pool.QueryRow(ctx, query, token, now, now.Add(s.window)))
}

// UpdateSessionActivity touches last_activity without extending the window.
func (s *PostgresStore) UpdateSessionActivity(ctx context.Context, token string) error {
	pool := s.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	query := `UPDATE lexivault.sessions SET last_activity = $2 WHERE token = $1`
	if _, err := pool.Exec(ctx, query, token, s.now()); err != nil {
		return fmt.Errorf("failed to update session activity: %w", err)
	}
	return nil
}

// ExtendSession unconditionally recomputes the expiry for a live token.
func (s *PostgresStore) ExtendSession(ctx context.Context, token string) (bool, error) {
	pool := s.getPool()
	if pool == nil {
		return false, errors.New("database connection not available")
	}

	now := s.now()
	query := `
		UPDATE lexivault.sessions
		SET last_activity = $2, expires_at = $3
		WHERE token = $1 AND expires_at > $2`

	result, err := pool.Exec(ctx, query, token, now, now.Add(s.window))
	if err != nil {
		return false, fmt.Errorf("failed to extend session: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteSession removes the session row. Deleting a missing token is not
// an error.
func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	pool := s.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	if _, err := pool.Exec(ctx, `DELETE FROM lexivault.sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteAllUserSessions removes every session belonging to a user.
func (s *PostgresStore) DeleteAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	pool := s.getPool()
	if pool == nil {
		return errors.New("database connection not available")
	}

	result, err := pool.Exec(ctx, `DELETE FROM lexivault.sessions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"deleted": result.RowsAffected(),
	}).Debug("Deleted all sessions for user")
	return nil
}

// CleanupExpiredSessions deletes all expired rows and returns the count.
func (s *PostgresStore) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	pool := s.getPool()
	if pool == nil {
		return 0, errors.New("database connection not available")
	}

	result, err := pool.Exec(ctx, `DELETE FROM lexivault.sessions WHERE expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired sessions: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetUserSessionCount counts the user's currently-valid sessions.
func (s *PostgresStore) GetUserSessionCount(ctx context.Context, userID uuid.UUID) (int, error) {
	pool := s.getPool()
	if pool == nil {
		return 0, errors.New("database connection not available")
	}

	query := `SELECT COUNT(*) FROM lexivault.sessions WHERE user_id = $1 AND expires_at > $2`

	var count int
	if err := pool.QueryRow(ctx, query, userID, s.now()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count user sessions: %w", err)
	}
	return count, nil
}

// RecordLogoutEvent appends an audit row. Failures are logged and
// swallowed; audit logging must never break the logout or request path.
func (s *PostgresStore) RecordLogoutEvent(ctx context.Context, rec *models.LogoutAuditRecord) {
	pool := s.getPool()
	if pool == nil {
		s.logger.Debug("Skipping logout audit record, database unavailable")
		return
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	query := `
		INSERT INTO lexivault.logout_events
		(user_id, event_type, reason, session_duration_ms, error_details, api_endpoint, http_status, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := pool.Exec(ctx, query,
		rec.UserID,
		string(rec.EventType),
		rec.Reason,
		rec.SessionDurationMs,
		nullable(rec.ErrorDetails),
		nullable(rec.APIEndpoint),
		rec.HTTPStatus,
		nullable(rec.UserAgent),
		createdAt,
	)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to record logout audit event")
	}
}

// GetSessionStats returns active/expired counts, the 7-day logout total,
// and the most recent audit rows.
func (s *PostgresStore) GetSessionStats(ctx context.Context) (*models.SessionStats, error) {
	pool := s.getPool()
	if pool == nil {
		return nil, errors.New("database connection not available")
	}

	now := s.now()
	stats := &models.SessionStats{}

	countQuery := `
		SELECT
			COUNT(*) FILTER (WHERE expires_at > $1),
			COUNT(*) FILTER (WHERE expires_at <= $1)
		FROM lexivault.sessions`
	if err := pool.QueryRow(ctx, countQuery, now).Scan(&stats.ActiveSessions, &stats.ExpiredSessions); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}

	weekQuery := `SELECT COUNT(*) FROM lexivault.logout_events WHERE created_at > $1`
	if err := pool.QueryRow(ctx, weekQuery, now.Add(-statsLogoutWindow)).Scan(&stats.LogoutsLastWeek); err != nil {
		return nil, fmt.Errorf("failed to count recent logouts: %w", err)
	}

	recentQuery := `
		SELECT user_id, event_type, reason, session_duration_ms, error_details, api_endpoint, http_status, user_agent, created_at
		FROM lexivault.logout_events
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := pool.Query(ctx, recentQuery, statsRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent logouts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.LogoutAuditRecord
		var eventType string
		var errorDetails, apiEndpoint, userAgent *string

		if scanErr := rows.Scan(
			&rec.UserID,
			&eventType,
			&rec.Reason,
			&rec.SessionDurationMs,
			&errorDetails,
			&apiEndpoint,
			&rec.HTTPStatus,
			&userAgent,
			&rec.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan logout record: %w", scanErr)
		}

		rec.EventType = models.LogoutEventType(eventType)
		rec.ErrorDetails = deref(errorDetails)
		rec.APIEndpoint = deref(apiEndpoint)
		rec.UserAgent = deref(userAgent)
		stats.RecentLogouts = append(stats.RecentLogouts, rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to read logout records: %w", rowsErr)
	}

	return stats, nil
}

// scanSession reads one session row, mapping pgx.ErrNoRows to the shared
// not-found sentinel.
func (s *PostgresStore) scanSession(row pgx.Row) (*models.SessionData, error) {
	var sess models.SessionData
	var userAgent, ipAddress *string

	err := row.Scan(
		&sess.Token,
		&sess.UserID,
		&sess.IsAdmin,
		&sess.CreatedAt,
		&sess.LastActivity,
		&sess.ExpiresAt,
		&userAgent,
		&ipAddress,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	sess.UserAgent = deref(userAgent)
	sess.IPAddress = deref(ipAddress)
	return &sess, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
