package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/constants"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/internal/session"
)

const analyticsWriteTimeout = 10 * time.Second

// AnalyticsHandler ingests client-reported logout events. The endpoint is
// deliberately unauthenticated: events describing an expired or torn-down
// session arrive after the token stopped working.
type AnalyticsHandler struct {
	sessions session.Store
	metrics  *Metrics
	logger   *logrus.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(sessions session.Store, metrics *Metrics, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// RegisterRoutes registers the analytics endpoints.
func (h *AnalyticsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/analytics/logout-events", h.RecordLogoutEvent).Methods(http.MethodPost)
}

// RecordLogoutEvent handles POST /analytics/logout-events. It always
// returns 202: the write is fire-and-forget and a failure to persist must
// never surface to the client.
func (h *AnalyticsHandler) RecordLogoutEvent(w http.ResponseWriter, r *http.Request) {
	var event models.LogoutEvent
	if err := decodeJSON(r, &event); err != nil {
		// Even malformed payloads get a 202; there is nothing useful the
		// client can do with an error here.
		h.logger.WithError(err).Debug("Discarding malformed logout event")
		w.WriteHeader(http.StatusAccepted)
		return
	}

	record := h.buildRecord(r, &event)
	h.metrics.LogoutEventsRecv.WithLabelValues(string(event.Type)).Inc()

	// Detached from the request context so the write survives the 202.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyticsWriteTimeout)
		defer cancel()
		h.sessions.RecordLogoutEvent(ctx, record)
	}()

	w.WriteHeader(http.StatusAccepted)
}

// buildRecord converts the wire event to the persisted audit form,
// resolving the user from the (possibly still valid) bearer token.
func (h *AnalyticsHandler) buildRecord(r *http.Request, event *models.LogoutEvent) *models.LogoutAuditRecord {
	record := &models.LogoutAuditRecord{
		EventType:    event.Type,
		Reason:       event.Reason,
		ErrorDetails: event.ErrorDetails,
		APIEndpoint:  event.APIEndpoint,
		UserAgent:    event.UserAgent,
		CreatedAt:    time.Now(),
	}
	if record.UserAgent == "" {
		record.UserAgent = r.UserAgent()
	}
	if event.SessionDurationMs > 0 {
		duration := event.SessionDurationMs
		record.SessionDurationMs = &duration
	}
	if event.HTTPStatus != 0 {
		status := event.HTTPStatus
		record.HTTPStatus = &status
	}

	if userID := h.resolveUser(r); userID != nil {
		record.UserID = userID
	}

	return record
}

// resolveUser best-effort maps the bearer token to a user. Manual logouts
// are often reported before the session is deleted, so the lookup can
// still succeed; for forced logouts it usually returns nothing.
func (h *AnalyticsHandler) resolveUser(r *http.Request) *uuid.UUID {
	authHeader := r.Header.Get(constants.HeaderAuthorization)
	if !strings.HasPrefix(authHeader, constants.BearerPrefix) {
		return nil
	}
	token := strings.TrimPrefix(authHeader, constants.BearerPrefix)
	if token == "" {
		return nil
	}

	sess, err := h.sessions.GetSession(r.Context(), token)
	if err != nil {
		return nil
	}
	userID := sess.UserID
	return &userID
}
