package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/auth"
	"github.com/lexivault/vocab-web-app/api-service/internal/constants"
	"github.com/lexivault/vocab-web-app/api-service/internal/middleware"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// UserAuthHandler serves registration, login, logout, and the session
// liveness probe.
type UserAuthHandler struct {
	userSvc auth.UserService
	metrics *Metrics
	logger  *logrus.Logger
}

// NewUserAuthHandler creates a new user authentication handler.
func NewUserAuthHandler(userSvc auth.UserService, metrics *Metrics, logger *logrus.Logger) *UserAuthHandler {
	return &UserAuthHandler{
		userSvc: userSvc,
		metrics: metrics,
		logger:  logger,
	}
}

// RegisterPublicRoutes registers the unauthenticated endpoints.
func (h *UserAuthHandler) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.Register).Methods(http.MethodPost)
	router.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)
}

// RegisterProtectedRoutes registers endpoints that require a valid session.
func (h *UserAuthHandler) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/auth/logout", h.Logout).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout-everywhere", h.LogoutEverywhere).Methods(http.MethodPost)
	router.HandleFunc("/session/ping", h.SessionPing).Methods(http.MethodGet)
}

// Register handles POST /auth/register.
func (h *UserAuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	if errs := req.Validate(); errs.HasErrors() {
		writeValidationErrors(w, h.logger, errs)
		return
	}

	resp, err := h.userSvc.RegisterUser(r.Context(), &req, r.UserAgent(), clientIP(r))
	if err != nil {
		var validationErrs models.ValidationErrors
		if errors.As(err, &validationErrs) {
			writeValidationErrors(w, h.logger, validationErrs)
			return
		}
		if strings.Contains(err.Error(), "already") {
			writeError(w, h.logger, http.StatusConflict, "conflict", err.Error())
			return
		}
		h.logger.WithError(err).Error("Registration failed")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to create account")
		return
	}

	h.metrics.SessionsCreated.Inc()
	writeJSON(w, h.logger, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *UserAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	resp, err := h.userSvc.LoginUser(r.Context(), &req, r.UserAgent(), clientIP(r))
	if err != nil {
		var validationErrs models.ValidationErrors
		if errors.As(err, &validationErrs) {
			writeValidationErrors(w, h.logger, validationErrs)
			return
		}
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Invalid username or password")
			return
		}
		h.logger.WithError(err).Error("Login failed")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to log in")
		return
	}

	h.metrics.SessionsCreated.Inc()
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// Logout handles POST /auth/logout. It deletes the session backing the
// presented token.
func (h *UserAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get(constants.HeaderAuthorization), constants.BearerPrefix)

	resp, err := h.userSvc.LogoutUser(r.Context(), token)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to log out")
		return
	}

	h.metrics.SessionsDeleted.WithLabelValues("single").Inc()
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// LogoutEverywhere handles POST /auth/logout-everywhere. It deletes every
// session belonging to the authenticated user.
func (h *UserAuthHandler) LogoutEverywhere(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	resp, err := h.userSvc.LogoutEverywhere(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to log out")
		return
	}

	h.metrics.SessionsDeleted.WithLabelValues("all").Inc()
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// SessionPing handles GET /session/ping, the lightweight liveness probe
// used by client session monitors. Reaching this handler means SessionAuth
// already validated the token and slid the window, so it only reports back.
func (h *UserAuthHandler) SessionPing(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeError(w, h.logger, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	h.metrics.SessionProbes.WithLabelValues("ok").Inc()
	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"expires_at": sess.ExpiresAt,
		"checked_at": time.Now(),
	})
}

// clientIP extracts the client address for session bookkeeping.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	return strings.Split(r.RemoteAddr, ":")[0]
}
