package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/internal/repository"
	"github.com/lexivault/vocab-web-app/api-service/internal/session"
)

// AdminHandler serves the admin endpoints: prompt template management,
// per-user custom instructions, and session statistics.
type AdminHandler struct {
	users    repository.UserRepository
	prompts  repository.PromptRepository
	sessions session.Store
	logger   *logrus.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	users repository.UserRepository,
	prompts repository.PromptRepository,
	sessions session.Store,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		users:    users,
		prompts:  prompts,
		sessions: sessions,
		logger:   logger,
	}
}

// RegisterRoutes registers the admin endpoints. The router must already be
// wrapped in SessionAuth and AdminOnly.
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/admin/prompts", h.ListTemplates).Methods(http.MethodGet)
	router.HandleFunc("/admin/prompts/{action}", h.UpsertTemplate).Methods(http.MethodPut)
	router.HandleFunc("/admin/users/{id}/instruction", h.GetCustomInstruction).Methods(http.MethodGet)
	router.HandleFunc("/admin/users/{id}/instruction", h.SetCustomInstruction).Methods(http.MethodPut)
	router.HandleFunc("/admin/sessions/stats", h.SessionStats).Methods(http.MethodGet)
}

// ListTemplates handles GET /admin/prompts.
func (h *AdminHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.prompts.ListTemplates(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list prompt templates")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to list templates")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{"templates": templates})
}

// UpsertTemplate handles PUT /admin/prompts/{action}.
func (h *AdminHandler) UpsertTemplate(w http.ResponseWriter, r *http.Request) {
	action := models.LookupAction(mux.Vars(r)["action"])
	if !models.ValidLookupAction(action) {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Unknown lookup action")
		return
	}

	var req struct {
		Template string `json:"template"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Template) == "" {
		writeValidationErrors(w, h.logger, models.ValidationErrors{{Field: "template", Message: "is required"}})
		return
	}

	tmpl := &models.PromptTemplate{
		Action:   action,
		Template: req.Template,
	}
	if err := h.prompts.UpsertTemplate(r.Context(), tmpl); err != nil {
		h.logger.WithError(err).Error("Failed to upsert prompt template")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to save template")
		return
	}

	h.logger.WithField("action", action).Info("Prompt template updated")
	writeJSON(w, h.logger, http.StatusOK, tmpl)
}

// GetCustomInstruction handles GET /admin/users/{id}/instruction.
func (h *AdminHandler) GetCustomInstruction(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid user ID")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "User not found")
			return
		}
		h.logger.WithError(err).Error("Failed to load user")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to load user")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"user_id":     user.UserID.String(),
		"instruction": user.CustomInstruction,
	})
}

// SetCustomInstruction handles PUT /admin/users/{id}/instruction.
func (h *AdminHandler) SetCustomInstruction(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Invalid user ID")
		return
	}

	var req models.CustomInstructionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}

	if err := h.users.UpdateCustomInstruction(r.Context(), userID, req.Instruction); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "User not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update custom instruction")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to update instruction")
		return
	}

	h.logger.WithField("user_id", userID.String()).Info("Custom instruction updated")
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"message": "Instruction updated"})
}

// SessionStats handles GET /admin/sessions/stats.
func (h *AdminHandler) SessionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sessions.GetSessionStats(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load session stats")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to load session stats")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, stats)
}
