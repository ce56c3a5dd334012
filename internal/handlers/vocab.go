package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/assistant"
	"github.com/lexivault/vocab-web-app/api-service/internal/middleware"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/internal/repository"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// VocabHandler serves the personal word list, AI lookups, speech synthesis,
// and word notes.
type VocabHandler struct {
	words     repository.VocabRepository
	users     repository.UserRepository
	assistant *assistant.Service
	metrics   *Metrics
	logger    *logrus.Logger
}

// NewVocabHandler creates a new vocabulary handler.
func NewVocabHandler(
	words repository.VocabRepository,
	users repository.UserRepository,
	assistantSvc *assistant.Service,
	metrics *Metrics,
	logger *logrus.Logger,
) *VocabHandler {
	return &VocabHandler{
		words:     words,
		users:     users,
		assistant: assistantSvc,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterRoutes registers the vocabulary endpoints. All of them require a
// valid session.
func (h *VocabHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/words", h.ListWords).Methods(http.MethodGet)
	router.HandleFunc("/words", h.AddWord).Methods(http.MethodPost)
	router.HandleFunc("/words/{id:[0-9]+}", h.DeleteWord).Methods(http.MethodDelete)
	router.HandleFunc("/words/{id:[0-9]+}/notes", h.ListNotes).Methods(http.MethodGet)
	router.HandleFunc("/words/{id:[0-9]+}/notes", h.AddNote).Methods(http.MethodPost)
	router.HandleFunc("/notes/{id:[0-9]+}", h.UpdateNote).Methods(http.MethodPut)
	router.HandleFunc("/notes/{id:[0-9]+}", h.DeleteNote).Methods(http.MethodDelete)
	router.HandleFunc("/lookup", h.Lookup).Methods(http.MethodPost)
	router.HandleFunc("/speech", h.Speech).Methods(http.MethodPost)
}

// ListWords handles GET /words with optional search and pagination.
func (h *VocabHandler) ListWords(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	page := queryInt(r, "page", 1)
	perPage := queryInt(r, "per_page", defaultPerPage)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	words, total, err := h.words.ListWords(r.Context(), sess.UserID, search, page, perPage)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list words")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to list words")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, &models.WordListResponse{
		Words:   words,
		Page:    page,
		PerPage: perPage,
		Total:   total,
	})
}

// AddWord handles POST /words.
func (h *VocabHandler) AddWord(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	var req models.AddWordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if errs := req.Validate(); errs.HasErrors() {
		writeValidationErrors(w, h.logger, errs)
		return
	}

	word := &models.VocabWord{
		UserID: sess.UserID,
		Word:   strings.ToLower(strings.TrimSpace(req.Word)),
	}

	if err := h.words.AddWord(r.Context(), word); err != nil {
		h.logger.WithError(err).Error("Failed to add word")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to add word")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, word)
}

// DeleteWord handles DELETE /words/{id}.
func (h *VocabHandler) DeleteWord(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	wordID := pathID(r)

	if err := h.words.DeleteWord(r.Context(), sess.UserID, wordID); err != nil {
		if errors.Is(err, models.ErrWordNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "Word not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete word")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to delete word")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Lookup handles POST /lookup. The generated content is persisted onto the
// word row when the word is on the user's list, so later page loads can
// show it without another upstream call.
func (h *VocabHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	var req models.LookupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if errs := req.Validate(); errs.HasErrors() {
		writeValidationErrors(w, h.logger, errs)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), sess.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load user for lookup")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Lookup failed")
		return
	}

	word := strings.ToLower(strings.TrimSpace(req.Word))

	start := time.Now()
	result, err := h.assistant.Lookup(r.Context(), &user.User, word, req.Action)
	h.metrics.AssistantLatency.WithLabelValues("lookup").Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.LookupsTotal.WithLabelValues(string(req.Action), "error").Inc()
		h.logger.WithError(err).Error("Assistant lookup failed")
		writeError(w, h.logger, http.StatusBadGateway, "upstream_error", "Content generation failed")
		return
	}
	h.metrics.LookupsTotal.WithLabelValues(string(req.Action), "ok").Inc()

	h.persistLookup(r, sess, word, req.Action, result)

	writeJSON(w, h.logger, http.StatusOK, &models.LookupResponse{
		Word:   word,
		Action: req.Action,
		Result: result,
	})
}

// persistLookup stores generated content on the matching word-list row, if
// any. Failure to persist never fails the lookup.
func (h *VocabHandler) persistLookup(
	r *http.Request,
	sess *models.SessionData,
	word string,
	action models.LookupAction,
	content string,
) {
	words, _, err := h.words.ListWords(r.Context(), sess.UserID, word, 1, 1)
	if err != nil || len(words) == 0 || !strings.EqualFold(words[0].Word, word) {
		return
	}

	if saveErr := h.words.SaveGeneratedContent(r.Context(), sess.UserID, words[0].ID, action, content); saveErr != nil {
		h.logger.WithError(saveErr).Warn("Failed to persist generated content")
	}
}

// Speech handles POST /speech and returns base64-encoded MP3 audio.
func (h *VocabHandler) Speech(w http.ResponseWriter, r *http.Request) {
	var req models.SpeechRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if errs := req.Validate(); errs.HasErrors() {
		writeValidationErrors(w, h.logger, errs)
		return
	}

	start := time.Now()
	audio, err := h.assistant.Speak(r.Context(), strings.TrimSpace(req.Text))
	h.metrics.AssistantLatency.WithLabelValues("speech").Observe(time.Since(start).Seconds())
	if err != nil {
		h.metrics.SpeechRequests.WithLabelValues("error").Inc()
		h.logger.WithError(err).Error("Speech synthesis failed")
		writeError(w, h.logger, http.StatusBadGateway, "upstream_error", "Speech synthesis failed")
		return
	}
	h.metrics.SpeechRequests.WithLabelValues("ok").Inc()

	writeJSON(w, h.logger, http.StatusOK, &models.SpeechResponse{
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
}

// ListNotes handles GET /words/{id}/notes.
func (h *VocabHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	wordID := pathID(r)

	notes, err := h.words.ListNotes(r.Context(), sess.UserID, wordID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list notes")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to list notes")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]interface{}{"notes": notes})
}

// AddNote handles POST /words/{id}/notes.
func (h *VocabHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	wordID := pathID(r)

	var req models.NoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if errs := req.Validate(); errs.HasErrors() {
		writeValidationErrors(w, h.logger, errs)
		return
	}

	note := &models.Note{
		WordID: wordID,
		UserID: sess.UserID,
		Body:   req.Body,
	}

	if err := h.words.AddNote(r.Context(), note); err != nil {
		if errors.Is(err, models.ErrWordNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "Word not found")
			return
		}
		h.logger.WithError(err).Error("Failed to add note")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to add note")
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, note)
}

// UpdateNote handles PUT /notes/{id}.
func (h *VocabHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	noteID := pathID(r)

	var req models.NoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return
	}
	if errs := req.Validate(); errs.HasErrors() {
		writeValidationErrors(w, h.logger, errs)
		return
	}

	note, err := h.words.UpdateNote(r.Context(), sess.UserID, noteID, req.Body)
	if err != nil {
		if errors.Is(err, models.ErrNoteNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "Note not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update note")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to update note")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{id}.
func (h *VocabHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	noteID := pathID(r)

	if err := h.words.DeleteNote(r.Context(), sess.UserID, noteID); err != nil {
		if errors.Is(err, models.ErrNoteNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "not_found", "Note not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete note")
		writeError(w, h.logger, http.StatusInternalServerError, "server_error", "Failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID extracts the numeric {id} route variable. The route pattern
// guarantees it parses.
func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// queryInt parses an integer query parameter with a fallback default.
func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
