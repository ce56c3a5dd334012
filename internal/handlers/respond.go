// Package handlers implements the HTTP endpoints of the vocabulary service.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/constants"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, logger *logrus.Logger, statusCode int, payload interface{}) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, logger *logrus.Logger, statusCode int, code, message string) {
	writeJSON(w, logger, statusCode, &models.APIError{
		Code:    code,
		Message: message,
	})
}

// writeValidationErrors writes a 422 response carrying per-field errors.
func writeValidationErrors(w http.ResponseWriter, logger *logrus.Logger, errs models.ValidationErrors) {
	writeJSON(w, logger, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "validation_failed",
		"fields": errs,
	})
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
