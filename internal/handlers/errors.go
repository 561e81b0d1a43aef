package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"familypoints/internal/models"
	"familypoints/internal/service"
	"familypoints/internal/validation"
)

// envelope is the body of every API response
type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Code: status, Message: message, Data: data}); err != nil {
		log.WithError(err).Warn("Failed to write response")
	}
}

func respondOK(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, "success", data)
}

func respondCreated(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusCreated, "success", data)
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.WithError(err).Error(logMsg)
	}
	writeJSON(w, status, userMsg, nil)
}

// statusFor maps service errors to HTTP status codes and client messages.
// Errors it does not recognise are internal and get a generic message.
func statusFor(err error) (int, string) {
	var ve validation.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, service.ErrInvalidCredentials.Error()
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusBadRequest, service.ErrUsernameTaken.Error()
	case errors.Is(err, service.ErrInvalidState), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict, "request is no longer pending"
	case errors.Is(err, service.ErrInsufficientPoints):
		return http.StatusConflict, service.ErrInsufficientPoints.Error()
	case errors.Is(err, service.ErrAnalysisDisabled):
		return http.StatusServiceUnavailable, service.ErrAnalysisDisabled.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// respondError writes the response for an error returned by a service
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		}).WithError(err).Error("Request failed")
	}
	writeJSON(w, status, msg, nil)
}
