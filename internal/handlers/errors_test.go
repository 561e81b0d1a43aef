package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"familypoints/internal/models"
	"familypoints/internal/service"
	"familypoints/internal/validation"
)

func decodeEnvelope(t *testing.T, body *bytes.Buffer) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, 418, "Teapot", "", nil)

	if recorder.Code != 418 {
		t.Fatalf("expected status 418, got %d", recorder.Code)
	}
	env := decodeEnvelope(t, recorder.Body)
	if env.Code != 418 || env.Message != "Teapot" || env.Data != nil {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	originalOutput := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(originalOutput)

	recorder := httptest.NewRecorder()
	err := errors.New("boom")

	respondWithError(recorder, 500, "Internal server error", "", err)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "Internal server error") {
		t.Fatalf("expected log to include user message, got %q", logOutput)
	}
	if !strings.Contains(logOutput, "boom") {
		t.Fatalf("expected log to include error, got %q", logOutput)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", validation.ValidationError{Field: "name", Message: "required"}, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("create: %w", validation.ValidationError{Field: "x", Message: "y"}), http.StatusBadRequest},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"not found", fmt.Errorf("lookup: %w", service.ErrNotFound), http.StatusNotFound},
		{"username taken", service.ErrUsernameTaken, http.StatusBadRequest},
		{"invalid state", service.ErrInvalidState, http.StatusConflict},
		{"invalid transition", models.ErrInvalidTransition, http.StatusConflict},
		{"insufficient points", service.ErrInsufficientPoints, http.StatusConflict},
		{"analysis disabled", service.ErrAnalysisDisabled, http.StatusServiceUnavailable},
		{"internal", errors.New("driver: connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := statusFor(tt.err)
			if got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	var buf bytes.Buffer
	originalOutput := logrus.StandardLogger().Out
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(originalOutput)

	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	respondError(recorder, req, errors.New("pq: password authentication failed"))

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", recorder.Code)
	}
	body := recorder.Body.String()
	if strings.Contains(body, "pq:") {
		t.Errorf("internal error leaked to client: %s", body)
	}
	if !strings.Contains(buf.String(), "pq: password authentication failed") {
		t.Errorf("internal error not logged: %q", buf.String())
	}
}
