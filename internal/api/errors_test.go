package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TimurManjosov/jobwatch/internal/rules"
	"github.com/TimurManjosov/jobwatch/internal/tasks"
)

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(http.StatusBadRequest, ErrCodeInvalidJSON, "Invalid JSON body")

	if resp.Error != "Bad Request" {
		t.Errorf("Expected Error 'Bad Request', got '%s'", resp.Error)
	}
	if resp.Message != "Invalid JSON body" {
		t.Errorf("Expected Message 'Invalid JSON body', got '%s'", resp.Message)
	}
	if resp.Code != ErrCodeInvalidJSON {
		t.Errorf("Expected Code ErrCodeInvalidJSON, got '%s'", resp.Code)
	}
}

func TestErrorResponse_WithFields(t *testing.T) {
	fields := map[string]string{
		"taskName": "Task Name is required.",
		"delay":    "Delay must be greater than or equal to 1000.",
	}

	resp := NewErrorResponse(http.StatusBadRequest, ErrCodeValidation, "Validation failed").
		WithFields(fields)

	if len(resp.Fields) != 2 {
		t.Errorf("Expected 2 fields, got %d", len(resp.Fields))
	}
	if resp.Fields["taskName"] != "Task Name is required." {
		t.Errorf("Expected field 'taskName' error, got '%s'", resp.Fields["taskName"])
	}
}

func TestErrorResponse_WithRequestID(t *testing.T) {
	resp := NewErrorResponse(http.StatusInternalServerError, ErrCodeInternal, "Internal error").
		WithRequestID("req-123")

	if resp.RequestID != "req-123" {
		t.Errorf("Expected RequestID 'req-123', got '%s'", resp.RequestID)
	}
}

func TestValidationError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)

	fields := map[string]string{
		"taskName": "Task Name is required.",
	}

	ValidationError(w, r, "Validation failed", fields)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeValidation {
		t.Errorf("Expected Code ErrCodeValidation, got '%s'", resp.Code)
	}
	if resp.Fields["taskName"] != "Task Name is required." {
		t.Errorf("Expected field 'taskName' error, got '%s'", resp.Fields["taskName"])
	}
}

func TestBadRequestError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)

	BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeInvalidJSON {
		t.Errorf("Expected Code ErrCodeInvalidJSON, got '%s'", resp.Code)
	}
	if resp.Message != "Invalid JSON" {
		t.Errorf("Expected message 'Invalid JSON', got '%s'", resp.Message)
	}
}

func TestUnauthorizedError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)

	UnauthorizedError(w, r, "Missing authentication")

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeUnauthorized {
		t.Errorf("Expected Code ErrCodeUnauthorized, got '%s'", resp.Code)
	}
}

func TestInternalError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)

	InternalError(w, r, "Store unavailable")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeInternal {
		t.Errorf("Expected Code ErrCodeInternal, got '%s'", resp.Code)
	}
}

func TestNotFoundError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/tasks/unknown", nil)

	NotFoundError(w, r, "Task not found")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeNotFound {
		t.Errorf("Expected Code ErrCodeNotFound, got '%s'", resp.Code)
	}
}

func TestRequestTooLargeError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)

	RequestTooLargeError(w, r, "Request body exceeds limit")

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Code != ErrCodeRequestTooLarge {
		t.Errorf("Expected Code ErrCodeRequestTooLarge, got '%s'", resp.Code)
	}
}

func TestErrorResponseContentType(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)

	BadRequestError(w, r, ErrCodeInvalidJSON, "Invalid JSON")

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Expected Content-Type 'application/json', got '%s'", contentType)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   ErrorCode
	}{
		{"task not found", fmt.Errorf("get: %w", tasks.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"group not found", fmt.Errorf("%w: condition group", rules.ErrNotFound), http.StatusNotFound, ErrCodeNotFound},
		{"last group", fmt.Errorf("%w: last group", rules.ErrInvariantViolation), http.StatusConflict, ErrCodeInvariantViolation},
		{"busy", fmt.Errorf("%w: t1", tasks.ErrTaskBusy), http.StatusConflict, ErrCodeTaskBusy},
		{"transition", fmt.Errorf("%w: done -> processing", tasks.ErrInvalidTransition), http.StatusConflict, ErrCodeInvalidTransition},
		{"finished", fmt.Errorf("%w: t1 is done", tasks.ErrTaskFinished), http.StatusConflict, ErrCodeTaskFinished},
		{"validation", &tasks.ValidationError{Fields: map[string]string{"delay": "too small"}}, http.StatusBadRequest, ErrCodeValidation},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/tasks", nil)

			writeServiceError(w, r, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var resp ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("Expected Code %s, got %s", tt.wantCode, resp.Code)
			}
			if tt.wantCode == ErrCodeValidation && resp.Fields["delay"] != "too small" {
				t.Errorf("Expected field map to be passed through, got %v", resp.Fields)
			}
			if tt.wantCode == ErrCodeInternal && resp.Message == "disk on fire" {
				t.Error("internal error details must not leak")
			}
		})
	}
}
