package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "condoflow/pkg/domain-errors"
)

type titledRequest struct {
	Title string `json:"title"`
}

func (r *titledRequest) Validate() error {
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("null body is a bad request, not a panic", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("null"))

		_, ok := DecodeAndPrepare[*titledRequest](w, r, nil, r.Context(), "")
		if ok {
			t.Fatal("expected decode to reject a null body")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("valid body passes validation", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"noise after hours"}`))

		req, ok := DecodeAndPrepare[*titledRequest](w, r, nil, r.Context(), "")
		if !ok {
			t.Fatal("expected decode to succeed")
		}
		if req.Title != "noise after hours" {
			t.Fatalf("unexpected title %q", req.Title)
		}
	})
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["error_description"]; ok {
			t.Fatalf("expected error_description to be omitted for internal errors")
		}
	})

	t.Run("validation error includes description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeValidation, "title is required"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if body["error"] != "validation_error" {
			t.Fatalf("expected error code validation_error, got %q", body["error"])
		}
		if body["error_description"] != "title is required" {
			t.Fatalf("expected error_description to be returned for validation errors")
		}
	})

	t.Run("quota exceeded maps to 429 and carries details", func(t *testing.T) {
		w := httptest.NewRecorder()
		err := dErrors.New(dErrors.CodeQuotaExceeded, "fine quota exhausted").
			WithDetails(map[string]any{"type": "fine", "limit": 5, "used": 5})
		WriteError(w, err)

		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		details, ok := body["details"].(map[string]any)
		if !ok {
			t.Fatalf("expected details object, got %T", body["details"])
		}
		if details["type"] != "fine" {
			t.Fatalf("expected details.type fine, got %v", details["type"])
		}
	})
}
