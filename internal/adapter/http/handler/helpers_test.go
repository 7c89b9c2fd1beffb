package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/iho/bizledger/internal/adapter/http/dto"
	"github.com/iho/bizledger/internal/domain"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/entries?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/entries?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"entry not found", domain.ErrEntryNotFound, http.StatusNotFound},
		{"plan not found", domain.ErrPlanNotFound, http.StatusNotFound},
		{"client not found", fmt.Errorf("%w: c9", domain.ErrClientNotFound), http.StatusNotFound},
		{"session not open", domain.ErrSessionNotFound, http.StatusUnauthorized},
		{"backlog", fmt.Errorf("%w: 1025 > 1024", domain.ErrWriteBacklog), http.StatusServiceUnavailable},
		{"closing", domain.ErrSessionClosed, http.StatusServiceUnavailable},
		{"missing field", fmt.Errorf("%w: description", domain.ErrMissingField), http.StatusBadRequest},
		{"client required", domain.ErrClientRequired, http.StatusBadRequest},
		{"down payment", domain.ErrDownPaymentExceedsTotal, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestMapDomainErrorValidationErrors(t *testing.T) {
	err := dto.Validate(&dto.SetStatusRequest{Status: "paid"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if got := mapDomainError(err); got != http.StatusBadRequest {
		t.Fatalf("expected 400 for validation errors, got %d", got)
	}
}

func TestWriteErrorEncodesBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "bad", "details")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Error != "bad" || resp.Message != "details" {
		t.Fatalf("unexpected body: %+v", resp)
	}
}
