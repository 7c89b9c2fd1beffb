package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bizledger/internal/adapter/http/dto"
	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
)

// PlanService defines the behavior needed by PlanHandler.
type PlanService interface {
	GetPlan(ctx context.Context, userID, planID string) ([]*domain.Entry, error)
	EditPlan(ctx context.Context, input usecase.EditPlanInput) ([]*domain.Entry, error)
}

// PlanHandler handles installment plan requests.
type PlanHandler struct {
	ledger PlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(ledger PlanService) *PlanHandler {
	return &PlanHandler{ledger: ledger}
}

// Get returns the entries of a plan.
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planId")
	entries, err := h.ledger.GetPlan(r.Context(), userID(r), planID)
	if err != nil {
		writeDomainError(w, "failed to get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlanResponse{PlanID: planID, Entries: dto.EntriesFromDomain(entries)})
}

// Edit re-plans an existing plan with new terms.
func (h *PlanHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req dto.EditPlanRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	planID := chi.URLParam(r, "planId")
	input, err := req.ToUseCaseInput(userID(r), planID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entries, err := h.ledger.EditPlan(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to edit plan", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PlanResponse{PlanID: planID, Entries: dto.EntriesFromDomain(entries)})
}
