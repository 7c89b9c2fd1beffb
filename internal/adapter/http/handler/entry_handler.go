package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/bizledger/internal/adapter/http/dto"
	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
)

// EntryService defines the behavior needed by EntryHandler.
type EntryService interface {
	CreateEntry(ctx context.Context, input usecase.CreateEntryInput) ([]*domain.Entry, error)
	UpdateEntry(ctx context.Context, input usecase.UpdateEntryInput) (*domain.Entry, error)
	SetStatus(ctx context.Context, userID, id string, status domain.SettlementStatus) (*domain.Entry, error)
	RemoveEntry(ctx context.Context, userID, id string) error
	GetEntry(ctx context.Context, userID, id string) (*domain.Entry, error)
	ListEntries(ctx context.Context, userID string, filter domain.EntryFilter) ([]*domain.Entry, error)
	PendingWrites(ctx context.Context, userID, id string) ([]usecase.PendingWrite, error)
}

// EntryHandler handles entry-related HTTP requests.
type EntryHandler struct {
	ledger EntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(ledger EntryService) *EntryHandler {
	return &EntryHandler{ledger: ledger}
}

// Create records a single entry, or a down payment plus installments when
// the request carries installment terms.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(userID(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entries, err := h.ledger.CreateEntry(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to create entry", err)
		return
	}

	if input.Plan != nil {
		planID := ""
		if len(entries) > 0 {
			planID = entries[0].PlanID
		}
		writeJSON(w, http.StatusCreated, dto.PlanResponse{PlanID: planID, Entries: dto.EntriesFromDomain(entries)})
		return
	}
	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entries[0]))
}

// Get retrieves an entry by ID.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.ledger.GetEntry(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to get entry", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// List lists the entries matching the query filter, newest first.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := dto.FilterFromQuery(r.URL.Query())

	limit, offset, err := domain.ValidatePagination(parseIntQuery(r, "limit", 0), parseIntQuery(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pagination", err.Error())
		return
	}

	entries, err := h.ledger.ListEntries(r.Context(), userID(r), filter)
	if err != nil {
		writeDomainError(w, "failed to list entries", err)
		return
	}

	total := len(entries)
	start := min(offset, total)
	end := min(start+limit, total)

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries[start:end]),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

// Update applies a partial update.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateEntryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	patch, err := req.ToPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.ledger.UpdateEntry(r.Context(), usecase.UpdateEntryInput{
		UserID: userID(r),
		ID:     chi.URLParam(r, "id"),
		Patch:  patch,
	})
	if err != nil {
		writeDomainError(w, "failed to update entry", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// SetStatus marks an entry settled or pending.
func (h *EntryHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.SetStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.ledger.SetStatus(r.Context(), userID(r), chi.URLParam(r, "id"), domain.SettlementStatus(req.Status))
	if err != nil {
		writeDomainError(w, "failed to change status", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Delete removes one entry. Other entries of its plan are kept.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.RemoveEntry(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "failed to delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Pending lists writes for the entry still waiting for persistence.
func (h *EntryHandler) Pending(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writes, err := h.ledger.PendingWrites(r.Context(), userID(r), id)
	if err != nil {
		writeDomainError(w, "failed to get pending writes", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.PendingFromUseCase(id, writes))
}
