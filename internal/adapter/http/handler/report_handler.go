package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/bizledger/internal/adapter/http/dto"
	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
)

// ReportService defines the behavior needed by ReportHandler.
type ReportService interface {
	Summary(ctx context.Context, userID string, filter domain.EntryFilter) (domain.Summary, error)
	Growth(ctx context.Context, userID string, at time.Time) (domain.Growth, error)
	Report(ctx context.Context, userID string, filter domain.EntryFilter) (*usecase.Report, error)
}

// ReportHandler serves summaries, growth and report input.
type ReportHandler struct {
	ledger ReportService
	now    func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(ledger ReportService) *ReportHandler {
	return &ReportHandler{ledger: ledger, now: time.Now}
}

// Summary returns the summary of the filtered entries.
func (h *ReportHandler) Summary(w http.ResponseWriter, r *http.Request) {
	filter := dto.FilterFromQuery(r.URL.Query())

	summary, err := h.ledger.Summary(r.Context(), userID(r), filter)
	if err != nil {
		writeDomainError(w, "failed to summarize", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SummaryFromDomain(summary))
}

// Growth compares the month of ?at= (default today) with the previous month
// and the same month a year earlier.
func (h *ReportHandler) Growth(w http.ResponseWriter, r *http.Request) {
	at := h.now().UTC()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(dto.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid at", err.Error())
			return
		}
		at = parsed
	}

	growth, err := h.ledger.Growth(r.Context(), userID(r), at)
	if err != nil {
		writeDomainError(w, "failed to compute growth", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.GrowthFromDomain(growth, at))
}

// Report returns the filtered entries, their summary and the period label.
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	filter := dto.FilterFromQuery(r.URL.Query())

	report, err := h.ledger.Report(r.Context(), userID(r), filter)
	if err != nil {
		writeDomainError(w, "failed to build report", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ReportFromUseCase(report))
}

// Categories lists the income and expense categories.
func (h *ReportHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.CategoriesResponse{
		Income:  domain.IncomeCategories,
		Expense: domain.ExpenseCategories,
	})
}
