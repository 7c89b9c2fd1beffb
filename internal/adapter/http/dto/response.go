package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
)

// InstallmentResponse is the installment position of an entry.
type InstallmentResponse struct {
	TotalInstallments int    `json:"total_installments"`
	InstallmentNumber int    `json:"installment_number"`
	PlanID            string `json:"plan_id"`
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID              string               `json:"id"`
	TransactionType string               `json:"transaction_type"`
	Category        string               `json:"category"`
	Description     string               `json:"description"`
	Amount          decimal.Decimal      `json:"amount"`
	Date            string               `json:"date"`
	Status          string               `json:"status"`
	PaymentMethod   string               `json:"payment_method,omitempty"`
	ClientID        string               `json:"client_id,omitempty"`
	ClientName      string               `json:"client_name,omitempty"`
	PlanID          string               `json:"plan_id,omitempty"`
	Installment     *InstallmentResponse `json:"installments_info,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	resp := &EntryResponse{
		ID:              e.ID,
		TransactionType: string(e.Kind),
		Category:        e.Category,
		Description:     e.Description,
		Amount:          e.Amount,
		Date:            e.Date.Format(DateLayout),
		Status:          string(e.Status),
		PaymentMethod:   e.PaymentMethod,
		ClientID:        e.ClientID,
		ClientName:      e.ClientName,
		PlanID:          e.PlanID,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	if e.Installment != nil {
		resp.Installment = &InstallmentResponse{
			TotalInstallments: e.Installment.TotalInstallments,
			InstallmentNumber: e.Installment.InstallmentNumber,
			PlanID:            e.Installment.PlanID,
		}
	}
	return resp
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse is a page of entries.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// PlanResponse lists the entries of one plan, down payment first.
type PlanResponse struct {
	PlanID  string           `json:"plan_id"`
	Entries []*EntryResponse `json:"entries"`
}

// SummaryResponse represents a period summary.
type SummaryResponse struct {
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpense   decimal.Decimal `json:"total_expense"`
	PendingIncome  decimal.Decimal `json:"pending_income"`
	PendingExpense decimal.Decimal `json:"pending_expense"`
	NetBalance     decimal.Decimal `json:"net_balance"`
}

// SummaryFromDomain converts a domain summary to response.
func SummaryFromDomain(s domain.Summary) SummaryResponse {
	return SummaryResponse{
		TotalIncome:    s.TotalIncome,
		TotalExpense:   s.TotalExpense,
		PendingIncome:  s.PendingIncome,
		PendingExpense: s.PendingExpense,
		NetBalance:     s.NetBalance,
	}
}

// GrowthResponse represents month-over-month and year-over-year growth.
type GrowthResponse struct {
	Period            string          `json:"period"`
	Current           decimal.Decimal `json:"current"`
	Previous          decimal.Decimal `json:"previous"`
	SameMonthLastYear decimal.Decimal `json:"same_month_last_year"`
	MonthlyDelta      decimal.Decimal `json:"monthly_delta"`
	MonthlyPercentage decimal.Decimal `json:"monthly_percentage"`
	AnnualDelta       decimal.Decimal `json:"annual_delta"`
	AnnualPercentage  decimal.Decimal `json:"annual_percentage"`
}

// GrowthFromDomain converts domain growth to response.
func GrowthFromDomain(g domain.Growth, at time.Time) GrowthResponse {
	return GrowthResponse{
		Period:            at.Format("2006-01"),
		Current:           g.Current,
		Previous:          g.Previous,
		SameMonthLastYear: g.SameMonthLastYear,
		MonthlyDelta:      g.MonthlyDelta,
		MonthlyPercentage: g.MonthlyPercentage,
		AnnualDelta:       g.AnnualDelta,
		AnnualPercentage:  g.AnnualPercentage,
	}
}

// ReportResponse is the input of the report exporter.
type ReportResponse struct {
	PeriodLabel string           `json:"period_label"`
	Summary     SummaryResponse  `json:"summary"`
	Entries     []*EntryResponse `json:"entries"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// ReportFromUseCase converts a use case report to response.
func ReportFromUseCase(r *usecase.Report) ReportResponse {
	return ReportResponse{
		PeriodLabel: r.PeriodLabel,
		Summary:     SummaryFromDomain(r.Summary),
		Entries:     EntriesFromDomain(r.Entries),
		GeneratedAt: r.GeneratedAt,
	}
}

// PendingWriteResponse is one write not yet persisted.
type PendingWriteResponse struct {
	Seq        uint64    `json:"seq"`
	Op         string    `json:"op"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// PendingWritesResponse lists outstanding writes for an entry.
type PendingWritesResponse struct {
	EntryID string                 `json:"entry_id"`
	Pending []PendingWriteResponse `json:"pending"`
}

// PendingFromUseCase converts pending writes to response.
func PendingFromUseCase(entryID string, writes []usecase.PendingWrite) PendingWritesResponse {
	resp := PendingWritesResponse{EntryID: entryID, Pending: make([]PendingWriteResponse, len(writes))}
	for i, w := range writes {
		resp.Pending[i] = PendingWriteResponse{Seq: w.Seq, Op: string(w.Op), EnqueuedAt: w.EnqueuedAt}
	}
	return resp
}

// FailuresResponse lists recent persistence failures of a session.
type FailuresResponse struct {
	Failures []usecase.WriteFailure `json:"failures"`
}

// CategoriesResponse lists the category enumerations.
type CategoriesResponse struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
