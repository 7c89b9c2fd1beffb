package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/usecase"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags of a request.
func Validate(req any) error {
	return validate.Struct(req)
}

// PlanRequest turns a create request into an installment plan.
type PlanRequest struct {
	DownPayment      decimal.Decimal `json:"down_payment"`
	InstallmentCount int             `json:"installment_count" validate:"min=1,max=360"`
}

// CreateEntryRequest represents a request to create an entry or a plan.
// For a plan, Amount is the total and Date the start date.
type CreateEntryRequest struct {
	TransactionType string           `json:"transaction_type" validate:"omitempty,oneof=income expense"`
	Category        string           `json:"category"         validate:"max=100"`
	Description     string           `json:"description"      validate:"max=200"`
	Amount          *decimal.Decimal `json:"amount"`
	Date            string           `json:"date"             validate:"omitempty,datetime=2006-01-02"`
	Status          string           `json:"status"           validate:"omitempty,oneof=pending settled"`
	PaymentMethod   string           `json:"payment_method"   validate:"max=50"`
	ClientID        string           `json:"client_id"`
	Installments    *PlanRequest     `json:"installments,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput(userID string) (usecase.CreateEntryInput, error) {
	date, err := parseOptionalDate(r.Date)
	if err != nil {
		return usecase.CreateEntryInput{}, err
	}

	input := usecase.CreateEntryInput{
		UserID:        userID,
		Kind:          domain.Kind(r.TransactionType),
		Category:      r.Category,
		Description:   r.Description,
		Amount:        r.Amount,
		Date:          date,
		Status:        domain.SettlementStatus(r.Status),
		PaymentMethod: r.PaymentMethod,
		ClientID:      strings.TrimSpace(r.ClientID),
	}
	if r.Installments != nil {
		input.Plan = &usecase.PlanTerms{
			DownPayment:      r.Installments.DownPayment,
			InstallmentCount: r.Installments.InstallmentCount,
		}
	}
	return input, nil
}

// UpdateEntryRequest represents a partial update. Absent fields are kept.
type UpdateEntryRequest struct {
	TransactionType *string          `json:"transaction_type" validate:"omitempty,oneof=income expense"`
	Category        *string          `json:"category"         validate:"omitempty,max=100"`
	Description     *string          `json:"description"      validate:"omitempty,max=200"`
	Amount          *decimal.Decimal `json:"amount"`
	Date            *string          `json:"date"             validate:"omitempty,datetime=2006-01-02"`
	Status          *string          `json:"status"           validate:"omitempty,oneof=pending settled"`
	PaymentMethod   *string          `json:"payment_method"   validate:"omitempty,max=50"`
	ClientID        *string          `json:"client_id"`
}

// ToPatch converts to a domain patch.
func (r *UpdateEntryRequest) ToPatch() (domain.EntryPatch, error) {
	patch := domain.EntryPatch{
		Category:      r.Category,
		Description:   r.Description,
		Amount:        r.Amount,
		PaymentMethod: r.PaymentMethod,
		ClientID:      r.ClientID,
	}
	if r.TransactionType != nil {
		kind := domain.Kind(*r.TransactionType)
		patch.Kind = &kind
	}
	if r.Status != nil {
		status := domain.SettlementStatus(*r.Status)
		patch.Status = &status
	}
	if r.Date != nil {
		date, err := time.Parse(DateLayout, *r.Date)
		if err != nil {
			return domain.EntryPatch{}, fmt.Errorf("invalid date %q: %w", *r.Date, err)
		}
		patch.Date = &date
	}
	return patch, nil
}

// SetStatusRequest represents a settlement status change.
type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending settled"`
}

// EditPlanRequest represents new terms for an installment plan.
type EditPlanRequest struct {
	TotalAmount       *decimal.Decimal `json:"total_amount"        validate:"required"`
	DownPayment       decimal.Decimal  `json:"down_payment"`
	InstallmentCount  int              `json:"installment_count"   validate:"required,min=1,max=360"`
	StartDate         string           `json:"start_date"          validate:"required,datetime=2006-01-02"`
	Description       string           `json:"description"         validate:"max=200"`
	Category          string           `json:"category"            validate:"max=100"`
	PaymentMethod     string           `json:"payment_method"      validate:"max=50"`
	DownPaymentStatus string           `json:"down_payment_status" validate:"omitempty,oneof=pending settled"`
}

// ToUseCaseInput converts to use case input.
func (r *EditPlanRequest) ToUseCaseInput(userID, planID string) (usecase.EditPlanInput, error) {
	if r.TotalAmount == nil {
		return usecase.EditPlanInput{}, fmt.Errorf("%w: total_amount", domain.ErrMissingField)
	}
	start, err := time.Parse(DateLayout, r.StartDate)
	if err != nil {
		return usecase.EditPlanInput{}, fmt.Errorf("invalid start_date %q: %w", r.StartDate, err)
	}
	return usecase.EditPlanInput{
		UserID:            userID,
		PlanID:            planID,
		TotalAmount:       *r.TotalAmount,
		DownPayment:       r.DownPayment,
		InstallmentCount:  r.InstallmentCount,
		StartDate:         start,
		Description:       r.Description,
		Category:          r.Category,
		PaymentMethod:     r.PaymentMethod,
		DownPaymentStatus: domain.SettlementStatus(r.DownPaymentStatus),
	}, nil
}

// FilterFromQuery builds an entry filter from URL query values. Range mode is
// chosen only by date_range=true, in which case month and year are ignored. A
// date that does not parse leaves that bound open, and other unknown values
// mean "no constraint".
func FilterFromQuery(q map[string][]string) domain.EntryFilter {
	get := func(key string) string {
		if v := q[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	f := domain.EntryFilter{
		Query:         get("q"),
		PaymentMethod: get("payment_method"),
		Category:      get("category"),
		Status:        get("status"),
		Month:         get("month"),
		Year:          get("year"),
	}

	useRange, err := strconv.ParseBool(get("date_range"))
	if err != nil || !useRange {
		return f
	}

	f.UseDateRange = true
	f.StartDate = openBound(get("start_date"))
	f.EndDate = openBound(get("end_date"))
	return f
}

func openBound(s string) *time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
