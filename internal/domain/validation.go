package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrMissingField        = errors.New("missing required field")
	ErrClientRequired      = errors.New("client is required for income entries")
	ErrDescriptionTooLong  = errors.New("description too long")
	ErrAmountTooLarge      = errors.New("amount exceeds maximum allowed")
	ErrTooManyInstallments = errors.New("installment count exceeds maximum allowed")
)

// Validation constants
const (
	MaxDescriptionLength = 200
	MaxEntryAmount       = "1000000000000" // 1 trillion
	MaxInstallments      = 360
)

// EntryDraft is what a user submits before an entry or a plan is created.
type EntryDraft struct {
	Kind          Kind
	Category      string
	Description   string
	Amount        *decimal.Decimal
	Date          time.Time
	Status        SettlementStatus
	PaymentMethod string
	ClientID      string

	// EditingInstallment is set when the draft edits an installment of an
	// existing plan; those are exempt from the client requirement.
	EditingInstallment bool
}

// ValidateDraft enforces the required fields of the entry form. A failure
// blocks the whole submission.
func ValidateDraft(d EntryDraft) error {
	if d.Kind == "" {
		return fmt.Errorf("%w: kind", ErrMissingField)
	}
	if !d.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, d.Kind)
	}

	if d.Amount == nil {
		return fmt.Errorf("%w: amount", ErrMissingField)
	}
	if err := ValidateAmount(*d.Amount); err != nil {
		return err
	}

	if d.Date.IsZero() {
		return fmt.Errorf("%w: date", ErrMissingField)
	}

	if d.Status == "" {
		return fmt.Errorf("%w: status", ErrMissingField)
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, d.Status)
	}

	description := strings.TrimSpace(d.Description)
	if description == "" {
		return fmt.Errorf("%w: description", ErrMissingField)
	}
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: max %d characters", ErrDescriptionTooLong, MaxDescriptionLength)
	}

	if strings.TrimSpace(d.PaymentMethod) == "" {
		return fmt.Errorf("%w: payment method", ErrMissingField)
	}

	if d.Kind == KindIncome && strings.TrimSpace(d.ClientID) == "" && !d.EditingInstallment {
		return ErrClientRequired
	}
	if d.Kind == KindExpense && d.ClientID != "" {
		return ErrClientNotAllowed
	}

	return nil
}

// ValidateAmount validates an entry amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxEntryAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxEntryAmount)
	}

	return nil
}

// ValidatePlan checks the planner preconditions. The planner itself never
// validates or clamps.
func ValidatePlan(total, downPayment decimal.Decimal, installmentCount int) error {
	if installmentCount < 1 {
		return ErrInvalidInstallmentCount
	}
	if installmentCount > MaxInstallments {
		return fmt.Errorf("%w: maximum is %d", ErrTooManyInstallments, MaxInstallments)
	}
	if total.IsNegative() || downPayment.IsNegative() {
		return ErrInvalidAmount
	}
	if downPayment.GreaterThan(total) {
		return fmt.Errorf("%w: down payment %s, total %s", ErrDownPaymentExceedsTotal, downPayment, total)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int, error) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset, nil
}
