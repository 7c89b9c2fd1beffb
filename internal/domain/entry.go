package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind tells income and expense entries apart.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// IsValid reports whether k is a known kind.
func (k Kind) IsValid() bool {
	return k == KindIncome || k == KindExpense
}

// SettlementStatus is whether an entry's amount was received/paid.
type SettlementStatus string

const (
	StatusPending SettlementStatus = "pending"
	StatusSettled SettlementStatus = "settled"
)

// IsValid reports whether s is a known status.
func (s SettlementStatus) IsValid() bool {
	return s == StatusPending || s == StatusSettled
}

// InstallmentInfo marks an entry as one part of a multi-part payment plan.
type InstallmentInfo struct {
	TotalInstallments int    `json:"total_installments"`
	InstallmentNumber int    `json:"installment_number"`
	PlanID            string `json:"plan_id"`
}

// Validate checks 1 <= number <= total.
func (i *InstallmentInfo) Validate() error {
	if i.TotalInstallments < 1 || i.InstallmentNumber < 1 || i.InstallmentNumber > i.TotalInstallments {
		return ErrInvalidInstallmentInfo
	}
	return nil
}

// Entry is one financial ledger record.
type Entry struct {
	ID            string
	OwnerID       string
	Kind          Kind
	Category      string
	Description   string
	Amount        decimal.Decimal
	Date          time.Time
	Status        SettlementStatus
	PaymentMethod string
	ClientID      string
	ClientName    string

	// PlanID links a down payment and its installments. The down payment
	// carries a PlanID but no Installment.
	PlanID      string
	Installment *InstallmentInfo

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the model invariants of an entry.
func (e *Entry) Validate() error {
	if !e.Kind.IsValid() {
		return ErrInvalidKind
	}
	if !e.Status.IsValid() {
		return ErrInvalidStatus
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if e.ClientID != "" && e.Kind != KindIncome {
		return ErrClientNotAllowed
	}
	if e.Installment != nil {
		return e.Installment.Validate()
	}
	return nil
}

// IsInstallment reports whether the entry is a numbered installment of a plan.
func (e *Entry) IsInstallment() bool {
	return e.Installment != nil
}

// Clone returns a deep copy so callers can't mutate store-owned state.
func (e *Entry) Clone() *Entry {
	c := *e
	if e.Installment != nil {
		info := *e.Installment
		c.Installment = &info
	}
	return &c
}

// EntryPatch holds the fields an update may change. Nil fields are left alone.
// The id is not part of the patch and can never change.
type EntryPatch struct {
	Kind          *Kind
	Category      *string
	Description   *string
	Amount        *decimal.Decimal
	Date          *time.Time
	Status        *SettlementStatus
	PaymentMethod *string
	ClientID      *string
	ClientName    *string
	PlanID        *string
	Installment   *InstallmentInfo
}

// Apply merges the patch shallowly into e.
func (p EntryPatch) Apply(e *Entry) {
	if p.Kind != nil {
		e.Kind = *p.Kind
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Date != nil {
		e.Date = DateOf(*p.Date)
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	if p.ClientID != nil {
		e.ClientID = *p.ClientID
	}
	if p.ClientName != nil {
		e.ClientName = *p.ClientName
	}
	if p.PlanID != nil {
		e.PlanID = *p.PlanID
	}
	if p.Installment != nil {
		info := *p.Installment
		e.Installment = &info
	}
}

// DateOf drops the time of day, keeping the calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
