package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PersistencePayload is the normalized shape mirrored to the persistence
// collaborator on every mutation.
type PersistencePayload struct {
	ID               string           `json:"id"`
	OwnerID          string           `json:"owner_id"`
	TransactionType  Kind             `json:"transaction_type"`
	Category         string           `json:"category"`
	ClientID         *string          `json:"client_id"`
	Description      string           `json:"description"`
	Amount           decimal.Decimal  `json:"amount"`
	Date             string           `json:"date"`
	Status           SettlementStatus `json:"status"`
	PaymentMethod    *string          `json:"payment_method"`
	InstallmentsInfo *InstallmentInfo `json:"installments_info"`
	PlanID           *string          `json:"plan_id"`
}

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// PayloadFromEntry builds the persistence payload for e.
func PayloadFromEntry(e *Entry) PersistencePayload {
	p := PersistencePayload{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		TransactionType: e.Kind,
		Category:        e.Category,
		Description:     e.Description,
		Amount:          e.Amount,
		Date:            e.Date.Format(DateLayout),
		Status:          e.Status,
	}
	if e.ClientID != "" {
		id := e.ClientID
		p.ClientID = &id
	}
	if e.PaymentMethod != "" {
		pm := e.PaymentMethod
		p.PaymentMethod = &pm
	}
	if e.Installment != nil {
		info := *e.Installment
		p.InstallmentsInfo = &info
	}
	if e.PlanID != "" {
		plan := e.PlanID
		p.PlanID = &plan
	}
	return p
}

// ToEntry converts a stored payload back into an entry.
func (p PersistencePayload) ToEntry() (*Entry, error) {
	date, err := time.Parse(DateLayout, p.Date)
	if err != nil {
		return nil, err
	}

	e := &Entry{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Kind:        p.TransactionType,
		Category:    p.Category,
		Description: p.Description,
		Amount:      p.Amount,
		Date:        date,
		Status:      p.Status,
	}
	if p.ClientID != nil {
		e.ClientID = *p.ClientID
	}
	if p.PaymentMethod != nil {
		e.PaymentMethod = *p.PaymentMethod
	}
	if p.InstallmentsInfo != nil {
		info := *p.InstallmentsInfo
		e.Installment = &info
	}
	if p.PlanID != nil {
		e.PlanID = *p.PlanID
	}
	return e, nil
}
