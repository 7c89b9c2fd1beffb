package domain

import "errors"

var (
	// Entry errors
	ErrEntryNotFound          = errors.New("entry not found")
	ErrInvalidAmount          = errors.New("amount must not be negative")
	ErrInvalidKind            = errors.New("invalid entry kind")
	ErrInvalidStatus          = errors.New("invalid settlement status")
	ErrInvalidInstallmentInfo = errors.New("invalid installment info")
	ErrClientNotAllowed       = errors.New("client reference is only allowed on income entries")
	ErrIDChange               = errors.New("entry id cannot be changed")

	// Plan errors
	ErrPlanNotFound            = errors.New("installment plan not found")
	ErrInvalidInstallmentCount = errors.New("installment count must be at least 1")
	ErrDownPaymentExceedsTotal = errors.New("down payment exceeds total amount")

	// Client errors
	ErrClientNotFound = errors.New("client not found")

	// Session errors
	ErrSessionNotFound = errors.New("ledger session not open")
	ErrSessionClosed   = errors.New("ledger session is closing")
	ErrWriteBacklog    = errors.New("too many writes pending persistence")
	ErrWriteDiscarded  = errors.New("write discarded after an earlier write for the entry failed")
)
