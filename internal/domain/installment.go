package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PlanDivisionPrecision is the number of decimal places kept when the financed
// amount is split across installments. The remainder is not redistributed, so
// the installments of a plan may sum short of the financed amount by at most
// installmentCount * InstallmentEpsilon.
const PlanDivisionPrecision = 16

// InstallmentEpsilon is the largest rounding error a single installment carries.
var InstallmentEpsilon = decimal.New(1, -PlanDivisionPrecision)

// PlanInput describes one logical transaction to split into a down payment
// plus dated installments.
type PlanInput struct {
	PlanID           string
	OwnerID          string
	TotalAmount      decimal.Decimal
	DownPayment      decimal.Decimal
	InstallmentCount int
	StartDate        time.Time
	BaseDescription  string

	Kind          Kind
	Category      string
	ClientID      string
	ClientName    string
	PaymentMethod string

	// DownPaymentStatus is the initial status of the down payment entry.
	// Installments always start pending.
	DownPaymentStatus SettlementStatus
}

// BuildPlan materializes the schedule for in: installments 1..N first, each one
// calendar month after the previous (installment 1 is one month after the start
// date), then the down payment dated on the start date when it is positive.
// Entry ids are left empty for the caller to assign. BuildPlan does not
// validate; see ValidatePlan.
func BuildPlan(in PlanInput) []*Entry {
	financed := in.TotalAmount.Sub(in.DownPayment)
	perInstallment := installmentAmount(financed, in.InstallmentCount)

	entries := make([]*Entry, 0, in.InstallmentCount+1)

	cursor := DateOf(in.StartDate)
	for i := 1; i <= in.InstallmentCount; i++ {
		cursor = cursor.AddDate(0, 1, 0)

		e := in.baseEntry()
		e.Amount = perInstallment
		e.Date = cursor
		e.Description = InstallmentDescription(in.BaseDescription, i, in.InstallmentCount)
		e.Status = StatusPending
		e.Installment = &InstallmentInfo{
			TotalInstallments: in.InstallmentCount,
			InstallmentNumber: i,
			PlanID:            in.PlanID,
		}
		entries = append(entries, e)
	}

	if in.DownPayment.IsPositive() {
		e := in.baseEntry()
		e.Amount = in.DownPayment
		e.Date = DateOf(in.StartDate)
		e.Description = DownPaymentDescription(in.BaseDescription)
		e.Status = in.DownPaymentStatus
		entries = append(entries, e)
	}

	return entries
}

func (in PlanInput) baseEntry() *Entry {
	return &Entry{
		OwnerID:       in.OwnerID,
		Kind:          in.Kind,
		Category:      in.Category,
		ClientID:      in.ClientID,
		ClientName:    in.ClientName,
		PaymentMethod: in.PaymentMethod,
		PlanID:        in.PlanID,
	}
}

func installmentAmount(financed decimal.Decimal, count int) decimal.Decimal {
	if count < 1 {
		return decimal.Zero
	}
	return financed.DivRound(decimal.NewFromInt(int64(count)), PlanDivisionPrecision)
}

// InstallmentDescription formats "<base> - Parcela i/n".
func InstallmentDescription(base string, number, total int) string {
	return fmt.Sprintf("%s - Parcela %d/%d", base, number, total)
}

// DownPaymentDescription formats "<base> - Entrada".
func DownPaymentDescription(base string) string {
	return base + " - Entrada"
}

// PlanChanges is the delta needed to move an existing plan to a new schedule.
type PlanChanges struct {
	Update []*Entry
	Create []*Entry
	Remove []string
}

// ReplanInstallments recomputes the schedule for in against the entries that
// already belong to the plan. Installments whose number survives keep their id
// and settlement status and are updated in place; only added numbers become new
// entries. Installments past the new count, and a down payment that dropped to
// zero, are listed for individual removal.
func ReplanInstallments(existing []*Entry, in PlanInput) PlanChanges {
	byNumber := make(map[int]*Entry)
	var downPayment *Entry
	for _, e := range existing {
		if e.PlanID != in.PlanID && (e.Installment == nil || e.Installment.PlanID != in.PlanID) {
			continue
		}
		if e.Installment == nil {
			downPayment = e
			continue
		}
		byNumber[e.Installment.InstallmentNumber] = e
	}

	var changes PlanChanges
	for _, planned := range BuildPlan(in) {
		var current *Entry
		if planned.Installment != nil {
			current = byNumber[planned.Installment.InstallmentNumber]
			delete(byNumber, planned.Installment.InstallmentNumber)
		} else {
			current = downPayment
			downPayment = nil
		}

		if current == nil {
			changes.Create = append(changes.Create, planned)
			continue
		}

		planned.ID = current.ID
		planned.Status = current.Status
		planned.CreatedAt = current.CreatedAt
		changes.Update = append(changes.Update, planned)
	}

	surplus := make([]int, 0, len(byNumber))
	for number := range byNumber {
		surplus = append(surplus, number)
	}
	sort.Ints(surplus)
	for _, number := range surplus {
		changes.Remove = append(changes.Remove, byNumber[number].ID)
	}
	if downPayment != nil {
		changes.Remove = append(changes.Remove, downPayment.ID)
	}

	return changes
}
