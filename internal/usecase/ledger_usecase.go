package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/infrastructure/metrics"
)

// LedgerUseCase handles the financial ledger of an open session.
type LedgerUseCase struct {
	sessions *SessionManager
	clients  ClientDirectory
	idGen    IDGenerator
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	sessions *SessionManager,
	clients ClientDirectory,
	idGen IDGenerator,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		sessions: sessions,
		clients:  clients,
		idGen:    idGen,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the evaluation time used for "current" filters and
// growth. Intended for tests.
func (uc *LedgerUseCase) SetClock(now func() time.Time) {
	uc.now = now
}

// PlanTerms turns an entry into an installment plan.
type PlanTerms struct {
	DownPayment      decimal.Decimal
	InstallmentCount int
}

// CreateEntryInput represents input for creating an entry or a plan. For a
// plan, Amount is the total, Date the start date and Status the initial
// status of the down payment.
type CreateEntryInput struct {
	UserID        string
	Kind          domain.Kind
	Category      string
	Description   string
	Amount        *decimal.Decimal
	Date          time.Time
	Status        domain.SettlementStatus
	PaymentMethod string
	ClientID      string
	Plan          *PlanTerms
}

// CreateEntry validates the input and records either one standalone entry or
// a down payment plus its installments. Plan entries are independent inserts.
func (uc *LedgerUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) ([]*domain.Entry, error) {
	session, err := uc.sessions.Get(input.UserID)
	if err != nil {
		return nil, err
	}

	if err := domain.ValidateDraft(domain.EntryDraft{
		Kind:          input.Kind,
		Category:      input.Category,
		Description:   input.Description,
		Amount:        input.Amount,
		Date:          input.Date,
		Status:        input.Status,
		PaymentMethod: input.PaymentMethod,
		ClientID:      input.ClientID,
	}); err != nil {
		return nil, err
	}

	clientName, err := uc.clientName(ctx, input.UserID, input.ClientID)
	if err != nil {
		return nil, err
	}

	if input.Plan != nil {
		return uc.createPlan(session, input, clientName)
	}

	e := &domain.Entry{
		Kind:          input.Kind,
		Category:      input.Category,
		Description:   strings.TrimSpace(input.Description),
		Amount:        *input.Amount,
		Date:          domain.DateOf(input.Date),
		Status:        input.Status,
		PaymentMethod: input.PaymentMethod,
		ClientID:      input.ClientID,
		ClientName:    clientName,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	id, err := session.Store.Add(e)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesCreated.WithLabelValues(string(e.Kind)).Inc()
		uc.metrics.EntryAmount.WithLabelValues(string(e.Kind)).Observe(e.Amount.InexactFloat64())
	}

	created, err := session.Store.Get(id)
	if err != nil {
		return nil, err
	}
	return []*domain.Entry{created}, nil
}

func (uc *LedgerUseCase) createPlan(session *Session, input CreateEntryInput, clientName string) ([]*domain.Entry, error) {
	if err := domain.ValidatePlan(*input.Amount, input.Plan.DownPayment, input.Plan.InstallmentCount); err != nil {
		return nil, err
	}

	planID := uc.idGen.Generate()
	entries := domain.BuildPlan(domain.PlanInput{
		PlanID:            planID,
		OwnerID:           input.UserID,
		TotalAmount:       *input.Amount,
		DownPayment:       input.Plan.DownPayment,
		InstallmentCount:  input.Plan.InstallmentCount,
		StartDate:         input.Date,
		BaseDescription:   strings.TrimSpace(input.Description),
		Kind:              input.Kind,
		Category:          input.Category,
		ClientID:          input.ClientID,
		ClientName:        clientName,
		PaymentMethod:     input.PaymentMethod,
		DownPaymentStatus: input.Status,
	})

	ids, err := session.Store.AddAll(entries)
	if err != nil {
		if len(ids) > 0 {
			uc.logger.Warn().
				Err(err).
				Str("plan_id", planID).
				Int("created", len(ids)).
				Int("expected", len(entries)).
				Msg("installment plan partially created")
		}
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PlansCreated.Inc()
		uc.metrics.PlanSize.Observe(float64(input.Plan.InstallmentCount))
		uc.metrics.EntriesCreated.WithLabelValues(string(input.Kind)).Add(float64(len(ids)))
	}

	return session.Store.Plan(planID), nil
}

// UpdateEntryInput represents input for editing an entry.
type UpdateEntryInput struct {
	UserID string
	ID     string
	Patch  domain.EntryPatch
}

// UpdateEntry merges the patch into the entry. The merged entry must still
// pass the form validation; installments may drop their client.
func (uc *LedgerUseCase) UpdateEntry(ctx context.Context, input UpdateEntryInput) (*domain.Entry, error) {
	session, err := uc.sessions.Get(input.UserID)
	if err != nil {
		return nil, err
	}

	current, err := session.Store.Get(input.ID)
	if err != nil {
		return nil, err
	}

	merged := current.Clone()
	input.Patch.Apply(merged)

	if err := domain.ValidateDraft(domain.EntryDraft{
		Kind:               merged.Kind,
		Category:           merged.Category,
		Description:        merged.Description,
		Amount:             &merged.Amount,
		Date:               merged.Date,
		Status:             merged.Status,
		PaymentMethod:      merged.PaymentMethod,
		ClientID:           merged.ClientID,
		EditingInstallment: merged.IsInstallment(),
	}); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	patch := input.Patch
	if patch.ClientID != nil && *patch.ClientID != current.ClientID {
		name, err := uc.clientName(ctx, input.UserID, *patch.ClientID)
		if err != nil {
			return nil, err
		}
		patch.ClientName = &name
	}

	updated, err := session.Store.Update(input.ID, patch)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesUpdated.Inc()
	}
	return updated, nil
}

// SetStatus moves an entry to status. Either direction is allowed.
func (uc *LedgerUseCase) SetStatus(ctx context.Context, userID, id string, status domain.SettlementStatus) (*domain.Entry, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return nil, err
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}

	updated, err := session.Store.Update(id, domain.EntryPatch{Status: &status})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.StatusChanges.WithLabelValues(string(status)).Inc()
	}
	return updated, nil
}

// RemoveEntry deletes one entry. It never cascades to the rest of a plan.
func (uc *LedgerUseCase) RemoveEntry(ctx context.Context, userID, id string) error {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return err
	}

	if err := session.Store.Remove(id); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesRemoved.Inc()
	}
	return nil
}

// GetEntry returns one entry.
func (uc *LedgerUseCase) GetEntry(ctx context.Context, userID, id string) (*domain.Entry, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return nil, err
	}
	return session.Store.Get(id)
}

// ListEntries returns the entries matching filter, newest first.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, userID string, filter domain.EntryFilter) ([]*domain.Entry, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return nil, err
	}

	entries, err := uc.filter(ctx, session, filter)
	if err != nil {
		return nil, err
	}
	domain.SortEntries(entries)
	return entries, nil
}

// Summary reduces the entries matching filter.
func (uc *LedgerUseCase) Summary(ctx context.Context, userID string, filter domain.EntryFilter) (domain.Summary, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return domain.Summary{}, err
	}

	entries, err := uc.filter(ctx, session, filter)
	if err != nil {
		return domain.Summary{}, err
	}
	return domain.Summarize(entries), nil
}

// Report is what the report exporter consumes.
type Report struct {
	Entries     []*domain.Entry
	Summary     domain.Summary
	PeriodLabel string
	GeneratedAt time.Time
}

// Report returns the filtered entries, their summary and the period label.
func (uc *LedgerUseCase) Report(ctx context.Context, userID string, filter domain.EntryFilter) (*Report, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return nil, err
	}

	entries, err := uc.filter(ctx, session, filter)
	if err != nil {
		return nil, err
	}
	domain.SortEntries(entries)

	now := uc.now()
	return &Report{
		Entries:     entries,
		Summary:     domain.Summarize(entries),
		PeriodLabel: domain.PeriodLabel(filter, now),
		GeneratedAt: now,
	}, nil
}

// Growth compares the month containing at with the previous month and the
// same month a year earlier. A zero at means now.
func (uc *LedgerUseCase) Growth(ctx context.Context, userID string, at time.Time) (domain.Growth, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return domain.Growth{}, err
	}
	if at.IsZero() {
		at = uc.now()
	}
	return domain.CalculateGrowth(session.Store.All(), at), nil
}

// GetPlan returns the entries of a plan, down payment first.
func (uc *LedgerUseCase) GetPlan(ctx context.Context, userID, planID string) ([]*domain.Entry, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return nil, err
	}

	entries := session.Store.Plan(planID)
	if len(entries) == 0 {
		return nil, domain.ErrPlanNotFound
	}
	return entries, nil
}

// EditPlanInput represents new terms for an existing plan. Empty optional
// fields keep the plan's current values.
type EditPlanInput struct {
	UserID           string
	PlanID           string
	TotalAmount      decimal.Decimal
	DownPayment      decimal.Decimal
	InstallmentCount int
	StartDate        time.Time
	Description      string
	Category         string
	PaymentMethod    string
	// DownPaymentStatus is used only when the edit adds a down payment.
	DownPaymentStatus domain.SettlementStatus
}

// EditPlan re-runs the planner for an existing plan. Installments whose
// number survives are updated in place and keep their status; added numbers
// are created; surplus installments and a dropped down payment are removed
// one by one.
func (uc *LedgerUseCase) EditPlan(ctx context.Context, input EditPlanInput) ([]*domain.Entry, error) {
	session, err := uc.sessions.Get(input.UserID)
	if err != nil {
		return nil, err
	}

	existing := session.Store.Plan(input.PlanID)
	if len(existing) == 0 {
		return nil, domain.ErrPlanNotFound
	}

	if err := domain.ValidatePlan(input.TotalAmount, input.DownPayment, input.InstallmentCount); err != nil {
		return nil, err
	}
	if input.StartDate.IsZero() {
		return nil, fmt.Errorf("%w: start date", domain.ErrMissingField)
	}

	template := existing[len(existing)-1]
	planInput := domain.PlanInput{
		PlanID:            input.PlanID,
		OwnerID:           input.UserID,
		TotalAmount:       input.TotalAmount,
		DownPayment:       input.DownPayment,
		InstallmentCount:  input.InstallmentCount,
		StartDate:         input.StartDate,
		BaseDescription:   strings.TrimSpace(input.Description),
		Kind:              template.Kind,
		Category:          firstNonEmpty(input.Category, template.Category),
		ClientID:          template.ClientID,
		ClientName:        template.ClientName,
		PaymentMethod:     firstNonEmpty(input.PaymentMethod, template.PaymentMethod),
		DownPaymentStatus: input.DownPaymentStatus,
	}
	if planInput.BaseDescription == "" {
		planInput.BaseDescription = baseDescription(template)
	}
	if !planInput.DownPaymentStatus.IsValid() {
		planInput.DownPaymentStatus = domain.StatusPending
	}

	changes := domain.ReplanInstallments(existing, planInput)
	if err := session.Store.Reserve(len(changes.Update) + len(changes.Create) + len(changes.Remove)); err != nil {
		return nil, err
	}

	var errs []error
	for _, e := range changes.Update {
		if _, err := session.Store.Update(e.ID, planPatch(e)); err != nil {
			errs = append(errs, fmt.Errorf("update %s: %w", e.ID, err))
		}
	}
	if len(changes.Create) > 0 {
		if _, err := session.Store.AddAll(changes.Create); err != nil {
			errs = append(errs, fmt.Errorf("create installments: %w", err))
		}
	}
	for _, id := range changes.Remove {
		if err := session.Store.Remove(id); err != nil && !errors.Is(err, domain.ErrEntryNotFound) {
			errs = append(errs, fmt.Errorf("remove %s: %w", id, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PlansEdited.Inc()
	}

	uc.logger.Debug().
		Str("plan_id", input.PlanID).
		Int("updated", len(changes.Update)).
		Int("created", len(changes.Create)).
		Int("removed", len(changes.Remove)).
		Msg("installment plan edited")

	return session.Store.Plan(input.PlanID), nil
}

// PendingWrites returns the writes for an entry that have not reached
// persistence yet.
func (uc *LedgerUseCase) PendingWrites(ctx context.Context, userID, id string) ([]PendingWrite, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return nil, err
	}
	return session.Queue.Pending(id), nil
}

// WriteFailures returns recent persistence failures of the session.
func (uc *LedgerUseCase) WriteFailures(ctx context.Context, userID string) ([]WriteFailure, error) {
	session, err := uc.sessions.Get(userID)
	if err != nil {
		return nil, err
	}
	return session.Failures(), nil
}

func (uc *LedgerUseCase) filter(ctx context.Context, session *Session, filter domain.EntryFilter) ([]*domain.Entry, error) {
	var index domain.ClientIndex
	if strings.TrimSpace(filter.Query) != "" && uc.clients != nil {
		clients, err := uc.clients.ListByOwner(ctx, session.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to load clients: %w", err)
		}
		index = domain.NewClientIndex(clients)
	}
	return domain.FilterEntries(session.Store.All(), filter, index, uc.now()), nil
}

func (uc *LedgerUseCase) clientName(ctx context.Context, userID, clientID string) (string, error) {
	if clientID == "" || uc.clients == nil {
		return "", nil
	}
	c, err := uc.clients.GetByID(ctx, userID, clientID)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}

// planPatch carries every planner-owned field. Status is left alone.
func planPatch(e *domain.Entry) domain.EntryPatch {
	return domain.EntryPatch{
		Kind:          &e.Kind,
		Category:      &e.Category,
		Description:   &e.Description,
		Amount:        &e.Amount,
		Date:          &e.Date,
		PaymentMethod: &e.PaymentMethod,
		ClientID:      &e.ClientID,
		ClientName:    &e.ClientName,
		PlanID:        &e.PlanID,
		Installment:   e.Installment,
	}
}

// baseDescription strips the planner suffix from a plan entry's description.
func baseDescription(e *domain.Entry) string {
	d := e.Description
	if i := strings.LastIndex(d, " - Parcela "); i >= 0 {
		return d[:i]
	}
	return strings.TrimSuffix(d, " - Entrada")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
