package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/iho/bizledger/internal/domain"
)

// dbPool is the subset of *pgxpool.Pool the repositories use.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool dbPool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool dbPool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

const insertEntryQuery = `
	INSERT INTO financial_entries (
		id, owner_id, transaction_type, category, client_id, description,
		amount, date, status, payment_method, installments_info, plan_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::date, $9, $10, $11, $12)
`

// Create inserts the entry described by payload.
func (r *EntryRepository) Create(ctx context.Context, payload domain.PersistencePayload) error {
	info, err := marshalInstallments(payload.InstallmentsInfo)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, insertEntryQuery,
		payload.ID,
		payload.OwnerID,
		string(payload.TransactionType),
		payload.Category,
		payload.ClientID,
		payload.Description,
		payload.Amount.String(),
		payload.Date,
		string(payload.Status),
		payload.PaymentMethod,
		info,
		payload.PlanID,
	)
	if err != nil {
		return fmt.Errorf("insert entry %s: %w", payload.ID, err)
	}
	return nil
}

const updateEntryQuery = `
	UPDATE financial_entries SET
		transaction_type = $3,
		category = $4,
		client_id = $5,
		description = $6,
		amount = $7::numeric,
		date = $8::date,
		status = $9,
		payment_method = $10,
		installments_info = $11,
		plan_id = $12,
		updated_at = now()
	WHERE id = $1 AND owner_id = $2
`

// Update overwrites the stored entry with payload.
func (r *EntryRepository) Update(ctx context.Context, payload domain.PersistencePayload) error {
	info, err := marshalInstallments(payload.InstallmentsInfo)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, updateEntryQuery,
		payload.ID,
		payload.OwnerID,
		string(payload.TransactionType),
		payload.Category,
		payload.ClientID,
		payload.Description,
		payload.Amount.String(),
		payload.Date,
		string(payload.Status),
		payload.PaymentMethod,
		info,
		payload.PlanID,
	)
	if err != nil {
		return fmt.Errorf("update entry %s: %w", payload.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, payload.ID)
	}
	return nil
}

// Delete removes exactly one entry.
func (r *EntryRepository) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM financial_entries WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
	}
	return nil
}

const listEntriesQuery = `
	SELECT e.id, e.owner_id, e.transaction_type, e.category, e.client_id,
	       COALESCE(c.name, ''), e.description, e.amount::text,
	       to_char(e.date, 'YYYY-MM-DD'), e.status, e.payment_method,
	       e.installments_info, e.plan_id, e.created_at, e.updated_at
	FROM financial_entries e
	LEFT JOIN clients c ON c.id = e.client_id
	WHERE e.owner_id = $1
	ORDER BY e.date DESC, e.id
`

// ListByOwner loads the whole ledger of a user.
func (r *EntryRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Entry, error) {
	rows, err := r.pool.Query(ctx, listEntriesQuery, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	return entries, nil
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		e             domain.Entry
		kind, status  string
		clientID      *string
		paymentMethod *string
		planID        *string
		amount, date  string
		info          []byte
		createdAt     time.Time
		updatedAt     time.Time
	)

	if err := row.Scan(
		&e.ID,
		&e.OwnerID,
		&kind,
		&e.Category,
		&clientID,
		&e.ClientName,
		&e.Description,
		&amount,
		&date,
		&status,
		&paymentMethod,
		&info,
		&planID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan entry: %w", err)
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("entry %s amount: %w", e.ID, err)
	}
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("entry %s date: %w", e.ID, err)
	}

	e.Kind = domain.Kind(kind)
	e.Status = domain.SettlementStatus(status)
	e.Amount = value
	e.Date = day
	e.CreatedAt = createdAt
	e.UpdatedAt = updatedAt
	if clientID != nil {
		e.ClientID = *clientID
	}
	if paymentMethod != nil {
		e.PaymentMethod = *paymentMethod
	}
	if planID != nil {
		e.PlanID = *planID
	}
	if len(info) > 0 {
		var installment domain.InstallmentInfo
		if err := json.Unmarshal(info, &installment); err != nil {
			return nil, fmt.Errorf("entry %s installments_info: %w", e.ID, err)
		}
		e.Installment = &installment
	}

	return &e, nil
}

func marshalInstallments(info *domain.InstallmentInfo) ([]byte, error) {
	if info == nil {
		return nil, nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("marshal installments_info: %w", err)
	}
	return b, nil
}
