package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/bizledger/internal/domain"
)

// ClientRepository reads the client directory. Clients are managed by a
// separate module; the ledger only looks them up.
type ClientRepository struct {
	pool dbPool
}

// NewClientRepository creates a new client repository
func NewClientRepository(pool dbPool) *ClientRepository {
	return &ClientRepository{pool: pool}
}

const clientColumns = `id, owner_id, name, COALESCE(email, ''), COALESCE(instagram, ''), COALESCE(phone, '')`

// GetByID retrieves a client owned by ownerID.
func (r *ClientRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND owner_id = $2`

	var c domain.Client
	err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Email,
		&c.Instagram,
		&c.Phone,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrClientNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}

	return &c, nil
}

// ListByOwner retrieves every client of ownerID.
func (r *ClientRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE owner_id = $1 ORDER BY name`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Email, &c.Instagram, &c.Phone); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}

	return clients, rows.Err()
}
