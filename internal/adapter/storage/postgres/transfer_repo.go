package postgres

import (
	"context"
	"errors"
	"fmt"

	"p2p-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransferRepo implements ports.TransferRepository. Transfers are append-only;
// there is no update or delete path.
type TransferRepo struct {
	pool Pool
}

// NewTransferRepo creates a new TransferRepo.
func NewTransferRepo(pool Pool) *TransferRepo {
	return &TransferRepo{pool: pool}
}

// Create inserts a ledger entry. Called only inside the transfer transaction
// so the entry commits together with the balance mutations.
func (r *TransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	query := `INSERT INTO transfers (id, payer_id, payee_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query, t.ID, t.PayerID, t.PayeeID, t.Amount, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

// GetByID fetches a ledger entry by its UUID. Returns nil, nil when absent.
func (r *TransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	query := `SELECT id, payer_id, payee_id, amount, created_at FROM transfers WHERE id = $1`

	t := &domain.Transfer{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.PayerID, &t.PayeeID, &t.Amount, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer by id: %w", err)
	}
	return t, nil
}
