package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer is an immutable ledger entry for one completed money movement.
// It exists if and only if the matching balance mutation was committed.
type Transfer struct {
	ID        uuid.UUID       `json:"id"`
	PayerID   uuid.UUID       `json:"payer_id"`
	PayeeID   uuid.UUID       `json:"payee_id"`
	Amount    decimal.Decimal `json:"amount"` // strictly positive
	CreatedAt time.Time       `json:"created_at"`
}

// NewTransfer builds the ledger entry for a committed transfer.
func NewTransfer(payerID, payeeID uuid.UUID, amount decimal.Decimal, at time.Time) *Transfer {
	return &Transfer{
		ID:        uuid.New(),
		PayerID:   payerID,
		PayeeID:   payeeID,
		Amount:    amount,
		CreatedAt: at,
	}
}
