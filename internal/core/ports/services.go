package ports

import (
	"context"

	"p2p-transfer-service/internal/core/domain"

	"github.com/shopspring/decimal"
)

// --- Service Ports (Business Logic) ---

// TransferService executes one wallet-to-wallet transfer: validation,
// authorization, atomic mutation, ledger write, cache invalidation and
// best-effort notification.
type TransferService interface {
	Transfer(ctx context.Context, req TransferRequest) error
}

// TransferRequest holds validated input for a transfer. Amount positivity and
// email shape are enforced at the HTTP boundary before this is built.
type TransferRequest struct {
	PayerEmail string
	PayeeEmail string
	Amount     decimal.Decimal
}

// UserService defines account registration and lookup business logic.
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	List(ctx context.Context, params ListParams) (*AccountPage, error)
}

// RegisterRequest holds validated input for account registration.
// Document arrives formatted or digits-only; the service normalizes it.
type RegisterRequest struct {
	FullName string
	Document string
	Email    string
	Password string
	Balance  decimal.Decimal
}

// AccountPage is one page of a listing query.
type AccountPage struct {
	Items    []domain.Account `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// HashService handles password hashing.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}
