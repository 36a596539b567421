package ports

import (
	"context"
	"fmt"

	"p2p-transfer-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository defines persistence operations for accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByDocument(ctx context.Context, document string) (bool, error)
	List(ctx context.Context, params ListParams) ([]domain.Account, int64, error)
}

// ListParams holds pagination + sorting for account listings.
type ListParams struct {
	Page     int
	PageSize int
	Sort     string // whitelisted column
	SortDesc bool
}

// CacheKey renders the listing cache key for these parameters. The shape
// mirrors the invalidation pattern used by the cache coordinator.
func (p ListParams) CacheKey() string {
	dir := "asc"
	if p.SortDesc {
		dir = "desc"
	}
	return fmt.Sprintf("accounts:page:%d:size:%d:sort:%s:%s", p.Page, p.PageSize, p.Sort, dir)
}

// TransferRepository defines persistence for the append-only transfer ledger.
type TransferRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transfer *domain.Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
