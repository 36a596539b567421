package ports

import (
	"context"

	"p2p-transfer-service/internal/core/domain"
)

// AuthorizationGate is the remote oracle consulted before funds move.
// Authorize returns (false, nil) on an explicit denial (including 4xx
// responses, which are never retried) and a non-nil error only for
// transport-level failures: 5xx, timeout, connection refused.
type AuthorizationGate interface {
	Authorize(ctx context.Context) (bool, error)
}

// Notifier informs the payee that a transfer occurred. Best effort: the
// transfer outcome never depends on it.
type Notifier interface {
	Notify(ctx context.Context) error
}

// AccountCache fronts single-account lookups and paginated listings.
// Entries are invalidated unconditionally on every successful mutation.
type AccountCache interface {
	GetAccount(ctx context.Context, email string) (*domain.Account, error) // nil, nil on miss
	SetAccount(ctx context.Context, account *domain.Account) error
	InvalidateAccount(ctx context.Context, email string) error
	GetListing(ctx context.Context, key string) ([]byte, error) // nil, nil on miss
	SetListing(ctx context.Context, key string, payload []byte) error
	InvalidateListings(ctx context.Context) error
}
