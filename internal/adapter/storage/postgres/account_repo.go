package postgres

import (
	"context"
	"errors"
	"fmt"

	"p2p-transfer-service/internal/core/domain"
	"p2p-transfer-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// sortColumns whitelists user-facing sort keys against SQL injection.
var sortColumns = map[string]string{
	"full_name":  "full_name",
	"balance":    "balance",
	"email":      "email",
	"created_at": "created_at",
}

const accountColumns = `id, full_name, role_code, document, email, password_hash, balance, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var roleCode int
	err := row.Scan(
		&a.ID, &a.FullName, &roleCode, &a.Document, &a.Email,
		&a.PasswordHash, &a.Balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	role, err := domain.RoleFromCode(roleCode)
	if err != nil {
		return nil, err
	}
	a.Role = role
	return a, nil
}

// Create inserts a new account into the database.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, full_name, role_code, document, email, password_hash, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.FullName, a.Role.Code(), a.Document, a.Email,
		a.PasswordHash, a.Balance, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByEmail fetches an account by email (non-locking read).
// Returns nil, nil if no account exists.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`

	a, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return a, nil
}

// GetByIDForUpdate fetches an account by ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	a, err := scanAccount(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account for update: %w", err)
	}
	return a, nil
}

// UpdateBalance sets an account's balance within a transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("update account balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", id)
	}
	return nil
}

// ExistsByEmail reports whether an account with this email exists.
func (r *AccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by email: %w", err)
	}
	return exists, nil
}

// ExistsByDocument reports whether an account with this CPF/CNPJ exists.
func (r *AccountRepo) ExistsByDocument(ctx context.Context, document string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE document = $1)`, document).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists by document: %w", err)
	}
	return exists, nil
}

// List returns one page of accounts plus the total count.
func (r *AccountRepo) List(ctx context.Context, params ports.ListParams) ([]domain.Account, int64, error) {
	column, ok := sortColumns[params.Sort]
	if !ok {
		column = "full_name"
	}
	direction := "ASC"
	if params.SortDesc {
		direction = "DESC"
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM accounts ORDER BY %s %s LIMIT $1 OFFSET $2`,
		accountColumns, column, direction)

	offset := (params.Page - 1) * params.PageSize
	rows, err := r.pool.Query(ctx, query, params.PageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0, params.PageSize)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, total, nil
}
