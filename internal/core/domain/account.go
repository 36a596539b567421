package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRole distinguishes customers from sellers. Sellers can receive
// transfers but never send them.
type AccountRole string

const (
	RoleCustomer AccountRole = "CUSTOMER"
	RoleSeller   AccountRole = "SELLER"
)

// Wire codes kept stable for persistence.
const (
	roleCodeCustomer = 1
	roleCodeSeller   = 2
)

// Code returns the persisted integer code for the role.
func (r AccountRole) Code() int {
	if r == RoleSeller {
		return roleCodeSeller
	}
	return roleCodeCustomer
}

// RoleFromCode maps a persisted code back to a role.
func RoleFromCode(code int) (AccountRole, error) {
	switch code {
	case roleCodeCustomer:
		return RoleCustomer, nil
	case roleCodeSeller:
		return RoleSeller, nil
	default:
		return "", fmt.Errorf("invalid account role code: %d", code)
	}
}

var (
	cpfRe  = regexp.MustCompile(`^\d{11}$`)
	cnpjRe = regexp.MustCompile(`^\d{14}$`)
)

// RoleFromDocument derives the account role from a normalized (digits-only)
// CPF/CNPJ: 11-digit CPF means customer, 14-digit CNPJ means seller.
func RoleFromDocument(document string) (AccountRole, error) {
	switch {
	case cpfRe.MatchString(document):
		return RoleCustomer, nil
	case cnpjRe.MatchString(document):
		return RoleSeller, nil
	default:
		return "", fmt.Errorf("document is neither a CPF nor a CNPJ: %q", document)
	}
}

// Account holds a wallet owner's identity and balance.
// Balance is mutated only inside the transfer service's atomic update.
type Account struct {
	ID           uuid.UUID       `json:"id"`
	FullName     string          `json:"full_name"`
	Role         AccountRole     `json:"role"`
	Document     string          `json:"document"` // normalized CPF/CNPJ, unique
	Email        string          `json:"email"`    // unique lookup identifier
	PasswordHash string          `json:"-"`        // Never expose
	Balance      decimal.Decimal `json:"balance"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsSeller returns true if the account belongs to a seller.
func (a *Account) IsSeller() bool {
	return a.Role == RoleSeller
}

// CanAfford returns true if the balance covers the given amount.
func (a *Account) CanAfford(amount decimal.Decimal) bool {
	return a.Balance.Sub(amount).Sign() >= 0
}
