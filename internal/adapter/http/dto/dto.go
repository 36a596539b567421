package dto

import (
	"p2p-transfer-service/internal/core/domain"

	"github.com/shopspring/decimal"
)

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	FullName string          `json:"full_name" binding:"required,min=1,max=100"`
	Document string          `json:"document" binding:"required,cpf_cnpj"`
	Email    string          `json:"email" binding:"required,email,max=254"`
	Password string          `json:"password" binding:"required,min=8,max=128"`
	Balance  decimal.Decimal `json:"balance"`
}

// TransferRequest is the request body for a wallet-to-wallet transfer.
// Amount positivity is enforced again by the service; the binding check
// gives the caller an earlier, cheaper rejection.
type TransferRequest struct {
	Value decimal.Decimal `json:"value" binding:"required"`
	Payer string          `json:"payer" binding:"required,email"`
	Payee string          `json:"payee" binding:"required,email"`
}

// AccountResponse is the public view of an account. The password hash and
// raw document never leave the service.
type AccountResponse struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
}

// AccountListResponse wraps a paginated account listing.
type AccountListResponse struct {
	Items      []AccountResponse `json:"items"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// NewAccountResponse maps a domain account to its public view.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID.String(),
		FullName:  a.FullName,
		Role:      string(a.Role),
		Email:     a.Email,
		Balance:   a.Balance.String(),
		CreatedAt: a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
