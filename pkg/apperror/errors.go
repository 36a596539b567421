package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Accounts (ACC) ----

func ErrAccountNotFound() *AppError {
	return New("ACC_001", "Account not found", http.StatusNotFound)
}

func ErrAccountExists(field string) *AppError {
	return New("ACC_002", fmt.Sprintf("Account %s already exists", field), http.StatusConflict)
}

func ErrInvalidDocument() *AppError {
	return New("ACC_003", "Invalid CPF/CNPJ", http.StatusBadRequest)
}

// ---- Transfer Business Rules (TRF) ----

func ErrNotAuthorized() *AppError {
	return New("TRF_001", "Transfer not authorized", http.StatusUnprocessableEntity)
}

func ErrSellerCannotPay() *AppError {
	return New("TRF_002", "Sellers are not allowed to send transfers", http.StatusUnprocessableEntity)
}

func ErrInsufficientFunds() *AppError {
	return New("TRF_003", "Insufficient balance to transfer", http.StatusUnprocessableEntity)
}

func ErrSelfTransfer() *AppError {
	return New("TRF_004", "Transfers to your own account are not allowed", http.StatusUnprocessableEntity)
}

// ---- Upstream Services (UPS) ----

// ErrUpstreamUnavailable signals a transport-level failure talking to an
// external service. The transfer was not performed and is safe to retry.
func ErrUpstreamUnavailable(err error) *AppError {
	return Wrap("UPS_001", "Authorization service unavailable", http.StatusServiceUnavailable, err)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a boundary validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}
