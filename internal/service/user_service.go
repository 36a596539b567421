package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"p2p-transfer-service/internal/core/domain"
	"p2p-transfer-service/internal/core/ports"
	"p2p-transfer-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UserServiceImpl implements ports.UserService.
type UserServiceImpl struct {
	accountRepo ports.AccountRepository
	hashSvc     ports.HashService
	cache       ports.AccountCache
	log         zerolog.Logger
}

// NewUserService creates a new UserServiceImpl.
func NewUserService(
	accountRepo ports.AccountRepository,
	hashSvc ports.HashService,
	cache ports.AccountCache,
	log zerolog.Logger,
) *UserServiceImpl {
	return &UserServiceImpl{
		accountRepo: accountRepo,
		hashSvc:     hashSvc,
		cache:       cache,
		log:         log,
	}
}

// normalizeDocument strips CPF/CNPJ formatting so only digits are stored.
func normalizeDocument(doc string) string {
	return strings.NewReplacer(".", "", "-", "", "/", "").Replace(doc)
}

// Register creates a new account. The role is derived from the document
// shape: 11 digits is a CPF (customer), 14 digits is a CNPJ (seller).
func (s *UserServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.Account, error) {
	if req.Balance.Sign() < 0 {
		return nil, apperror.Validation("initial balance cannot be negative")
	}

	document := normalizeDocument(req.Document)
	role, err := domain.RoleFromDocument(document)
	if err != nil {
		return nil, apperror.ErrInvalidDocument()
	}

	emailTaken, err := s.accountRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check email: %w", err))
	}
	if emailTaken {
		return nil, apperror.ErrAccountExists("email")
	}

	docTaken, err := s.accountRepo.ExistsByDocument(ctx, document)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("check document: %w", err))
	}
	if docTaken {
		return nil, apperror.ErrAccountExists("document")
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New(),
		FullName:     req.FullName,
		Role:         role,
		Document:     document,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Balance:      req.Balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create account: %w", err))
	}

	// Warm the read cache and drop listing pages that no longer reflect
	// the account set. Both are best-effort.
	if err := s.cache.SetAccount(ctx, account); err != nil {
		s.log.Warn().Err(err).Str("email", account.Email).Msg("failed to cache new account")
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate listing cache")
	}

	s.log.Info().
		Str("account_id", account.ID.String()).
		Str("role", string(account.Role)).
		Msg("account registered")

	return account, nil
}

// GetByEmail returns one account, read-through cached.
func (s *UserServiceImpl) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	cached, err := s.cache.GetAccount(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("account cache read failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}

	account, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if account == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	if err := s.cache.SetAccount(ctx, account); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("failed to cache account")
	}
	return account, nil
}

// List returns one page of accounts, read-through cached per page key.
func (s *UserServiceImpl) List(ctx context.Context, params ports.ListParams) (*ports.AccountPage, error) {
	key := params.CacheKey()

	cached, err := s.cache.GetListing(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("listing cache read failed, falling through to DB")
	}
	if cached != nil {
		page := &ports.AccountPage{}
		if err := json.Unmarshal(cached, page); err == nil {
			return page, nil
		}
		s.log.Warn().Str("key", key).Msg("discarding corrupt listing cache entry")
	}

	items, total, err := s.accountRepo.List(ctx, params)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list accounts: %w", err))
	}

	page := &ports.AccountPage{
		Items:    items,
		Total:    total,
		Page:     params.Page,
		PageSize: params.PageSize,
	}

	if payload, err := json.Marshal(page); err == nil {
		if err := s.cache.SetListing(ctx, key, payload); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("failed to cache listing page")
		}
	}
	return page, nil
}
