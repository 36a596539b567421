package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"p2p-transfer-service/internal/core/domain"
	"p2p-transfer-service/internal/core/ports"
	"p2p-transfer-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TransferServiceImpl implements ports.TransferService.
type TransferServiceImpl struct {
	accountRepo  ports.AccountRepository
	transferRepo ports.TransferRepository
	transactor   ports.DBTransactor
	authGate     ports.AuthorizationGate
	notifier     ports.Notifier
	cache        ports.AccountCache
	notifyTO     time.Duration
	log          zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl. notifyTimeout bounds
// the background notification call after commit.
func NewTransferService(
	accountRepo ports.AccountRepository,
	transferRepo ports.TransferRepository,
	transactor ports.DBTransactor,
	authGate ports.AuthorizationGate,
	notifier ports.Notifier,
	cache ports.AccountCache,
	notifyTimeout time.Duration,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		accountRepo:  accountRepo,
		transferRepo: transferRepo,
		transactor:   transactor,
		authGate:     authGate,
		notifier:     notifier,
		cache:        cache,
		notifyTO:     notifyTimeout,
		log:          log,
	}
}

// Transfer moves funds between two accounts with pessimistic locking.
//
// Business rules are checked twice where they depend on balance: once
// against the cached/read view for a fast rejection, and again against the
// row-locked balance inside the transaction, which is the authoritative
// check.
func (s *TransferServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) error {
	if req.Amount.Sign() <= 0 {
		return apperror.Validation("amount must be greater than zero")
	}

	payer, err := s.resolveAccount(ctx, req.PayerEmail)
	if err != nil {
		return err
	}
	payee, err := s.resolveAccount(ctx, req.PayeeEmail)
	if err != nil {
		return err
	}

	// External gate comes before the business rules, so a denial or an
	// upstream outage takes precedence over any rule violation. Exactly one
	// call per attempt; a denial is final, upstream failure aborts without
	// retry.
	authorized, err := s.authGate.Authorize(ctx)
	if err != nil {
		return apperror.ErrUpstreamUnavailable(err)
	}
	if !authorized {
		return apperror.ErrNotAuthorized()
	}

	// Rule order is fixed: seller check, then funds, then self-transfer.
	if payer.IsSeller() {
		return apperror.ErrSellerCannotPay()
	}
	if !payer.CanAfford(req.Amount) {
		return apperror.ErrInsufficientFunds()
	}
	if payer.ID == payee.ID {
		return apperror.ErrSelfTransfer()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock both rows in ascending ID order so concurrent transfers between
	// the same pair cannot deadlock.
	firstID, secondID := payer.ID, payee.ID
	if strings.Compare(secondID.String(), firstID.String()) < 0 {
		firstID, secondID = secondID, firstID
	}

	locked := make(map[uuid.UUID]*domain.Account, 2)
	for _, id := range []uuid.UUID{firstID, secondID} {
		acc, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock account: %w", err))
		}
		if acc == nil {
			return apperror.ErrAccountNotFound()
		}
		locked[id] = acc
	}
	lockedPayer, lockedPayee := locked[payer.ID], locked[payee.ID]

	// Re-check funds against the locked balance; the pre-check may have
	// read a stale cache entry.
	if !lockedPayer.CanAfford(req.Amount) {
		return apperror.ErrInsufficientFunds()
	}

	newPayerBalance := lockedPayer.Balance.Sub(req.Amount)
	newPayeeBalance := lockedPayee.Balance.Add(req.Amount)

	if err := s.accountRepo.UpdateBalance(ctx, dbTx, lockedPayer.ID, newPayerBalance); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("debit payer: %w", err))
	}
	if err := s.accountRepo.UpdateBalance(ctx, dbTx, lockedPayee.ID, newPayeeBalance); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("credit payee: %w", err))
	}

	transfer := domain.NewTransfer(lockedPayer.ID, lockedPayee.ID, req.Amount, time.Now().UTC())
	if err := s.transferRepo.Create(ctx, dbTx, transfer); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("record transfer: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-commit: cache invalidation and notification are best-effort and
	// never fail the transfer.
	s.invalidateAfterMutation(ctx, payer.Email, payee.Email)
	s.notifyAsync(transfer.ID)

	s.log.Info().
		Str("transfer_id", transfer.ID.String()).
		Str("payer_id", lockedPayer.ID.String()).
		Str("payee_id", lockedPayee.ID.String()).
		Str("amount", req.Amount.String()).
		Msg("transfer completed")

	return nil
}

// resolveAccount loads an account through the read cache, falling back to
// the repository and populating the cache on a miss.
func (s *TransferServiceImpl) resolveAccount(ctx context.Context, email string) (*domain.Account, error) {
	cached, err := s.cache.GetAccount(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("account cache read failed, falling through to DB")
	}
	if cached != nil {
		return cached, nil
	}

	acc, err := s.accountRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get account: %w", err))
	}
	if acc == nil {
		return nil, apperror.ErrAccountNotFound()
	}

	if err := s.cache.SetAccount(ctx, acc); err != nil {
		s.log.Warn().Err(err).Str("email", email).Msg("failed to cache account")
	}
	return acc, nil
}

func (s *TransferServiceImpl) invalidateAfterMutation(ctx context.Context, emails ...string) {
	for _, email := range emails {
		if err := s.cache.InvalidateAccount(ctx, email); err != nil {
			s.log.Warn().Err(err).Str("email", email).Msg("failed to invalidate account cache")
		}
	}
	if err := s.cache.InvalidateListings(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to invalidate listing cache")
	}
}

// notifyAsync fires the notification in the background. It uses a fresh
// context so it survives the request's cancellation, bounded by notifyTO.
func (s *TransferServiceImpl) notifyAsync(transferID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTO)
		defer cancel()

		if err := s.notifier.Notify(ctx); err != nil {
			s.log.Warn().Err(err).Str("transfer_id", transferID.String()).Msg("notification delivery failed")
		}
	}()
}
