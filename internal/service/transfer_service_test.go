package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"p2p-transfer-service/internal/core/domain"
	"p2p-transfer-service/internal/core/ports"
	"p2p-transfer-service/internal/core/ports/mocks"
	"p2p-transfer-service/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type transferTestDeps struct {
	svc          *TransferServiceImpl
	accountRepo  *mocks.MockAccountRepository
	transferRepo *mocks.MockTransferRepository
	transactor   *mocks.MockDBTransactor
	authGate     *mocks.MockAuthorizationGate
	notifier     *mocks.MockNotifier
	cache        *mocks.MockAccountCache
	ctrl         *gomock.Controller
}

func setupTransferService(t *testing.T) *transferTestDeps {
	ctrl := gomock.NewController(t)
	d := &transferTestDeps{
		accountRepo:  mocks.NewMockAccountRepository(ctrl),
		transferRepo: mocks.NewMockTransferRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		authGate:     mocks.NewMockAuthorizationGate(ctrl),
		notifier:     mocks.NewMockNotifier(ctrl),
		cache:        mocks.NewMockAccountCache(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewTransferService(
		d.accountRepo, d.transferRepo, d.transactor,
		d.authGate, d.notifier, d.cache,
		time.Second, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func customer(email string, balance int64) *domain.Account {
	return &domain.Account{
		ID:      uuid.New(),
		Role:    domain.RoleCustomer,
		Email:   email,
		Balance: decimal.NewFromInt(balance),
	}
}

// expectCached wires a cache hit for the given account.
func (d *transferTestDeps) expectCached(ctx context.Context, acc *domain.Account) {
	d.cache.EXPECT().GetAccount(ctx, acc.Email).Return(acc, nil)
}

func TestTransferService_Transfer_Success(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)
	payee := customer("marydoe@testing.com", 1)
	tx := &mockTx{}

	req := ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	}

	d.expectCached(ctx, payer)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payer.ID).Return(payer, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payee.ID).Return(payee, nil)

	var debited, credited decimal.Decimal
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payer.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, b decimal.Decimal) error {
			debited = b
			return nil
		})
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payee.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, b decimal.Decimal) error {
			credited = b
			return nil
		})

	var recorded *domain.Transfer
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, tr *domain.Transfer) error {
			recorded = tr
			return nil
		})

	d.cache.EXPECT().InvalidateAccount(ctx, payer.Email).Return(nil)
	d.cache.EXPECT().InvalidateAccount(ctx, payee.Email).Return(nil)
	d.cache.EXPECT().InvalidateListings(ctx).Return(nil)

	notified := make(chan struct{})
	d.notifier.EXPECT().Notify(gomock.Any()).
		DoAndReturn(func(context.Context) error {
			close(notified)
			return nil
		})

	require.NoError(t, d.svc.Transfer(ctx, req))

	assert.True(t, debited.Equal(decimal.NewFromInt(3)), "payer 10 - 7 = 3, got %s", debited)
	assert.True(t, credited.Equal(decimal.NewFromInt(8)), "payee 1 + 7 = 8, got %s", credited)
	// conservation: debit and credit move the same amount
	assert.True(t, payer.Balance.Add(payee.Balance).Equal(debited.Add(credited)))

	require.NotNil(t, recorded)
	assert.Equal(t, payer.ID, recorded.PayerID)
	assert.Equal(t, payee.ID, recorded.PayeeID)
	assert.True(t, recorded.Amount.Equal(req.Amount))

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never dispatched")
	}
}

func TestTransferService_Transfer_NonPositiveAmount(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		err := d.svc.Transfer(context.Background(), ports.TransferRequest{
			PayerEmail: "johndoe@testing.com",
			PayeeEmail: "marydoe@testing.com",
			Amount:     amount,
		})
		assertAppError(t, err, "REQ_001")
	}
}

func TestTransferService_Transfer_PayerNotFound(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.cache.EXPECT().GetAccount(ctx, "ghost@testing.com").Return(nil, nil)
	d.accountRepo.EXPECT().GetByEmail(ctx, "ghost@testing.com").Return(nil, nil)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: "ghost@testing.com",
		PayeeEmail: "marydoe@testing.com",
		Amount:     decimal.NewFromInt(1),
	})
	assertAppError(t, err, "ACC_001")
}

func TestTransferService_Transfer_PayeeNotFound(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)
	d.expectCached(ctx, payer)
	d.cache.EXPECT().GetAccount(ctx, "ghost@testing.com").Return(nil, nil)
	d.accountRepo.EXPECT().GetByEmail(ctx, "ghost@testing.com").Return(nil, nil)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: "ghost@testing.com",
		Amount:     decimal.NewFromInt(1),
	})
	assertAppError(t, err, "ACC_001")
}

func TestTransferService_Transfer_SellerCannotPay(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	seller := &domain.Account{
		ID:      uuid.New(),
		Role:    domain.RoleSeller,
		Email:   "store@testing.com",
		Balance: decimal.Zero, // also broke: seller rule must win over funds
	}
	payee := customer("marydoe@testing.com", 1)

	d.expectCached(ctx, seller)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: seller.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	})
	assertAppError(t, err, "TRF_002")
}

func TestTransferService_Transfer_InsufficientFunds(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 5)
	payee := customer("marydoe@testing.com", 1)

	d.expectCached(ctx, payer)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	})
	assertAppError(t, err, "TRF_003")
}

func TestTransferService_Transfer_ExactBalanceAllowed(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 7)
	payee := customer("marydoe@testing.com", 0)
	tx := &mockTx{}

	d.expectCached(ctx, payer)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payer.ID).Return(payer, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payee.ID).Return(payee, nil)

	var debited decimal.Decimal
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payer.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, _ uuid.UUID, b decimal.Decimal) error {
			debited = b
			return nil
		})
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payee.ID, gomock.Any()).Return(nil)
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.cache.EXPECT().InvalidateAccount(ctx, payer.Email).Return(nil)
	d.cache.EXPECT().InvalidateAccount(ctx, payee.Email).Return(nil)
	d.cache.EXPECT().InvalidateListings(ctx).Return(nil)

	notified := make(chan struct{})
	d.notifier.EXPECT().Notify(gomock.Any()).
		DoAndReturn(func(context.Context) error {
			close(notified)
			return nil
		})

	require.NoError(t, d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	}))
	assert.True(t, debited.IsZero(), "draining the full balance leaves zero")
	<-notified
}

func TestTransferService_Transfer_SelfTransfer(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)

	// Both resolutions hit the same account.
	d.cache.EXPECT().GetAccount(ctx, payer.Email).Return(payer, nil).Times(2)
	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payer.Email,
		Amount:     decimal.NewFromInt(1),
	})
	assertAppError(t, err, "TRF_004")
}

func TestTransferService_Transfer_NotAuthorized(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)
	payee := customer("marydoe@testing.com", 1)

	d.expectCached(ctx, payer)
	d.expectCached(ctx, payee)
	// Denial is final: no transaction is opened, no second gate call.
	d.authGate.EXPECT().Authorize(ctx).Return(false, nil).Times(1)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	})
	assertAppError(t, err, "TRF_001")
}

func TestTransferService_Transfer_DenialPrecedesBusinessRules(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	// A seller payer would also trip the seller rule, but the gate is
	// consulted first and its denial is what the caller sees.
	seller := &domain.Account{
		ID:      uuid.New(),
		Role:    domain.RoleSeller,
		Email:   "store@testing.com",
		Balance: decimal.NewFromInt(100),
	}
	payee := customer("marydoe@testing.com", 1)

	d.expectCached(ctx, seller)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(false, nil).Times(1)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: seller.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	})
	assertAppError(t, err, "TRF_001")
}

func TestTransferService_Transfer_GateUnavailable(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)
	payee := customer("marydoe@testing.com", 1)

	d.expectCached(ctx, payer)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(false, errors.New("connection refused")).Times(1)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	})
	assertAppError(t, err, "UPS_001")
}

func TestTransferService_Transfer_StaleCacheRecheckedUnderLock(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)
	payee := customer("marydoe@testing.com", 1)
	tx := &mockTx{}

	d.expectCached(ctx, payer)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)

	// The locked row shows the money already left: the cached 10 was stale.
	drainedPayer := *payer
	drainedPayer.Balance = decimal.NewFromInt(2)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payer.ID).Return(&drainedPayer, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payee.ID).Return(payee, nil)

	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	})
	assertAppError(t, err, "TRF_003")
}

func TestTransferService_Transfer_LedgerWriteFailureAborts(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)
	payee := customer("marydoe@testing.com", 1)
	tx := &mockTx{}

	d.expectCached(ctx, payer)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payer.ID).Return(payer, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payee.ID).Return(payee, nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payer.ID, gomock.Any()).Return(nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payee.ID, gomock.Any()).Return(nil)
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(errors.New("disk full"))

	// No cache invalidation, no notification: the transfer never committed.
	err := d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	})
	assertAppError(t, err, "SYS_001")
}

func TestTransferService_Transfer_NotificationFailureDoesNotFail(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)
	payee := customer("marydoe@testing.com", 1)
	tx := &mockTx{}

	d.expectCached(ctx, payer)
	d.expectCached(ctx, payee)
	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payer.ID).Return(payer, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payee.ID).Return(payee, nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payer.ID, gomock.Any()).Return(nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payee.ID, gomock.Any()).Return(nil)
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.cache.EXPECT().InvalidateAccount(ctx, payer.Email).Return(nil)
	d.cache.EXPECT().InvalidateAccount(ctx, payee.Email).Return(nil)
	d.cache.EXPECT().InvalidateListings(ctx).Return(nil)

	notified := make(chan struct{})
	d.notifier.EXPECT().Notify(gomock.Any()).
		DoAndReturn(func(context.Context) error {
			close(notified)
			return errors.New("notification service down")
		})

	require.NoError(t, d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	}))

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never attempted")
	}
}

func TestTransferService_Transfer_CacheMissFallsThroughToDB(t *testing.T) {
	d := setupTransferService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payer := customer("johndoe@testing.com", 10)
	payee := customer("marydoe@testing.com", 1)
	tx := &mockTx{}

	d.cache.EXPECT().GetAccount(ctx, payer.Email).Return(nil, nil)
	d.accountRepo.EXPECT().GetByEmail(ctx, payer.Email).Return(payer, nil)
	d.cache.EXPECT().SetAccount(ctx, payer).Return(nil)

	d.cache.EXPECT().GetAccount(ctx, payee.Email).Return(nil, errors.New("redis down"))
	d.accountRepo.EXPECT().GetByEmail(ctx, payee.Email).Return(payee, nil)
	d.cache.EXPECT().SetAccount(ctx, payee).Return(errors.New("redis down"))

	d.authGate.EXPECT().Authorize(ctx).Return(true, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payer.ID).Return(payer, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, payee.ID).Return(payee, nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payer.ID, gomock.Any()).Return(nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, payee.ID, gomock.Any()).Return(nil)
	d.transferRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.cache.EXPECT().InvalidateAccount(ctx, payer.Email).Return(nil)
	d.cache.EXPECT().InvalidateAccount(ctx, payee.Email).Return(nil)
	d.cache.EXPECT().InvalidateListings(ctx).Return(nil)

	notified := make(chan struct{})
	d.notifier.EXPECT().Notify(gomock.Any()).
		DoAndReturn(func(context.Context) error {
			close(notified)
			return nil
		})

	require.NoError(t, d.svc.Transfer(ctx, ports.TransferRequest{
		PayerEmail: payer.Email,
		PayeeEmail: payee.Email,
		Amount:     decimal.NewFromInt(7),
	}))
	<-notified
}
