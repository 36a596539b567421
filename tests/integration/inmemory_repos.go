package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"p2p-transfer-service/internal/core/domain"
	"p2p-transfer-service/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Email == a.Email {
			return fmt.Errorf("email already exists")
		}
		if existing.Document == a.Document {
			return fmt.Errorf("document already exists")
		}
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *inMemoryAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return fmt.Errorf("account not found")
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *inMemoryAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryAccountRepo) ExistsByDocument(ctx context.Context, document string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Document == document {
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemoryAccountRepo) List(ctx context.Context, params ports.ListParams) ([]domain.Account, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool {
		var less bool
		switch params.Sort {
		case "balance":
			less = all[i].Balance.LessThan(all[j].Balance)
		case "email":
			less = strings.Compare(all[i].Email, all[j].Email) < 0
		case "created_at":
			less = all[i].CreatedAt.Before(all[j].CreatedAt)
		default:
			less = strings.Compare(all[i].FullName, all[j].FullName) < 0
		}
		if params.SortDesc {
			return !less
		}
		return less
	})

	total := int64(len(all))
	start := (params.Page - 1) * params.PageSize
	if start >= len(all) {
		return []domain.Account{}, total, nil
	}
	end := start + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// snapshot returns a copy of the current account set, for invariant checks.
func (r *inMemoryAccountRepo) snapshot() []domain.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, *a)
	}
	return out
}

// --- In-Memory Transfer Repo ---

type inMemoryTransferRepo struct {
	mu        sync.RWMutex
	transfers map[uuid.UUID]*domain.Transfer
}

func newInMemoryTransferRepo() *inMemoryTransferRepo {
	return &inMemoryTransferRepo{transfers: make(map[uuid.UUID]*domain.Transfer)}
}

func (r *inMemoryTransferRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transfers[t.ID] = &cp
	return nil
}

func (r *inMemoryTransferRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transfer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransferRepo) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transfers)
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions behind one mutex, standing in
// for the row locks the real repository takes with FOR UPDATE.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	tx := &serialTx{}
	tx.release = func() { t.mu.Unlock() }
	return tx, nil
}

// serialTx is a pgx.Tx that releases the transactor lock exactly once, on
// whichever of Commit/Rollback runs first.
type serialTx struct {
	once    sync.Once
	release func()
}

func (t *serialTx) Commit(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *serialTx) Rollback(ctx context.Context) error {
	t.once.Do(t.release)
	return nil
}

func (t *serialTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *serialTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *serialTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *serialTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *serialTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *serialTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *serialTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *serialTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *serialTx) Conn() *pgx.Conn { return nil }

// --- In-Memory Account Cache ---

type inMemoryAccountCache struct {
	mu       sync.RWMutex
	accounts map[string][]byte
	listings map[string][]byte
}

func newInMemoryAccountCache() *inMemoryAccountCache {
	return &inMemoryAccountCache{
		accounts: make(map[string][]byte),
		listings: make(map[string][]byte),
	}
}

func (c *inMemoryAccountCache) GetAccount(ctx context.Context, email string) (*domain.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	payload, ok := c.accounts[email]
	if !ok {
		return nil, nil
	}
	a := &domain.Account{}
	if err := json.Unmarshal(payload, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (c *inMemoryAccountCache) SetAccount(ctx context.Context, account *domain.Account) error {
	payload, err := json.Marshal(account)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[account.Email] = payload
	return nil
}

func (c *inMemoryAccountCache) InvalidateAccount(ctx context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.accounts, email)
	return nil
}

func (c *inMemoryAccountCache) GetListing(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	payload, ok := c.listings[key]
	if !ok {
		return nil, nil
	}
	return payload, nil
}

func (c *inMemoryAccountCache) SetListing(ctx context.Context, key string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings[key] = payload
	return nil
}

func (c *inMemoryAccountCache) InvalidateListings(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings = make(map[string][]byte)
	return nil
}

// --- Stub Authorization Gate ---

type stubAuthGate struct {
	mu       sync.Mutex
	verdict  bool
	err      error
	attempts int
}

func newStubAuthGate() *stubAuthGate {
	return &stubAuthGate{verdict: true}
}

func (g *stubAuthGate) Authorize(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attempts++
	return g.verdict, g.err
}

func (g *stubAuthGate) set(verdict bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verdict = verdict
	g.err = err
}

func (g *stubAuthGate) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// --- Recording Notifier ---

type recordingNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{}
}

func (n *recordingNotifier) Notify(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}
