package integration

import (
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentTransfers_SamePayerDrain fires many concurrent transfers
// from one payer whose balance covers only a fraction of them. Pessimistic
// locking must admit exactly as many transfers as the balance allows and
// leave the system conserving money.
func TestConcurrentTransfers_SamePayerDrain(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.registerUser(t, "John Doe", "47776629911", "johndoe@testing.com", 10)
	app.registerUser(t, "Mary Doe", "30621143049", "marydoe@testing.com", 0)

	// 50 transfers of 1 against a balance of 10: exactly 10 may succeed.
	concurrency := 50

	var wg sync.WaitGroup
	var successCount, fundsRejected atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			resp := app.transfer(t, "johndoe@testing.com", "marydoe@testing.com", 1)
			defer resp.Body.Close()
			_, _ = io.ReadAll(resp.Body)

			switch resp.StatusCode {
			case http.StatusNoContent:
				successCount.Add(1)
			case http.StatusUnprocessableEntity:
				fundsRejected.Add(1)
			default:
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), successCount.Load())
	assert.Equal(t, int64(concurrency-10), fundsRejected.Load())

	payerBalance := app.balanceOf(t, "johndoe@testing.com")
	payeeBalance := app.balanceOf(t, "marydoe@testing.com")
	assert.True(t, payerBalance.IsZero(), "payer drained to zero, got %s", payerBalance)
	assert.True(t, payeeBalance.Equal(decimal.NewFromInt(10)), "payee got everything, got %s", payeeBalance)
	assert.Equal(t, 10, app.transfers.count(), "one ledger row per admitted transfer")
}

// TestConcurrentTransfers_OpposingPairs runs transfers in both directions
// between the same two accounts. Locking both rows in a fixed order must
// neither deadlock nor lose money.
func TestConcurrentTransfers_OpposingPairs(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.registerUser(t, "John Doe", "47776629911", "johndoe@testing.com", 100)
	app.registerUser(t, "Mary Doe", "30621143049", "marydoe@testing.com", 100)

	rounds := 25
	var wg sync.WaitGroup

	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			resp := app.transfer(t, "johndoe@testing.com", "marydoe@testing.com", 2)
			resp.Body.Close()
		}()
		go func() {
			defer wg.Done()
			resp := app.transfer(t, "marydoe@testing.com", "johndoe@testing.com", 2)
			resp.Body.Close()
		}()
	}
	wg.Wait()

	john := app.balanceOf(t, "johndoe@testing.com")
	mary := app.balanceOf(t, "marydoe@testing.com")

	assert.True(t, john.Add(mary).Equal(decimal.NewFromInt(200)),
		"conservation violated: %s + %s != 200", john, mary)
	assert.True(t, john.Sign() >= 0, "john went negative: %s", john)
	assert.True(t, mary.Sign() >= 0, "mary went negative: %s", mary)
}

// TestConcurrentRegistrations checks that duplicate documents never slip
// through simultaneous registration attempts.
func TestConcurrentRegistrations(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	attempts := 20
	var wg sync.WaitGroup
	var created atomic.Int64

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp := app.post(t, "/v1/users", map[string]any{
				"full_name": "John Doe",
				"document":  "47776629911",
				"email":     "johndoe@testing.com",
				"password":  "s3cret-pass",
			})
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusCreated {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, created.Load(), int64(1))
	accounts := app.accountRepo.snapshot()
	assert.LessOrEqual(t, len(accounts), 1, "duplicate accounts created")
}
