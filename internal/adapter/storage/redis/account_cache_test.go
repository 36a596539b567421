package redis

import (
	"context"
	"testing"
	"time"

	"p2p-transfer-service/internal/core/domain"
	"p2p-transfer-service/internal/core/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCache(t *testing.T) (*AccountCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAccountCache(client, 10*time.Minute, 5*time.Minute), srv
}

func testAccount() *domain.Account {
	return &domain.Account{
		ID:       uuid.New(),
		FullName: "John Doe",
		Role:     domain.RoleCustomer,
		Document: "47776629911",
		Email:    "johndoe@testing.com",
		Balance:  decimal.NewFromInt(10),
	}
}

func TestAccountCache_SetAndGetAccount(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()
	acc := testAccount()

	require.NoError(t, cache.SetAccount(ctx, acc))

	got, err := cache.GetAccount(ctx, acc.Email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, acc.FullName, got.FullName)
	assert.True(t, acc.Balance.Equal(got.Balance))
}

func TestAccountCache_GetAccount_Miss(t *testing.T) {
	cache, _ := setupCache(t)

	got, err := cache.GetAccount(context.Background(), "nobody@testing.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccountCache_AccountTTL(t *testing.T) {
	cache, srv := setupCache(t)
	ctx := context.Background()
	acc := testAccount()

	require.NoError(t, cache.SetAccount(ctx, acc))
	srv.FastForward(11 * time.Minute)

	got, err := cache.GetAccount(ctx, acc.Email)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccountCache_InvalidateAccount(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()
	acc := testAccount()

	require.NoError(t, cache.SetAccount(ctx, acc))
	require.NoError(t, cache.InvalidateAccount(ctx, acc.Email))

	got, err := cache.GetAccount(ctx, acc.Email)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccountCache_SetAndGetListing(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()
	key := ports.ListParams{Page: 1, PageSize: 20, Sort: "full_name"}.CacheKey()

	require.NoError(t, cache.SetListing(ctx, key, []byte(`{"items":[]}`)))

	got, err := cache.GetListing(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"items":[]}`), got)
}

func TestAccountCache_GetListing_Miss(t *testing.T) {
	cache, _ := setupCache(t)

	got, err := cache.GetListing(context.Background(), "accounts:page:9:size:20:sort:full_name:asc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAccountCache_InvalidateListings(t *testing.T) {
	cache, _ := setupCache(t)
	ctx := context.Background()
	acc := testAccount()

	require.NoError(t, cache.SetAccount(ctx, acc))
	for _, key := range []string{
		"accounts:page:1:size:20:sort:full_name:asc",
		"accounts:page:2:size:20:sort:full_name:asc",
		"accounts:page:1:size:50:sort:balance:desc",
	} {
		require.NoError(t, cache.SetListing(ctx, key, []byte("x")))
	}

	require.NoError(t, cache.InvalidateListings(ctx))

	got, err := cache.GetListing(ctx, "accounts:page:1:size:20:sort:full_name:asc")
	require.NoError(t, err)
	assert.Nil(t, got)

	// account entries survive a listing wipe
	stillThere, err := cache.GetAccount(ctx, acc.Email)
	require.NoError(t, err)
	assert.NotNil(t, stillThere)
}
