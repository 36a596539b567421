package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"p2p-transfer-service/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

const (
	accountKeyPrefix   = "account:"
	listingKeyPattern  = "accounts:page:*"
	invalidateScanSize = 100
)

// AccountCache implements ports.AccountCache using Redis. It maintains two
// namespaces: "account:<email>" for single lookups and "accounts:page:..."
// for paginated listings. Mutations invalidate unconditionally.
type AccountCache struct {
	client     *goredis.Client
	accountTTL time.Duration
	listingTTL time.Duration
}

// NewAccountCache creates a new Redis-backed account cache.
func NewAccountCache(client *goredis.Client, accountTTL, listingTTL time.Duration) *AccountCache {
	return &AccountCache{
		client:     client,
		accountTTL: accountTTL,
		listingTTL: listingTTL,
	}
}

// GetAccount retrieves a cached account by email.
// Returns nil, nil if the key does not exist.
func (c *AccountCache) GetAccount(ctx context.Context, email string) (*domain.Account, error) {
	val, err := c.client.Get(ctx, accountKeyPrefix+email).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis account get: %w", err)
	}

	a := &domain.Account{}
	if err := json.Unmarshal(val, a); err != nil {
		return nil, fmt.Errorf("unmarshal cached account: %w", err)
	}
	return a, nil
}

// SetAccount stores an account keyed by its email.
func (c *AccountCache) SetAccount(ctx context.Context, account *domain.Account) error {
	payload, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	if err := c.client.Set(ctx, accountKeyPrefix+account.Email, payload, c.accountTTL).Err(); err != nil {
		return fmt.Errorf("redis account set: %w", err)
	}
	return nil
}

// InvalidateAccount removes the cached entry for one email.
func (c *AccountCache) InvalidateAccount(ctx context.Context, email string) error {
	if err := c.client.Del(ctx, accountKeyPrefix+email).Err(); err != nil {
		return fmt.Errorf("redis account del: %w", err)
	}
	return nil
}

// GetListing retrieves a cached listing page by its full key.
// Returns nil, nil if the key does not exist.
func (c *AccountCache) GetListing(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis listing get: %w", err)
	}
	return val, nil
}

// SetListing stores a serialized listing page.
func (c *AccountCache) SetListing(ctx context.Context, key string, payload []byte) error {
	if err := c.client.Set(ctx, key, payload, c.listingTTL).Err(); err != nil {
		return fmt.Errorf("redis listing set: %w", err)
	}
	return nil
}

// InvalidateListings removes every cached listing page. Page contents shift
// on any balance change, so selective eviction is not worth the bookkeeping.
func (c *AccountCache) InvalidateListings(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, listingKeyPattern, invalidateScanSize).Result()
		if err != nil {
			return fmt.Errorf("redis listing scan: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis listing del: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
