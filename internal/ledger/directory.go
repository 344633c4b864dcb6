package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"attesto/pkg/platform/sentinel"
)

// InMemoryDirectory maps actors to ledger identity keys. It doubles as the
// Provisioner in development builds.
type InMemoryDirectory struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewInMemoryDirectory() *InMemoryDirectory {
	return &InMemoryDirectory{keys: make(map[string]string)}
}

func (d *InMemoryDirectory) LedgerKey(_ context.Context, actorID string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if key, ok := d.keys[actorID]; ok {
		return key, nil
	}
	return "", sentinel.ErrNotFound
}

func (d *InMemoryDirectory) EnsureIdentity(_ context.Context, actorID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if key, ok := d.keys[actorID]; ok {
		return key, nil
	}
	key := "key-" + uuid.NewString()
	d.keys[actorID] = key
	return key, nil
}

// SetKey seeds a known identity key; tests use this.
func (d *InMemoryDirectory) SetKey(actorID, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[actorID] = key
}

const directoryKeyPrefix = "ledgerkey:"

// CachedDirectory is a read-through Redis cache in front of a Directory.
// Identity keys change rarely; a short TTL keeps revocations visible without
// hammering the identity service on every anchor.
type CachedDirectory struct {
	inner  Directory
	client *redis.Client
	ttl    time.Duration
}

func NewCachedDirectory(inner Directory, client *redis.Client, ttl time.Duration) *CachedDirectory {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedDirectory{inner: inner, client: client, ttl: ttl}
}

func (d *CachedDirectory) LedgerKey(ctx context.Context, actorID string) (string, error) {
	cacheKey := directoryKeyPrefix + actorID

	cached, err := d.client.Get(ctx, cacheKey).Result()
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		// Cache trouble is not identity trouble; fall through to the source.
		err = nil
	}

	key, err := d.inner.LedgerKey(ctx, actorID)
	if err != nil {
		return "", err
	}
	if setErr := d.client.Set(ctx, cacheKey, key, d.ttl).Err(); setErr != nil {
		return key, nil
	}
	return key, nil
}

// Invalidate drops the cached key for an actor, e.g. after re-provisioning.
func (d *CachedDirectory) Invalidate(ctx context.Context, actorID string) error {
	if err := d.client.Del(ctx, directoryKeyPrefix+actorID).Err(); err != nil {
		return fmt.Errorf("invalidate ledger key cache: %w", err)
	}
	return nil
}
