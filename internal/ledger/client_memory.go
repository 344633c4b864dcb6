package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"attesto/pkg/platform/sentinel"
)

// InMemoryClient fakes the ledger gateway for development and tests. FailNext
// injects unavailability to exercise the degrade path.
type InMemoryClient struct {
	mu       sync.Mutex
	anchored map[string]map[string]string // recordID -> identityKey -> recordHash
	failing  bool
}

func NewInMemoryClient() *InMemoryClient {
	return &InMemoryClient{anchored: make(map[string]map[string]string)}
}

// SetFailing toggles simulated ledger unavailability.
func (c *InMemoryClient) SetFailing(failing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failing = failing
}

func (c *InMemoryClient) Anchor(_ context.Context, identityKey, recordID, recordHash string) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return Receipt{}, sentinel.ErrUnavailable
	}
	links, ok := c.anchored[recordID]
	if !ok {
		links = make(map[string]string)
		c.anchored[recordID] = links
	}
	links[identityKey] = recordHash
	return Receipt{TxID: uuid.NewString(), CommittedAt: time.Now()}, nil
}

func (c *InMemoryClient) Unanchor(_ context.Context, identityKey, recordID string) (Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return Receipt{}, sentinel.ErrUnavailable
	}
	delete(c.anchored[recordID], identityKey)
	return Receipt{TxID: uuid.NewString(), CommittedAt: time.Now()}, nil
}

// IsAnchored reports whether identityKey currently anchors recordID.
func (c *InMemoryClient) IsAnchored(recordID, identityKey string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.anchored[recordID][identityKey]
	return ok
}
