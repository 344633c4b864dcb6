package consent

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attesto/pkg/platform/sentinel"
)

func pendingRequest(recordID, subjectID string) Request {
	return Request{
		ID:        "req-" + recordID + "-" + subjectID,
		RecordID:  recordID,
		SubjectID: subjectID,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// Two racing resolvers on the same key must produce exactly one winner; the
// loser sees ErrInvalidState, never a silent overwrite.
func TestResolveConcurrentWritersExactlyOneWins(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, pendingRequest("rec-1", "alice")))

	const writers = 16
	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		status := StatusAccepted
		if i%2 == 1 {
			status = StatusRejected
		}
		go func(to Status) {
			defer wg.Done()
			_, err := store.Resolve(ctx, "rec-1", "alice", to, time.Now(), nil)
			if err == nil {
				wins.Add(1)
			} else if assert.ErrorIs(t, err, sentinel.ErrInvalidState) {
				losses.Add(1)
			}
		}(status)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(writers-1), losses.Load())
}

func TestCreateBlocksSecondPending(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, pendingRequest("rec-1", "alice")))
	err := store.Create(ctx, pendingRequest("rec-1", "alice"))
	assert.ErrorIs(t, err, sentinel.ErrConflict)

	t.Run("a resolved request frees the key", func(t *testing.T) {
		_, err := store.Resolve(ctx, "rec-1", "alice", StatusRejected, time.Now(), &RejectionRecord{
			Type:            RejectionTypeRequestRejected,
			Reason:          ReasonOther,
			RejectedAt:      time.Now(),
			CreatorResponse: CreatorResponse{Status: DecisionPending},
		})
		require.NoError(t, err)
		assert.NoError(t, store.Create(ctx, pendingRequest("rec-1", "alice")))
	})
}

func TestFindReturnsDetachedRejection(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	req := pendingRequest("rec-1", "alice")
	req.Status = StatusAccepted
	require.NoError(t, store.Create(ctx, req))

	_, err := store.AttachWithdrawal(ctx, "rec-1", "alice", RejectionRecord{
		Type:            RejectionTypeRemovedAfterAccepted,
		Reason:          ReasonPrivacyConcern,
		RejectedAt:      time.Now(),
		CreatorResponse: CreatorResponse{Status: DecisionPending},
	})
	require.NoError(t, err)

	before, err := store.Find(ctx, "rec-1", "alice")
	require.NoError(t, err)
	require.NoError(t, store.ResolveRejection(ctx, "rec-1", "alice", DecisionDropped, time.Now()))

	// The snapshot taken before resolution must not observe the mutation.
	assert.Equal(t, DecisionPending, before.Rejection.CreatorResponse.Status)

	after, err := store.Find(ctx, "rec-1", "alice")
	require.NoError(t, err)
	assert.Equal(t, DecisionDropped, after.Rejection.CreatorResponse.Status)
}
