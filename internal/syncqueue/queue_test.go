package syncqueue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

func (failingStore) Append(context.Context, FailureRecord) error {
	return errors.New("disk on fire")
}

func TestLogFailureSwallowsStoreErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := New(failingStore{}, logger)

	// Must not panic or propagate; the primary operation already succeeded.
	q.LogFailure(context.Background(), FailureRecord{RecordID: "rec-1", Action: ActionAnchor})
}

func TestLogFailureAppends(t *testing.T) {
	store := NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	q := New(store, logger)

	q.LogFailure(context.Background(), FailureRecord{
		ID:       "f-1",
		RecordID: "rec-1",
		Action:   ActionUnanchor,
		ActorID:  "alice",
		Error:    "ledger unreachable",
	})

	records := store.All()
	require.Len(t, records, 1)
	assert.Equal(t, ActionUnanchor, records[0].Action)
	assert.Equal(t, "alice", records[0].ActorID)
}

type fakeOutbox struct {
	pending   []FailureRecord
	published []string
}

func (f *fakeOutbox) Unpublished(_ context.Context, limit int) ([]FailureRecord, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, id string) error {
	f.published = append(f.published, id)
	for i, rec := range f.pending {
		if rec.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			break
		}
	}
	return nil
}

type fakeBroker struct {
	produced map[string][]byte
	fail     bool
}

func (f *fakeBroker) Produce(_ context.Context, key string, payload []byte) error {
	if f.fail {
		return errors.New("broker down")
	}
	if f.produced == nil {
		f.produced = make(map[string][]byte)
	}
	f.produced[key] = payload
	return nil
}

func TestDrainOncePublishesAndMarks(t *testing.T) {
	outbox := &fakeOutbox{pending: []FailureRecord{
		{ID: "f-1", RecordID: "rec-1", Action: ActionAnchor, CreatedAt: time.Now()},
		{ID: "f-2", RecordID: "rec-2", Action: ActionUnanchor, CreatedAt: time.Now()},
	}}
	broker := &fakeBroker{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d := NewDrainer(outbox, broker, logger, time.Second)
	require.NoError(t, d.DrainOnce(context.Background()))

	assert.Equal(t, []string{"f-1", "f-2"}, outbox.published)
	assert.Contains(t, broker.produced, "rec-1")
	assert.Contains(t, broker.produced, "rec-2")
}

func TestDrainOnceStopsOnBrokerFailure(t *testing.T) {
	outbox := &fakeOutbox{pending: []FailureRecord{
		{ID: "f-1", RecordID: "rec-1", Action: ActionAnchor, CreatedAt: time.Now()},
	}}
	broker := &fakeBroker{fail: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	d := NewDrainer(outbox, broker, logger, time.Second)
	err := d.DrainOnce(context.Background())
	require.Error(t, err)

	// Nothing marked published; the record stays for the next pass.
	assert.Empty(t, outbox.published)
}
