package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"attesto/internal/platform/metrics"
	"attesto/internal/syncqueue"
	pkgerrors "attesto/pkg/domain-errors"
	"attesto/pkg/platform/circuit"
	"attesto/pkg/platform/sentinel"
	"attesto/pkg/requestcontext"
)

// Outcome reports how an anchor or unanchor command ended. Anchored=false
// with a nil error means the ledger was unreachable and the command was
// queued for background retry: the caller's operation still succeeds.
type Outcome struct {
	Anchored bool
	Receipt  Receipt
}

// Coordinator translates membership mutations into ledger commands. A
// missing identity key is fatal to the anchoring step (the caller decides
// what that means for membership); an unreachable ledger degrades to a
// queued sync failure, never to an error.
type Coordinator struct {
	client    Client
	directory Directory
	queue     *syncqueue.Queue
	metrics   *metrics.Metrics
	logger    *slog.Logger
	contract  string
	tracer    trace.Tracer
	breaker   *circuit.Breaker
}

func NewCoordinator(client Client, directory Directory, queue *syncqueue.Queue, m *metrics.Metrics, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		client:    client,
		directory: directory,
		queue:     queue,
		metrics:   m,
		logger:    logger,
		contract:  "record-subject-link",
		tracer:    otel.Tracer("attesto/ledger"),
		breaker:   circuit.New("ledger", circuit.WithFailureThreshold(5), circuit.WithSuccessThreshold(2)),
	}
}

// Anchor writes the claim that actorID is linked to recordID.
func (c *Coordinator) Anchor(ctx context.Context, recordID, recordHash, actorID string) (Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.anchor",
		trace.WithAttributes(attribute.String("record.id", recordID)))
	defer span.End()

	key, err := c.resolveKey(ctx, actorID)
	if err != nil {
		return Outcome{}, err
	}

	receipt, err := c.client.Anchor(ctx, key, recordID, recordHash)
	if err != nil {
		c.recordFailure(ctx)
		c.degrade(ctx, syncqueue.ActionAnchor, actorID, key, recordID, recordHash, err)
		return Outcome{Anchored: false}, nil
	}
	c.recordSuccess(ctx)

	c.metrics.AnchorsTotal.WithLabelValues("anchor", "ok").Inc()
	c.logger.InfoContext(ctx, "record link anchored",
		"record_id", recordID,
		"actor_id", actorID,
		"tx_id", receipt.TxID,
	)
	return Outcome{Anchored: true, Receipt: receipt}, nil
}

// Unanchor retracts the claim. Only the subject's own identity key may
// unanchor their link, which is why callers always pass the subject as
// actorID (the orchestrator enforces this).
func (c *Coordinator) Unanchor(ctx context.Context, recordID, actorID string) (Outcome, error) {
	ctx, span := c.tracer.Start(ctx, "ledger.unanchor",
		trace.WithAttributes(attribute.String("record.id", recordID)))
	defer span.End()

	key, err := c.resolveKey(ctx, actorID)
	if err != nil {
		return Outcome{}, err
	}

	receipt, err := c.client.Unanchor(ctx, key, recordID)
	if err != nil {
		c.recordFailure(ctx)
		c.degrade(ctx, syncqueue.ActionUnanchor, actorID, key, recordID, "", err)
		return Outcome{Anchored: false}, nil
	}
	c.recordSuccess(ctx)

	c.metrics.AnchorsTotal.WithLabelValues("unanchor", "ok").Inc()
	c.logger.InfoContext(ctx, "record link unanchored",
		"record_id", recordID,
		"actor_id", actorID,
		"tx_id", receipt.TxID,
	)
	return Outcome{Anchored: true, Receipt: receipt}, nil
}

// Degraded reports whether the ledger has failed enough consecutive calls
// to be considered down. Calls still go through; they double as probes that
// close the breaker again.
func (c *Coordinator) Degraded() bool {
	return c.breaker.IsOpen()
}

func (c *Coordinator) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.ErrorContext(ctx, "ledger circuit opened, operating in degraded mode")
	}
}

func (c *Coordinator) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "ledger circuit closed, anchoring recovered")
	}
}

func (c *Coordinator) resolveKey(ctx context.Context, actorID string) (string, error) {
	key, err := c.directory.LedgerKey(ctx, actorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", pkgerrors.New(pkgerrors.CodeNoLedgerKey, "actor has no ledger identity key")
		}
		return "", pkgerrors.Wrap(err, pkgerrors.CodeInternal, "resolve ledger key")
	}
	return key, nil
}

// degrade records the failed command for background retry. Queue logging is
// best-effort and never blocks the caller.
func (c *Coordinator) degrade(ctx context.Context, action syncqueue.Action, actorID, key, recordID, recordHash string, cause error) {
	c.metrics.AnchorsTotal.WithLabelValues(string(action), "failed").Inc()
	c.metrics.SyncFailuresLogged.Inc()
	c.logger.WarnContext(ctx, "ledger command failed, queued for retry",
		"record_id", recordID,
		"actor_id", actorID,
		"action", string(action),
		"error", cause.Error(),
	)
	c.queue.LogFailure(ctx, syncqueue.FailureRecord{
		ID:             uuid.NewString(),
		Contract:       c.contract,
		Action:         action,
		ActorID:        actorID,
		ActorLedgerKey: key,
		RecordID:       recordID,
		RecordHash:     recordHash,
		Error:          cause.Error(),
		CreatedAt:      requestcontext.Now(ctx),
	})
}
