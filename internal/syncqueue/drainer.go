package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Outbox is the read-side of the failure log the drainer consumes.
type Outbox interface {
	Unpublished(ctx context.Context, limit int) ([]FailureRecord, error)
	MarkPublished(ctx context.Context, id string) error
}

// Broker hands a failure record to the message bus the external retry worker
// listens on.
type Broker interface {
	Produce(ctx context.Context, key string, payload []byte) error
}

// KafkaBroker publishes failure records to a Kafka topic via franz-go.
type KafkaBroker struct {
	client *kgo.Client
	topic  string
}

// NewKafkaBroker connects to the brokers and ensures the failures topic
// exists.
func NewKafkaBroker(ctx context.Context, brokers []string, topic string) (*KafkaBroker, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopics(ctx, 1, 1, nil, topic); err != nil {
		// Topic may already exist; only a connection-level error is fatal.
		if ctx.Err() != nil {
			client.Close()
			return nil, fmt.Errorf("create topic %s: %w", topic, err)
		}
	}

	return &KafkaBroker{client: client, topic: topic}, nil
}

func (b *KafkaBroker) Produce(ctx context.Context, key string, payload []byte) error {
	rec := &kgo.Record{Key: []byte(key), Value: payload}
	return b.client.ProduceSync(ctx, rec).FirstErr()
}

func (b *KafkaBroker) Close() {
	b.client.Close()
}

// failurePayload is the JSON structure published for the retry worker.
type failurePayload struct {
	ID             string `json:"id"`
	Contract       string `json:"contract"`
	Action         string `json:"action"`
	ActorID        string `json:"actorId"`
	ActorLedgerKey string `json:"actorLedgerKey"`
	RecordID       string `json:"recordId"`
	RecordHash     string `json:"recordHash,omitempty"`
	Error          string `json:"error"`
	RetryCount     int    `json:"retryCount"`
	CreatedAt      string `json:"createdAt"`
}

// Drainer periodically moves unpublished failure records from the outbox to
// the broker. Replay of the commands themselves belongs to the external retry
// worker; the drainer only guarantees delivery of the intent.
type Drainer struct {
	outbox    Outbox
	broker    Broker
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewDrainer(outbox Outbox, broker Broker, logger *slog.Logger, interval time.Duration) *Drainer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Drainer{
		outbox:    outbox,
		broker:    broker,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

func (d *Drainer) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.DrainOnce(ctx); err != nil {
				d.logger.ErrorContext(ctx, "sync failure drain pass failed", "error", err.Error())
			}
		}
	}
}

// DrainOnce publishes one batch. Partial progress is fine: a record is only
// marked published after the broker accepted it.
func (d *Drainer) DrainOnce(ctx context.Context) error {
	records, err := d.outbox.Unpublished(ctx, d.batchSize)
	if err != nil {
		return err
	}

	for _, rec := range records {
		payload, err := json.Marshal(failurePayload{
			ID:             rec.ID,
			Contract:       rec.Contract,
			Action:         string(rec.Action),
			ActorID:        rec.ActorID,
			ActorLedgerKey: rec.ActorLedgerKey,
			RecordID:       rec.RecordID,
			RecordHash:     rec.RecordHash,
			Error:          rec.Error,
			RetryCount:     rec.RetryCount,
			CreatedAt:      rec.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return fmt.Errorf("marshal failure record %s: %w", rec.ID, err)
		}
		if err := d.broker.Produce(ctx, rec.RecordID, payload); err != nil {
			return fmt.Errorf("produce failure record %s: %w", rec.ID, err)
		}
		if err := d.outbox.MarkPublished(ctx, rec.ID); err != nil {
			return fmt.Errorf("mark failure record %s: %w", rec.ID, err)
		}
	}
	return nil
}
