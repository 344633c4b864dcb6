package syncqueue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attesto/pkg/platform/tx"
)

// PostgresStore persists failure records in the sync_failures table,
// outbox-style: the drain worker publishes unpublished rows to the broker and
// stamps published_at.
type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, rec FailureRecord) error {
	query := `
		INSERT INTO sync_failures (
			id, contract, action, actor_id, actor_ledger_key,
			record_id, record_hash, error, retry_count, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		rec.ID, rec.Contract, string(rec.Action), rec.ActorID, rec.ActorLedgerKey,
		rec.RecordID, rec.RecordHash, rec.Error, rec.RetryCount, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sync failure: %w", err)
	}
	return nil
}

// Unpublished returns up to limit failure records not yet handed to the
// broker, oldest first.
func (s *PostgresStore) Unpublished(ctx context.Context, limit int) ([]FailureRecord, error) {
	query := `
		SELECT id, contract, action, actor_id, actor_ledger_key,
		       record_id, record_hash, error, retry_count, created_at
		FROM sync_failures
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unpublished sync failures: %w", err)
	}
	defer rows.Close()

	var out []FailureRecord
	for rows.Next() {
		var rec FailureRecord
		var action string
		if err := rows.Scan(
			&rec.ID, &rec.Contract, &action, &rec.ActorID, &rec.ActorLedgerKey,
			&rec.RecordID, &rec.RecordHash, &rec.Error, &rec.RetryCount, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sync failure: %w", err)
		}
		rec.Action = Action(action)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MarkPublished stamps the given record as handed to the broker.
func (s *PostgresStore) MarkPublished(ctx context.Context, id string) error {
	query := `UPDATE sync_failures SET published_at = $2 WHERE id = $1`
	if _, err := s.execer(ctx).ExecContext(ctx, query, id, s.clock()); err != nil {
		return fmt.Errorf("mark sync failure published: %w", err)
	}
	return nil
}
