package membership

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"attesto/pkg/platform/tx"
)

// PostgresRegistry persists membership in the record_subjects table.
// Idempotence comes from ON CONFLICT DO NOTHING on add and from treating a
// zero-row delete as success.
type PostgresRegistry struct {
	db    *sql.DB
	clock func() time.Time
}

// PostgresRegistryOption configures a PostgresRegistry instance.
type PostgresRegistryOption func(*PostgresRegistry)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) PostgresRegistryOption {
	return func(r *PostgresRegistry) {
		if clock != nil {
			r.clock = clock
		}
	}
}

func NewPostgresRegistry(db *sql.DB, opts ...PostgresRegistryOption) *PostgresRegistry {
	r := &PostgresRegistry{db: db, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *PostgresRegistry) execer(ctx context.Context) dbExecutor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return r.db
}

func (r *PostgresRegistry) IsMember(ctx context.Context, recordID, subjectID string) (bool, error) {
	var exists bool
	err := r.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM record_subjects WHERE record_id = $1 AND subject_id = $2)`,
		recordID, subjectID,
	).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (r *PostgresRegistry) Add(ctx context.Context, recordID, subjectID string) error {
	query := `
		INSERT INTO record_subjects (record_id, subject_id, added_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (record_id, subject_id) DO NOTHING
	`
	if _, err := r.execer(ctx).ExecContext(ctx, query, recordID, subjectID, r.clock()); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) Remove(ctx context.Context, recordID, subjectID string) error {
	query := `DELETE FROM record_subjects WHERE record_id = $1 AND subject_id = $2`
	if _, err := r.execer(ctx).ExecContext(ctx, query, recordID, subjectID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) List(ctx context.Context, recordID string) ([]string, error) {
	rows, err := r.execer(ctx).QueryContext(ctx,
		`SELECT subject_id FROM record_subjects WHERE record_id = $1 ORDER BY subject_id`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var subjectID string
		if err := rows.Scan(&subjectID); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, subjectID)
	}
	return out, rows.Err()
}
