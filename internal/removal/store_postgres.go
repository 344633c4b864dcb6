package removal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"attesto/pkg/platform/sentinel"
	"attesto/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists removal requests in the removal_requests table. The
// at-most-one-pending invariant mirrors the consent store: a partial unique
// index on (record_id, subject_id) WHERE status = 'pending'.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

const requestColumns = `
	id, record_id, subject_id, requested_by, reason, status,
	subject_response, created_at, responded_at
`

func (s *PostgresStore) Create(ctx context.Context, req Request) error {
	query := `
		INSERT INTO removal_requests (
			id, record_id, subject_id, requested_by, reason, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID, req.RecordID, req.SubjectID, req.RequestedBy,
		req.Reason, string(req.Status), req.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert removal request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, recordID, subjectID string) (Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM removal_requests
		WHERE record_id = $1 AND subject_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	req, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query, recordID, subjectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, sentinel.ErrNotFound
		}
		return Request{}, fmt.Errorf("find removal request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) Resolve(ctx context.Context, recordID, subjectID string, to Status, response string, respondedAt time.Time) (Request, error) {
	query := `
		UPDATE removal_requests
		SET status = $4, subject_response = $5, responded_at = $6
		WHERE record_id = $1 AND subject_id = $2 AND status = $3
		RETURNING ` + requestColumns
	req, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query,
		recordID, subjectID, string(StatusPending),
		string(to), response, respondedAt,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, s.classifyMiss(ctx, recordID, subjectID)
		}
		return Request{}, fmt.Errorf("resolve removal request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) DeletePending(ctx context.Context, recordID, subjectID string) error {
	query := `
		DELETE FROM removal_requests
		WHERE record_id = $1 AND subject_id = $2 AND status = $3
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, recordID, subjectID, string(StatusPending))
	if err != nil {
		return fmt.Errorf("delete removal request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.classifyMiss(ctx, recordID, subjectID)
	}
	return nil
}

func (s *PostgresStore) ListByRecord(ctx context.Context, recordID string) ([]Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM removal_requests
		WHERE record_id = $1
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, recordID)
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM removal_requests
		WHERE subject_id = $1
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, subjectID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg string) ([]Request, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list removal requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan removal request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *PostgresStore) classifyMiss(ctx context.Context, recordID, subjectID string) error {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM removal_requests WHERE record_id = $1 AND subject_id = $2)`,
		recordID, subjectID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("classify removal miss: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return sentinel.ErrInvalidState
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var (
		req             Request
		status          string
		reason          sql.NullString
		subjectResponse sql.NullString
		respondedAt     sql.NullTime
	)
	err := row.Scan(
		&req.ID, &req.RecordID, &req.SubjectID, &req.RequestedBy,
		&reason, &status, &subjectResponse, &req.CreatedAt, &respondedAt,
	)
	if err != nil {
		return Request{}, err
	}
	req.Status = Status(status)
	req.Reason = reason.String
	req.SubjectResponse = subjectResponse.String
	if respondedAt.Valid {
		t := respondedAt.Time
		req.RespondedAt = &t
	}
	return req, nil
}
