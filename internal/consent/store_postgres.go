package consent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"attesto/internal/record"
	"attesto/pkg/platform/sentinel"
	"attesto/pkg/platform/tx"
)

const pgUniqueViolation = "23505"

// PostgresStore persists consent requests. The at-most-one-pending invariant
// is enforced by a partial unique index on (record_id, subject_id) WHERE
// status = 'pending'; transitions are conditional UPDATEs so concurrent
// writers racing on the same key resolve to exactly one winner.
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
	id, record_id, subject_id, requested_by, requested_role, title, status,
	granted_access_on_request, created_at, responded_at,
	rejection_type, rejection_reason, rejected_at,
	creator_response, creator_responded_at
`

func (s *PostgresStore) Create(ctx context.Context, req Request) error {
	query := `
		INSERT INTO consent_requests (
			id, record_id, subject_id, requested_by, requested_role, title,
			status, granted_access_on_request, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		req.ID, req.RecordID, req.SubjectID, req.RequestedBy,
		string(req.RequestedRole), req.Title, string(req.Status),
		req.GrantedAccessOnRequest, req.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert consent request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, recordID, subjectID string) (Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consent_requests
		WHERE record_id = $1 AND subject_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	req, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query, recordID, subjectID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, sentinel.ErrNotFound
		}
		return Request{}, fmt.Errorf("find consent request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) Resolve(ctx context.Context, recordID, subjectID string, to Status, respondedAt time.Time, rejection *RejectionRecord) (Request, error) {
	var (
		rejType, rejReason sql.NullString
		rejectedAt         sql.NullTime
		creatorResponse    sql.NullString
	)
	if rejection != nil {
		rejType = sql.NullString{String: string(rejection.Type), Valid: true}
		rejReason = sql.NullString{String: string(rejection.Reason), Valid: true}
		rejectedAt = sql.NullTime{Time: rejection.RejectedAt, Valid: true}
		creatorResponse = sql.NullString{String: string(rejection.CreatorResponse.Status), Valid: true}
	}

	query := `
		UPDATE consent_requests
		SET status = $4, responded_at = $5,
		    rejection_type = $6, rejection_reason = $7, rejected_at = $8,
		    creator_response = $9
		WHERE record_id = $1 AND subject_id = $2 AND status = $3
		RETURNING ` + requestColumns
	req, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query,
		recordID, subjectID, string(StatusPending),
		string(to), respondedAt, rejType, rejReason, rejectedAt, creatorResponse,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, s.classifyMiss(ctx, recordID, subjectID)
		}
		return Request{}, fmt.Errorf("resolve consent request: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) DeletePending(ctx context.Context, recordID, subjectID string) error {
	query := `
		DELETE FROM consent_requests
		WHERE record_id = $1 AND subject_id = $2 AND status = $3
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, recordID, subjectID, string(StatusPending))
	if err != nil {
		return fmt.Errorf("delete consent request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.classifyMiss(ctx, recordID, subjectID)
	}
	return nil
}

func (s *PostgresStore) AttachWithdrawal(ctx context.Context, recordID, subjectID string, rejection RejectionRecord) (Request, error) {
	query := `
		UPDATE consent_requests
		SET rejection_type = $4, rejection_reason = $5, rejected_at = $6,
		    creator_response = $7
		WHERE record_id = $1 AND subject_id = $2 AND status = $3
		  AND rejection_type IS NULL
		RETURNING ` + requestColumns
	req, err := scanRequest(s.execer(ctx).QueryRowContext(ctx, query,
		recordID, subjectID, string(StatusAccepted),
		string(rejection.Type), string(rejection.Reason), rejection.RejectedAt,
		string(rejection.CreatorResponse.Status),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, s.classifyMiss(ctx, recordID, subjectID)
		}
		return Request{}, fmt.Errorf("attach withdrawal: %w", err)
	}
	return req, nil
}

func (s *PostgresStore) ResolveRejection(ctx context.Context, recordID, subjectID string, decision CreatorDecision, respondedAt time.Time) error {
	query := `
		UPDATE consent_requests
		SET creator_response = $4, creator_responded_at = $5
		WHERE record_id = $1 AND subject_id = $2 AND creator_response = $3
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		recordID, subjectID, string(DecisionPending), string(decision), respondedAt,
	)
	if err != nil {
		return fmt.Errorf("resolve rejection: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.classifyMiss(ctx, recordID, subjectID)
	}
	return nil
}

func (s *PostgresStore) ListByRecord(ctx context.Context, recordID string) ([]Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consent_requests
		WHERE record_id = $1
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, recordID)
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subjectID string) ([]Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consent_requests
		WHERE subject_id = $1
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, subjectID)
}

func (s *PostgresStore) list(ctx context.Context, query string, arg string) ([]Request, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list consent requests: %w", err)
	}
	defer rows.Close()

	var out []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// classifyMiss distinguishes "no such request" from "request exists in the
// wrong state" after a zero-row conditional write.
func (s *PostgresStore) classifyMiss(ctx context.Context, recordID, subjectID string) error {
	var exists bool
	err := s.execer(ctx).QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM consent_requests WHERE record_id = $1 AND subject_id = $2)`,
		recordID, subjectID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("classify consent miss: %w", err)
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
		req                Request
		role, status       string
		respondedAt        sql.NullTime
		rejType, rejReason sql.NullString
		rejectedAt         sql.NullTime
		creatorResponse    sql.NullString
		creatorRespondedAt sql.NullTime
	)
	err := row.Scan(
		&req.ID, &req.RecordID, &req.SubjectID, &req.RequestedBy,
		&role, &req.Title, &status,
		&req.GrantedAccessOnRequest, &req.CreatedAt, &respondedAt,
		&rejType, &rejReason, &rejectedAt,
		&creatorResponse, &creatorRespondedAt,
	)
	if err != nil {
		return Request{}, err
	}
	req.RequestedRole = record.Role(role)
	req.Status = Status(status)
	if respondedAt.Valid {
		t := respondedAt.Time
		req.RespondedAt = &t
	}
	if rejType.Valid {
		rej := &RejectionRecord{
			Type:       RejectionType(rejType.String),
			Reason:     RejectionReason(rejReason.String),
			RejectedAt: rejectedAt.Time,
			CreatorResponse: CreatorResponse{
				Status: CreatorDecision(creatorResponse.String),
			},
		}
		if creatorRespondedAt.Valid {
			t := creatorRespondedAt.Time
			rej.CreatorResponse.RespondedAt = &t
		}
		req.Rejection = rej
	}
	return req, nil
}
