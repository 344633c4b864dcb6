package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"attesto/pkg/platform/sentinel"
	pkgstrings "attesto/pkg/platform/strings"
)

// PostgresStore reads record role assignments from the records table owned by
// the upload service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID string) (Record, error) {
	query := `
		SELECT id, title, uploader_id, owners, administrators, created_at
		FROM records
		WHERE id = $1
	`
	var rec Record
	err := s.db.QueryRowContext(ctx, query, recordID).Scan(
		&rec.ID,
		&rec.Title,
		&rec.UploaderID,
		pq.Array(&rec.Owners),
		pq.Array(&rec.Administrators),
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, sentinel.ErrNotFound
		}
		return Record{}, fmt.Errorf("find record: %w", err)
	}

	// Upstream writers have produced duplicate and padded entries before.
	rec.Owners = pkgstrings.DedupeAndTrim(rec.Owners)
	rec.Administrators = pkgstrings.DedupeAndTrim(rec.Administrators)
	return rec, nil
}
