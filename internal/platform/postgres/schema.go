package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied at startup. Statements are idempotent so repeated boots
// against the same database are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id             TEXT PRIMARY KEY,
		title          TEXT NOT NULL DEFAULT '',
		uploader_id    TEXT NOT NULL,
		owners         TEXT[] NOT NULL DEFAULT '{}',
		administrators TEXT[] NOT NULL DEFAULT '{}',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS record_subjects (
		record_id  TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		added_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (record_id, subject_id)
	)`,

	`CREATE TABLE IF NOT EXISTS consent_requests (
		id                        TEXT PRIMARY KEY,
		record_id                 TEXT NOT NULL,
		subject_id                TEXT NOT NULL,
		requested_by              TEXT NOT NULL,
		requested_role            TEXT NOT NULL,
		title                     TEXT NOT NULL DEFAULT '',
		status                    TEXT NOT NULL,
		granted_access_on_request BOOLEAN NOT NULL DEFAULT FALSE,
		created_at                TIMESTAMPTZ NOT NULL,
		responded_at              TIMESTAMPTZ,
		rejection_type            TEXT,
		rejection_reason          TEXT,
		rejected_at               TIMESTAMPTZ,
		creator_response          TEXT,
		creator_responded_at      TIMESTAMPTZ
	)`,

	// One pending request per (record, subject); resolved requests stay as
	// history and do not block a new request.
	`CREATE UNIQUE INDEX IF NOT EXISTS consent_requests_pending_key
		ON consent_requests (record_id, subject_id)
		WHERE status = 'pending'`,

	`CREATE INDEX IF NOT EXISTS consent_requests_subject
		ON consent_requests (subject_id)`,

	`CREATE TABLE IF NOT EXISTS removal_requests (
		id               TEXT PRIMARY KEY,
		record_id        TEXT NOT NULL,
		subject_id       TEXT NOT NULL,
		requested_by     TEXT NOT NULL,
		reason           TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		subject_response TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		responded_at     TIMESTAMPTZ
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS removal_requests_pending_key
		ON removal_requests (record_id, subject_id)
		WHERE status = 'pending'`,

	`CREATE INDEX IF NOT EXISTS removal_requests_subject
		ON removal_requests (subject_id)`,

	`CREATE TABLE IF NOT EXISTS sync_failures (
		id               TEXT PRIMARY KEY,
		contract         TEXT NOT NULL,
		action           TEXT NOT NULL,
		actor_id         TEXT NOT NULL,
		actor_ledger_key TEXT NOT NULL DEFAULT '',
		record_id        TEXT NOT NULL,
		record_hash      TEXT NOT NULL DEFAULT '',
		error            TEXT NOT NULL DEFAULT '',
		retry_count      INT NOT NULL DEFAULT 0,
		created_at       TIMESTAMPTZ NOT NULL,
		published_at     TIMESTAMPTZ
	)`,

	`CREATE INDEX IF NOT EXISTS sync_failures_unpublished
		ON sync_failures (created_at)
		WHERE published_at IS NULL`,
}

// Migrate applies the schema to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
