package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	createSentNotificationsTable = `
CREATE TABLE IF NOT EXISTS sent_notifications (
    transaction_id   TEXT        NOT NULL,
    payee_key        TEXT        NOT NULL,
    request_type     TEXT        NOT NULL,
    message_id       TEXT,
    sent_at          TIMESTAMPTZ NOT NULL,
    claim_expires_at TIMESTAMPTZ,
    PRIMARY KEY (transaction_id, payee_key)
)`

	addClaimExpiresAtColumn = `
ALTER TABLE sent_notifications ADD COLUMN IF NOT EXISTS claim_expires_at TIMESTAMPTZ`

	// Rows with claim_expires_at set are unconfirmed claims and only count
	// until they expire.
	existsSentNotification = `
SELECT EXISTS (
    SELECT 1 FROM sent_notifications
    WHERE transaction_id = $1 AND payee_key = $2
      AND (claim_expires_at IS NULL OR claim_expires_at > $3)
)`

	upsertSentNotification = `
INSERT INTO sent_notifications (transaction_id, payee_key, request_type, message_id, sent_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (transaction_id, payee_key) DO UPDATE
SET request_type     = EXCLUDED.request_type,
    message_id       = EXCLUDED.message_id,
    sent_at          = EXCLUDED.sent_at,
    claim_expires_at = NULL`

	claimSentNotification = `
INSERT INTO sent_notifications (transaction_id, payee_key, request_type, message_id, sent_at, claim_expires_at)
VALUES ($1, $2, $3, NULL, $4, $5)
ON CONFLICT (transaction_id, payee_key) DO UPDATE
SET request_type     = EXCLUDED.request_type,
    sent_at          = EXCLUDED.sent_at,
    claim_expires_at = EXCLUDED.claim_expires_at
WHERE sent_notifications.claim_expires_at IS NOT NULL
  AND sent_notifications.claim_expires_at <= EXCLUDED.sent_at`

	releaseSentNotification = `
DELETE FROM sent_notifications
WHERE transaction_id = $1 AND payee_key = $2 AND claim_expires_at IS NOT NULL`
)

// PostgresStore keeps sent notifications in the sent_notifications table.
type PostgresStore struct {
	db         DBTX
	claimLease time.Duration
	now        func() time.Time
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db, claimLease: DefaultClaimLease, now: time.Now}
}

// WithClaimLease sets how long an unconfirmed claim blocks its pair.
func (s *PostgresStore) WithClaimLease(lease time.Duration) *PostgresStore {
	if lease > 0 {
		s.claimLease = lease
	}
	return s
}

// EnsureSchema creates the table when missing and adds columns introduced later.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createSentNotificationsTable); err != nil {
		return fmt.Errorf("failed to create sent_notifications table: %w", err)
	}
	if _, err := s.db.Exec(ctx, addClaimExpiresAtColumn); err != nil {
		return fmt.Errorf("failed to migrate sent_notifications table: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAlreadyNotified(ctx context.Context, transactionID, payeeKey string) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, existsSentNotification, transactionID, payeeKey, s.now().UTC()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to query sent notification: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) MarkNotified(ctx context.Context, record Record) error {
	messageID := pgtype.Text{String: record.MessageID, Valid: record.MessageID != ""}
	_, err := s.db.Exec(ctx, upsertSentNotification,
		record.TransactionID, record.PayeeKey, record.RequestType, messageID, record.SentAt)
	if err != nil {
		return fmt.Errorf("failed to insert sent notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) Claim(ctx context.Context, record Record) (bool, error) {
	claimedAt := record.SentAt
	if claimedAt.IsZero() {
		claimedAt = s.now().UTC()
	}
	tag, err := s.db.Exec(ctx, claimSentNotification,
		record.TransactionID, record.PayeeKey, record.RequestType, claimedAt, claimedAt.Add(s.claimLease))
	if err != nil {
		return false, fmt.Errorf("failed to claim sent notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Release(ctx context.Context, transactionID, payeeKey string) error {
	if _, err := s.db.Exec(ctx, releaseSentNotification, transactionID, payeeKey); err != nil {
		return fmt.Errorf("failed to release sent notification: %w", err)
	}
	return nil
}
