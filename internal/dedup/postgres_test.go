package dedup_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyphera/sdd-notifier/internal/dedup"
)

type fakeRow struct {
	exists bool
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.exists
	return nil
}

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	row     fakeRow
	tag     pgconn.CommandTag
	execErr error
	queries []execCall
	execs   []execCall
}

func (f *fakeDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: arguments})
	return f.tag, f.execErr
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, execCall{sql: sql, args: args})
	return f.row
}

func TestPostgresStore_IsAlreadyNotified(t *testing.T) {
	ctx := context.Background()

	db := &fakeDB{row: fakeRow{exists: true}}
	found, err := dedup.NewPostgresStore(db).IsAlreadyNotified(ctx, "TX1", "P1")
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0].sql, "SELECT EXISTS")
	require.Len(t, db.queries[0].args, 3)
	assert.Equal(t, []any{"TX1", "P1"}, db.queries[0].args[:2])
	assert.IsType(t, time.Time{}, db.queries[0].args[2])
	assert.Contains(t, db.queries[0].sql, "claim_expires_at IS NULL OR claim_expires_at > $3")

	db = &fakeDB{row: fakeRow{err: errors.New("conn closed")}}
	_, err = dedup.NewPostgresStore(db).IsAlreadyNotified(ctx, "TX1", "P1")
	assert.Error(t, err)
}

func TestPostgresStore_MarkNotified(t *testing.T) {
	ctx := context.Background()
	sentAt := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	err := dedup.NewPostgresStore(db).MarkNotified(ctx, dedup.Record{
		TransactionID: "TX1", PayeeKey: "P1", RequestType: "SDD", MessageID: "msg-1", SentAt: sentAt,
	})
	require.NoError(t, err)
	require.Len(t, db.execs, 1)
	assert.True(t, strings.Contains(db.execs[0].sql, "ON CONFLICT (transaction_id, payee_key) DO UPDATE"))
	assert.Contains(t, db.execs[0].sql, "claim_expires_at = NULL")
	assert.Equal(t, pgtype.Text{String: "msg-1", Valid: true}, db.execs[0].args[3])
	assert.Equal(t, sentAt, db.execs[0].args[4])

	db = &fakeDB{execErr: errors.New("unique violation")}
	assert.Error(t, dedup.NewPostgresStore(db).MarkNotified(ctx, dedup.Record{TransactionID: "TX1", PayeeKey: "P1"}))
}

func TestPostgresStore_Claim(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		tag  string
		want bool
	}{
		{name: "row inserted", tag: "INSERT 0 1", want: true},
		{name: "expired claim taken over", tag: "INSERT 0 1", want: true},
		{name: "live claim or sent", tag: "INSERT 0 0", want: false},
	}

	claimedAt := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{tag: pgconn.NewCommandTag(tt.tag)}
			store := dedup.NewPostgresStore(db).WithClaimLease(5 * time.Minute)
			got, err := store.Claim(ctx, dedup.Record{TransactionID: "TX1", PayeeKey: "P1", RequestType: "SDD", SentAt: claimedAt})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.Len(t, db.execs, 1)
			assert.Contains(t, db.execs[0].sql, "sent_notifications.claim_expires_at <= EXCLUDED.sent_at")
			assert.Equal(t, claimedAt, db.execs[0].args[3])
			assert.Equal(t, claimedAt.Add(5*time.Minute), db.execs[0].args[4])
		})
	}
}

func TestPostgresStore_ClaimDefaultLease(t *testing.T) {
	db := &fakeDB{tag: pgconn.NewCommandTag("INSERT 0 1")}
	_, err := dedup.NewPostgresStore(db).Claim(context.Background(), dedup.Record{TransactionID: "TX1", PayeeKey: "P1"})
	require.NoError(t, err)

	claimedAt, ok := db.execs[0].args[3].(time.Time)
	require.True(t, ok)
	assert.False(t, claimedAt.IsZero())
	assert.Equal(t, claimedAt.Add(dedup.DefaultClaimLease), db.execs[0].args[4])
}

func TestPostgresStore_ReleaseAndSchema(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{}
	store := dedup.NewPostgresStore(db)

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Release(ctx, "TX1", "P1"))
	require.Len(t, db.execs, 3)
	assert.Contains(t, db.execs[0].sql, "CREATE TABLE IF NOT EXISTS sent_notifications")
	assert.Contains(t, db.execs[1].sql, "ADD COLUMN IF NOT EXISTS claim_expires_at")
	assert.Contains(t, db.execs[2].sql, "claim_expires_at IS NOT NULL")

	db.execErr = errors.New("permission denied")
	assert.Error(t, store.EnsureSchema(ctx))
}
