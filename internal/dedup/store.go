package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Record is a sent notification persisted for later duplicate checks.
type Record struct {
	TransactionID string
	PayeeKey      string
	RequestType   string
	MessageID     string
	SentAt        time.Time
}

// Store is the external record of notifications already sent.
// MarkNotified overwrites an existing record for the same pair.
type Store interface {
	IsAlreadyNotified(ctx context.Context, transactionID, payeeKey string) (bool, error)
	MarkNotified(ctx context.Context, record Record) error
}

// Claimer is implemented by stores that can reserve a pair atomically.
// Claim returns false when the pair is already present. A claim that is
// neither released nor confirmed by MarkNotified lapses after its lease.
type Claimer interface {
	Claim(ctx context.Context, record Record) (bool, error)
	Release(ctx context.Context, transactionID, payeeKey string) error
}

// DefaultClaimLease bounds how long a claim from a crashed or cancelled run
// keeps its pair reported as notified.
const DefaultClaimLease = 15 * time.Minute

// ErrInvalidKey is returned when a dedup key part is empty.
var ErrInvalidKey = errors.New("transaction id and payee key are required")

// LookupError reports that the store could not answer.
type LookupError struct {
	TransactionID string
	PayeeKey      string
	Err           error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("duplicate lookup failed for transaction %s payee %s: %v", e.TransactionID, e.PayeeKey, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }
