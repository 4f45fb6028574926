package dedup

import (
	"context"
	"fmt"
	"time"
)

// Gate answers whether a (transaction, payee) pair was already notified.
// Every call goes to the store; nothing is cached between records.
type Gate struct {
	store Store
	now   func() time.Time
}

func NewGate(store Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// Exists queries the store. Store failures come back as *LookupError.
func (g *Gate) Exists(ctx context.Context, transactionID, payeeKey string) (bool, error) {
	if transactionID == "" || payeeKey == "" {
		return false, &LookupError{TransactionID: transactionID, PayeeKey: payeeKey, Err: ErrInvalidKey}
	}

	found, err := g.store.IsAlreadyNotified(ctx, transactionID, payeeKey)
	if err != nil {
		return false, &LookupError{TransactionID: transactionID, PayeeKey: payeeKey, Err: err}
	}
	return found, nil
}

// SupportsClaim reports whether the store can reserve pairs atomically, which
// is what makes concurrent record processing safe.
func (g *Gate) SupportsClaim() bool {
	_, ok := g.store.(Claimer)
	return ok
}

// Claim atomically reserves the pair. It returns false for a duplicate.
func (g *Gate) Claim(ctx context.Context, transactionID, payeeKey, requestType string) (bool, error) {
	if transactionID == "" || payeeKey == "" {
		return false, &LookupError{TransactionID: transactionID, PayeeKey: payeeKey, Err: ErrInvalidKey}
	}

	claimer, ok := g.store.(Claimer)
	if !ok {
		return false, &LookupError{TransactionID: transactionID, PayeeKey: payeeKey, Err: fmt.Errorf("store %T cannot claim", g.store)}
	}

	claimed, err := claimer.Claim(ctx, Record{
		TransactionID: transactionID,
		PayeeKey:      payeeKey,
		RequestType:   requestType,
		SentAt:        g.now().UTC(),
	})
	if err != nil {
		return false, &LookupError{TransactionID: transactionID, PayeeKey: payeeKey, Err: err}
	}
	return claimed, nil
}

// Release drops a claim so that a failed record can be retried by a later batch.
func (g *Gate) Release(ctx context.Context, transactionID, payeeKey string) error {
	claimer, ok := g.store.(Claimer)
	if !ok {
		return nil
	}
	if err := claimer.Release(ctx, transactionID, payeeKey); err != nil {
		return fmt.Errorf("failed to release claim: %w", err)
	}
	return nil
}

// Record marks the pair as notified.
func (g *Gate) Record(ctx context.Context, transactionID, payeeKey, requestType, messageID string) error {
	err := g.store.MarkNotified(ctx, Record{
		TransactionID: transactionID,
		PayeeKey:      payeeKey,
		RequestType:   requestType,
		MessageID:     messageID,
		SentAt:        g.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}
