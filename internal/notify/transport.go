package notify

import (
	"context"

	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// Transport delivers one notification and returns the provider message ID.
type Transport interface {
	Send(ctx context.Context, unit *business.NotificationUnit) (string, error)
}

// ConcurrencySafe is implemented by transports that may be called from
// several goroutines at once.
type ConcurrencySafe interface {
	ConcurrencySafe() bool
}

// IsConcurrencySafe reports whether t declared itself safe for concurrent use.
func IsConcurrencySafe(t Transport) bool {
	cs, ok := t.(ConcurrencySafe)
	return ok && cs.ConcurrencySafe()
}
