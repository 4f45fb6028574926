package notify

import "fmt"

// ValidationError means a notification could not be assembled from the record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid notification %s: %s", e.Field, e.Reason)
}

// TransportError is a failed delivery. Retryable is false when sending again
// cannot succeed.
type TransportError struct {
	Retryable bool
	Attempts  int
	Err       error
}

func (e *TransportError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("delivery failed after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("delivery failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
