package services

import (
	"errors"
	"fmt"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	"github.com/cyphera/sdd-notifier/internal/dedup"
	"github.com/cyphera/sdd-notifier/internal/notify"
	"github.com/cyphera/sdd-notifier/internal/render"
)

// Error kinds reported in RecordOutcome.ErrorKind.
const (
	KindFormat     = "format"
	KindDecryption = "decryption"
	KindRender     = "render"
	KindLookup     = "lookup"
	KindValidation = "validation"
	KindTransport  = "transport"
	KindInternal   = "internal"
)

// BatchFatalError means the request as a whole cannot be processed.
type BatchFatalError struct {
	Reason string
	Err    error
}

func (e *BatchFatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch rejected: %s: %v", e.Reason, e.Err)
	}
	return "batch rejected: " + e.Reason
}

func (e *BatchFatalError) Unwrap() error { return e.Err }

// ClassifyError maps a per-record failure to its kind and a loggable reason.
// Format errors are checked first since decryption errors may wrap them.
func ClassifyError(err error) (kind, reason string) {
	if err == nil {
		return "", ""
	}

	var (
		formatErr     *cardcrypto.FormatError
		decryptErr    *cardcrypto.DecryptionError
		renderErr     *render.RenderError
		lookupErr     *dedup.LookupError
		validationErr *notify.ValidationError
		transportErr  *notify.TransportError
	)

	switch {
	case errors.As(err, &formatErr):
		return KindFormat, err.Error()
	case errors.As(err, &decryptErr):
		return KindDecryption, err.Error()
	case errors.As(err, &renderErr):
		return KindRender, err.Error()
	case errors.As(err, &lookupErr):
		return KindLookup, err.Error()
	case errors.As(err, &validationErr):
		return KindValidation, err.Error()
	case errors.As(err, &transportErr):
		return KindTransport, err.Error()
	default:
		return KindInternal, err.Error()
	}
}
