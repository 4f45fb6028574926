package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	"github.com/cyphera/sdd-notifier/internal/dedup"
	"github.com/cyphera/sdd-notifier/internal/notify"
	"github.com/cyphera/sdd-notifier/internal/render"
	"github.com/cyphera/sdd-notifier/internal/services"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{name: "nil", err: nil, wantKind: ""},
		{name: "format", err: &cardcrypto.FormatError{Reason: "odd length"}, wantKind: services.KindFormat},
		{
			name:     "format wrapped in decryption",
			err:      &cardcrypto.DecryptionError{Reason: "invalid ciphertext encoding", Err: &cardcrypto.FormatError{Reason: "invalid character"}},
			wantKind: services.KindFormat,
		},
		{name: "decryption", err: &cardcrypto.DecryptionError{Reason: "bad padding"}, wantKind: services.KindDecryption},
		{name: "render", err: &render.RenderError{Stage: "transform", Reason: "missing slot"}, wantKind: services.KindRender},
		{name: "lookup", err: &dedup.LookupError{TransactionID: "T1", PayeeKey: "P1", Err: errors.New("timeout")}, wantKind: services.KindLookup},
		{name: "validation", err: &notify.ValidationError{Field: "recipient", Reason: "missing"}, wantKind: services.KindValidation},
		{name: "transport wrapped", err: fmt.Errorf("send: %w", &notify.TransportError{Err: errors.New("503")}), wantKind: services.KindTransport},
		{name: "context", err: context.Canceled, wantKind: services.KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, reason := services.ClassifyError(tt.err)
			assert.Equal(t, tt.wantKind, kind)
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), reason)
			} else {
				assert.Empty(t, reason)
			}
		})
	}
}

func TestBatchFatalError(t *testing.T) {
	cause := errors.New("bad json")
	err := &services.BatchFatalError{Reason: "unreadable request", Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unreadable request")
	assert.Equal(t, "batch rejected: request is nil", (&services.BatchFatalError{Reason: "request is nil"}).Error())
}
