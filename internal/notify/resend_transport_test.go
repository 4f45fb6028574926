package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/resend/resend-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cyphera/sdd-notifier/internal/notify"
	"github.com/cyphera/sdd-notifier/internal/types/business"
)

type fakeSender struct {
	params []*resend.SendEmailRequest
	err    error
}

func (f *fakeSender) SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return nil, f.err
	}
	return &resend.SendEmailResponse{Id: "re_123"}, nil
}

func TestResendTransport_Send(t *testing.T) {
	sender := &fakeSender{}
	transport := notify.NewResendTransportWithSender(sender, "noreply@example.com", "Payments", zap.NewNop())

	unit := testUnit()
	unit.PayeeName = "Acme <Ltd>"
	unit.Artifacts = append(unit.Artifacts, business.RenderedArtifact{
		Kind: business.ArtifactCSV, Content: []byte("a,b\n1,2\n"), Filename: "SDD_T1.csv",
	})

	id, err := transport.Send(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, "re_123", id)

	require.Len(t, sender.params, 1)
	params := sender.params[0]
	assert.Equal(t, "Payments <noreply@example.com>", params.From)
	assert.Equal(t, []string{"payee@example.com"}, params.To)
	assert.Equal(t, unit.Subject, params.Subject)
	assert.Equal(t, unit.ID.String(), params.Headers["X-Entity-Ref-ID"])
	assert.Contains(t, params.Tags, resend.Tag{Name: "category", Value: "sdd_notification"})
	assert.Contains(t, params.Html, "Acme &lt;Ltd&gt;")
	assert.Contains(t, params.Html, "T1")
	assert.Contains(t, params.Text, "SDD_T1.csv")

	require.Len(t, params.Attachments, 2)
	assert.Equal(t, "SDD_T1.pdf", params.Attachments[0].Filename)
	assert.Equal(t, "application/pdf", params.Attachments[0].ContentType)
	assert.Equal(t, "text/csv", params.Attachments[1].ContentType)
}

func TestResendTransport_SendErrors(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantRetryable bool
	}{
		{name: "validation error", err: errors.New("[ERROR]: validation_error: Invalid `to` field"), wantRetryable: false},
		{name: "rate limited", err: errors.New("[ERROR]: Too many requests"), wantRetryable: true},
		{name: "network", err: errors.New("dial tcp: connection refused"), wantRetryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := notify.NewResendTransportWithSender(&fakeSender{err: tt.err}, "noreply@example.com", "Payments", zap.NewNop())

			id, err := transport.Send(context.Background(), testUnit())
			assert.Empty(t, id)

			var transportErr *notify.TransportError
			require.ErrorAs(t, err, &transportErr)
			assert.Equal(t, tt.wantRetryable, transportErr.Retryable)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
