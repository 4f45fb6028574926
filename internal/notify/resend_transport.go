package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/cyphera/sdd-notifier/internal/constants"
	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// EmailSender is the part of the Resend client the transport uses.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type ResendTransport struct {
	emails    EmailSender
	logger    *zap.Logger
	fromEmail string
	fromName  string
	htmlBody  *template.Template
}

// NewResendTransport creates a transport backed by a Resend API client.
func NewResendTransport(apiKey, fromEmail, fromName string, logger *zap.Logger) *ResendTransport {
	client := resend.NewClient(apiKey)
	return NewResendTransportWithSender(client.Emails, fromEmail, fromName, logger)
}

func NewResendTransportWithSender(emails EmailSender, fromEmail, fromName string, logger *zap.Logger) *ResendTransport {
	return &ResendTransport{
		emails:    emails,
		logger:    logger,
		fromEmail: fromEmail,
		fromName:  fromName,
		htmlBody:  template.Must(template.New("email").Parse(htmlBodyTemplate)),
	}
}

// ConcurrencySafe is true: the Resend client shares one http.Client.
func (t *ResendTransport) ConcurrencySafe() bool { return true }

// bodyData contains the data for the email body
type bodyData struct {
	PayeeName     string
	TransactionID string
	RequestType   string
	Attachments   []string
}

const htmlBodyTemplate = `<p>Hello {{if .PayeeName}}{{.PayeeName}}{{else}}there{{end}},</p>
<p>Please find attached the {{.RequestType}} payment notification for transaction <strong>{{.TransactionID}}</strong>.</p>
<ul>{{range .Attachments}}<li>{{.}}</li>{{end}}</ul>
<p>This message was generated automatically. Please do not reply.</p>`

func (t *ResendTransport) Send(ctx context.Context, unit *business.NotificationUnit) (string, error) {
	data := bodyData{
		PayeeName:     unit.PayeeName,
		TransactionID: unit.TransactionID,
		RequestType:   unit.RequestType,
	}
	attachments := make([]*resend.Attachment, 0, len(unit.Artifacts))
	for _, artifact := range unit.Artifacts {
		data.Attachments = append(data.Attachments, artifact.Filename)
		attachments = append(attachments, &resend.Attachment{
			Content:     artifact.Content,
			Filename:    artifact.Filename,
			ContentType: artifact.Kind.ContentType(),
		})
	}

	var html bytes.Buffer
	if err := t.htmlBody.Execute(&html, data); err != nil {
		return "", &TransportError{Retryable: false, Err: fmt.Errorf("failed to render email body: %w", err)}
	}

	params := &resend.SendEmailRequest{
		From:        fmt.Sprintf("%s <%s>", t.fromName, t.fromEmail),
		To:          []string{unit.Recipient},
		Subject:     unit.Subject,
		Html:        html.String(),
		Text:        textBody(data),
		Attachments: attachments,
		Headers: map[string]string{
			"X-Entity-Ref-ID": unit.ID.String(),
		},
		Tags: []resend.Tag{
			{Name: "category", Value: constants.NotificationCategory},
			{Name: "request_type", Value: tagValue(unit.RequestType)},
		},
	}

	sent, err := t.emails.SendWithContext(ctx, params)
	if err != nil {
		t.logger.Warn("resend rejected notification",
			zap.Error(err),
			zap.String("transaction_id", unit.TransactionID),
			zap.String("notification_id", unit.ID.String()))
		return "", &TransportError{Retryable: isRetryableResendError(ctx, err), Err: err}
	}

	t.logger.Debug("notification email sent",
		zap.String("email_id", sent.Id),
		zap.String("transaction_id", unit.TransactionID))

	return sent.Id, nil
}

func textBody(data bodyData) string {
	var b strings.Builder
	name := data.PayeeName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	fmt.Fprintf(&b, "Please find attached the %s payment notification for transaction %s.\n\n", data.RequestType, data.TransactionID)
	for _, a := range data.Attachments {
		fmt.Fprintf(&b, "- %s\n", a)
	}
	return b.String()
}

// tagValue keeps only the characters Resend accepts in tag values.
func tagValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// Resend reports API failures as plain errors carrying the response message.
var permanentResendMarkers = []string{
	"validation_error",
	"invalid",
	"missing_required_field",
	"not allowed",
	"restricted_api_key",
	"unauthorized",
	"forbidden",
}

func isRetryableResendError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range permanentResendMarkers {
		if strings.Contains(msg, marker) {
			return false
		}
	}
	return true
}
