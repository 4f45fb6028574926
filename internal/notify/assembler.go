package notify

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// DefaultSubjectPrefix is used when the assembler has no prefix configured.
const DefaultSubjectPrefix = "Payment Notification"

// Assembler packages rendered artifacts into an outbound notification.
type Assembler struct {
	subjectPrefix string
}

func NewAssembler(subjectPrefix string) *Assembler {
	if strings.TrimSpace(subjectPrefix) == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &Assembler{subjectPrefix: subjectPrefix}
}

// Assemble builds the notification for one record. The recipient must be a
// single valid address and at least one artifact must be attached.
func (a *Assembler) Assemble(detail business.PayeeDetail, artifacts []business.RenderedArtifact, recipientEmail, requestType string) (*business.NotificationUnit, error) {
	recipient := strings.TrimSpace(recipientEmail)
	if recipient == "" {
		return nil, &ValidationError{Field: "recipient", Reason: fmt.Sprintf("no email address for payee %q", detail.PayeeKey())}
	}

	addr, err := mail.ParseAddress(recipient)
	if err != nil {
		return nil, &ValidationError{Field: "recipient", Reason: fmt.Sprintf("%q is not an email address", recipient)}
	}

	if len(artifacts) == 0 {
		return nil, &ValidationError{Field: "artifacts", Reason: "nothing to attach"}
	}
	for _, artifact := range artifacts {
		if len(artifact.Content) == 0 {
			return nil, &ValidationError{Field: "artifacts", Reason: fmt.Sprintf("%s artifact is empty", artifact.Kind)}
		}
	}

	return &business.NotificationUnit{
		ID:            uuid.New(),
		Recipient:     addr.Address,
		Subject:       fmt.Sprintf("%s - Transaction %s", a.subjectPrefix, detail.TransactionID),
		RequestType:   requestType,
		TransactionID: detail.TransactionID,
		PayeeKey:      detail.PayeeKey(),
		PayeeName:     detail.PayeeName,
		Artifacts:     artifacts,
	}, nil
}
