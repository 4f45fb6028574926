package business

import (
	"strings"

	"github.com/google/uuid"

	"github.com/cyphera/sdd-notifier/internal/constants"
)

// NotifyRequest is one batch of payee notifications
type NotifyRequest struct {
	Details     []PayeeDetail     `json:"apDetails"`
	RequestType string            `json:"requestType"`
	EmailMap    map[string]string `json:"emailMap"`
}

// CardReference points at the encrypted card number of a payee
type CardReference struct {
	EncryptedPAN string `json:"encryptedPan"`
	KeyID        string `json:"keyId,omitempty"`
}

// PayeeDetail is the payment data for one payee
type PayeeDetail struct {
	TransactionID       string            `json:"transactionId"`
	PayeeID             string            `json:"payeeId"`
	PayeeName           string            `json:"payeeName"`
	PayeeNotifiableFlag string            `json:"payeeNotifiableFlag"`
	PayerName           string            `json:"payerName"`
	Amount              string            `json:"amount"`
	Currency            string            `json:"currency"`
	PaymentDate         string            `json:"paymentDate"`
	InvoiceNumber       string            `json:"invoiceNumber"`
	Card                CardReference     `json:"cpn"`
	Attributes          map[string]string `json:"attributes,omitempty"`
}

// IsNotifiable reports whether the payee asked to be notified
func (d PayeeDetail) IsNotifiable() bool {
	return strings.EqualFold(strings.TrimSpace(d.PayeeNotifiableFlag), constants.NotifiableFlagYes)
}

// PayeeKey identifies the payee for deduplication and recipient lookup.
func (d PayeeDetail) PayeeKey() string {
	if d.PayeeID != "" {
		return d.PayeeID
	}
	return d.TransactionID
}

// ArtifactKind is the format of a rendered artifact
type ArtifactKind string

const (
	ArtifactPDF ArtifactKind = "PDF"
	ArtifactCSV ArtifactKind = "CSV"
)

// Extension returns the file extension for the kind
func (k ArtifactKind) Extension() string {
	return strings.ToLower(string(k))
}

// ContentType returns the MIME type for the kind
func (k ArtifactKind) ContentType() string {
	switch k {
	case ArtifactPDF:
		return "application/pdf"
	case ArtifactCSV:
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}

// RenderedArtifact is one finished document for one record
type RenderedArtifact struct {
	Kind          ArtifactKind
	Content       []byte
	TransactionID string
	Filename      string
}

// NotificationUnit is the outbound notification for one record
type NotificationUnit struct {
	ID            uuid.UUID
	Recipient     string
	Subject       string
	RequestType   string
	TransactionID string
	PayeeKey      string
	PayeeName     string
	Artifacts     []RenderedArtifact
}
