package render

import (
	"encoding/xml"
	"sort"
	"time"

	"github.com/cyphera/sdd-notifier/internal/cardcrypto"
	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// Slot names bound from a payee detail.
const (
	SlotTransactionID    = "TransactionId"
	SlotPayeeID          = "PayeeId"
	SlotPayeeName        = "PayeeName"
	SlotPayerName        = "PayerName"
	SlotAmount           = "Amount"
	SlotCurrency         = "Currency"
	SlotPaymentDate      = "PaymentDate"
	SlotInvoiceNumber    = "InvoiceNumber"
	SlotMaskedCardNumber = "MaskedCardNumber"
	SlotCardLast4        = "CardLast4"
	SlotRequestType      = "RequestType"
	SlotGeneratedAt      = "GeneratedAt"
)

// Field is one named value in the document tree.
type Field struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// Document is the structured tree built for one payee record. Empty values are
// left out so that a template requiring them fails.
type Document struct {
	XMLName     xml.Name `xml:"payeeNotification"`
	RequestType string   `xml:"requestType,attr"`
	GeneratedAt string   `xml:"generatedAt,attr"`
	Fields      []Field  `xml:"fields>field"`
	Attributes  []Field  `xml:"attributes>attribute"`

	index map[string]string
}

// BuildDocument binds detail and the decrypted card to named slots.
func BuildDocument(detail business.PayeeDetail, card *cardcrypto.DecryptedCard, requestType string, now time.Time) *Document {
	generatedAt := now.UTC().Format(time.RFC3339)
	doc := &Document{
		RequestType: requestType,
		GeneratedAt: generatedAt,
	}

	doc.add(SlotTransactionID, detail.TransactionID)
	doc.add(SlotPayeeID, detail.PayeeID)
	doc.add(SlotPayeeName, detail.PayeeName)
	doc.add(SlotPayerName, detail.PayerName)
	doc.add(SlotAmount, detail.Amount)
	doc.add(SlotCurrency, detail.Currency)
	doc.add(SlotPaymentDate, detail.PaymentDate)
	doc.add(SlotInvoiceNumber, detail.InvoiceNumber)
	doc.add(SlotMaskedCardNumber, card.Masked())
	doc.add(SlotCardLast4, card.Last4())
	doc.add(SlotRequestType, requestType)
	doc.add(SlotGeneratedAt, generatedAt)

	names := make([]string, 0, len(detail.Attributes))
	for name := range detail.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value := detail.Attributes[name]
		if value == "" {
			continue
		}
		doc.Attributes = append(doc.Attributes, Field{Name: name, Value: value})
	}

	return doc
}

func (d *Document) add(name, value string) {
	if value == "" {
		return
	}
	d.Fields = append(d.Fields, Field{Name: name, Value: value})
}

// Slot looks a value up by name. Core fields win over attributes.
func (d *Document) Slot(name string) (string, bool) {
	if d.index == nil {
		d.index = make(map[string]string, len(d.Fields)+len(d.Attributes))
		for _, f := range d.Attributes {
			d.index[f.Name] = f.Value
		}
		for _, f := range d.Fields {
			d.index[f.Name] = f.Value
		}
	}
	v, ok := d.index[name]
	return v, ok
}

// XML serializes the document tree.
func (d *Document) XML() ([]byte, error) {
	return xml.MarshalIndent(d, "", "  ")
}
