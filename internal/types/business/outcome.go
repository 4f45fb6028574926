package business

import (
	"time"

	"github.com/google/uuid"

	"github.com/cyphera/sdd-notifier/internal/constants"
)

// RecordStatus is the terminal state of one notifiable record
type RecordStatus string

const (
	RecordSent             RecordStatus = constants.SentStatus
	RecordSkippedDuplicate RecordStatus = constants.SkippedDuplicateStatus
	RecordFailed           RecordStatus = constants.FailedStatus
)

// RecordOutcome is the fate of one notifiable record
type RecordOutcome struct {
	Index         int          `json:"index"`
	TransactionID string       `json:"transactionId"`
	PayeeKey      string       `json:"payeeKey"`
	Status        RecordStatus `json:"status"`
	ErrorKind     string       `json:"errorKind,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	MessageID     string       `json:"messageId,omitempty"`
	Attempts      int          `json:"attempts,omitempty"`
}

// BatchOutcome aggregates the outcomes of a batch run
type BatchOutcome struct {
	BatchID                uuid.UUID       `json:"batchId"`
	RequestType            string          `json:"requestType"`
	Results                []RecordOutcome `json:"results"`
	Total                  int             `json:"total"`
	Notifiable             int             `json:"notifiable"`
	Excluded               int             `json:"excluded"`
	Sent                   int             `json:"sent"`
	SkippedDuplicate       int             `json:"skippedDuplicate"`
	Failed                 int             `json:"failed"`
	ExcludedTransactionIDs []string        `json:"excludedTransactionIds,omitempty"`
	StartedAt              time.Time       `json:"startedAt"`
	CompletedAt            time.Time       `json:"completedAt"`
}

// HasFailures reports whether any notifiable record failed
func (o *BatchOutcome) HasFailures() bool {
	return o.Failed > 0
}

// Tally recomputes the counters from Results.
func (o *BatchOutcome) Tally() {
	o.Notifiable = len(o.Results)
	o.Sent, o.SkippedDuplicate, o.Failed = 0, 0, 0
	for _, r := range o.Results {
		switch r.Status {
		case RecordSent:
			o.Sent++
		case RecordSkippedDuplicate:
			o.SkippedDuplicate++
		case RecordFailed:
			o.Failed++
		}
	}
	o.Excluded = len(o.ExcludedTransactionIDs)
	o.Total = o.Notifiable + o.Excluded
}
