package render

import (
	"bytes"
	"encoding/csv"
)

// DefaultCSVColumns is the column order of the tabular artifact.
var DefaultCSVColumns = []string{
	SlotTransactionID,
	SlotPayeeID,
	SlotPayeeName,
	SlotPayerName,
	SlotAmount,
	SlotCurrency,
	SlotPaymentDate,
	SlotInvoiceNumber,
	SlotCardLast4,
	SlotRequestType,
	SlotGeneratedAt,
}

// WriteCSV writes a header row of columns and one row of slot values.
// Columns with no matching slot are written empty.
func WriteCSV(doc *Document, columns []string) ([]byte, error) {
	if len(columns) == 0 {
		return nil, &RenderError{Stage: stageCSV, Reason: "no columns configured"}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	row := make([]string, len(columns))
	for i, col := range columns {
		row[i], _ = doc.Slot(col)
	}

	if err := w.Write(columns); err != nil {
		return nil, &RenderError{Stage: stageCSV, Reason: "failed to write header", Err: err}
	}
	if err := w.Write(row); err != nil {
		return nil, &RenderError{Stage: stageCSV, Reason: "failed to write row", Err: err}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, &RenderError{Stage: stageCSV, Reason: "failed to flush", Err: err}
	}
	return buf.Bytes(), nil
}
