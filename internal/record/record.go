package record

import (
	"time"

	"github.com/google/uuid"

	"github.com/ktanaka/receipt-ledger/constants"
)

// LineItem is one free-form purchased item on a receipt.
type LineItem struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Fields is the reviewed, structured receipt data. Present only on records in
// StatusSuccess.
type Fields struct {
	ShopName        string                  `json:"shop_name"`
	TransactionDate string                  `json:"transaction_date"` // YYYY-MM-DD
	Amount          int64                   `json:"amount"`           // gross, minor-unit-free
	TaxAmount       int64                   `json:"tax_amount"`
	TaxRateType     constants.TaxRateType   `json:"tax_rate_type"`
	Currency        string                  `json:"currency"`
	Items           []LineItem              `json:"items"`
	AccountTitle    constants.AccountTitle  `json:"account_title"`
	PaymentMethod   constants.PaymentMethod `json:"payment_method"`
	InvoiceID       string                  `json:"invoice_id,omitempty"` // T + 13 digits when valid
	PeopleCount     int                     `json:"people_count"`
	Participants    string                  `json:"participants,omitempty"`
	Remarks         string                  `json:"remarks,omitempty"`
	Tag             string                  `json:"tag,omitempty"`
	Memo            string                  `json:"memo,omitempty"`
}

// Record is one tracked receipt item, from submission through review.
//
// Invariants: Fields and ErrorMessage are mutually exclusive and imply
// StatusSuccess and StatusError respectively; SourceTimestampSeconds and
// ArchivalFrame travel together on video-derived records. All transitions go
// through the Mark* methods so the invariants hold by construction.
type Record struct {
	ID                     uuid.UUID              `json:"id"`
	SourceName             string                 `json:"source_name"`
	Status                 constants.RecordStatus `json:"status"`
	Fields                 *Fields                `json:"fields,omitempty"`
	ErrorMessage           string                 `json:"error_message,omitempty"`
	SourceTimestampSeconds *float64               `json:"source_timestamp_seconds,omitempty"`
	ArchivalFrame          []byte                 `json:"archival_frame,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
}

// NewProcessing creates the placeholder record registered the instant a file
// is submitted, before any network interaction.
func NewProcessing(sourceName string) *Record {
	return &Record{
		ID:         uuid.New(),
		SourceName: sourceName,
		Status:     constants.StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}
}

// MarkSuccess transitions a record to its terminal success state.
func (r *Record) MarkSuccess(fields *Fields, archivalFrame []byte) {
	r.Status = constants.StatusSuccess
	r.Fields = fields
	r.ErrorMessage = ""
	r.ArchivalFrame = archivalFrame
}

// MarkError transitions a record to its terminal error state.
func (r *Record) MarkError(message string) {
	r.Status = constants.StatusError
	r.Fields = nil
	r.ArchivalFrame = nil
	r.SourceTimestampSeconds = nil
	r.ErrorMessage = message
}

// NewVideoSuccess creates a success record for one receipt detected in a
// video, carrying the offset it was extracted from and its archival frame.
func NewVideoSuccess(sourceName string, offset float64, fields *Fields, archivalFrame []byte) *Record {
	r := &Record{
		ID:                     uuid.New(),
		SourceName:             sourceName,
		Status:                 constants.StatusSuccess,
		Fields:                 fields,
		SourceTimestampSeconds: &offset,
		ArchivalFrame:          archivalFrame,
		CreatedAt:              time.Now().UTC(),
	}
	return r
}
