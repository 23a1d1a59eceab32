package analysis

import (
	"context"
	"fmt"
)

// ReceiptFields is the structured object the service returns for one still
// image. Required fields are enforced by schema validation; the rest may be
// absent.
type ReceiptFields struct {
	ShopName        string  `json:"shopName"`
	TransactionDate string  `json:"transactionDate"` // YYYY-MM-DD
	Amount          float64 `json:"amount"`
	TaxAmount       float64 `json:"taxAmount"`
	Currency        string  `json:"currency"`
	AccountTitle    string  `json:"accountTitle"`
	InvoiceID       string  `json:"invoiceId,omitempty"` // T + 13 digits when present
	PeopleCount     int     `json:"peopleCount,omitempty"`
	Participants    string  `json:"participants,omitempty"`
	PaymentMethod   string  `json:"paymentMethod,omitempty"`
	Memo            string  `json:"memo,omitempty"`
}

// VideoCandidate is one detected receipt in a video analysis response,
// positioned by the timestamp markers interleaved with the sampled frames.
type VideoCandidate struct {
	ShopName         string  `json:"shopName"`
	Amount           float64 `json:"amount"`
	TimestampSeconds float64 `json:"timestampSeconds"`
	AccountTitle     string  `json:"accountTitle"`
	TransactionDate  string  `json:"transactionDate,omitempty"`
	PeopleCount      int     `json:"peopleCount,omitempty"`
	Participants     string  `json:"participants,omitempty"`
	PaymentMethod    string  `json:"paymentMethod,omitempty"`
	InvoiceID        string  `json:"invoiceId,omitempty"`
	Remarks          string  `json:"remarks,omitempty"`
}

// Frame is one sampled video frame handed to the service, tagged with its
// offset inside the source so the marker text can name it.
type Frame struct {
	Offset float64 // seconds
	JPEG   []byte
}

// Analyzer is the interface the pipeline depends on for the external
// vision-language service.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, jpeg []byte) (ReceiptFields, error)
	AnalyzeVideo(ctx context.Context, frames []Frame) ([]VideoCandidate, error)
}

// ServiceError reports an analysis service failure: transport, empty
// response, or a response that does not match the contract schema.
type ServiceError struct {
	Mode string // "image" | "video"
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("analysis service (%s mode): %v", e.Mode, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
