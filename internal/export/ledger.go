package export

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ktanaka/receipt-ledger/constants"
	"github.com/ktanaka/receipt-ledger/internal/record"
)

// invoiceIDPattern is the qualified-invoice registration number shape: the
// letter T followed by exactly 13 digits.
var invoiceIDPattern = regexp.MustCompile(`^T\d{13}$`)

// Fixed cell labels of the ledger dialect.
const (
	labelTaxable10   = "taxable purchase 10%"
	labelTaxable8    = "taxable purchase 8%"
	labelOutOfScope  = "out of scope"
	labelEligible    = "eligible"
	labelCash        = "cash"
	labelPayable     = "accrued payable"
	labelReducedNote = "（reduced rate note）"
	fallbackShopName = "Unnamed"
)

// Columns is the fixed width of one ledger row.
const Columns = 27

// LedgerRow is one positional 27-column export line. Rows are ephemeral:
// recomputed on every export, never persisted apart from their records.
type LedgerRow [Columns]string

// Meta carries the shared generation timestamp and actor label stamped onto
// the audit columns of every row in one export pass. Injecting it keeps the
// engine referentially transparent.
type Meta struct {
	GeneratedAt time.Time
	Actor       string
}

// header is the fixed first row of the export document.
var header = [Columns]string{
	"No.",
	"Transaction Date",
	"Debit Account",
	"Debit Sub Account",
	"Debit Department",
	"Debit Counterparty",
	"Debit Tax Category",
	"Debit Invoice",
	"Debit Amount",
	"Debit Tax Amount",
	"Credit Account",
	"Credit Sub Account",
	"Credit Department",
	"Credit Counterparty",
	"Credit Tax Category",
	"Credit Invoice",
	"Credit Amount",
	"Credit Tax Amount",
	"Description",
	"Journal Memo",
	"Tag",
	"Journal Type",
	"Adjusting Entry",
	"Created At",
	"Created By",
	"Updated At",
	"Updated By",
}

// BuildRows derives one ledger row per input item, in input order, using
// 1-based sequence numbers. Identical input in identical order always yields
// identical rows for a given Meta.
func BuildRows(items []*record.Fields, meta Meta) []LedgerRow {
	nowStr := meta.GeneratedAt.Format("2006/01/02 15:04:05")
	actor := meta.Actor
	if actor == "" {
		actor = "System"
	}

	rows := make([]LedgerRow, 0, len(items))
	for i, item := range items {
		shop := item.ShopName
		if shop == "" {
			shop = fallbackShopName
		}
		account := item.AccountTitle
		if account == "" {
			account = constants.Miscellaneous
		}

		amount := strconv.FormatInt(item.Amount, 10)

		rows = append(rows, LedgerRow{
			strconv.Itoa(i + 1),                // 1: sequence number
			displayDate(item.TransactionDate),  // 2: transaction date
			string(account),                    // 3: debit account
			"",                                 // 4: debit sub account
			"",                                 // 5: debit department
			shop,                               // 6: debit counterparty
			debitTaxCategory(item.TaxRateType), // 7: debit tax category
			invoiceEligibility(item),           // 8: debit invoice eligibility
			amount,                             // 9: debit amount
			"0",                                // 10: debit tax amount
			creditAccount(item.PaymentMethod),  // 11: credit account
			"",                                 // 12: credit sub account
			"",                                 // 13: credit department
			"",                                 // 14: credit counterparty
			labelOutOfScope,                    // 15: credit tax category
			labelOutOfScope,                    // 16: credit invoice
			amount,                             // 17: credit amount
			"0",                                // 18: credit tax amount
			description(item, shop),            // 19: description
			"",                                 // 20: journal memo
			item.Tag,                           // 21: tag
			"",                                 // 22: journal type
			"",                                 // 23: adjusting entry
			nowStr,                             // 24: created at
			actor,                              // 25: created by
			nowStr,                             // 26: updated at
			actor,                              // 27: updated by
		})
	}
	return rows
}

// RenderCSV renders the header and rows as the final export document: every
// cell quoted with embedded quotes doubled, rows newline-joined.
func RenderCSV(rows []LedgerRow) string {
	var b strings.Builder
	writeRow(&b, header)
	for _, row := range rows {
		b.WriteString("\n")
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, row [Columns]string) {
	for i, cell := range row {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`"`)
		b.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		b.WriteString(`"`)
	}
}

// displayDate rewrites the ISO calendar date separators for the ledger
// dialect (2024-03-01 -> 2024/03/01).
func displayDate(isoDate string) string {
	return strings.ReplaceAll(isoDate, "-", "/")
}

func debitTaxCategory(t constants.TaxRateType) string {
	switch t {
	case constants.TaxRateStandard:
		return labelTaxable10
	case constants.TaxRateReduced:
		return labelTaxable8
	default:
		return labelOutOfScope
	}
}

// invoiceEligibility is "eligible" only for a well-formed registration number
// on a taxable purchase; everything else is out of scope.
func invoiceEligibility(item *record.Fields) string {
	if item.InvoiceID != "" && invoiceIDPattern.MatchString(item.InvoiceID) && item.TaxRateType != constants.TaxRateNone {
		return labelEligible
	}
	return labelOutOfScope
}

func creditAccount(m constants.PaymentMethod) string {
	if m == constants.PaymentCard {
		return labelPayable
	}
	return labelCash
}

// description composes the free-text column. Meeting-expense rows carry the
// headcount and participant list; all other rows carry the remarks. Optional
// segments are omitted entirely when their source field is empty, and the
// reduced-rate note is appended only for 8% purchases.
func description(item *record.Fields, shop string) string {
	var b strings.Builder
	b.WriteString(shop)

	if item.AccountTitle == constants.MeetingExpense {
		people := item.PeopleCount
		if people <= 0 {
			people = 1
		}
		b.WriteString(fmt.Sprintf(" / %d people", people))
		if item.Participants != "" {
			b.WriteString(" / ")
			b.WriteString(item.Participants)
		}
	} else if item.Remarks != "" {
		b.WriteString(" / ")
		b.WriteString(item.Remarks)
	}

	if item.InvoiceID != "" {
		b.WriteString(" / ")
		b.WriteString(item.InvoiceID)
	}
	if item.TaxRateType == constants.TaxRateReduced {
		b.WriteString(labelReducedNote)
	}
	return b.String()
}
