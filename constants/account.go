package constants

import "strings"

// TaxRateType is the consumption-tax category attached to a receipt.
type TaxRateType string

const (
	TaxRateStandard TaxRateType = "10"   // standard 10% taxable purchase
	TaxRateReduced  TaxRateType = "8"    // reduced 8% taxable purchase
	TaxRateNone     TaxRateType = "none" // out of scope of consumption tax
)

// PaymentMethod is how a receipt was settled.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
)

// AccountTitle is a ledger account category assigned to a receipt.
type AccountTitle string

const (
	MeetingExpense       AccountTitle = "Meeting Expense"
	EntertainmentExpense AccountTitle = "Entertainment Expense"
	SuppliesExpense      AccountTitle = "Supplies Expense"
	TravelExpense        AccountTitle = "Travel Expense"
	Miscellaneous        AccountTitle = "Miscellaneous"
)

var allAccountTitles = []AccountTitle{
	MeetingExpense,
	EntertainmentExpense,
	SuppliesExpense,
	TravelExpense,
	Miscellaneous,
}

// AccountTitleStrings returns the account taxonomy as a string slice,
// suitable for embedding in analysis prompts.
func AccountTitleStrings() []string {
	result := make([]string, len(allAccountTitles))
	for i, t := range allAccountTitles {
		result[i] = string(t)
	}
	return result
}

// CanonicalAccountTitle maps a free-form label from the analysis service onto
// the fixed taxonomy. Unknown labels fall back to Miscellaneous.
func CanonicalAccountTitle(input string) (AccountTitle, bool) {
	if input == "" {
		return Miscellaneous, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]AccountTitle{
		"meeting":        MeetingExpense,
		"meeting fee":    MeetingExpense,
		"conference fee": MeetingExpense,
		"entertainment":  EntertainmentExpense,
		"gift":           EntertainmentExpense,
		"golf":           EntertainmentExpense,
		"supplies":       SuppliesExpense,
		"consumables":    SuppliesExpense,
		"stationery":     SuppliesExpense,
		"equipment":      SuppliesExpense,
		"travel":         TravelExpense,
		"transportation": TravelExpense,
		"lodging":        TravelExpense,
		"taxi":           TravelExpense,
	}
	if t, ok := synonyms[normalized]; ok {
		return t, true
	}

	for _, t := range allAccountTitles {
		if normalized == strings.ToLower(string(t)) {
			return t, true
		}
	}
	return Miscellaneous, false
}
