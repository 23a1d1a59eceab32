package analysis

import (
	"fmt"
	"strings"
)

// accountRules is the account-determination decision tree embedded in every
// analysis request. The service must pick exactly one accountTitle using it.
const accountRules = `Determine 'accountTitle' strictly by these rules:
1. Restaurants, izakaya, cafes, and other dining:
   - 'Meeting Expense' when the context is a business meeting.
   - 'Entertainment Expense' when entertaining clients; prefer 'Entertainment Expense' when unsure.
2. Gifts, flowers, golf courses, event tickets: 'Entertainment Expense'.
3. Stationery, daily goods, equipment below the capitalization threshold: 'Supplies Expense'.
4. Trains, buses, taxis, lodging: 'Travel Expense'.
If none of the rules apply, use 'Miscellaneous'.`

// buildImagePrompt composes the instruction for single-receipt image analysis.
func buildImagePrompt() string {
	parts := []string{
		"Analyze this receipt image and extract accurate accounting data.",
		"Reading the invoice registration number (letter T followed by exactly 13 digits) has the highest priority; omit 'invoiceId' when no such number is printed.",
		"Use ISO-8601 dates (YYYY-MM-DD) for 'transactionDate'.",
		"'amount' is the gross total including tax; 'taxAmount' is the consumption tax portion.",
		accountRules,
		"Return ONLY JSON matching the required shape. Never output null; omit absent optional fields.",
	}
	return strings.Join(parts, " ")
}

// buildVideoPrompt composes the instruction for the sampled-frame batch. Each
// frame follows a "[Time: X.Xs]" marker; the service must bind every detected
// receipt to the marker of the frame it appears in.
func buildVideoPrompt(intervalSeconds float64) string {
	parts := []string{
		fmt.Sprintf("These images are frames sampled from a video at %.1f second intervals.", intervalSeconds),
		"Each image is immediately preceded by its timestamp as '[Time: X.Xs]'.",
		"Use these markers strictly to assign the exact 'timestampSeconds' where each receipt is visible.",
		"Consistency between image and data has the highest priority; never associate data with the wrong frame.",
		"When the same receipt spans several frames, merge its data and report the sharpest frame's timestamp.",
		accountRules,
		"Return ONLY a JSON array, one object per distinct receipt. Never output null; omit absent optional fields.",
	}
	return strings.Join(parts, " ")
}
