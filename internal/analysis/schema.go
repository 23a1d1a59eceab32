package analysis

// imageResponseSchema returns the JSON-Schema (draft 2020-12 subset) for the
// image-mode response. Required fields mirror the service contract; the
// response is rejected before use when any of them is missing.
func imageResponseSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"shopName":        map[string]any{"type": "string", "minLength": 1},
			"transactionDate": map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"amount":          map[string]any{"type": "number"},
			"taxAmount":       map[string]any{"type": "number"},
			"currency":        map[string]any{"type": "string", "minLength": 1},
			"accountTitle":    map[string]any{"type": "string", "minLength": 1},
			"invoiceId":       map[string]any{"type": "string"},
			"peopleCount":     map[string]any{"type": "integer", "minimum": 0},
			"participants":    map[string]any{"type": "string"},
			"paymentMethod":   map[string]any{"type": "string"},
			"memo":            map[string]any{"type": "string"},
		},
		"required": []string{"shopName", "transactionDate", "amount", "taxAmount", "currency", "accountTitle"},
	}
}

// videoResponseSchema returns the JSON-Schema for the video-mode response: an
// array of candidates each carrying the timestamp that binds it to a frame.
func videoResponseSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]any{
				"shopName":         map[string]any{"type": "string", "minLength": 1},
				"amount":           map[string]any{"type": "number"},
				"timestampSeconds": map[string]any{"type": "number", "minimum": 0},
				"accountTitle":     map[string]any{"type": "string", "minLength": 1},
				"transactionDate":  map[string]any{"type": "string"},
				"peopleCount":      map[string]any{"type": "integer", "minimum": 0},
				"participants":     map[string]any{"type": "string"},
				"paymentMethod":    map[string]any{"type": "string"},
				"invoiceId":        map[string]any{"type": "string"},
				"remarks":          map[string]any{"type": "string"},
			},
			"required": []string{"shopName", "amount", "timestampSeconds", "accountTitle"},
		},
	}
}
