package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// stripFences removes a wrapping markdown code block if the model added one
// despite being told not to.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// validateAgainstSchema validates data against schemaMap.
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("response.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match contract: %w", err)
	}
	return nil
}

// decodeImageResponse parses and validates an image-mode response body.
func decodeImageResponse(text string) (ReceiptFields, error) {
	raw := []byte(stripFences(text))
	if len(raw) == 0 {
		return ReceiptFields{}, fmt.Errorf("empty response")
	}
	if err := validateAgainstSchema(imageResponseSchema(), raw); err != nil {
		return ReceiptFields{}, err
	}
	var out ReceiptFields
	if err := json.Unmarshal(raw, &out); err != nil {
		return ReceiptFields{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	return out, nil
}

// decodeVideoResponse parses and validates a video-mode response body.
func decodeVideoResponse(text string) ([]VideoCandidate, error) {
	raw := []byte(stripFences(text))
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty response")
	}
	if err := validateAgainstSchema(videoResponseSchema(), raw); err != nil {
		return nil, err
	}
	var out []VideoCandidate
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal candidates: %w", err)
	}
	return out, nil
}
