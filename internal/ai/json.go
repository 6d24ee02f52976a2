package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// jsonInstruction is appended to every JSON-mode prompt; models still wrap the
// payload in code fences often enough that extractJSON must run regardless.
const jsonInstruction = "\n\nIMPORTANT: Return ONLY valid JSON. No explanations, no markdown, no code blocks. Just raw JSON."

// withJSONDefaults prepares a request for JSON mode: the instruction is
// appended and the temperature is lowered, unless the caller set one.
func withJSONDefaults(params GenerateParams) GenerateParams {
	params.Prompt += jsonInstruction
	if params.Temperature == nil {
		low := 0.1
		params.Temperature = &low
	}
	return params
}

// extractJSON strips markdown code fences from a model response and verifies
// the remainder is syntactically valid JSON.
func extractJSON(text string) (json.RawMessage, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("%w: %s", ErrMalformedJSON, truncate(cleaned, 200))
	}
	return json.RawMessage(cleaned), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
