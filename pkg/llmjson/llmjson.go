// Package llmjson pulls JSON objects out of free-form model replies.
//
// Models frequently wrap JSON in Markdown fences or surround it with prose.
// Extract takes the span from the first '{' to the last '}' after removing
// any fence markers; Decode unmarshals that span.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a reply contains no object span.
var ErrNoJSON = errors.New("no JSON object found in reply")

// StripFences removes a leading ```json or ``` fence and a trailing ``` fence.
func StripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

// Extract returns the object span of text, or false when there is none.
func Extract(text string) (string, bool) {
	cleaned := StripFences(text)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return cleaned[start : end+1], true
}

// Decode extracts the object span of text and unmarshals it into v.
func Decode(text string, v any) error {
	span, ok := Extract(text)
	if !ok {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), v); err != nil {
		return fmt.Errorf("decode model reply: %w", err)
	}
	return nil
}
