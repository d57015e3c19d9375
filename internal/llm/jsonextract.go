package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ExtractJSON pulls a JSON object out of raw LLM output — stripping
// ```json fenced blocks if present — repairs common malformations with
// jsonrepair, and unmarshals into a generic map. Any failure at any
// stage is reported as an error rather than panicking, so a caller can
// fall back to a deterministic path. The specialist agents and the
// coordinator use LLM output as narrative text only and do not call it.
func ExtractJSON(raw string) (map[string]any, error) {
	text := stripFence(raw)

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return nil, fmt.Errorf("llm: json repair failed: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("llm: unparseable json even after repair: %w", err)
	}
	return out, nil
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if idx := strings.Index(text, "```json"); idx != -1 {
		rest := text[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	if idx := strings.Index(text, "```"); idx != -1 {
		rest := text[idx+len("```"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}
	return text
}

// StringField reads a string field from a decoded JSON map, defaulting
// when absent or the wrong type.
func StringField(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// FloatField reads a numeric field, defaulting when absent or the
// wrong type.
func FloatField(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

// BoolField reads a boolean field, defaulting when absent or the wrong
// type.
func BoolField(m map[string]any, key string, def bool) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
