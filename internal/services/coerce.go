package services

import (
	"fmt"
	"strings"
)

// FallbackNoItems is the placeholder a notification carries when a gathering
// has no provided items. The transport only accepts text, so the absence of
// items must still be spelled out.
const FallbackNoItems = "Nenhum item fornecido"

// coercePayload flattens an arbitrary payload mapping into the text-only
// form the push transport accepts. This is the single place payload values
// are coerced; call sites never do it themselves.
//
// Coercion table: strings pass through; sequences are comma-joined; nil or
// empty values become the field's fallback (empty string unless the caller
// registered one); anything else is formatted with fmt.
func coercePayload(payload map[string]any, fallbacks map[string]string) map[string]string {
	if len(payload) == 0 && len(fallbacks) == 0 {
		return nil
	}
	out := make(map[string]string, len(payload))
	for key, val := range payload {
		text, ok := coerceValue(val)
		if !ok {
			text = fallbacks[key]
		}
		out[key] = text
	}
	for key, fb := range fallbacks {
		if _, present := out[key]; !present {
			out[key] = fb
		}
	}
	return out
}

// coerceValue returns the text form of val and whether val carried any
// content at all.
func coerceValue(val any) (string, bool) {
	switch v := val.(type) {
	case nil:
		return "", false
	case string:
		return v, v != ""
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return strings.Join(v, ","), true
	case []any:
		if len(v) == 0 {
			return "", false
		}
		parts := make([]string, 0, len(v))
		for _, item := range v {
			text, _ := coerceValue(item)
			parts = append(parts, text)
		}
		return strings.Join(parts, ","), true
	default:
		return fmt.Sprint(v), true
	}
}
