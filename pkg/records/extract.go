// Package records pulls structured job offers out of the agent's final answer.
//
// The model is asked to end with a JSON array but narrates around it, so
// Extract is deliberately narrow: take the text between the first '[' and the
// last ']' and decode it. Text with no brackets at all, such as
// "No offers found.", is an empty result.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoPayload means the text holds a bracketed span that is not a JSON array.
var ErrNoPayload = errors.New("no structured payload in output")

// Record is one row: field name to value.
type Record map[string]any

// Extract decodes the outermost bracketed JSON array in text. Text without
// a bracketed span yields no records and no error; malformed JSON yields
// ErrNoPayload wrapping the decode error. Non-object elements are skipped.
func Extract(text string) ([]Record, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, nil
	}

	dec := json.NewDecoder(strings.NewReader(text[start : end+1]))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPayload, err)
	}

	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Normalize(obj))
	}
	return out, nil
}

// Normalize unwraps the {"fields": {...}} envelope the tabular API uses, so
// records round-trip whether or not the model copied the envelope. Envelope
// keys such as "id" and "createdTime" are dropped with it.
func Normalize(rec map[string]any) Record {
	if inner, ok := rec["fields"].(map[string]any); ok {
		return Record(inner)
	}
	return Record(rec)
}

// Text returns the value of field as a string, or "".
func (r Record) Text(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// MarshalIndent pretty-prints records as a JSON array.
func MarshalIndent(recs []Record) ([]byte, error) {
	if recs == nil {
		recs = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recs); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
