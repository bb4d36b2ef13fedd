package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TemplateVariable is one named substitution value for a template send.
type TemplateVariable struct {
	Name  string
	Value string
}

// OrderedVariables is a variable map that keeps the key order of the JSON
// object it was decoded from. Template parameter substitution is positional,
// so the order callers write their variables in is part of the contract and
// cannot be round-tripped through a Go map.
type OrderedVariables []TemplateVariable

// UnmarshalJSON accepts a JSON object and records its keys in document order.
func (v *OrderedVariables) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("variables must be a JSON object")
	}

	out := OrderedVariables{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("invalid variable key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, TemplateVariable{Name: key, Value: stringifyValue(raw)})
	}

	// Consume closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}

	*v = out
	return nil
}

// MarshalJSON renders the variables back as a JSON object in stored order.
func (v OrderedVariables) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(kv.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// stringifyValue coerces a raw JSON value to its string representation.
// Strings are unquoted, numbers and booleans keep their literal text, null
// becomes empty. Nested objects and arrays are not meaningful as template
// parameters and collapse to their JSON text.
func stringifyValue(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
