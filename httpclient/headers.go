package httpclient

import (
	"bytes"
	"encoding/json"
	"slices"
	"strconv"
	"strings"
)

// CaptureHeaderLine appends the trimmed line to lines when it carries a
// "Name: value" pair. Status lines and the blank terminator are not stored.
// The raw length of line is always returned so transports can account for
// header bytes.
func CaptureHeaderLine(lines *[]string, line string) int {
	n := len(line)
	if strings.Contains(line, ":") {
		*lines = append(*lines, strings.TrimSpace(line))
	}
	return n
}

// AccessMap is a key to value(s) view of a header sequence. A name seen once
// maps to a string; a repeated name maps to a []string in order of appearance.
// Keys iterate in order of first appearance.
type AccessMap struct {
	keys   []string
	values map[string]any
}

// PositionalKey returns the AccessMap key of the i-th entry that carries no
// colon. Header names are cut at the first colon, so a key starting with one
// can never collide with a named header.
func PositionalKey(i int) string { return ":" + strconv.Itoa(i) }

// ToAccessMap folds "Name: value" strings into an AccessMap. Entries without a
// colon are stored under PositionalKey(0), PositionalKey(1), ... Empty entries
// are skipped.
func ToAccessMap(lines []string) AccessMap {
	m := AccessMap{values: make(map[string]any, len(lines))}
	positional := 0

	for _, line := range lines {
		if line == "" {
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if !found {
			m.set(PositionalKey(positional), line)
			positional++
			continue
		}

		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)

		switch existing := m.values[name].(type) {
		case nil:
			m.set(name, value)
		case string:
			m.values[name] = []string{existing, value}
		case []string:
			m.values[name] = append(existing, value)
		}
	}

	return m
}

func (m *AccessMap) set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Len returns the number of distinct keys
func (m AccessMap) Len() int { return len(m.keys) }

// Keys returns the keys in order of first appearance
func (m AccessMap) Keys() []string { return slices.Clone(m.keys) }

// Has reports whether key is present
func (m AccessMap) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Get returns the raw entry: a string, a []string or nil
func (m AccessMap) Get(key string) any { return m.values[key] }

// Value returns the first value stored under key
func (m AccessMap) Value(key string) string {
	switch v := m.values[key].(type) {
	case string:
		return v
	case []string:
		return v[0]
	default:
		return ""
	}
}

// Values returns every value stored under key
func (m AccessMap) Values(key string) []string {
	switch v := m.values[key].(type) {
	case string:
		return []string{v}
	case []string:
		return slices.Clone(v)
	default:
		return nil
	}
}

// Map returns the entries as a plain map, losing key order
func (m AccessMap) Map() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		if list, ok := v.([]string); ok {
			v = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the map as a JSON object preserving key order
func (m AccessMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
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
