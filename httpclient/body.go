package httpclient

import (
	"encoding/json"
	"io"
	"reflect"
	"strings"
	"time"
)

// EncodeBody decides what goes on the wire for a non-GET request. It reports
// ok=false for empty data, meaning no body field is sent at all. Structured data
// (maps, slices, structs) becomes a JSON string when isJSON is set; anything else
// passes through unchanged and is encoded by the transport.
func EncodeBody(data any, isJSON bool) (payload any, ok bool, err error) {
	if isEmptyData(data) {
		return nil, false, nil
	}
	if isJSON && isStructured(data) {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, false, NewArgumentError(err.Error(), "data")
		}
		return string(b), true, nil
	}
	return data, true, nil
}

func isEmptyData(data any) bool {
	switch v := data.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	case bool:
		return !v
	case io.Reader:
		return false
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func isStructured(data any) bool {
	switch data.(type) {
	case string, []byte, io.Reader, time.Time:
		return false
	}
	rv := reflect.ValueOf(data)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	default:
		return false
	}
}

// IsJSON reports whether body looks like a JSON object or array
func IsJSON(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// IsXML reports whether body looks like an XML document
func IsXML(body string) bool {
	trimmed := strings.TrimSpace(body)
	return strings.HasPrefix(trimmed, "<?xml") ||
		(strings.HasPrefix(trimmed, "<") && strings.HasSuffix(trimmed, ">") && !strings.HasPrefix(trimmed, "<!DOCTYPE html"))
}
