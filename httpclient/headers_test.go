package httpclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testconsts "github.com/gaborage/go-curl/testing"
)

func TestCaptureHeaderLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		stored []string
	}{
		{name: "header", line: "Content-Type: text/html\r\n", stored: []string{"Content-Type: text/html"}},
		{name: "status_line", line: "HTTP/1.1 200 OK\r\n", stored: nil},
		{name: "terminator", line: "\r\n", stored: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []string
			n := CaptureHeaderLine(&lines, tt.line)
			assert.Equal(t, len(tt.line), n)
			assert.Equal(t, tt.stored, lines)
		})
	}
}

func TestToAccessMapFoldsDuplicates(t *testing.T) {
	m := ToAccessMap([]string{
		testconsts.TestHeaderJSON,
		testconsts.TestHeaderAjax,
		testconsts.TestHeaderHTML,
		"X-Multi: a",
		"X-Multi: b",
		"X-Multi: c",
	})

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []string{"Content-Type", "X-Requested-With", "X-Multi"}, m.Keys())
	assert.Equal(t, []string{"application/json", "text/html"}, m.Get("Content-Type"))
	assert.Equal(t, "XMLHttpRequest", m.Get("X-Requested-With"))
	assert.Equal(t, []string{"a", "b", "c"}, m.Values("X-Multi"))
	assert.Equal(t, "application/json", m.Value("Content-Type"))
}

func TestToAccessMapPositionalEntries(t *testing.T) {
	m := ToAccessMap([]string{"no-colon-here", "", "X-A: 1", "another"})

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, []string{PositionalKey(0), "X-A", PositionalKey(1)}, m.Keys())
	assert.Equal(t, "no-colon-here", m.Get(PositionalKey(0)))
	assert.Equal(t, "another", m.Get(PositionalKey(1)))
	assert.Equal(t, "1", m.Get("X-A"))
}

func TestToAccessMapPositionalKeyAvoidsNames(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{name: "status_first", lines: []string{"HTTP/1.1 200", "0: zero"}},
		{name: "header_first", lines: []string{"0: zero", "HTTP/1.1 200"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ToAccessMap(tt.lines)
			assert.Equal(t, 2, m.Len())
			assert.Equal(t, "zero", m.Get("0"))
			assert.Equal(t, "HTTP/1.1 200", m.Get(PositionalKey(0)))
		})
	}
}

func TestToAccessMapTrimsValues(t *testing.T) {
	m := ToAccessMap([]string{"  X-Space  :   padded value  "})
	assert.Equal(t, "padded value", m.Get("X-Space"))
}

func TestAccessMapEmpty(t *testing.T) {
	m := ToAccessMap(nil)
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Get("missing"))
	assert.Empty(t, m.Value("missing"))
	assert.Nil(t, m.Values("missing"))

	var zero AccessMap
	b, err := json.Marshal(zero)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}

func TestAccessMapMarshalKeepsOrder(t *testing.T) {
	m := ToAccessMap([]string{"B: 2", "A: 1", "B: 3"})
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"B":["2","3"],"A":"1"}`, string(b))
}

func TestAccessMapMapIsCopy(t *testing.T) {
	m := ToAccessMap([]string{"X: 1", "X: 2"})
	plain := m.Map()
	plain["X"].([]string)[0] = "changed"
	assert.Equal(t, []string{"1", "2"}, m.Values("X"))
}
