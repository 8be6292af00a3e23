package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gaborage/go-curl/httpclient"
)

// printResponse writes the outcome of the last attempt. A transport failure is
// reported as an error after any headers are printed.
func printResponse(w io.Writer, c *httpclient.Client, body string, global *GlobalOptions) error {
	if global.Include {
		for _, line := range c.ResponseHeaders() {
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w)
	}

	if err := c.LastError(); err != nil {
		return err
	}

	fmt.Fprintln(w, formatBody(body, global.Raw))
	return nil
}

// formatBody indents JSON bodies unless raw output was requested
func formatBody(body string, raw bool) string {
	if raw || !httpclient.IsJSON(body) {
		return body
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(strings.TrimSpace(body)), "", "  "); err != nil {
		return body
	}
	return buf.String()
}
