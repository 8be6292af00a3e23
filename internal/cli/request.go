package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-curl/httpclient"
)

// RequestOptions holds the flags of a single-request command
type RequestOptions struct {
	Data    string
	Query   []string
	Form    []string
	Files   []string
	Options []string
}

// NewRequestCommand creates the get, post, put or delete command
func NewRequestCommand(global *GlobalOptions, method string) *cobra.Command {
	opts := &RequestOptions{}
	name := strings.ToLower(method)

	cmd := &cobra.Command{
		Use:   name + " <url>",
		Short: fmt.Sprintf("Send a %s request", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, global, opts, method, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.Options, "option", "o", nil, "Transport option name=value for this call only (repeatable)")
	if method == "GET" {
		flags.StringArrayVarP(&opts.Query, "query", "q", nil, "Query parameter key=value (repeatable)")
		return cmd
	}
	flags.StringVarP(&opts.Data, "data", "d", "", "Raw request body")
	flags.StringArrayVarP(&opts.Form, "form", "F", nil, "Multipart field key=value (repeatable)")
	flags.StringArrayVar(&opts.Files, "file", nil, "Multipart file upload field=path (repeatable)")
	return cmd
}

func runRequest(cmd *cobra.Command, global *GlobalOptions, opts *RequestOptions, method, target string) error {
	perCall, err := parseOptions(opts.Options)
	if err != nil {
		return err
	}
	data, err := requestData(opts, method)
	if err != nil {
		return err
	}

	c, done, err := newClient(cmd, global)
	if err != nil {
		return err
	}
	defer done()

	body, err := c.Request(cmd.Context(), target, method, data, perCall)
	if err != nil {
		return err
	}
	return printResponse(cmd.OutOrStdout(), c, body, global)
}

// requestData turns the command flags into the data argument of Request
func requestData(opts *RequestOptions, method string) (any, error) {
	if method == "GET" {
		if len(opts.Query) == 0 {
			return nil, nil
		}
		values := url.Values{}
		for _, pair := range opts.Query {
			k, v, err := splitPair(pair, "query")
			if err != nil {
				return nil, err
			}
			values.Add(k, v)
		}
		return values, nil
	}

	if len(opts.Form) == 0 && len(opts.Files) == 0 {
		if opts.Data == "" {
			return nil, nil
		}
		return opts.Data, nil
	}
	if opts.Data != "" {
		return nil, httpclient.NewArgumentError("--data cannot be combined with --form or --file", "data")
	}

	fields := make(map[string]any, len(opts.Form)+len(opts.Files))
	for _, pair := range opts.Form {
		k, v, err := splitPair(pair, "form")
		if err != nil {
			return nil, err
		}
		if prev, ok := fields[k].([]string); ok {
			fields[k] = append(prev, v)
			continue
		}
		if prev, ok := fields[k].(string); ok {
			fields[k] = []string{prev, v}
			continue
		}
		fields[k] = v
	}
	for _, pair := range opts.Files {
		k, path, err := splitPair(pair, "file")
		if err != nil {
			return nil, err
		}
		fields[k] = httpclient.FormFile{Path: path}
	}
	return fields, nil
}

// parseOptions reads name=value transport options; integer and boolean values are typed
func parseOptions(pairs []string) (httpclient.Options, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	raw := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, err := splitPair(pair, "option")
		if err != nil {
			return nil, err
		}
		raw[k] = typedValue(v)
	}
	return httpclient.OptionsFromMap(raw), nil
}

func typedValue(v string) any {
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return v
}

func splitPair(pair, argument string) (string, string, error) {
	k, v, found := strings.Cut(pair, "=")
	if !found || strings.TrimSpace(k) == "" {
		return "", "", httpclient.NewArgumentError(fmt.Sprintf("expected key=value, got %q", pair), argument)
	}
	return strings.TrimSpace(k), v, nil
}
