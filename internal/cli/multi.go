package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-curl/httpclient"
)

// MultiOptions holds the flags of the multi command
type MultiOptions struct {
	Concurrency int
	Options     []string
}

// NewMultiCommand creates the multi command
func NewMultiCommand(global *GlobalOptions) *cobra.Command {
	opts := &MultiOptions{}

	cmd := &cobra.Command{
		Use:   "multi <url>...",
		Short: "GET several URLs concurrently",
		Long: `Fetches every URL concurrently and prints the bodies in argument order.
Failed transfers print an empty body.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMulti(cmd, global, opts, args)
		},
	}

	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "Maximum parallel transfers (0 means one per URL)")
	cmd.Flags().StringArrayVarP(&opts.Options, "option", "o", nil, "Transport option name=value for every transfer (repeatable)")
	return cmd
}

func runMulti(cmd *cobra.Command, global *GlobalOptions, opts *MultiOptions, urls []string) error {
	batch, err := parseOptions(opts.Options)
	if err != nil {
		return err
	}

	var extra []httpclient.Option
	if cmd.Flags().Changed("concurrency") {
		extra = append(extra, httpclient.WithMultiConcurrency(opts.Concurrency))
	}
	c, done, err := newClient(cmd, global, extra...)
	if err != nil {
		return err
	}
	defer done()

	results, err := c.Multi(cmd.Context(), urls, batch)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for i, body := range results {
		fmt.Fprintf(w, "==> %s <==\n", urls[i])
		fmt.Fprintln(w, formatBody(body, global.Raw))
	}
	return nil
}
