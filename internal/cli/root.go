// Package cli wires the gocurl command tree onto the httpclient package.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-curl/config"
	"github.com/gaborage/go-curl/httpclient"
	"github.com/gaborage/go-curl/logger"
	"github.com/gaborage/go-curl/observability"
)

const telemetryShutdownTimeout = 5 * time.Second

// GlobalOptions holds the persistent flags shared by every request command
type GlobalOptions struct {
	ConfigPath string
	Timeout    int
	JSON       bool
	Ajax       bool
	Headers    []string
	Referer    string
	CertFile   string
	KeyFile    string
	SSLVerify  bool
	Retry      int
	RetryEmpty bool
	Pause      time.Duration
	LogLevel   string
	Verbose    bool
	Include    bool
	Raw        bool
	Telemetry  bool

	version string
}

// NewRootCommand creates the gocurl command tree
func NewRootCommand(version string) *cobra.Command {
	opts := &GlobalOptions{version: version}

	cmd := &cobra.Command{
		Use:   "gocurl",
		Short: "Issue HTTP requests with retries and structured logging",
		Long: `gocurl sends HTTP requests through the go-curl client.

Settings are read from an optional YAML file, then GOCURL_* environment
variables, then command line flags.`,
		Example: `  # Simple GET with a query parameter
  gocurl get https://example.com/search -q term=go

  # JSON POST retried on failure or empty body
  gocurl post https://example.com/api --json -d '{"a":1}' --retry 3 --retry-empty

  # Fetch several URLs concurrently
  gocurl multi https://example.com/a https://example.com/b`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a YAML settings file")
	flags.IntVarP(&opts.Timeout, "timeout", "t", config.DefaultTimeout, "Request timeout in seconds (0 disables)")
	flags.BoolVar(&opts.JSON, "json", false, "Send structured bodies as JSON")
	flags.BoolVar(&opts.Ajax, "ajax", false, "Add XMLHttpRequest identification headers")
	flags.StringArrayVarP(&opts.Headers, "header", "H", nil, `Request header "Name: value" (repeatable)`)
	flags.StringVarP(&opts.Referer, "referer", "e", "", "Referer header")
	flags.StringVar(&opts.CertFile, "cert", "", "Client certificate (PEM)")
	flags.StringVar(&opts.KeyFile, "key", "", "Client private key (PEM)")
	flags.BoolVar(&opts.SSLVerify, "ssl-verify", false, "Verify the peer and present the client certificate")
	flags.IntVar(&opts.Retry, "retry", 0, "Maximum attempts while the transport fails")
	flags.BoolVar(&opts.RetryEmpty, "retry-empty", false, "Also retry when the body is empty")
	flags.DurationVar(&opts.Pause, "pause", 0, "Pause after every attempt")
	flags.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error, disabled)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Log a structured record for every attempt")
	flags.BoolVarP(&opts.Include, "include", "i", false, "Print response headers before the body")
	flags.BoolVar(&opts.Raw, "raw", false, "Do not pretty-print JSON bodies")
	flags.BoolVar(&opts.Telemetry, "telemetry", false, "Export traces and metrics to the configured observability endpoint")

	cmd.AddCommand(
		NewRequestCommand(opts, "GET"),
		NewRequestCommand(opts, "POST"),
		NewRequestCommand(opts, "PUT"),
		NewRequestCommand(opts, "DELETE"),
		NewMultiCommand(opts),
		NewVersionCommand(version),
	)

	return cmd
}

// loadSettings merges the settings file with explicitly set flags
func loadSettings(cmd *cobra.Command, opts *GlobalOptions) (*config.Settings, error) {
	s, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("timeout") {
		s.Client.Timeout = opts.Timeout
	}
	if flags.Changed("json") {
		s.Client.IsJSON = opts.JSON
	}
	if flags.Changed("ajax") {
		s.Client.IsAjax = opts.Ajax
	}
	if flags.Changed("referer") {
		s.Client.Referer = opts.Referer
	}
	if flags.Changed("cert") {
		s.Client.SSLCertFile = opts.CertFile
	}
	if flags.Changed("key") {
		s.Client.SSLKeyFile = opts.KeyFile
	}
	if flags.Changed("ssl-verify") {
		s.Client.SSLVerify = opts.SSLVerify
	}
	if flags.Changed("retry") {
		s.Retry.Count = opts.Retry
	}
	if flags.Changed("retry-empty") {
		s.Retry.EmptyBody = opts.RetryEmpty
	}
	if flags.Changed("pause") {
		s.Retry.Pause = opts.Pause
	}
	if flags.Changed("log-level") {
		s.Log.Level = opts.LogLevel
	}
	if flags.Changed("telemetry") {
		s.Observability.Enabled = opts.Telemetry
	}

	if err := config.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// newClient builds a client for one command invocation. The returned func
// flushes telemetry and must be called once the command is done.
func newClient(cmd *cobra.Command, opts *GlobalOptions, extra ...httpclient.Option) (*httpclient.Client, func(), error) {
	s, err := loadSettings(cmd, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), s.Log.Level, s.Log.Pretty, nil)

	done, err := startTelemetry(cmd, s, opts.version, log)
	if err != nil {
		return nil, nil, err
	}

	clientOpts := []httpclient.Option{httpclient.WithLogger(log)}
	if opts.Verbose {
		clientOpts = append(clientOpts, httpclient.WithLoggerFunc(httpclient.NewLoggerHook(log)))
	}

	c, err := httpclient.NewFromSettings(s, append(clientOpts, extra...)...)
	if err != nil {
		done()
		return nil, nil, err
	}
	if len(opts.Headers) > 0 {
		c.SetHeaders(opts.Headers...)
	}
	return c, done, nil
}

// startTelemetry installs the trace and meter providers when observability is
// enabled. Stdout telemetry goes to the command's error stream.
func startTelemetry(cmd *cobra.Command, s *config.Settings, version string, log logger.Logger) (func(), error) {
	o := s.Observability
	provider, err := observability.NewProvider(&observability.Config{
		Enabled:        o.Enabled,
		ServiceName:    o.ServiceName,
		ServiceVersion: version,
		Endpoint:       o.Endpoint,
		Protocol:       o.Protocol,
		Insecure:       o.Insecure,
		Headers:        o.Headers,
		Interval:       o.Interval,
		Writer:         cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start telemetry: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}, nil
}
