package observability

import (
	"io"
	"os"
	"strings"
	"time"
)

const (
	// EndpointStdout writes telemetry to Config.Writer instead of a collector.
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// DefaultServiceName identifies the client when no name is configured.
	DefaultServiceName = "gocurl"
)

// Config defines tracing and metrics export for the HTTP client.
type Config struct {
	// Enabled controls whether telemetry is exported at all.
	// When false, NewProvider returns a no-op provider.
	Enabled bool

	ServiceName    string
	ServiceVersion string

	// Endpoint is "stdout" or a collector address. gRPC endpoints use "host:port";
	// HTTP endpoints may carry a scheme.
	Endpoint string
	Protocol string
	Insecure bool
	Headers  map[string]string

	// Interval is the metric export period.
	Interval time.Duration

	// Writer receives stdout telemetry. Defaults to os.Stderr so that response
	// bodies on stdout stay clean.
	Writer io.Writer
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "unknown"
	}
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.Interval <= 0 {
		c.Interval = 10 * time.Second
	}
	if c.Writer == nil {
		c.Writer = os.Stderr
	}
}

// Validate checks a defaulted configuration.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}
	if c.Endpoint == EndpointStdout {
		return nil
	}

	hasScheme := strings.HasPrefix(c.Endpoint, "http://") || strings.HasPrefix(c.Endpoint, "https://")
	switch c.Protocol {
	case ProtocolHTTP:
		return nil
	case ProtocolGRPC:
		if hasScheme {
			return ErrInvalidEndpointFormat
		}
		return nil
	default:
		return ErrInvalidProtocol
	}
}

// endpointHost strips an http(s) scheme; OTLP HTTP options take host:port.
func (c *Config) endpointHost() (string, bool) {
	switch {
	case strings.HasPrefix(c.Endpoint, "https://"):
		return strings.TrimPrefix(c.Endpoint, "https://"), false
	case strings.HasPrefix(c.Endpoint, "http://"):
		return strings.TrimPrefix(c.Endpoint, "http://"), true
	default:
		return c.Endpoint, c.Insecure
	}
}
