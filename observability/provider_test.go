package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "disabled", cfg: Config{}},
		{name: "stdout", cfg: Config{Enabled: true, ServiceName: "svc", Endpoint: EndpointStdout}},
		{name: "http_with_scheme", cfg: Config{Enabled: true, ServiceName: "svc", Endpoint: "http://collector:4318", Protocol: ProtocolHTTP}},
		{name: "grpc_host_port", cfg: Config{Enabled: true, ServiceName: "svc", Endpoint: "collector:4317", Protocol: ProtocolGRPC}},
		{name: "grpc_with_scheme", cfg: Config{Enabled: true, ServiceName: "svc", Endpoint: "http://collector:4317", Protocol: ProtocolGRPC}, wantErr: ErrInvalidEndpointFormat},
		{name: "bad_protocol", cfg: Config{Enabled: true, ServiceName: "svc", Endpoint: "collector:4317", Protocol: "udp"}, wantErr: ErrInvalidProtocol},
		{name: "missing_name", cfg: Config{Enabled: true, Endpoint: EndpointStdout}, wantErr: ErrMissingServiceName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	var nilCfg *Config
	assert.ErrorIs(t, nilCfg.Validate(), ErrNilConfig)
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, EndpointStdout, cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Positive(t, cfg.Interval)
	assert.NotNil(t, cfg.Writer)
}

func TestEndpointHost(t *testing.T) {
	tests := []struct {
		endpoint  string
		insecure  bool
		wantHost  string
		wantPlain bool
	}{
		{endpoint: "http://collector:4318", wantHost: "collector:4318", wantPlain: true},
		{endpoint: "https://collector:4318", insecure: true, wantHost: "collector:4318", wantPlain: false},
		{endpoint: "collector:4317", insecure: true, wantHost: "collector:4317", wantPlain: true},
		{endpoint: "collector:4317", wantHost: "collector:4317", wantPlain: false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := Config{Endpoint: tt.endpoint, Insecure: tt.insecure}
			host, plain := cfg.endpointHost()
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPlain, plain)
		})
	}
}

func TestNewProviderDisabledIsNoop(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	p, err := NewProvider(&Config{})
	require.NoError(t, err)

	_, ok := p.TracerProvider().(noop.TracerProvider)
	assert.True(t, ok, "expected noop.TracerProvider")
	assert.NotNil(t, p.MeterProvider().Meter("test"))
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
	assert.Equal(t, before, otel.GetTracerProvider())
}

func TestNewProviderRejectsInvalidConfig(t *testing.T) {
	_, err := NewProvider(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewProvider(&Config{Enabled: true, Endpoint: "http://c:4317", Protocol: ProtocolGRPC})
	assert.ErrorIs(t, err, ErrInvalidEndpointFormat)
}

func TestNewProviderStdoutExportsSpansAndMetrics(t *testing.T) {
	restoreGlobals(t)
	var buf bytes.Buffer

	p, err := NewProvider(&Config{Enabled: true, ServiceName: "gocurl-test", Writer: &buf})
	require.NoError(t, err)
	assert.Equal(t, p.TracerProvider(), otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(context.Background(), "exchange")
	span.End()

	counter, err := otel.Meter("test").Int64Counter("test.attempts")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name": "exchange"`)
	assert.Contains(t, out, "gocurl-test")
	assert.Contains(t, out, "test.attempts")
}
