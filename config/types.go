package config

import "time"

// Settings is the full configuration surface of a client and the CLI.
// Keys are matched after normalisation (see NormalizeKey), so YAML may use
// is_ajax, isAjax or isajax interchangeably.
type Settings struct {
	Client ClientSettings `koanf:"client" json:"client" yaml:"client"`
	Retry  RetrySettings  `koanf:"retry" json:"retry" yaml:"retry"`
	Rate   RateSettings   `koanf:"rate" json:"rate" yaml:"rate"`
	Multi  MultiSettings  `koanf:"multi" json:"multi" yaml:"multi"`
	Log    LogSettings    `koanf:"log" json:"log" yaml:"log"`

	Observability ObservabilitySettings `koanf:"observability" json:"observability" yaml:"observability"`
}

// ClientSettings mirrors the recognised construction options of a client.
type ClientSettings struct {
	// Timeout is the whole-request timeout in seconds.
	Timeout     int    `koanf:"timeout" json:"timeout" validate:"gte=0"`
	IsAjax      bool   `koanf:"isajax" json:"isAjax"`
	IsJSON      bool   `koanf:"isjson" json:"isJson"`
	Referer     string `koanf:"referer" json:"referer"`
	SSLVerify   bool   `koanf:"sslverify" json:"sslVerify"`
	SSLCertFile string `koanf:"sslcertfile" json:"sslCertFile"`
	SSLKeyFile  string `koanf:"sslkeyfile" json:"sslKeyFile"`
	// CurlOptions holds persistent transport options keyed by option name.
	CurlOptions map[string]any `koanf:"curloptions" json:"curlOptions"`
}

// RetrySettings configures the built-in retry policy. Count 0 disables retries.
type RetrySettings struct {
	Count     int           `koanf:"count" json:"count" validate:"gte=0"`
	EmptyBody bool          `koanf:"emptybody" json:"emptyBody"`
	Pause     time.Duration `koanf:"pause" json:"pause" validate:"gte=0"`
}

// RateSettings configures an optional attempt rate limiter. Limit 0 disables it.
type RateSettings struct {
	Limit float64 `koanf:"limit" json:"limit" validate:"gte=0"`
	Burst int     `koanf:"burst" json:"burst" validate:"gte=0"`
}

// MultiSettings bounds batch concurrency. 0 means one goroutine per URL.
type MultiSettings struct {
	Concurrency int `koanf:"concurrency" json:"concurrency" validate:"gte=0"`
}

// LogSettings configures the ambient zerolog logger.
type LogSettings struct {
	Level  string `koanf:"level" json:"level" validate:"oneof=debug info warn error disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty"`
}

// ObservabilitySettings configures trace and metric export. Endpoint "stdout"
// writes telemetry to stderr; anything else is an OTLP collector address.
type ObservabilitySettings struct {
	Enabled     bool              `koanf:"enabled" json:"enabled"`
	ServiceName string            `koanf:"servicename" json:"serviceName"`
	Endpoint    string            `koanf:"endpoint" json:"endpoint"`
	Protocol    string            `koanf:"protocol" json:"protocol" validate:"oneof=http grpc"`
	Insecure    bool              `koanf:"insecure" json:"insecure"`
	Headers     map[string]string `koanf:"headers" json:"headers"`
	Interval    time.Duration     `koanf:"interval" json:"interval" validate:"gte=0"`
}

const (
	// DefaultTimeout is the request timeout in seconds applied when none is configured
	DefaultTimeout = 5
	// EnvPrefix prefixes every environment variable read by Load
	EnvPrefix = "GOCURL_"
)
