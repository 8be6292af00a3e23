// Package httpclient is a stateful HTTP client with layered transport options,
// a configurable retry loop, a pattern-routed mock transport for tests, and a
// structured per-attempt log hook.
package httpclient

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/gaborage/go-curl/config"
	"github.com/gaborage/go-curl/logger"
)

// RequestConfig is the typed client configuration. CurlOptions are the
// persistent transport options applied on every call.
type RequestConfig struct {
	// Timeout is the whole-request timeout in seconds; 0 disables it
	Timeout     int
	IsAjax      bool
	IsJSON      bool
	Referer     string
	SSLVerify   bool
	SSLCertFile string
	SSLKeyFile  string
	CurlOptions Options
}

// DefaultRequestConfig returns the configuration of a freshly constructed client
func DefaultRequestConfig() RequestConfig {
	return RequestConfig{Timeout: config.DefaultTimeout}
}

// ResponseState is the outcome of the most recent attempt
type ResponseState struct {
	Body            string
	ErrorCode       int
	ErrorMessage    string
	Info            Info
	ResponseHeaders []string
}

// Snapshot is the serialisable view of the last request
type Snapshot struct {
	URL         string `json:"url"`
	Method      string `json:"method"`
	RequestData any    `json:"requestData"`
	Body        string `json:"body"`
	Error       int    `json:"error"`
	ErrorInfo   string `json:"errorInfo"`
	Info        Info   `json:"info"`
}

// Client issues requests and keeps the state of the last one. A Client is not
// safe for concurrent use; Multi is the supported way to run requests in
// parallel.
type Client struct {
	cfg         RequestConfig
	headers     []string
	loggerFunc  LoggerFunc
	transport   Transport
	log         logger.Logger
	limiter     *rate.Limiter
	env         Environment
	concurrency int

	retry       RetryPolicy
	retryNumber int

	options     Options
	state       ResponseState
	lastCause   error
	url         string
	method      string
	requestData any
}

// Option configures a Client at construction
type Option func(*Client)

// WithConfig replaces the request configuration
func WithConfig(cfg RequestConfig) Option {
	return func(c *Client) {
		cfg.CurlOptions = cfg.CurlOptions.Clone()
		c.cfg = cfg
	}
}

// WithTransport replaces the net/http transport, typically with a MockTransport
func WithTransport(t Transport) Option {
	return func(c *Client) {
		if t != nil {
			c.transport = t
		}
	}
}

// WithLogger sets the ambient logger used for debug and retry events
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithLoggerFunc installs the per-attempt log hook
func WithLoggerFunc(fn LoggerFunc) Option {
	return func(c *Client) { c.loggerFunc = fn }
}

// WithRateLimiter makes every attempt and batch dispatch wait on l
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithEnvironment replaces the source of the request IP, user agent and host name
func WithEnvironment(env Environment) Option {
	return func(c *Client) {
		if env != nil {
			c.env = env
		}
	}
}

// WithMultiConcurrency bounds the goroutines used by Multi; 0 means one per URL
func WithMultiConcurrency(n int) Option {
	return func(c *Client) { c.concurrency = n }
}

// WithRetryPolicy sets the initial retry policy
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// New creates a client with default configuration, the net/http transport and
// a no-op logger.
func New(opts ...Option) *Client {
	c := &Client{
		cfg:       DefaultRequestConfig(),
		transport: NewHTTPTransport(),
		log:       logger.Nop(),
		env:       NewProcessEnvironment(),
		retry:     NoRetry(),
		options:   DefaultOptions(),
		state:     ResponseState{Info: Info{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromSettings builds a client from settings produced by config.Load
func NewFromSettings(s *config.Settings, opts ...Option) (*Client, error) {
	if s == nil {
		return nil, NewConfigurationError("settings are nil", "settings")
	}
	base := []Option{
		WithConfig(requestConfigFrom(&s.Client)),
		WithMultiConcurrency(s.Multi.Concurrency),
	}
	if s.Retry.Count > 0 {
		base = append(base, WithRetryPolicy(FixedRetry(s.Retry.Count, s.Retry.EmptyBody, s.Retry.Pause)))
	}
	if s.Rate.Limit > 0 {
		burst := max(s.Rate.Burst, 1)
		base = append(base, WithRateLimiter(rate.NewLimiter(rate.Limit(s.Rate.Limit), burst)))
	}
	return New(append(base, opts...)...), nil
}

// NewFromMap builds a client from a loosely keyed option map. Recognised keys
// are applied; guarded and unknown keys are ignored.
func NewFromMap(values map[string]any, opts ...Option) (*Client, error) {
	cs, err := config.FromMap(values)
	if err != nil {
		return nil, err
	}
	return New(append([]Option{WithConfig(requestConfigFrom(cs))}, opts...)...), nil
}

func requestConfigFrom(cs *config.ClientSettings) RequestConfig {
	return RequestConfig{
		Timeout:     cs.Timeout,
		IsAjax:      cs.IsAjax,
		IsJSON:      cs.IsJSON,
		Referer:     cs.Referer,
		SSLVerify:   cs.SSLVerify,
		SSLCertFile: cs.SSLCertFile,
		SSLKeyFile:  cs.SSLKeyFile,
		CurlOptions: OptionsFromMap(cs.CurlOptions),
	}
}

// Reset restores the configuration, headers, retry policy and last-request
// state of a freshly constructed client. The log hook, ambient logger,
// transport and limiter are kept.
func (c *Client) Reset() *Client {
	c.cfg = DefaultRequestConfig()
	c.headers = nil
	c.retry = NoRetry()
	c.retryNumber = 0
	c.options = DefaultOptions()
	c.state = ResponseState{Info: Info{}}
	c.lastCause = nil
	c.url = ""
	c.method = ""
	c.requestData = nil
	return c
}

// Retry installs the built-in policy: retry while the transport reports an
// error (or, with retryOnEmptyBody, the body is empty), up to count attempts.
// pause is slept after every attempt.
func (c *Client) Retry(count int, retryOnEmptyBody bool, pause time.Duration) *Client {
	c.retry = FixedRetry(count, retryOnEmptyBody, pause)
	return c
}

// WhenRetry installs a custom policy. pred sees the state of the attempt just
// made and the number of attempts so far. A nil pred leaves the current
// policy in place.
func (c *Client) WhenRetry(count int, pred RetryPredicate, pause time.Duration) *Client {
	if pred == nil {
		return c
	}
	c.retry = CustomRetry(count, pred, pause)
	return c
}

// SetRetryPolicy replaces the retry policy
func (c *Client) SetRetryPolicy(p RetryPolicy) *Client {
	c.retry = p
	return c
}

// Policy returns the current retry policy
func (c *Client) Policy() RetryPolicy { return c.retry }
