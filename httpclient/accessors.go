package httpclient

import (
	"os"
	"slices"
)

// Timeout returns the request timeout in seconds
func (c *Client) Timeout() int { return c.cfg.Timeout }

// SetTimeout sets the request timeout in seconds
func (c *Client) SetTimeout(seconds int) *Client {
	c.cfg.Timeout = seconds
	return c
}

// IsAjax reports whether ajax identification headers are added
func (c *Client) IsAjax() bool { return c.cfg.IsAjax }

// SetIsAjax toggles the ajax identification headers
func (c *Client) SetIsAjax(v bool) *Client {
	c.cfg.IsAjax = v
	return c
}

// IsJSON reports whether structured bodies are sent as JSON
func (c *Client) IsJSON() bool { return c.cfg.IsJSON }

// SetIsJSON toggles JSON encoding of structured bodies
func (c *Client) SetIsJSON(v bool) *Client {
	c.cfg.IsJSON = v
	return c
}

// Referer returns the configured Referer header value
func (c *Client) Referer() string { return c.cfg.Referer }

// SetReferer sets the Referer sent with every request; "" disables it
func (c *Client) SetReferer(referer string) *Client {
	c.cfg.Referer = referer
	return c
}

// SSLVerify reports whether peer verification with a client certificate is on
func (c *Client) SSLVerify() bool { return c.cfg.SSLVerify }

// SetSSLVerify toggles peer verification with the configured client certificate
func (c *Client) SetSSLVerify(v bool) *Client {
	c.cfg.SSLVerify = v
	return c
}

// SSLCertFile returns the client certificate path
func (c *Client) SSLCertFile() string { return c.cfg.SSLCertFile }

// SetSSLCertFile sets the client certificate path without checking it
func (c *Client) SetSSLCertFile(path string) *Client {
	c.cfg.SSLCertFile = path
	return c
}

// SSLKeyFile returns the client private key path
func (c *Client) SSLKeyFile() string { return c.cfg.SSLKeyFile }

// SetSSLKeyFile sets the client private key path without checking it
func (c *Client) SetSSLKeyFile(path string) *Client {
	c.cfg.SSLKeyFile = path
	return c
}

// SetSSLFile turns SSL verification on and sets the client certificate and
// key. A path is only assigned when it names an existing regular file; the
// previous value is kept otherwise.
func (c *Client) SetSSLFile(certFile, keyFile string) *Client {
	c.cfg.SSLVerify = true
	if isRegularFile(certFile) {
		c.cfg.SSLCertFile = certFile
	}
	if isRegularFile(keyFile) {
		c.cfg.SSLKeyFile = keyFile
	}
	return c
}

func isRegularFile(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// CurlOptions returns a copy of the persistent transport options
func (c *Client) CurlOptions() Options { return c.cfg.CurlOptions.Clone() }

// SetCurlOptions replaces the persistent transport options
func (c *Client) SetCurlOptions(opts Options) *Client {
	c.cfg.CurlOptions = opts.Clone()
	return c
}

// SetOption sets one persistent transport option
func (c *Client) SetOption(id OptionID, value any) *Client {
	if c.cfg.CurlOptions == nil {
		c.cfg.CurlOptions = Options{}
	}
	c.cfg.CurlOptions[id] = value
	return c
}

// SetOptions merges opts into the persistent transport options
func (c *Client) SetOptions(opts Options) *Client {
	if c.cfg.CurlOptions == nil {
		c.cfg.CurlOptions = Options{}
	}
	c.cfg.CurlOptions.Merge(opts)
	return c
}

// LoggerFunc returns the per-attempt log hook
func (c *Client) LoggerFunc() LoggerFunc { return c.loggerFunc }

// SetLoggerFunc installs the per-attempt log hook; nil disables it
func (c *Client) SetLoggerFunc(fn LoggerFunc) *Client {
	c.loggerFunc = fn
	return c
}

// SetHeaders appends header lines to the persistent header list, skipping
// lines already present. Called with no arguments it clears the list.
func (c *Client) SetHeaders(headers ...string) *Client {
	if len(headers) == 0 {
		c.headers = nil
		return c
	}
	for _, h := range headers {
		if !slices.Contains(c.headers, h) {
			c.headers = append(c.headers, h)
		}
	}
	return c
}

// Headers returns the persistent request header lines
func (c *Client) Headers() []string { return slices.Clone(c.headers) }

// HeaderMap returns the persistent request headers folded into an AccessMap
func (c *Client) HeaderMap() AccessMap { return ToAccessMap(c.headers) }

// ResponseHeaders returns the header lines captured by the last attempt
func (c *Client) ResponseHeaders() []string { return slices.Clone(c.state.ResponseHeaders) }

// ResponseHeaderMap returns the last response headers folded into an AccessMap
func (c *Client) ResponseHeaderMap() AccessMap { return ToAccessMap(c.state.ResponseHeaders) }

// Body returns the body of the last attempt
func (c *Client) Body() string { return c.state.Body }

// ErrorCode returns the transport error code of the last attempt; 0 means success
func (c *Client) ErrorCode() int { return c.state.ErrorCode }

// ErrorInfo returns the transport error message of the last attempt
func (c *Client) ErrorInfo() string { return c.state.ErrorMessage }

// LastError returns the failure of the last attempt as a TransportError, or nil
func (c *Client) LastError() error {
	if c.state.ErrorCode == 0 {
		return nil
	}
	return NewTransportError(c.state.ErrorCode, c.state.ErrorMessage, c.lastCause)
}

// State returns a copy of the last attempt's outcome
func (c *Client) State() ResponseState {
	s := c.state
	s.Info = s.Info.Clone()
	s.ResponseHeaders = slices.Clone(s.ResponseHeaders)
	return s
}

// Info returns the transfer information of the last attempt
func (c *Client) Info() Info { return c.state.Info.Clone() }

// InfoValue returns one transfer information entry, or nil
func (c *Client) InfoValue(key string) any { return c.state.Info[key] }

// StatusCode returns the HTTP status of the last attempt, 0 when none was received
func (c *Client) StatusCode() int { return c.state.Info.StatusCode() }

// RequestTime returns a timing entry of the last attempt in seconds. The key
// defaults to total_time.
func (c *Client) RequestTime(key ...string) float64 {
	k := InfoTotalTime
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	return c.state.Info.Float(k)
}

// URL returns the URL of the last request, including any merged query
func (c *Client) URL() string { return c.url }

// Method returns the upper-cased method of the last request
func (c *Client) Method() string { return c.method }

// RequestData returns the body sent by the last request; nil for GET
func (c *Client) RequestData() any { return c.requestData }

// Options returns the option set resolved for the last request, without the
// per-call layer
func (c *Client) Options() Options { return c.options.Clone() }

// RetryNumber returns the attempts performed by the last request
func (c *Client) RetryNumber() int { return c.retryNumber }

// ToArray returns a snapshot of the last request
func (c *Client) ToArray() Snapshot {
	return Snapshot{
		URL:         c.url,
		Method:      c.method,
		RequestData: c.requestData,
		Body:        c.state.Body,
		Error:       c.state.ErrorCode,
		ErrorInfo:   c.state.ErrorMessage,
		Info:        c.state.Info.Clone(),
	}
}
