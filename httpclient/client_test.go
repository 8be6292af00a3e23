package httpclient

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-curl/config"
	testconsts "github.com/gaborage/go-curl/testing"
)

func TestNewDefaults(t *testing.T) {
	c := New()

	assert.Equal(t, config.DefaultTimeout, c.Timeout())
	assert.False(t, c.IsAjax())
	assert.False(t, c.IsJSON())
	assert.False(t, c.SSLVerify())
	assert.Empty(t, c.Referer())
	assert.Empty(t, c.Headers())
	assert.Empty(t, c.CurlOptions())
	assert.Equal(t, RetryNone, c.Policy().Kind)
	assert.Equal(t, DefaultOptions(), c.Options())
	assert.Equal(t, 0, c.ErrorCode())
	assert.Nil(t, c.LastError())
	assert.Nil(t, c.LoggerFunc())
}

func TestResetRestoresDefaultsAndKeepsHook(t *testing.T) {
	called := 0
	c, m := newMockClient(t, WithLoggerFunc(func(LogRecord) { called++ }))
	c.SetTimeout(30).
		SetIsAjax(true).
		SetIsJSON(true).
		SetReferer(testconsts.TestReferer).
		SetSSLVerify(true).
		SetSSLFile(testconsts.TestCertPath, testconsts.TestCertPath).
		SetOption(OptMaxRedirs, 3).
		SetHeaders(testconsts.TestHeaderHTML).
		Retry(2, true, 0)

	_, err := c.Post(context.Background(), testconsts.TestBaseURL, "a=1", nil)
	require.NoError(t, err)
	require.NotEmpty(t, c.URL())

	c.Reset()

	assert.Equal(t, config.DefaultTimeout, c.Timeout())
	assert.False(t, c.IsAjax())
	assert.False(t, c.IsJSON())
	assert.False(t, c.SSLVerify())
	assert.Empty(t, c.Referer())
	assert.Empty(t, c.SSLCertFile())
	assert.Empty(t, c.SSLKeyFile())
	assert.Empty(t, c.Headers())
	assert.Empty(t, c.CurlOptions())
	assert.Equal(t, RetryNone, c.Policy().Kind)
	assert.Equal(t, 0, c.RetryNumber())
	assert.Empty(t, c.URL())
	assert.Empty(t, c.Method())
	assert.Nil(t, c.RequestData())
	assert.Empty(t, c.Body())
	assert.Empty(t, c.Info())
	assert.Equal(t, DefaultOptions(), c.Options())
	require.NotNil(t, c.LoggerFunc())

	before := called
	_, err = c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, before+1, called, "hook survives reset")
	assert.Len(t, m.Requests(), 2, "transport survives reset")
}

func TestSetHeadersAppendsAndClears(t *testing.T) {
	c := New()
	c.SetHeaders(testconsts.TestHeaderHTML).SetHeaders(testconsts.TestHeaderVersion)
	assert.Equal(t, []string{testconsts.TestHeaderHTML, testconsts.TestHeaderVersion}, c.Headers())
	assert.Equal(t, "text/html", c.HeaderMap().Get("Content-Type"))

	headers := c.Headers()
	headers[0] = "mutated: yes"
	assert.Equal(t, testconsts.TestHeaderHTML, c.Headers()[0])

	c.SetHeaders()
	assert.Empty(t, c.Headers())
}

func TestSetHeadersSkipsDuplicates(t *testing.T) {
	c := New().
		SetHeaders(testconsts.TestHeaderHTML, testconsts.TestHeaderHTML).
		SetHeaders(testconsts.TestHeaderHTML, testconsts.TestHeaderAjax)

	assert.Equal(t, []string{testconsts.TestHeaderHTML, testconsts.TestHeaderAjax}, c.Headers())
	assert.Equal(t, "text/html", c.HeaderMap().Get("Content-Type"))
}

func TestSetSSLFile(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))
	require.NoError(t, os.WriteFile(key, []byte("key"), 0o600))
	missing := filepath.Join(dir, "missing.pem")

	tests := []struct {
		name     string
		cert     string
		key      string
		wantCert string
		wantKey  string
	}{
		{name: "existing_files", cert: cert, key: key, wantCert: cert, wantKey: key},
		{name: "missing_files", cert: missing, key: missing},
		{name: "directory", cert: dir, key: dir},
		{name: "empty_paths"},
		{name: "only_cert_exists", cert: cert, key: missing, wantCert: cert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New().SetSSLFile(tt.cert, tt.key)
			assert.True(t, c.SSLVerify())
			assert.Equal(t, tt.wantCert, c.SSLCertFile())
			assert.Equal(t, tt.wantKey, c.SSLKeyFile())
		})
	}
}

func TestSetSSLFileKeepsPreviousPathWhenMissing(t *testing.T) {
	cert := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(cert, []byte("cert"), 0o600))

	c := New().SetSSLFile(cert, cert).SetSSLFile("/no/such/cert.pem", "/no/such/key.pem")
	assert.Equal(t, cert, c.SSLCertFile())
	assert.Equal(t, cert, c.SSLKeyFile())
}

func TestCurlOptionsAreCopied(t *testing.T) {
	opts := Options{OptHTTPHeader: []string{"A: 1"}}
	c := New().SetCurlOptions(opts)

	opts[OptProxy] = "http://proxy"
	opts[OptHTTPHeader].([]string)[0] = "B: 2"

	got := c.CurlOptions()
	assert.False(t, got.Has(OptProxy))
	assert.Equal(t, []string{"A: 1"}, got.Headers(OptHTTPHeader))

	got[OptMaxRedirs] = 1
	assert.False(t, c.CurlOptions().Has(OptMaxRedirs))

	c.SetOptions(Options{OptMaxRedirs: 4, OptTimeoutMS: 10})
	assert.Equal(t, 4, c.CurlOptions()[OptMaxRedirs])
	assert.Equal(t, []string{"A: 1"}, c.CurlOptions().Headers(OptHTTPHeader))
}

func TestToArraySnapshot(t *testing.T) {
	c, _, err := NewMock([]MockRoute{{Pattern: "/user/*", Response: &MockResponse{
		Body: "user",
		Info: Info{InfoHTTPCode: 201},
	}}})
	require.NoError(t, err)

	_, err = c.Post(context.Background(), testconsts.TestBaseURL+testconsts.TestPathUser, "name=x", nil)
	require.NoError(t, err)

	snap := c.ToArray()
	assert.Equal(t, testconsts.TestBaseURL+testconsts.TestPathUser, snap.URL)
	assert.Equal(t, "POST", snap.Method)
	assert.Equal(t, "name=x", snap.RequestData)
	assert.Equal(t, "user", snap.Body)
	assert.Equal(t, 0, snap.Error)
	assert.Empty(t, snap.ErrorInfo)
	assert.Equal(t, 201, snap.Info.StatusCode())

	snap.Info[InfoHTTPCode] = 500
	assert.Equal(t, 201, c.StatusCode())
}

func TestStateIsACopy(t *testing.T) {
	c, _, err := NewMock([]MockRoute{{Pattern: "*", Response: &MockResponse{
		Body:    "x",
		Headers: []string{"X-A: 1"},
	}}})
	require.NoError(t, err)
	_, err = c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
	require.NoError(t, err)

	s := c.State()
	s.ResponseHeaders[0] = "X-B: 2"
	s.Info[InfoHTTPCode] = 0

	assert.Equal(t, []string{"X-A: 1"}, c.ResponseHeaders())
	assert.Equal(t, DefaultMockHTTPCode, c.StatusCode())
}

func TestNewFromMap(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		check  func(t *testing.T, c *Client)
	}{
		{
			name:   "empty",
			values: map[string]any{},
			check: func(t *testing.T, c *Client) {
				assert.Equal(t, config.DefaultTimeout, c.Timeout())
			},
		},
		{
			name: "recognised_spellings",
			values: map[string]any{
				"timeout":      "30",
				"is_ajax":      true,
				"isJson":       true,
				"referer":      testconsts.TestReferer,
				"ssl-verify":   true,
				"sslCertFile":  testconsts.TestCertPath,
				"ssl_key_file": testconsts.TestCertPath,
			},
			check: func(t *testing.T, c *Client) {
				assert.Equal(t, 30, c.Timeout())
				assert.True(t, c.IsAjax())
				assert.True(t, c.IsJSON())
				assert.Equal(t, testconsts.TestReferer, c.Referer())
				assert.True(t, c.SSLVerify())
				assert.Equal(t, testconsts.TestCertPath, c.SSLCertFile())
				assert.Equal(t, testconsts.TestCertPath, c.SSLKeyFile())
			},
		},
		{
			name: "guarded_and_unknown_ignored",
			values: map[string]any{
				"url":         "http://evil",
				"body":        "forged",
				"retryNumber": 9,
				"headers":     []string{"X-Evil: 1"},
				"unknown":     "x",
			},
			check: func(t *testing.T, c *Client) {
				assert.Empty(t, c.URL())
				assert.Empty(t, c.Body())
				assert.Equal(t, 0, c.RetryNumber())
				assert.Empty(t, c.Headers())
			},
		},
		{
			name: "curl_options",
			values: map[string]any{
				"curlOptions": map[string]any{"USER_AGENT": "agent/1", "maxRedirs": 3},
			},
			check: func(t *testing.T, c *Client) {
				opts := c.CurlOptions()
				assert.Equal(t, "agent/1", opts[OptUserAgent])
				assert.Equal(t, 3, opts.Int(OptMaxRedirs, 0))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewFromMap(tt.values)
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestNewFromMapRejectsInvalidValues(t *testing.T) {
	_, err := NewFromMap(map[string]any{"timeout": -1})
	require.Error(t, err)
}

func TestNewFromMapCurlOptionsReachTransport(t *testing.T) {
	m, err := NewMockTransport(MockRoute{Pattern: "*", Response: &MockResponse{Body: "ok"}})
	require.NoError(t, err)

	c, err := NewFromMap(map[string]any{
		"curlOptions": map[string]any{"user_agent": "agent/2"},
	}, WithTransport(m))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "agent/2", m.LastRequest()[OptUserAgent])
}

func TestNewFromSettings(t *testing.T) {
	_, err := NewFromSettings(nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ConfigurationError))

	s, err := config.LoadBytes([]byte(`
client:
  timeout: 12
  is_json: true
retry:
  count: 3
  empty_body: true
  pause: 5ms
rate:
  limit: 100
  burst: 0
multi:
  concurrency: 4
`))
	require.NoError(t, err)

	c, err := NewFromSettings(s)
	require.NoError(t, err)

	assert.Equal(t, 12, c.Timeout())
	assert.True(t, c.IsJSON())
	assert.Equal(t, 4, c.concurrency)

	p := c.Policy()
	assert.Equal(t, RetryFixed, p.Kind)
	assert.Equal(t, 3, p.MaxAttempts)
	assert.True(t, p.OnEmptyBody)
	assert.Equal(t, 5*time.Millisecond, p.Pause)

	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())
}

func TestNewFromSettingsOptionsOverride(t *testing.T) {
	s, err := config.LoadBytes([]byte("retry:\n  count: 2\n"))
	require.NoError(t, err)

	c, err := NewFromSettings(s, WithRetryPolicy(NoRetry()))
	require.NoError(t, err)
	assert.Equal(t, RetryNone, c.Policy().Kind)
	assert.Nil(t, c.limiter)
}
