package httpclient

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gaborage/go-curl/config"
)

// OptionID names a transport option. IDs are lowercase with separators removed,
// so "USER_AGENT", "user-agent" and "userAgent" all parse to OptUserAgent.
type OptionID string

const (
	OptUserAgent      OptionID = "useragent"
	OptHeader         OptionID = "header"
	OptFollowLocation OptionID = "followlocation"
	OptMaxRedirs      OptionID = "maxredirs"
	OptReturnTransfer OptionID = "returntransfer"
	OptIPResolve      OptionID = "ipresolve"
	OptReferer        OptionID = "referer"
	OptURL            OptionID = "url"
	OptTimeout        OptionID = "timeout"
	OptTimeoutMS      OptionID = "timeoutms"
	OptConnectTimeout OptionID = "connecttimeout"
	OptSSLVerifyPeer  OptionID = "sslverifypeer"
	OptSSLVerifyHost  OptionID = "sslverifyhost"
	OptSSLCertType    OptionID = "sslcerttype"
	OptSSLCert        OptionID = "sslcert"
	OptSSLKeyType     OptionID = "sslkeytype"
	OptSSLKey         OptionID = "sslkey"
	OptHTTPHeader     OptionID = "httpheader"
	OptCustomRequest  OptionID = "customrequest"
	OptPostFields     OptionID = "postfields"
	OptProxy          OptionID = "proxy"
)

// IP resolution modes for OptIPResolve
const (
	IPResolveWhatever = 0
	IPResolveV4       = 1
	IPResolveV6       = 2
)

const (
	// DefaultUserAgent is sent unless overridden by a persistent or per-call option
	DefaultUserAgent = "Mozilla/4.0+(compatible;+MSIE+6.0;+Windows+NT+5.1;+SV1)"
	// DefaultMaxRedirects bounds redirect chains when OptFollowLocation is enabled
	DefaultMaxRedirects = 50

	headerAjax      = "X-Requested-With: XMLHttpRequest"
	headerPrototype = "X-Prototype-Version: 1.5.0"
	headerJSONType  = "Content-Type: application/json"
	certTypePEM     = "PEM"
	schemeHTTPS     = "https"
)

// Options is a set of transport options keyed by ID
type Options map[OptionID]any

// ParseOptionID normalises a free-form option name
func ParseOptionID(name string) OptionID {
	return OptionID(config.NormalizeKey(name))
}

// OptionsFromMap converts a loosely keyed map (as found in configuration) into Options
func OptionsFromMap(m map[string]any) Options {
	if m == nil {
		return nil
	}
	out := make(Options, len(m))
	for k, v := range m {
		out[ParseOptionID(k)] = v
	}
	return out
}

// DefaultOptions returns the engine defaults applied before any other layer
func DefaultOptions() Options {
	return Options{
		OptUserAgent:      DefaultUserAgent,
		OptHeader:         false,
		OptFollowLocation: false,
		OptReturnTransfer: true,
		OptIPResolve:      IPResolveV4,
	}
}

// Clone returns a shallow copy; header slices are copied
func (o Options) Clone() Options {
	out := maps.Clone(o)
	if out == nil {
		out = Options{}
	}
	if h, ok := out[OptHTTPHeader].([]string); ok {
		out[OptHTTPHeader] = slices.Clone(h)
	}
	return out
}

// Merge overwrites o with every entry of other
func (o Options) Merge(other Options) Options {
	maps.Copy(o, other)
	return o
}

// Has reports whether id is set
func (o Options) Has(id OptionID) bool {
	_, ok := o[id]
	return ok
}

// String returns the option as a string
func (o Options) String(id OptionID) string {
	switch v := o[id].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// Bool interprets the option the way a C flag would: non-zero numbers and
// "true"/"1" strings are true.
func (o Options) Bool(id OptionID) bool {
	switch v := o[id].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		n, ok := toInt(v)
		return ok && n != 0
	}
}

// Int returns the option as an int, or def when unset or not numeric
func (o Options) Int(id OptionID, def int) int {
	n, ok := toInt(o[id])
	if !ok {
		return def
	}
	return n
}

// Headers returns the option as a header line list
func (o Options) Headers(id OptionID) []string {
	switch v := o[id].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// Duration reads an option holding seconds (or milliseconds when ms is set)
func (o Options) Duration(id OptionID, ms bool) time.Duration {
	if d, ok := o[id].(time.Duration); ok {
		return d
	}
	n := o.Int(id, 0)
	if ms {
		return time.Duration(n) * time.Millisecond
	}
	return time.Duration(n) * time.Second
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	case float32:
		return int(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		return i, err == nil
	default:
		return 0, false
	}
}

// resolveOptions layers engine defaults, options derived from the client
// configuration and the persistent options. Per-call options are applied by
// the caller on top of the result. Ajax and JSON headers are appended to the
// persistent header list, which is then deduplicated.
func (c *Client) resolveOptions(rawURL, method string, body any, hasBody bool) Options {
	opts := DefaultOptions()
	if method != "" {
		opts[OptCustomRequest] = method
	}
	if hasBody {
		opts[OptPostFields] = body
	}

	if c.cfg.Referer != "" {
		opts[OptReferer] = c.cfg.Referer
	}
	opts[OptURL] = rawURL
	opts[OptTimeout] = c.cfg.Timeout

	pinned := c.cfg.SSLVerify && c.cfg.SSLCertFile != "" && c.cfg.SSLKeyFile != ""
	switch {
	case pinned:
		opts[OptSSLCertType] = certTypePEM
		opts[OptSSLCert] = c.cfg.SSLCertFile
		opts[OptSSLKeyType] = certTypePEM
		opts[OptSSLKey] = c.cfg.SSLKeyFile
	case strings.HasPrefix(strings.ToLower(rawURL), schemeHTTPS):
		opts[OptSSLVerifyPeer] = false
		opts[OptSSLVerifyHost] = false
	}

	if c.cfg.IsAjax {
		c.headers = append(c.headers, headerAjax, headerPrototype)
	}
	if c.cfg.IsJSON {
		c.headers = append(c.headers, headerJSONType)
	}
	if len(c.headers) > 0 {
		c.headers = dedupe(c.headers)
		opts[OptHTTPHeader] = slices.Clone(c.headers)
	}

	maps.Copy(opts, c.cfg.CurlOptions)
	return opts
}

func dedupe(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := lines[:0]
	for _, line := range lines {
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
