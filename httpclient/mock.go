package httpclient

import (
	"context"
	"net/url"
	"slices"
	"strings"
	"sync"
)

// DefaultMockHTTPCode is reported when a MockResponse sets neither HTTPCode nor http_code
const DefaultMockHTTPCode = 200

// MockResponse is the canned outcome of a mocked exchange
type MockResponse struct {
	Body     string
	Errno    int
	Error    string
	Info     Info
	HTTPCode int
	Headers  []string
}

// ResolvedInfo returns Info with http_code filled in from HTTPCode when absent
func (r *MockResponse) ResolvedInfo() Info {
	info := r.Info.Clone()
	if _, ok := info[InfoHTTPCode]; !ok {
		code := r.HTTPCode
		if code == 0 {
			code = DefaultMockHTTPCode
		}
		info[InfoHTTPCode] = code
	}
	return info
}

// MockRoute pairs a path pattern with its response. Pattern is an exact path,
// a "prefix/*" wildcard, or "*" for everything else.
type MockRoute struct {
	Pattern  string
	Response *MockResponse
}

// MockTransport replays canned responses selected by request path instead of
// touching the network. It records the options of every exchange.
type MockTransport struct {
	mu       sync.RWMutex
	patterns []string
	routes   map[string]*MockResponse
	requests []Options
}

// NewMockTransport registers routes in order
func NewMockTransport(routes ...MockRoute) (*MockTransport, error) {
	m := &MockTransport{routes: make(map[string]*MockResponse, len(routes))}
	for _, r := range routes {
		if err := m.Handle(r.Pattern, r.Response); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewMock returns a client whose transport is a MockTransport serving routes
func NewMock(routes []MockRoute, opts ...Option) (*Client, *MockTransport, error) {
	m, err := NewMockTransport(routes...)
	if err != nil {
		return nil, nil, err
	}
	return New(append(opts, WithTransport(m))...), m, nil
}

// Handle registers resp under pattern. Re-registering a pattern replaces its
// response but keeps its original position.
func (m *MockTransport) Handle(pattern string, resp *MockResponse) error {
	if resp == nil {
		return NewArgumentError("mock response must not be nil", pattern)
	}
	pattern = normalizePattern(pattern)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.routes == nil {
		m.routes = make(map[string]*MockResponse)
	}
	if _, ok := m.routes[pattern]; !ok {
		m.patterns = append(m.patterns, pattern)
	}
	m.routes[pattern] = resp
	return nil
}

func normalizePattern(pattern string) string {
	if pattern == "*" {
		return pattern
	}
	return "/" + strings.TrimLeft(pattern, "/")
}

// Match selects the response for path. Exact patterns win; "/" falls through to
// "*"; otherwise every "prefix/*" pattern is scanned and the last registered
// match wins; "*" is the final fallback. nil means no route matched.
func (m *MockTransport) Match(path string) *MockResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if resp, ok := m.routes[path]; ok {
		return resp
	}
	if path == "/" {
		return m.routes["*"]
	}

	var match *MockResponse
	for _, pattern := range m.patterns {
		prefix, ok := strings.CutSuffix(pattern, "/*")
		if !ok {
			continue
		}
		if len(pattern)-2 < len(path) && strings.HasPrefix(path, prefix+"/") {
			match = m.routes[pattern]
		}
	}
	if match != nil {
		return match
	}
	return m.routes["*"]
}

// Exchange answers with the response matching the request path, or an empty
// 200 response when nothing matches.
func (m *MockTransport) Exchange(_ context.Context, opts Options) Result {
	m.mu.Lock()
	m.requests = append(m.requests, opts.Clone())
	m.mu.Unlock()

	path := "/"
	if u, err := url.Parse(opts.String(OptURL)); err == nil && u.Path != "" {
		path = u.Path
	}

	resp := m.Match(path)
	if resp == nil {
		resp = &MockResponse{}
	}
	return Result{
		Body:         resp.Body,
		ErrorCode:    resp.Errno,
		ErrorMessage: resp.Error,
		Info:         resp.ResolvedInfo(),
		HeaderLines:  slices.Clone(resp.Headers),
	}
}

// Requests returns the options of every exchange served so far
func (m *MockTransport) Requests() []Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.requests)
}

// LastRequest returns the options of the most recent exchange, or nil
func (m *MockTransport) LastRequest() Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
