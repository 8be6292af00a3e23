package httpclient

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/gaborage/go-curl/testing/echoserver"
)

func TestMultiPreservesInputOrder(t *testing.T) {
	m, err := NewMockTransport(
		MockRoute{Pattern: "/a", Response: &MockResponse{Body: "A"}},
		MockRoute{Pattern: "/b", Response: &MockResponse{Body: "B"}},
		MockRoute{Pattern: "/fail", Response: &MockResponse{Errno: ErrCodeCouldntConnect}},
		MockRoute{Pattern: "/c", Response: &MockResponse{Body: "C"}},
	)
	require.NoError(t, err)
	c := New(WithTransport(m))

	results, err := c.Multi(context.Background(), []string{
		"http://x/c", "http://x/a", "http://x/fail", "http://x/b",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "", "B"}, results)
	assert.Empty(t, c.Body())
}

func TestMultiAppliesResolvedAndBatchOptions(t *testing.T) {
	m, err := NewMockTransport(MockRoute{Pattern: "*", Response: &MockResponse{Body: "x"}})
	require.NoError(t, err)
	c := New(WithTransport(m)).SetReferer("ref").SetOption(OptMaxRedirs, 2)

	_, err = c.Multi(context.Background(), []string{"http://x/1", "http://x/2"}, Options{OptTimeout: 9})
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Equal(t, "ref", r[OptReferer])
		assert.Equal(t, 2, r[OptMaxRedirs])
		assert.Equal(t, 9, r[OptTimeout])
		assert.Equal(t, DefaultUserAgent, r[OptUserAgent])
		assert.False(t, r.Has(OptCustomRequest))
	}
}

func TestMultiEmptyInput(t *testing.T) {
	c := New(WithTransport(&scriptedTransport{results: []Result{succeeding("x")}}))
	results, err := c.Multi(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMultiRejectsEmptyURL(t *testing.T) {
	c := New(WithTransport(&scriptedTransport{results: []Result{succeeding("x")}}))
	_, err := c.Multi(context.Background(), []string{"http://x", ""}, nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ConfigurationError))
}

func TestMultiBoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	tr := TransportFunc(func(_ context.Context, opts Options) Result {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return Result{Body: opts.String(OptURL), Info: Info{InfoHTTPCode: 200}}
	})

	c := New(WithTransport(tr), WithMultiConcurrency(2))
	urls := []string{"u1", "u2", "u3", "u4", "u5"}
	results, err := c.Multi(context.Background(), urls, nil)
	require.NoError(t, err)
	assert.Equal(t, urls, results)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestMultiLimiterHonoursContext(t *testing.T) {
	tr := TransportFunc(func(context.Context, Options) Result { return succeeding("x") })
	c := New(WithTransport(tr), WithRateLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Multi(ctx, []string{"a", "b"}, nil)
	require.Error(t, err)
}

func TestMultiAgainstEchoServer(t *testing.T) {
	srv := echoserver.New()
	defer srv.Close()

	c := New()
	results, err := c.Multi(context.Background(), []string{
		srv.URLFor("xml"),
		srv.URLFor("index", "n=1"),
		srv.URLFor("empty"),
	}, nil)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.True(t, IsXML(results[0]))
	assert.Equal(t, "1", decodeEcho(t, results[1]).Request["n"])
	assert.Empty(t, results[2])
	assert.Equal(t, 3, srv.Hits())
}
