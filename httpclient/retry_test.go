package httpclient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testconsts "github.com/gaborage/go-curl/testing"
)

// scriptedTransport replays results in order, repeating the last one
type scriptedTransport struct {
	mu      sync.Mutex
	results []Result
	calls   int
}

func (s *scriptedTransport) Exchange(_ context.Context, _ Options) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := min(s.calls, len(s.results)-1)
	s.calls++
	r := s.results[idx]
	r.Info = r.Info.Clone()
	return r
}

func failing(code int) Result {
	return Result{ErrorCode: code, ErrorMessage: "failed", Info: Info{InfoHTTPCode: 0}}
}

func succeeding(body string) Result {
	return Result{Body: body, Info: Info{InfoHTTPCode: 200}}
}

func TestRetryPolicyShouldRetry(t *testing.T) {
	ok := ResponseState{Body: "x"}
	failed := ResponseState{ErrorCode: ErrCodeOperationTimedOut}
	empty := ResponseState{}
	always := func(ResponseState, int) bool { return true }

	tests := []struct {
		name     string
		policy   RetryPolicy
		state    ResponseState
		attempts int
		want     bool
	}{
		{name: "none", policy: NoRetry(), state: failed, attempts: 1, want: false},
		{name: "fixed_error", policy: FixedRetry(3, false, 0), state: failed, attempts: 1, want: true},
		{name: "fixed_ok", policy: FixedRetry(3, false, 0), state: ok, attempts: 1, want: false},
		{name: "fixed_empty_ignored", policy: FixedRetry(3, false, 0), state: empty, attempts: 1, want: false},
		{name: "fixed_empty_retried", policy: FixedRetry(3, true, 0), state: empty, attempts: 1, want: true},
		{name: "fixed_exhausted", policy: FixedRetry(3, false, 0), state: failed, attempts: 3, want: false},
		{name: "custom_true", policy: CustomRetry(2, always, 0), state: ok, attempts: 1, want: true},
		{name: "custom_exhausted", policy: CustomRetry(2, always, 0), state: ok, attempts: 2, want: false},
		{name: "custom_nil", policy: CustomRetry(5, nil, 0), state: failed, attempts: 1, want: false},
		{name: "zero_max", policy: FixedRetry(0, true, 0), state: failed, attempts: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.ShouldRetry(tt.state, tt.attempts))
		})
	}
}

func TestRetryKindString(t *testing.T) {
	assert.Equal(t, "none", RetryNone.String())
	assert.Equal(t, "fixed", RetryFixed.String())
	assert.Equal(t, "custom", RetryCustom.String())
}

func TestRequestAttemptCounts(t *testing.T) {
	tests := []struct {
		name         string
		results      []Result
		configure    func(*Client)
		wantAttempts int
		wantBody     string
	}{
		{
			name:         "no_policy",
			results:      []Result{failing(ErrCodeCouldntConnect)},
			configure:    func(*Client) {},
			wantAttempts: 1,
		},
		{
			name:         "fixed_until_success",
			results:      []Result{failing(ErrCodeOperationTimedOut), failing(ErrCodeOperationTimedOut), succeeding("done")},
			configure:    func(c *Client) { c.Retry(5, false, 0) },
			wantAttempts: 3,
			wantBody:     "done",
		},
		{
			name:         "fixed_exhausted",
			results:      []Result{failing(ErrCodeOperationTimedOut)},
			configure:    func(c *Client) { c.Retry(3, false, 0) },
			wantAttempts: 3,
		},
		{
			name:         "empty_body_retried",
			results:      []Result{succeeding(""), succeeding("filled")},
			configure:    func(c *Client) { c.Retry(3, true, 0) },
			wantAttempts: 2,
			wantBody:     "filled",
		},
		{
			name:         "empty_body_accepted",
			results:      []Result{succeeding(""), succeeding("filled")},
			configure:    func(c *Client) { c.Retry(3, false, 0) },
			wantAttempts: 1,
		},
		{
			name:         "custom_always",
			results:      []Result{succeeding("x")},
			configure:    func(c *Client) { c.WhenRetry(2, func(ResponseState, int) bool { return true }, 0) },
			wantAttempts: 2,
			wantBody:     "x",
		},
		{
			name:         "custom_zero_max",
			results:      []Result{succeeding("x")},
			configure:    func(c *Client) { c.WhenRetry(0, func(ResponseState, int) bool { return true }, 0) },
			wantAttempts: 1,
			wantBody:     "x",
		},
		{
			name:         "custom_nil_predicate",
			results:      []Result{failing(ErrCodeCouldntConnect)},
			configure:    func(c *Client) { c.WhenRetry(4, nil, 0) },
			wantAttempts: 1,
		},
		{
			name:         "custom_nil_predicate_keeps_fixed_policy",
			results:      []Result{failing(ErrCodeCouldntConnect)},
			configure:    func(c *Client) { c.Retry(3, false, 0).WhenRetry(5, nil, 0) },
			wantAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &scriptedTransport{results: tt.results}
			c := New(WithTransport(tr))
			tt.configure(c)

			body, err := c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAttempts, tr.calls)
			assert.Equal(t, tt.wantAttempts, c.RetryNumber())
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestCustomPredicateSeesStateAndAttempts(t *testing.T) {
	tr := &scriptedTransport{results: []Result{
		{Body: "", Info: Info{InfoHTTPCode: 503}},
		{Body: "", Info: Info{InfoHTTPCode: 503}},
		{Body: "ok", Info: Info{InfoHTTPCode: 200}},
	}}
	c := New(WithTransport(tr))

	var seen []int
	c.WhenRetry(10, func(s ResponseState, attempts int) bool {
		seen = append(seen, attempts)
		return s.Info.StatusCode() >= 500
	}, 0)

	body, err := c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, 3, tr.calls)
}

func TestRetryPausesAfterEveryAttempt(t *testing.T) {
	tr := &scriptedTransport{results: []Result{failing(ErrCodeOperationTimedOut)}}
	c := New(WithTransport(tr)).Retry(2, false, 20*time.Millisecond)

	start := time.Now()
	_, err := c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, tr.calls)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRetryPauseHonoursContext(t *testing.T) {
	tr := &scriptedTransport{results: []Result{succeeding("partial")}}
	c := New(WithTransport(tr)).Retry(5, false, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	body, err := c.Get(ctx, testconsts.TestBaseURL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "partial", body)
	assert.Equal(t, 1, tr.calls)
}

func TestRetryPolicyPersistsAcrossCalls(t *testing.T) {
	tr := &scriptedTransport{results: []Result{failing(ErrCodeOperationTimedOut)}}
	c := New(WithTransport(tr)).Retry(2, false, 0)

	_, err := c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, tr.calls)
	assert.Equal(t, 2, c.RetryNumber(), "counter restarts per request")
	assert.Equal(t, RetryFixed, c.Policy().Kind)
}

func TestSetRetryPolicy(t *testing.T) {
	tr := &scriptedTransport{results: []Result{failing(ErrCodeOperationTimedOut)}}
	c := New(WithTransport(tr), WithRetryPolicy(FixedRetry(3, false, 0)))
	c.SetRetryPolicy(NoRetry())

	_, err := c.Get(context.Background(), testconsts.TestBaseURL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.calls)
}
