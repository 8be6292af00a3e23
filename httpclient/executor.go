package httpclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gaborage/go-curl/logger"
)

type requestIDKey struct{}

// WithRequestID attaches id to ctx. Ambient log events for requests made with
// ctx carry it as request_id; without one a UUID is generated per call.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

// Get requests rawURL with params appended to its query string
func (c *Client) Get(ctx context.Context, rawURL string, params any, opts Options) (string, error) {
	return c.Request(ctx, rawURL, http.MethodGet, params, opts)
}

// Post sends data to rawURL
func (c *Client) Post(ctx context.Context, rawURL string, data any, opts Options) (string, error) {
	return c.Request(ctx, rawURL, http.MethodPost, data, opts)
}

// Put sends data to rawURL with the PUT method
func (c *Client) Put(ctx context.Context, rawURL string, data any, opts Options) (string, error) {
	return c.Request(ctx, rawURL, http.MethodPut, data, opts)
}

// Delete requests rawURL with the DELETE method and no body
func (c *Client) Delete(ctx context.Context, rawURL string, opts Options) (string, error) {
	return c.Request(ctx, rawURL, http.MethodDelete, nil, opts)
}

// Request performs one logical request: one or more attempts governed by the
// retry policy. The body of the last attempt is returned. Transport failures
// are not returned as errors; inspect ErrorCode or LastError instead. An error
// is returned only for an empty URL, unusable data, or ctx ending while the
// client waits on the rate limiter or a retry pause.
func (c *Client) Request(ctx context.Context, rawURL, method string, data any, opts Options) (string, error) {
	if rawURL == "" {
		return "", NewConfigurationError("url is empty", "url")
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	requestID, ok := RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	log := c.log.WithFields(map[string]any{"request_id": requestID})

	policy := c.retry
	c.retryNumber = 0
	for {
		if err := c.attempt(ctx, log, rawURL, method, data, opts); err != nil {
			return c.state.Body, err
		}
		if err := pause(ctx, policy.Pause); err != nil {
			return c.state.Body, err
		}
		c.retryNumber++

		if !policy.ShouldRetry(c.State(), c.retryNumber) {
			break
		}

		recordRetry(ctx, method)
		log.Warn().
			Str("method", method).
			Str("url", c.url).
			Int("attempt", c.retryNumber).
			Int("error_code", c.state.ErrorCode).
			Str("policy", policy.Kind.String()).
			Msg("Retrying request")
	}

	return c.state.Body, nil
}

// attempt resolves options for one try, runs the transport and records the outcome
func (c *Client) attempt(ctx context.Context, log logger.Logger, rawURL, method string, data any, perCall Options) error {
	target := rawURL
	var body any
	var hasBody bool

	if method == http.MethodGet {
		u, err := BuildGetQuery(rawURL, data)
		if err != nil {
			return err
		}
		target = u
	} else {
		var err error
		body, hasBody, err = EncodeBody(data, c.cfg.IsJSON)
		if err != nil {
			return err
		}
	}

	c.url = target
	c.method = method
	c.requestData = body
	c.options = c.resolveOptions(target, method, body, hasBody)
	final := c.options.Clone().Merge(perCall)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	start := time.Now()
	res := c.transport.Exchange(ctx, final)
	elapsed := time.Since(start)

	c.setResult(res)
	recordAttempt(ctx, method, c.state.Info.StatusCode(), c.state.ErrorCode, elapsed)

	event := log.Debug().
		Str("method", method).
		Str("url", target).
		Int("attempt", c.retryNumber+1).
		Int("status", c.state.Info.StatusCode()).
		Int("body_size", len(c.state.Body)).
		Dur("duration", elapsed)
	if c.state.ErrorCode != 0 {
		event = event.Int("error_code", c.state.ErrorCode).Str("error", c.state.ErrorMessage)
	}
	event.Msg("HTTP client attempt")

	c.writeLog(start, elapsed)
	return nil
}

func (c *Client) setResult(res Result) {
	info := res.Info
	if info == nil {
		info = Info{}
	}
	c.state = ResponseState{
		Body:            res.Body,
		ErrorCode:       res.ErrorCode,
		ErrorMessage:    res.ErrorMessage,
		Info:            info,
		ResponseHeaders: res.HeaderLines,
	}
	c.lastCause = res.Err
}
