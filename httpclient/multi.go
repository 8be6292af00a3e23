package httpclient

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Multi fetches every URL concurrently and returns the bodies in input order:
// result i belongs to urls[i], and a failed exchange yields "". Each handle
// uses the client's resolved options with opts applied on top. The call
// returns only after every exchange has completed. Retry policy and the log
// hook do not apply to batch calls, and Body() is empty afterwards.
func (c *Client) Multi(ctx context.Context, urls []string, opts Options) ([]string, error) {
	for _, u := range urls {
		if u == "" {
			return nil, NewConfigurationError("url is empty", "urls")
		}
	}

	batch := make([]Options, len(urls))
	for i, u := range urls {
		resolved := c.resolveOptions(u, "", nil, false)
		batch[i] = resolved.Merge(opts)
	}
	if len(urls) > 0 {
		c.options = batch[len(batch)-1].Clone()
	}

	results := make([]string, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}

	for i := range batch {
		g.Go(func() error {
			if c.limiter != nil {
				if err := c.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			start := time.Now()
			res := c.transport.Exchange(gctx, batch[i])
			recordAttempt(gctx, http.MethodGet, res.Info.StatusCode(), res.ErrorCode, time.Since(start))
			recordBatch(gctx, res.ErrorCode)

			results[i] = res.Body
			return nil
		})
	}

	err := g.Wait()
	c.state.Body = ""
	c.state.ResponseHeaders = nil
	c.log.Debug().Int("urls", len(urls)).Msg("HTTP client batch completed")
	return results, err
}
