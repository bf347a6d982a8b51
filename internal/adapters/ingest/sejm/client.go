// Package sejm provides a resilient client for the Sejm public REST API
package sejm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	perr "sejmcollect/internal/platform/errors"
	"sejmcollect/internal/platform/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
)

const (
	baseURLDefault   = "https://api.sejm.gov.pl"
	defaultTimeout   = 30 * time.Second
	defaultUA        = "sejmcollect/1.0"
	defaultAttempts  = 3
	defaultRetryBase = 500 * time.Millisecond
	maxRetryInterval = 30 * time.Second
	maxBodyBytes     = 32 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string

	// Timeout bounds a single attempt, not the retry sequence
	Timeout time.Duration

	// RetryAttempts is the total number of attempts including the first one
	RetryAttempts int
	RetryBase     time.Duration

	// Delay is the minimum gap between the end of a successful call and the start of the next
	Delay time.Duration
}

// Client is a minimal Sejm API client with retry, classification and throttling
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	timer func() backoff.Timer // nil uses the library's real timer

	maxBody int64

	mu       sync.Mutex
	lastDone time.Time
}

// NewClient creates a new Client with sane defaults
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RetryAttempts <= 0 {
		o.RetryAttempts = defaultAttempts
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	return &Client{
		http:  &http.Client{Timeout: o.Timeout},
		opts:  o,
		log:   *logger.Named("sejm"),
		now:     time.Now,
		sleep:   sleepCtx,
		maxBody: maxBodyBytes,
	}
}

// Fetch GETs endpoint (a path below BaseURL) and returns the body once it is known to be valid JSON
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	return c.get(ctx, endpoint, params, "application/json", func(b []byte) error {
		if !gjson.ValidBytes(b) {
			return perr.JSONErrf("sejm %s: response is not valid JSON", endpoint)
		}
		return nil
	})
}

// FetchText GETs an HTML endpoint; the body is returned as is
func (c *Client) FetchText(ctx context.Context, endpoint string, params url.Values) (string, error) {
	b, err := c.get(ctx, endpoint, params, "text/html", nil)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, accept string, check func([]byte) error) ([]byte, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	target := c.opts.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}
		body, err := c.once(ctx, target, accept, attempt)
		if err == nil && check != nil {
			err = check(body)
		}
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		if !perr.IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("sejm transient error retrying")
	}

	var t backoff.Timer
	if c.timer != nil {
		t = c.timer()
	}
	body, err := backoff.RetryNotifyWithTimerAndData(op, c.policy(ctx), notify, t)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lastDone = c.now()
	c.mu.Unlock()
	return body, nil
}

// policy yields RetryBase, 2x, 4x ... capped, for at most RetryAttempts-1 retries
func (c *Client) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryBase
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.RetryAttempts-1)), ctx)
}

// once performs a single attempt and classifies its outcome
func (c *Client) once(ctx context.Context, target, accept string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "sejm new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", accept)

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "sejm request failed")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Debug().Err(cerr).Str("url", target).Msg("sejm close body failed")
		}
	}()

	c.log.Debug().
		Str("url", target).
		Int("status", resp.StatusCode).
		Int("attempt", attempt).
		Dur("latency", lat).
		Msg("sejm http response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, statusError(resp.StatusCode, target, tail)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "sejm read body failed")
	}
	if int64(len(body)) > c.maxBody {
		return nil, perr.Newf(perr.ErrorCodeUpstream, "sejm %s: body exceeds %d bytes", target, c.maxBody)
	}
	return body, nil
}

// throttle waits until Delay has passed since the last successful call
func (c *Client) throttle(ctx context.Context) error {
	if c.opts.Delay <= 0 {
		return nil
	}
	c.mu.Lock()
	last := c.lastDone
	c.mu.Unlock()
	if last.IsZero() {
		return nil
	}
	wait := c.opts.Delay - c.now().Sub(last)
	if wait <= 0 {
		return nil
	}
	return c.sleep(ctx, wait)
}

func statusError(status int, target string, tail []byte) error {
	code := perr.CodeFromHTTPStatus(status)
	if code == perr.ErrorCodeUnknown {
		// 1xx and unfollowed 3xx will not get better on retry
		code = perr.ErrorCodeUpstream
	}
	msg := fmt.Sprintf("sejm %s: status %d", target, status)
	if s := strings.TrimSpace(string(tail)); s != "" {
		msg += " body " + s
	}
	return &StatusError{Status: status, Err: perr.New(code, msg)}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
