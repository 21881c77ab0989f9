package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"hubspace/internal/auth"
	"hubspace/internal/domain"
)

// Production Afero endpoints.
const (
	// DefaultAccountURL answers with the account access list of the user.
	DefaultAccountURL = "https://api2.afero.net/v1/users/me"
	// DefaultDataURL is the base of the per-account metadevice API.
	DefaultDataURL = "https://api2.afero.net/v1/accounts"
	// DefaultAccountHost is the Host header sent to DefaultAccountURL.
	DefaultAccountHost = "api2.afero.net"
	// DefaultDataHost is the Host header sent to DefaultDataURL.
	DefaultDataHost = "semantics2.afero.net"
)

// ErrInvalidResponse is returned when an answer cannot be decoded.
var ErrInvalidResponse = auth.ErrInvalidResponse

// Endpoints locates the Afero API. The Host fields, when set, override the
// Host header of the matching requests.
type Endpoints struct {
	AccountURL  string
	DataURL     string
	AccountHost string
	DataHost    string
	UserAgent   string
}

// DefaultEndpoints returns the production API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		AccountURL:  DefaultAccountURL,
		DataURL:     DefaultDataURL,
		AccountHost: DefaultAccountHost,
		DataHost:    DefaultDataHost,
		UserAgent:   auth.DefaultUserAgent,
	}
}

// Observer receives one call per HTTP round trip. code is 0 when the request
// failed before a response arrived.
type Observer interface {
	ObserveRequest(endpoint string, code int, elapsed time.Duration)
}

// invalidator is implemented by token providers that can drop a token the
// server refused.
type invalidator interface {
	Invalidate()
}

// StatusError is a non-2xx answer.
type StatusError struct {
	Method string
	URL    string
	Status string
	Code   int
}

// Error names the method, URL and status.
func (e *StatusError) Error() string {
	return fmt.Sprintf("cloud %s %s: %s", strings.ToLower(e.Method), e.URL, e.Status)
}

// Client talks to the Afero API. It is safe for concurrent use.
type Client struct {
	endpoints  Endpoints
	tokens     domain.TokenProvider
	http       *http.Client
	limiter    *rate.Limiter
	log        *logrus.Entry
	observer   Observer
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoints points the client at another API, such as a fake.
func WithEndpoints(e Endpoints) Option {
	return func(c *Client) {
		if e.UserAgent == "" {
			e.UserAgent = auth.DefaultUserAgent
		}
		c.endpoints = e
	}
}

// WithHTTPClient sends requests through h.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLogger sets the logger; debug level logs every retry.
func WithLogger(log *logrus.Entry) Option {
	return func(c *Client) { c.log = log.WithField("component", "cloud") }
}

// WithRateLimit allows r requests per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithObserver reports every round trip to o.
func WithObserver(o Observer) Option { return func(c *Client) { c.observer = o } }

// WithBackOff replaces the retry policy. Each request gets a fresh policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = newBackOff }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

// New returns a Client that authenticates with tokens.
func New(tokens domain.TokenProvider, opts ...Option) *Client {
	c := &Client{
		endpoints:  DefaultEndpoints(),
		tokens:     tokens,
		http:       http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		log:        logrus.NewEntry(logrus.StandardLogger()).WithField("component", "cloud"),
		now:        time.Now,
		newBackOff: defaultBackOff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithMaxRetries(b, 4)
}

var _ domain.CloudClient = (*Client)(nil)

// request is one logical API call; it may take several round trips.
type request struct {
	endpoint string // metrics label
	method   string
	url      string
	host     string
	body     any
	out      any
}

func (c *Client) do(ctx context.Context, r request) error {
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return err
		}
		payload = b
	}

	reauthed := false
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("cloud token: %w", err))
		}

		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.method, r.url, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		if r.host != "" {
			req.Host = r.host
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("User-Agent", c.endpoints.UserAgent)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
		}

		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			c.observe(r.endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()
		c.observe(r.endpoint, resp.StatusCode, time.Since(start))
		c.log.WithFields(logrus.Fields{
			"method": r.method,
			"url":    r.url,
			"status": resp.StatusCode,
		}).Trace("api response")

		if resp.StatusCode/100 != 2 {
			_, _ = io.Copy(io.Discard, resp.Body)
			serr := &StatusError{Method: r.method, URL: r.url, Status: resp.Status, Code: resp.StatusCode}
			switch {
			case resp.StatusCode == http.StatusUnauthorized && !reauthed:
				inv, ok := c.tokens.(invalidator)
				if !ok {
					return backoff.Permanent(serr)
				}
				inv.Invalidate()
				reauthed = true
				return serr
			case retryable(resp.StatusCode):
				return serr
			default:
				return backoff.Permanent(serr)
			}
		}
		if r.out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
			return backoff.Permanent(fmt.Errorf("%w: decode %s: %v", ErrInvalidResponse, r.url, err))
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.log.WithError(err).WithField("retry_in", wait).Debug("retrying request")
	}
	err := backoff.RetryNotify(op, backoff.WithContext(c.newBackOff(), ctx), notify)
	var perr *backoff.PermanentError
	if errors.As(err, &perr) {
		return perr.Err
	}
	return err
}

func (c *Client) observe(endpoint string, code int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(endpoint, code, elapsed)
	}
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
