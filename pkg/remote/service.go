// Package remote provides clients for the UniProt and Ensembl REST services
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// defaultMaxBodySize bounds how much of a response body is read.
const defaultMaxBodySize = 64 << 20

// ErrResponseTooLarge is returned when a response body exceeds
// Config.MaxBodySize. It is not retried.
var ErrResponseTooLarge = errors.New("response too large")

// Config holds timeout, retry and pacing settings shared by every request
// to one service.
type Config struct {
	Timeout        time.Duration // Per attempt
	MaxRetries     int           // Retries after the first attempt
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	RatePerSecond  float64 // 0 = unlimited
	MaxBodySize    int64   // 0 = defaultMaxBodySize
	UserAgent      string
}

// DefaultConfig returns the settings used by the CLI unless overridden.
func DefaultConfig() Config {
	return Config{
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		RatePerSecond:  10,
		MaxBodySize:    defaultMaxBodySize,
		UserAgent:      "ppmconc",
	}
}

// TransportError is returned when a service could not be reached or kept
// failing after all retries. It is fatal to a run.
type TransportError struct {
	Service string
	Op      string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Service, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports an HTTP status that is worth retrying.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Service performs paced, retried requests against one remote host. The
// limiter is shared by all callers, so pacing holds across workers.
type Service struct {
	Name    string
	client  *http.Client
	limiter *rate.Limiter
	cfg     Config
	log     *logrus.Entry
}

// NewService creates a service. A nil client uses http.DefaultClient.
func NewService(name string, client *http.Client, cfg Config) *Service {
	if client == nil {
		client = http.DefaultClient
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Service{
		Name:    name,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
		cfg:     cfg,
		log:     logrus.WithField("service", name),
	}
}

// RequestFunc builds a request bound to ctx. It is called once per attempt.
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Do performs a request. Network errors, 429 and 5xx responses are retried
// with exponential backoff; once retries are exhausted a *TransportError is
// returned. Any other status is handed back to the caller to classify.
func (s *Service) Do(ctx context.Context, op string, newRequest RequestFunc) (*Response, error) {
	var out *Response

	attempt := func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		reqCtx := ctx
		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}

		req, err := newRequest(reqCtx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if s.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", s.cfg.UserAgent)
		}

		s.log.Debugf("%s %s", req.Method, req.URL)
		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		limit := s.cfg.MaxBodySize
		if limit <= 0 {
			limit = defaultMaxBodySize
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if int64(len(body)) > limit {
			return backoff.Permanent(fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit))
		}

		if retryableStatus(resp.StatusCode) {
			return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}

		out = &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.log.Warnf("%s failed, retrying in %s: %v", op, wait, err)
	}

	if err := backoff.RetryNotify(attempt, s.backOff(ctx), notify); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s %s: %w", s.Name, op, ctx.Err())
		}
		return nil, &TransportError{Service: s.Name, Op: op, Err: err}
	}

	return out, nil
}

func (s *Service) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if s.cfg.InitialBackoff > 0 {
		b.InitialInterval = s.cfg.InitialBackoff
	}
	if s.cfg.MaxBackoff > 0 {
		b.MaxInterval = s.cfg.MaxBackoff
	}
	b.MaxElapsedTime = 0

	retries := s.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
