// Package linkcheck probes URLs for reachability and runs the probes over a
// bounded pool of workers.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lukemcguire/zombielinks/result"
)

// ErrTooManyRedirects is returned when a URL redirects more than the
// configured number of hops.
var ErrTooManyRedirects = errors.New("too many redirects")

// maxDrainBytes bounds how much of a GET response body is read.
const maxDrainBytes = 1 << 20

// robotsDisallowed is the reason recorded for URLs skipped by robots.txt.
const robotsDisallowed = "robots_disallowed"

type probeState int

const (
	stateTryHead probeState = iota
	stateTryGet
	stateDone
)

// Checker probes a single URL with HEAD, falling back to GET when HEAD fails
// at the transport level. It only reports reachability; whether a status is
// acceptable is decided by the caller.
type Checker struct {
	cfg     Config
	client  *http.Client
	limiter *HostLimiter
	robots  *RobotsChecker
	logger  *zap.Logger
}

// NewChecker creates a Checker with its own keep-alive HTTP client.
func NewChecker(cfg Config, logger *zap.Logger) *Checker {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Checker{
		cfg:    cfg,
		client: newHTTPClient(cfg),
		logger: logger,
	}
	if cfg.RateLimit > 0 {
		c.limiter = NewHostLimiter(cfg.RateLimit, defaultTargetRTT)
	}
	if cfg.RespectRobots {
		c.robots = NewRobotsChecker(&http.Client{Timeout: cfg.RequestTimeout})
	}
	return c
}

func newHTTPClient(cfg Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.Concurrency

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > cfg.MaxRedirects {
				return fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, cfg.MaxRedirects)
			}
			return nil
		},
	}
}

// Check probes rawURL and returns its outcome. It never returns an error;
// every failure is folded into the outcome.
func (c *Checker) Check(ctx context.Context, rawURL string) result.Outcome {
	start := time.Now()

	if c.robots != nil {
		allowed, err := c.robots.Allowed(ctx, rawURL, c.cfg.UserAgent)
		if err != nil {
			c.logger.Debug("robots.txt check failed, allowing", zap.String("url", rawURL), zap.Error(err))
		}
		if !allowed {
			c.logger.Debug("skipping url disallowed by robots.txt", zap.String("url", rawURL))
			return result.Outcome{Skipped: true, Reason: robotsDisallowed, Elapsed: time.Since(start)}
		}
	}

	outcome := c.checkWithRetry(ctx, rawURL)
	outcome.Elapsed = time.Since(start)

	c.logger.Debug("checked url",
		zap.String("url", rawURL),
		zap.String("method", outcome.Method),
		zap.String("result", outcome.Describe()),
		zap.Int("attempts", outcome.Attempts),
		zap.Duration("elapsed", outcome.Elapsed),
	)
	return outcome
}

// probe runs one HEAD then GET sequence.
func (c *Checker) probe(ctx context.Context, rawURL string) result.Outcome {
	var outcome result.Outcome
	state := stateTryHead

	for state != stateDone {
		switch state {
		case stateTryHead:
			status, err := c.do(ctx, http.MethodHead, rawURL)
			if err != nil {
				c.logger.Debug("head request failed, retrying with get", zap.String("url", rawURL), zap.Error(err))
				state = stateTryGet
				continue
			}
			outcome = reachable(http.MethodHead, status)
			state = stateDone
		case stateTryGet:
			status, err := c.do(ctx, http.MethodGet, rawURL)
			if err != nil {
				outcome = unreachable(http.MethodGet, err)
			} else {
				outcome = reachable(http.MethodGet, status)
			}
			state = stateDone
		}
	}
	return outcome
}

// do issues a single request bounded by the per-attempt timeout and returns
// the final status after redirects.
func (c *Checker) do(ctx context.Context, method, rawURL string) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, rawURL); err != nil {
			return 0, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("close response body", zap.String("url", rawURL), zap.Error(closeErr))
		}
	}()

	if method == http.MethodGet {
		if _, drainErr := io.CopyN(io.Discard, resp.Body, maxDrainBytes); drainErr != nil && !errors.Is(drainErr, io.EOF) {
			c.logger.Debug("drain response body", zap.String("url", rawURL), zap.Error(drainErr))
		}
	}

	if c.limiter != nil {
		c.limiter.Observe(rawURL, time.Since(start))
	}
	return resp.StatusCode, nil
}

func reachable(method string, status int) result.Outcome {
	return result.Outcome{
		Reachable:  true,
		StatusCode: status,
		Method:     method,
	}
}

func unreachable(method string, err error) result.Outcome {
	category := result.ClassifyError(err, 0, errors.Is(err, ErrTooManyRedirects))
	return result.Outcome{
		Method:        method,
		Reason:        failureReason(err, category),
		Detail:        err.Error(),
		ErrorCategory: category,
	}
}

// failureReason picks the most specific diagnostic available: the error
// category code, a status code carried by the error, the message, or
// "request_error".
func failureReason(err error, category result.ErrorCategory) string {
	if category != result.CategoryUnknown {
		return string(category)
	}
	var coded interface{ StatusCode() int }
	if errors.As(err, &coded) && coded.StatusCode() != 0 {
		return strconv.Itoa(coded.StatusCode())
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "request_error"
}
