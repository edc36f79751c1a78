package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/foliolens/foliolens/internal/advisor/driver"
)

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	// KindRateLimited means the provider explicitly signaled throttling.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTransient covers timeouts and connection-level failures.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers rejections that retrying cannot fix.
	KindPermanent ErrorKind = "permanent"
	// KindExhausted means every allowed attempt failed retryably.
	KindExhausted ErrorKind = "exhausted"
)

// CallError is the classified failure returned by Caller.Call. It wraps the
// last underlying cause for diagnostics.
type CallError struct {
	Kind      ErrorKind
	Operation string
	Attempts  int
	Err       error
}

func (e *CallError) Error() string {
	if e == nil {
		return "call error"
	}
	msg := fmt.Sprintf("%s call failed (%s, %d attempt(s))", e.Operation, e.Kind, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether another attempt may succeed.
func (e *CallError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Kind == KindRateLimited || e.Kind == KindTransient
}

// RetryPolicy configures pacing and retry behavior. Immutable once supplied.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Multiplier  float64
	MaxJitter   time.Duration
	MinInterval time.Duration
	Timeout     time.Duration
}

// DefaultRetryPolicy provides conservative defaults for free-tier providers.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseBackoff: time.Second,
		Multiplier:  2,
		MaxJitter:   250 * time.Millisecond,
		MinInterval: time.Second,
		Timeout:     60 * time.Second,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	defaults := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.BaseBackoff <= 0 {
		p.BaseBackoff = defaults.BaseBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = defaults.Multiplier
	}
	if p.MaxJitter < 0 {
		p.MaxJitter = 0
	}
	if p.MinInterval < 0 {
		p.MinInterval = 0
	}
	return p
}

// CallRequest names an operation for logging and carries the provider payload.
type CallRequest struct {
	Operation string
	Request   *driver.Request
}

// Caller mediates every outbound provider call through one choke point that
// enforces a minimum call-start interval and retries transient failures with
// exponential backoff. All logical call sites must share one instance so the
// pacing invariant holds globally.
type Caller struct {
	Driver driver.Driver
	Policy RetryPolicy
	Logger *logging.Logger

	// Clock, Sleep and Jitter are injectable for tests.
	Clock  func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func() float64

	mu        sync.Mutex
	nextStart time.Time
}

// Call performs a paced, retrying provider call. It returns the provider
// response on success, or a *CallError on failure; no failure escapes
// unclassified. A retryable failure is retried up to Policy.MaxAttempts with
// backoff base*multiplier^(attempt-1) plus bounded jitter; a permanent
// failure returns after the first attempt.
func (c *Caller) Call(ctx context.Context, req *CallRequest) (*driver.Response, error) {
	if c == nil || c.Driver == nil {
		return nil, &CallError{Kind: KindPermanent, Err: errors.New("caller is not configured")}
	}
	if err := validateRequest(req); err != nil {
		return nil, &CallError{Kind: KindPermanent, Operation: operationName(req), Attempts: 0, Err: err}
	}

	policy := c.Policy.normalized()
	op := req.Operation

	var last *CallError
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		// Pacing slot is reserved before the network attempt, so a failed or
		// cancelled call still counts against the interval.
		if err := c.pace(ctx, policy.MinInterval); err != nil {
			return nil, cancelError(op, attempt-1, last, err)
		}

		resp, err := c.attempt(ctx, req.Request, policy.Timeout)
		if err == nil {
			return resp, nil
		}

		cerr := classify(err)
		cerr.Operation = op
		cerr.Attempts = attempt

		if !cerr.Retryable() {
			return nil, cerr
		}
		last = cerr

		if attempt == policy.MaxAttempts {
			break
		}

		delay := c.backoff(policy, attempt)
		if c.Logger != nil {
			c.Logger.Warn("Provider call failed, retrying",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.String("kind", string(cerr.Kind)),
				zap.Duration("backoff", delay),
				zap.Error(cerr.Err))
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, cancelError(op, attempt, last, err)
		}
	}

	return nil, &CallError{Kind: KindExhausted, Operation: op, Attempts: policy.MaxAttempts, Err: last}
}

// pace reserves the next call-start slot and blocks until it arrives. The
// reservation is made under the lock before any wait, so concurrent callers
// are spaced in submission order and cancellation does not release the slot.
func (c *Caller) pace(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}

	now := c.now()
	c.mu.Lock()
	start := now
	if c.nextStart.After(now) {
		start = c.nextStart
	}
	c.nextStart = start.Add(interval)
	c.mu.Unlock()

	if wait := start.Sub(now); wait > 0 {
		if c.Logger != nil {
			c.Logger.Debug("Pacing provider call", zap.Duration("wait", wait))
		}
		return c.sleep(ctx, wait)
	}
	return nil
}

func (c *Caller) attempt(ctx context.Context, req *driver.Request, timeout time.Duration) (*driver.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.Driver.Complete(ctx, req)
}

// backoff computes the wait before the next attempt after the given attempt
// failed: base*multiplier^(attempt-1) plus jitter in [0, MaxJitter).
func (c *Caller) backoff(policy RetryPolicy, attempt int) time.Duration {
	delay := time.Duration(float64(policy.BaseBackoff) * math.Pow(policy.Multiplier, float64(attempt-1)))
	if policy.MaxJitter > 0 {
		jitter := c.jitterFraction()
		delay += time.Duration(jitter * float64(policy.MaxJitter))
	}
	return delay
}

func (c *Caller) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Caller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Caller) jitterFraction() float64 {
	if c.Jitter != nil {
		return c.Jitter()
	}
	return rand.Float64()
}

func validateRequest(req *CallRequest) error {
	if req == nil || req.Request == nil {
		return errors.New("request payload is required")
	}
	for _, msg := range req.Request.Messages {
		if strings.TrimSpace(msg.Content) != "" {
			return nil
		}
	}
	return errors.New("request payload is empty")
}

func operationName(req *CallRequest) string {
	if req == nil {
		return ""
	}
	return req.Operation
}

// cancelError classifies a cancelled wait. The underlying context error stays
// reachable through Unwrap; when a prior retryable failure exists its kind is
// preserved for diagnostics.
func cancelError(op string, attempts int, last *CallError, err error) *CallError {
	kind := KindTransient
	if last != nil {
		kind = last.Kind
		err = fmt.Errorf("%w (after %s)", err, last.Err)
	}
	return &CallError{Kind: kind, Operation: op, Attempts: attempts, Err: err}
}

// classify maps an underlying failure to an ErrorKind. Unknown errors are
// treated as transient so one odd failure does not abort a whole run.
func classify(err error) *CallError {
	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		switch {
		case perr.StatusCode == 429:
			return &CallError{Kind: KindRateLimited, Err: err}
		case perr.StatusCode == 408:
			return &CallError{Kind: KindTransient, Err: err}
		case perr.StatusCode >= 500:
			return &CallError{Kind: KindTransient, Err: err}
		case perr.StatusCode >= 400:
			return &CallError{Kind: KindPermanent, Err: err}
		default:
			return &CallError{Kind: KindTransient, Err: err}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &CallError{Kind: KindTransient, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &CallError{Kind: KindTransient, Err: err}
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return &CallError{Kind: KindTransient, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &CallError{Kind: KindPermanent, Err: err}
	}

	return &CallError{Kind: KindTransient, Err: err}
}
