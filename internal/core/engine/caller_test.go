package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foliolens/foliolens/internal/advisor/driver"
)

type scriptedDriver struct {
	mu      sync.Mutex
	results []error
	calls   int
	starts  []time.Time
	clock   func() time.Time
}

func (d *scriptedDriver) Complete(_ context.Context, _ *driver.Request) (*driver.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.clock != nil {
		d.starts = append(d.starts, d.clock())
	}
	var err error
	if d.calls < len(d.results) {
		err = d.results[d.calls]
	}
	d.calls++
	if err != nil {
		return nil, err
	}
	return &driver.Response{Text: "ok", FinishReason: "stop"}, nil
}

func (d *scriptedDriver) Name() string { return "scripted" }

func (d *scriptedDriver) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type testClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *testClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *testClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

func newTestCaller(d *scriptedDriver, clock *testClock, policy RetryPolicy) *Caller {
	d.clock = clock.Now
	return &Caller{
		Driver: d,
		Policy: policy,
		Clock:  clock.Now,
		Sleep:  clock.Sleep,
		Jitter: func() float64 { return 0 },
	}
}

func analyzeRequest() *CallRequest {
	return &CallRequest{
		Operation: "analyze",
		Request: &driver.Request{
			Model:    "gemini-2.0-flash",
			Messages: []driver.Message{{Role: "user", Content: "review this portfolio"}},
		},
	}
}

func rateLimitErr() error {
	return &driver.ProviderError{Provider: "gemini", StatusCode: 429, Message: "quota exceeded"}
}

func TestCallSucceedsFirstAttempt(t *testing.T) {
	d := &scriptedDriver{}
	clock := newTestClock()
	caller := newTestCaller(d, clock, DefaultRetryPolicy())

	resp, err := caller.Call(context.Background(), analyzeRequest())
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text)
	require.Equal(t, 1, d.callCount())
	require.Empty(t, clock.recorded())
}

func TestCallEnforcesMinInterval(t *testing.T) {
	d := &scriptedDriver{}
	clock := newTestClock()
	caller := newTestCaller(d, clock, DefaultRetryPolicy())

	_, err := caller.Call(context.Background(), analyzeRequest())
	require.NoError(t, err)

	// Second submission arrives 200ms after the first started; it must wait
	// the remaining 800ms so call starts are one second apart.
	clock.Advance(200 * time.Millisecond)
	_, err = caller.Call(context.Background(), analyzeRequest())
	require.NoError(t, err)

	require.Equal(t, []time.Duration{800 * time.Millisecond}, clock.recorded())
	require.Len(t, d.starts, 2)
	require.Equal(t, time.Second, d.starts[1].Sub(d.starts[0]))
}

func TestCallConcurrentSubmissionsAreSpaced(t *testing.T) {
	d := &scriptedDriver{}
	caller := &Caller{
		Driver: d,
		Policy: RetryPolicy{MaxAttempts: 1, MinInterval: 20 * time.Millisecond},
	}
	d.clock = time.Now

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := caller.Call(context.Background(), analyzeRequest())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, d.starts, 4)
	starts := append([]time.Time(nil), d.starts...)
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		require.GreaterOrEqual(t, gap, 18*time.Millisecond, "calls %d and %d too close", i-1, i)
	}
}

func TestCallRetriesRateLimitWithBackoff(t *testing.T) {
	d := &scriptedDriver{results: []error{rateLimitErr(), rateLimitErr(), nil}}
	clock := newTestClock()
	policy := DefaultRetryPolicy()
	policy.MinInterval = 0
	caller := newTestCaller(d, clock, policy)

	resp, err := caller.Call(context.Background(), analyzeRequest())
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text)
	require.Equal(t, 3, d.callCount())
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clock.recorded())
}

func TestCallBackoffIncludesBoundedJitter(t *testing.T) {
	d := &scriptedDriver{results: []error{rateLimitErr(), rateLimitErr(), nil}}
	clock := newTestClock()
	policy := DefaultRetryPolicy()
	policy.MinInterval = 0
	caller := newTestCaller(d, clock, policy)
	caller.Jitter = func() float64 { return 0.5 }

	_, err := caller.Call(context.Background(), analyzeRequest())
	require.NoError(t, err)
	require.Equal(t, []time.Duration{
		time.Second + 125*time.Millisecond,
		2*time.Second + 125*time.Millisecond,
	}, clock.recorded())
}

func TestCallExhaustsAfterMaxAttempts(t *testing.T) {
	d := &scriptedDriver{results: []error{rateLimitErr(), rateLimitErr(), rateLimitErr(), rateLimitErr()}}
	clock := newTestClock()
	policy := DefaultRetryPolicy()
	policy.MinInterval = 0
	caller := newTestCaller(d, clock, policy)

	_, err := caller.Call(context.Background(), analyzeRequest())
	require.Error(t, err)
	require.Equal(t, 3, d.callCount())

	var cerr *CallError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, KindExhausted, cerr.Kind)
	require.Equal(t, 3, cerr.Attempts)
	require.Equal(t, "analyze", cerr.Operation)

	var perr *driver.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, 429, perr.StatusCode)
}

func TestCallPermanentFailureDoesNotRetry(t *testing.T) {
	d := &scriptedDriver{results: []error{
		&driver.ProviderError{Provider: "gemini", StatusCode: 401, Message: "invalid api key"},
	}}
	clock := newTestClock()
	caller := newTestCaller(d, clock, DefaultRetryPolicy())

	_, err := caller.Call(context.Background(), analyzeRequest())
	require.Error(t, err)
	require.Equal(t, 1, d.callCount())

	var cerr *CallError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, KindPermanent, cerr.Kind)
	require.Equal(t, 1, cerr.Attempts)
	require.Empty(t, clock.recorded())
}

func TestCallRejectsEmptyPayload(t *testing.T) {
	d := &scriptedDriver{}
	clock := newTestClock()
	caller := newTestCaller(d, clock, DefaultRetryPolicy())

	_, err := caller.Call(context.Background(), &CallRequest{
		Operation: "analyze",
		Request:   &driver.Request{Messages: []driver.Message{{Role: "user", Content: "   "}}},
	})
	require.Error(t, err)

	var cerr *CallError
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, KindPermanent, cerr.Kind)
	require.Equal(t, 0, d.callCount())

	// Rejection must not consume a pacing slot: a valid call right after
	// starts immediately.
	_, err = caller.Call(context.Background(), analyzeRequest())
	require.NoError(t, err)
	require.Empty(t, clock.recorded())
}

func TestCallCancelledWaitStillConsumesSlot(t *testing.T) {
	d := &scriptedDriver{}
	clock := newTestClock()
	caller := newTestCaller(d, clock, DefaultRetryPolicy())

	_, err := caller.Call(context.Background(), analyzeRequest())
	require.NoError(t, err)

	// The second call reserves its slot, then its pacing wait is cancelled.
	caller.Sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}
	_, err = caller.Call(context.Background(), analyzeRequest())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, d.callCount())

	// The cancelled call's slot stays consumed, so the third submission
	// waits for the slot after it.
	caller.Sleep = clock.Sleep
	_, err = caller.Call(context.Background(), analyzeRequest())
	require.NoError(t, err)
	require.Equal(t, []time.Duration{2 * time.Second}, clock.recorded())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"rate limited", &driver.ProviderError{StatusCode: 429}, KindRateLimited},
		{"server error", &driver.ProviderError{StatusCode: 503}, KindTransient},
		{"request timeout", &driver.ProviderError{StatusCode: 408}, KindTransient},
		{"bad request", &driver.ProviderError{StatusCode: 400}, KindPermanent},
		{"unauthorized", &driver.ProviderError{StatusCode: 401}, KindPermanent},
		{"deadline", context.DeadlineExceeded, KindTransient},
		{"unknown", errors.New("connection reset"), KindTransient},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, classify(tc.err).Kind)
		})
	}
}
