package executor

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/lumeng-dev/clipinsight/internal/config"
	"github.com/lumeng-dev/clipinsight/internal/pipeline"
	"github.com/lumeng-dev/clipinsight/internal/provider"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"user cancellation", context.Canceled, ClassCancelled},
		{"wrapped cancellation", errors.Join(errors.New("request failed"), context.Canceled), ClassCancelled},
		{"cancelled run", &pipeline.AbortError{}, ClassCancelled},
		{"timeout", context.DeadlineExceeded, ClassRetryable},
		{"timed-out run", &pipeline.AbortError{Timeout: true}, ClassRetryable},
		{"http 408", &provider.HTTPError{Status: 408}, ClassRetryable},
		{"http 429", &provider.HTTPError{Status: 429}, ClassRetryable},
		{"http 500", &provider.HTTPError{Status: 500}, ClassRetryable},
		{"http 502", &provider.HTTPError{Status: 502}, ClassRetryable},
		{"http 503", &provider.HTTPError{Status: 503}, ClassRetryable},
		{"http 504", &provider.HTTPError{Status: 504}, ClassRetryable},
		{"http 401", &provider.HTTPError{Status: 401}, ClassFatal},
		{"http 403", &provider.HTTPError{Status: 403}, ClassFatal},
		{"http 404", &provider.HTTPError{Status: 404}, ClassFatal},
		{"http 400", &provider.HTTPError{Status: 400}, ClassFatal},
		{"dns failure", &net.DNSError{Err: "no such host", Name: "api.example.com"}, ClassRetryable},
		{"connection reset", syscall.ECONNRESET, ClassRetryable},
		{"connection refused", syscall.ECONNREFUSED, ClassRetryable},
		{"generic transport error", &net.OpError{Op: "read", Err: errors.New("broken pipe")}, ClassRetryable},
		{"plain error", errors.New("parse failure"), ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func testPolicy(recorded *[]time.Duration) *Policy {
	p := NewPolicy(config.RetryConfig{
		MaxRetries:     3,
		InitialDelayMs: 100,
		MaxDelayMs:     5000,
		Multiplier:     2,
	}, nil)
	p.sleep = func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
	return p
}

func TestPolicyRetriesWithIncreasingDelays(t *testing.T) {
	var delays []time.Duration
	p := testPolicy(&delays)

	attempts := 0
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return &provider.HTTPError{Status: 429}
	})

	var httpErr *provider.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Status != 429 {
		t.Fatalf("Do() error = %v, want the 429", err)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4 (initial + 3 retries)", attempts)
	}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	if len(delays) != len(want) {
		t.Fatalf("recorded %d delays, want %d: %v", len(delays), len(want), delays)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
		if i > 0 && delays[i] <= delays[i-1] {
			t.Errorf("delays not strictly increasing: %v", delays)
		}
	}
}

func TestPolicyCapsDelay(t *testing.T) {
	var delays []time.Duration
	p := NewPolicy(config.RetryConfig{
		MaxRetries:     5,
		InitialDelayMs: 1000,
		MaxDelayMs:     2500,
		Multiplier:     2,
	}, nil)
	p.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_ = p.Do(context.Background(), func(context.Context) error {
		return &provider.HTTPError{Status: 503}
	})

	for _, d := range delays {
		if d > 2500*time.Millisecond {
			t.Errorf("delay %v exceeds the cap", d)
		}
	}
	if last := delays[len(delays)-1]; last != 2500*time.Millisecond {
		t.Errorf("final delay = %v, want the 2.5s cap", last)
	}
}

func TestPolicyNeverRetriesAuthFailure(t *testing.T) {
	var delays []time.Duration
	p := testPolicy(&delays)

	attempts := 0
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return &provider.HTTPError{Status: 401}
	})

	if err == nil {
		t.Fatal("Do() error = nil, want the 401")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
	if len(delays) != 0 {
		t.Errorf("recorded %d delays, want 0", len(delays))
	}
}

func TestPolicyNeverRetriesCancellation(t *testing.T) {
	var delays []time.Duration
	p := testPolicy(&delays)

	attempts := 0
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return context.Canceled
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do() error = %v, want context.Canceled", err)
	}
	if attempts != 1 || len(delays) != 0 {
		t.Errorf("attempts = %d, delays = %d; cancellation must not retry", attempts, len(delays))
	}
}

func TestPolicySucceedsAfterTransientFailures(t *testing.T) {
	var delays []time.Duration
	p := testPolicy(&delays)

	attempts := 0
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &provider.HTTPError{Status: 502}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v, want success on the third attempt", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestPolicyStopsWhenBackoffCancelled(t *testing.T) {
	p := NewPolicy(config.RetryConfig{
		MaxRetries:     3,
		InitialDelayMs: 100,
		MaxDelayMs:     5000,
		Multiplier:     2,
	}, nil)
	p.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	attempts := 0
	cause := &provider.HTTPError{Status: 500}
	err := p.Do(context.Background(), func(context.Context) error {
		attempts++
		return cause
	})

	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (backoff was cancelled)", attempts)
	}
	var httpErr *provider.HTTPError
	if !errors.As(err, &httpErr) {
		t.Errorf("Do() error = %v, want the operation's last error", err)
	}
}
