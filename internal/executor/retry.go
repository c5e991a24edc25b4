package executor

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/lumeng-dev/clipinsight/internal/config"
	"github.com/lumeng-dev/clipinsight/internal/logging"
	"github.com/lumeng-dev/clipinsight/internal/provider"
)

// Class is the retry classification of a failure.
type Class int

const (
	// ClassCancelled is user cancellation; never retried.
	ClassCancelled Class = iota
	// ClassRetryable is a transient failure worth another attempt.
	ClassRetryable
	// ClassFatal is a failure more attempts cannot fix.
	ClassFatal
)

func (c Class) String() string {
	switch c {
	case ClassCancelled:
		return "cancelled"
	case ClassRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// retryableStatuses are the HTTP statuses worth another attempt.
var retryableStatuses = map[int]bool{
	408: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// Classify maps a failure to its retry class. User cancellation always
// wins; a timeout counts as retryable. Authorization, quota and
// model-validation failures are fatal. Anything unrecognized is
// retryable only when it has a transport-error shape.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}

	if errors.Is(err, context.Canceled) {
		return ClassCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassRetryable
	}

	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		if retryableStatuses[httpErr.Status] {
			return ClassRetryable
		}
		return ClassFatal
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassRetryable
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return ClassRetryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassRetryable
	}

	return ClassFatal
}

// Policy retries an operation on transient failures with jitter-free
// doubling backoff and a capped delay.
type Policy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	logger *logging.Logger

	// sleep waits for the backoff delay, honoring cancellation.
	// Injectable so tests observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy builds a Policy from the retry configuration.
func NewPolicy(cfg config.RetryConfig, logger *logging.Logger) *Policy {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Policy{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: time.Duration(cfg.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.MaxDelayMs) * time.Millisecond,
		Multiplier:   cfg.Multiplier,
		logger:       logger.WithComponent("retry"),
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs op, retrying retryable failures up to MaxRetries times with
// strictly increasing delays. The first non-retryable failure, the
// attempt budget, or cancellation during backoff ends the loop with the
// operation's last error.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	delay := p.InitialDelay

	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		class := Classify(err)
		if class != ClassRetryable || attempt >= p.MaxRetries {
			if class == ClassRetryable {
				p.logger.Warn("retry budget exhausted", "attempts", attempt+1, "error", err)
			}
			return err
		}

		p.logger.Info("retrying after transient failure",
			"attempt", attempt+1, "delay", delay.String(), "error", err)
		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return err
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}
