package notify

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cyphera/sdd-notifier/internal/types/business"
)

// RetryConfig controls how a failed send is retried.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

// DefaultRetryConfig returns a sensible default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  30 * time.Second,
	}
}

// DispatcherConfig holds retry and send spacing settings. A zero SendsPerSecond
// leaves sends unthrottled.
type DispatcherConfig struct {
	Retry          RetryConfig
	SendsPerSecond float64
	Burst          int
}

// SendResult is the outcome of dispatching one notification.
type SendResult struct {
	MessageID string
	Attempts  int
	Err       error
}

func (r SendResult) OK() bool { return r.Err == nil }

// Dispatcher sends notifications through a Transport with retry and throttling.
type Dispatcher struct {
	transport Transport
	retry     RetryConfig
	limiter   *rate.Limiter
	logger    *zap.Logger
}

func NewDispatcher(transport Transport, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	limit := rate.Inf
	if cfg.SendsPerSecond > 0 {
		limit = rate.Limit(cfg.SendsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Dispatcher{
		transport: transport,
		retry:     cfg.Retry,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger,
	}
}

// ConcurrencySafe reports whether the underlying transport allows parallel sends.
func (d *Dispatcher) ConcurrencySafe() bool {
	return IsConcurrencySafe(d.transport)
}

// Send delivers unit. Failures are reported in SendResult.Err as *TransportError.
func (d *Dispatcher) Send(ctx context.Context, unit *business.NotificationUnit) SendResult {
	var (
		result  SendResult
		lastErr error
	)

	operation := func() error {
		if err := d.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		result.Attempts++
		messageID, err := d.transport.Send(ctx, unit)
		if err == nil {
			result.MessageID = messageID
			return nil
		}

		lastErr = err
		var transportErr *TransportError
		if errors.As(err, &transportErr) && !transportErr.Retryable {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		d.logger.Warn("notification send failed, retrying",
			zap.String("transaction_id", unit.TransactionID),
			zap.Int("attempt", result.Attempts),
			zap.Duration("retry_in", wait),
			zap.Error(err))
	}

	err := backoff.RetryNotify(operation, d.policy(ctx), notify)
	if err == nil {
		return result
	}
	if lastErr == nil {
		lastErr = err
	}

	var transportErr *TransportError
	if errors.As(lastErr, &transportErr) {
		result.Err = &TransportError{Retryable: transportErr.Retryable, Attempts: result.Attempts, Err: transportErr.Err}
	} else {
		result.Err = &TransportError{Retryable: ctx.Err() == nil, Attempts: result.Attempts, Err: lastErr}
	}
	return result
}

func (d *Dispatcher) policy(ctx context.Context) backoff.BackOff {
	expBackoff := backoff.NewExponentialBackOff()
	if d.retry.InitialInterval > 0 {
		expBackoff.InitialInterval = d.retry.InitialInterval
	}
	if d.retry.MaxInterval > 0 {
		expBackoff.MaxInterval = d.retry.MaxInterval
	}
	if d.retry.Multiplier > 0 {
		expBackoff.Multiplier = d.retry.Multiplier
	}
	expBackoff.MaxElapsedTime = d.retry.MaxElapsedTime

	maxRetries := d.retry.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(maxRetries)), ctx)
}
