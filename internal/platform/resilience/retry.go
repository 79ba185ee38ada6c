// internal/platform/resilience/retry.go
package resilience

import (
	"context"
	"time"

	"phishtrace/internal/platform/errors"
	"phishtrace/internal/platform/logx"
)

// RetryPolicy configura los reintentos de una llamada de red.
type RetryPolicy struct {
	// MaxRetries reintentos tras el primer intento
	MaxRetries int

	// Backoff espera antes del primer reintento; se duplica en cada uno
	Backoff time.Duration

	// MaxBackoff tope de espera entre intentos
	MaxBackoff time.Duration

	// Retryable decide si un error admite otro intento (por defecto errors.IsRetryable)
	Retryable func(error) bool
}

// Single es la política acotada por defecto: un único reintento.
func Single(backoff time.Duration) RetryPolicy {
	return RetryPolicy{MaxRetries: 1, Backoff: backoff, MaxBackoff: 5 * time.Second}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.Backoff << attempt
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	return d
}

// Do ejecuta fn con reintentos. Nunca reintenta cuando ctx ya terminó: en ese
// caso retorna el error marcado como timeout. attempt empieza en 0.
func Do(ctx context.Context, p RetryPolicy, logger logx.Logger, fn func(ctx context.Context, attempt int) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = errors.IsRetryable
	}

	var err error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return errors.Mark(errors.ErrTimeout, err)
		}
		if attempt == p.MaxRetries || !retryable(err) {
			return err
		}

		wait := p.delay(attempt)
		if logger != nil {
			logger.Debug("retrying call", "attempt", attempt+1, "backoff_ms", wait.Milliseconds(), "error", err.Error())
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Mark(errors.ErrTimeout, err)
		case <-timer.C:
		}
	}
	return err
}
