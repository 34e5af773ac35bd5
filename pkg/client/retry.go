package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rowsite_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rowsite_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rowsite_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the number of attempts including the initial request.
	// 1 disables retries.
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration: a single attempt.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       1,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// ForErrorClass returns cfg with the initial backoff adjusted for an error class.
// Rate limiting waits longest, network errors a little longer than 5xx.
func (cfg RetryConfig) ForErrorClass(errorClass ErrorClass) RetryConfig {
	switch errorClass {
	case ErrorClassRateLimit:
		cfg.InitialBackoff *= 5
	case ErrorClassNetwork:
		cfg.InitialBackoff *= 2
	}
	if cfg.MaxBackoff > 0 && cfg.InitialBackoff > cfg.MaxBackoff {
		cfg.InitialBackoff = cfg.MaxBackoff
	}
	return cfg
}

// retryWithBackoff executes fn with exponential backoff.
// classify decides the error class of a failed attempt; only retriable
// classes are retried. Context cancellation aborts the wait.
func retryWithBackoff(ctx context.Context, base RetryConfig, fn func() error, classify func(error) ErrorClass) error {
	if base.MaxAttempts < 1 {
		base.MaxAttempts = 1
	}
	if base.BackoffMultiplier < 1 {
		base.BackoffMultiplier = 1
	}

	var lastErr error
	var errorClass ErrorClass
	var backoff time.Duration

	for attempt := 1; attempt <= base.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				log.Info().
					Str("error_class", string(errorClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		errorClass = classify(err)

		if !shouldRetry(errorClass) {
			return lastErr
		}

		if attempt >= base.MaxAttempts {
			break
		}

		cfg := base.ForErrorClass(errorClass)
		if backoff == 0 {
			backoff = cfg.InitialBackoff
		}

		retriesTotal.WithLabelValues(string(errorClass)).Inc()

		// ±20% jitter
		jitter := time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
		retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(jitter.Seconds())

		log.Warn().
			Err(err).
			Str("error_class", string(errorClass)).
			Int("attempt", attempt).
			Dur("backoff", jitter).
			Msg("Retrying request after backoff")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(jitter):
		}

		backoff = time.Duration(float64(backoff) * cfg.BackoffMultiplier)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	if base.MaxAttempts == 1 {
		return lastErr
	}

	retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
	log.Warn().
		Str("error_class", string(errorClass)).
		Int("max_attempts", base.MaxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, base.MaxAttempts, lastErr)
}
