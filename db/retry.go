package db

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// RetryConfig bounds how long a write waits out a locked store
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetry is used when the caller leaves RetryConfig empty
var DefaultRetry = RetryConfig{
	MaxAttempts:     5,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     2 * time.Second,
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultRetry.MaxAttempts
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = DefaultRetry.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = DefaultRetry.MaxInterval
	}
	return c
}

// retry runs op until it succeeds, fails with a non transient error or the
// attempts run out. Exhausted retries surface as *TransientStoreError.
func (s *Store) retry(ctx context.Context, name string, op func() error) error {
	timer := storeOperationDuration.WithLabelValues(name)
	start := time.Now()
	defer func() { timer.Observe(time.Since(start).Seconds()) }()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryConfig.InitialInterval
	b.MaxInterval = s.retryConfig.MaxInterval
	b.Multiplier = 2
	b.MaxElapsedTime = 0 // bounded by attempts instead

	attempts := 0
	err := backoff.RetryNotify(
		func() error {
			attempts++
			err := op()
			if err == nil {
				return nil
			}
			if !isTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.retryConfig.MaxAttempts-1)), ctx),
		func(err error, wait time.Duration) {
			storeRetries.WithLabelValues(name).Inc()
			log.WithFields(log.Fields{
				"op":      name,
				"attempt": attempts,
				"wait":    wait,
				"error":   err,
			}).Warn("Store is busy, retrying")
		},
	)
	if err == nil {
		return nil
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Err
	}
	if isTransient(err) {
		return &TransientStoreError{Op: name, Attempts: attempts, Err: err}
	}
	return err
}
