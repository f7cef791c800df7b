package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/BartekS5/moviesync/pkg/logger"
	"github.com/BartekS5/moviesync/pkg/metrics"
	"github.com/BartekS5/moviesync/pkg/models"
)

// SinkWriter upserts documents into the index collection named after their
// stream. Transient failures are retried with exponential backoff up to
// Retry.MaxAttempts calls in total.
type SinkWriter struct {
	index   Index
	retry   RetryPolicy
	limiter *rate.Limiter
}

// NewSinkWriter wraps index. A positive writesPerSecond caps the write rate.
func NewSinkWriter(index Index, retry RetryPolicy, writesPerSecond float64) *SinkWriter {
	w := &SinkWriter{index: index, retry: retry}
	if writesPerSecond > 0 {
		burst := int(writesPerSecond)
		if burst < 1 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(writesPerSecond), burst)
	}
	return w
}

func (w *SinkWriter) Upsert(ctx context.Context, stream string, doc models.Document) error {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	id := doc.DocumentID()
	attempts := 0
	var lastErr error
	op := func() error {
		attempts++
		err := w.index.Upsert(ctx, stream, id, doc)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		metrics.SinkRetries.WithLabelValues(stream).Inc()
		logger.Warnf("Upsert of %s/%s failed (attempt %d), retrying in %s: %v", stream, id, attempts, wait, err)
	}

	err := backoff.RetryNotify(op, w.retry.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if IsTransient(lastErr) {
		return fmt.Errorf("upsert %s/%s: %w after %d attempts: %w", stream, id, ErrSinkExhausted, attempts, lastErr)
	}
	return fmt.Errorf("upsert %s/%s: %w", stream, id, err)
}
