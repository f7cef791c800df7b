package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BartekS5/moviesync/internal/checkpoint"
	"github.com/BartekS5/moviesync/pkg/logger"
	"github.com/BartekS5/moviesync/pkg/metrics"
)

const DefaultPollInterval = time.Second

// Pipeline replicates every configured stream, one row at a time: transform,
// then write. A watermark is checkpointed only after every row carrying it
// has been written.
type Pipeline struct {
	Streams   []Stream
	Extractor Extractor
	Sink      Sink
	Store     checkpoint.Store
	Interval  time.Duration
	// DryRun extracts and transforms but skips writes and checkpoints.
	DryRun bool

	// committed holds the newest watermark confirmed by Store in this
	// process; Set is never called with anything older.
	committed map[string]checkpoint.Watermark
}

func NewPipeline(streams []Stream, ext Extractor, sink Sink, store checkpoint.Store, interval time.Duration) *Pipeline {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Pipeline{
		Streams:   streams,
		Extractor: ext,
		Sink:      sink,
		Store:     store,
		Interval:  interval,
		committed: make(map[string]checkpoint.Watermark),
	}
}

// Run sweeps all streams, sleeps Interval, and repeats until ctx is done.
func (p *Pipeline) Run(ctx context.Context) error {
	logger.Infof("Starting sync loop. Streams: %d, Poll interval: %s", len(p.Streams), p.Interval)

	for {
		if err := p.Sweep(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("Sweep finished with errors: %v", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("Sync loop stopped.")
			return nil
		case <-time.After(p.Interval):
		}
	}
}

// Sweep processes each stream once, in configured order. A failing stream
// keeps its checkpoint and does not stop the others; all failures are
// returned joined.
func (p *Pipeline) Sweep(ctx context.Context) error {
	runID := uuid.NewString()
	start := time.Now()

	var errs []error
	for _, s := range p.Streams {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.syncStream(ctx, runID, s); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			errs = append(errs, fmt.Errorf("stream %s: %w", s.Name, err))
		}
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	return errors.Join(errs...)
}

func (p *Pipeline) syncStream(ctx context.Context, runID string, s Stream) (int, error) {
	log := logger.With("run", runID, "stream", s.Name)

	fail := func(stage string, err error) (int, error) {
		metrics.StreamErrors.WithLabelValues(s.Name, stage).Inc()
		return 0, fmt.Errorf("%s: %w", stage, err)
	}

	since, err := p.Store.Get(ctx, s.Name)
	if err != nil {
		return fail("checkpoint_read", err)
	}
	if p.committed == nil {
		p.committed = make(map[string]checkpoint.Watermark)
	}
	if last := p.committed[s.Name]; last.IsZero() {
		p.committed[s.Name] = since
	} else if newer, err := last.Before(since); err == nil && newer {
		p.committed[s.Name] = since
	}

	// pending is the watermark of the rows written so far that may still
	// share it with rows not yet seen. It is committed once a strictly newer
	// row arrives or the extraction ends cleanly.
	var pending checkpoint.Watermark
	commitPending := func(id string) error {
		if pending.IsZero() {
			return nil
		}
		if err := p.advance(ctx, s.Name, pending); err != nil {
			log.Error("checkpoint not persisted", "id", id, "watermark", string(pending), "err", err)
			return err
		}
		return nil
	}

	processed := 0
	for row, err := range p.Extractor.Extract(ctx, s, since) {
		if err != nil {
			log.Error("extraction failed", "since", since.String(), "processed", processed, "err", err)
			return fail("extract", err)
		}

		doc, err := s.Transformer.Transform(row)
		if err != nil {
			return fail("transform", err)
		}
		w, err := WatermarkOf(doc)
		if err != nil {
			return fail("validate", err)
		}

		if p.DryRun {
			log.Info("dry run, not writing", "id", doc.DocumentID(), "watermark", string(w))
			processed++
			continue
		}

		if pending.IsZero() {
			pending = w
		} else if newer, err := pending.Before(w); err != nil {
			return fail("validate", err)
		} else if newer {
			if err := commitPending(doc.DocumentID()); err != nil {
				return fail("checkpoint", err)
			}
			pending = w
		}

		if err := p.Sink.Upsert(ctx, s.Name, doc); err != nil {
			log.Error("write failed, checkpoint not advanced", "id", doc.DocumentID(), "watermark", string(w), "err", err)
			return fail("load", err)
		}
		metrics.DocumentsLoaded.WithLabelValues(s.Name).Inc()
		processed++
	}

	if err := commitPending(""); err != nil {
		return fail("checkpoint", err)
	}

	if processed > 0 {
		log.Info("stream synced", "documents", processed, "watermark", p.committed[s.Name].String(), "dry_run", p.DryRun)
	} else {
		log.Debug("no changes", "since", since.String())
	}
	return processed, nil
}

// advance persists w unless it would not move the stream forward.
// Callers only pass watermarks no later row can share.
func (p *Pipeline) advance(ctx context.Context, stream string, w checkpoint.Watermark) error {
	if last := p.committed[stream]; !last.IsZero() {
		newer, err := last.Before(w)
		if err != nil {
			return err
		}
		if !newer {
			if older, _ := w.Before(last); older {
				logger.Warnf("Ignoring out-of-order watermark %s for %s (committed %s)", w, stream, last)
			}
			return nil
		}
	}

	if err := p.Store.Set(ctx, stream, w); err != nil {
		return err
	}
	p.committed[stream] = w

	if t, err := w.Time(); err == nil {
		metrics.Watermark.WithLabelValues(stream).Set(float64(t.Unix()))
	}
	return nil
}
