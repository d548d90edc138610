// v0
// internal/sink/sink.go

// Package sink persists generated records. Every backend honours the same
// Batch contract: Update=false replaces the collection, Update=true appends.
// Stream backends (kafka, mqtt) can only append.
package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/metrics"
)

// ErrEmptyCollection is returned for batches without a collection name.
var ErrEmptyCollection = errors.New("sink: collection name is required")

// Batch is one unit of persistence.
type Batch struct {
	Collection string
	RunID      string
	Records    []generator.Record
	Events     []generator.EventWindow
	// Update appends to the collection instead of replacing it.
	Update bool
}

// Len returns the number of documents in the batch.
func (b Batch) Len() int { return len(b.Records) + len(b.Events) }

func (b Batch) validate() error {
	if strings.TrimSpace(b.Collection) == "" {
		return ErrEmptyCollection
	}
	return nil
}

// FromResult wraps a run result; the collection defaults to the metric name.
func FromResult(res *generator.Result, collection string, update bool) Batch {
	if collection == "" {
		collection = res.Metric
	}
	return Batch{
		Collection: collection,
		RunID:      res.RunID,
		Records:    res.Records,
		Events:     res.Events,
		Update:     update,
	}
}

// Sink is a persistence backend.
type Sink interface {
	Name() string
	Write(ctx context.Context, b Batch) error
	Close() error
}

// Multi fans a batch out to several sinks concurrently and records per-sink
// latency and failures.
type Multi struct {
	sinks   []Sink
	log     *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewMulti builds a fan-out; timeout bounds every single write when positive.
func NewMulti(log *slog.Logger, m *metrics.Metrics, timeout time.Duration, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, log: log, metrics: m, timeout: timeout}
}

func (m *Multi) Name() string { return "multi" }

// Len returns the number of wrapped sinks.
func (m *Multi) Len() int { return len(m.sinks) }

// Write writes b to every sink and returns the joined errors of the failures.
func (m *Multi) Write(ctx context.Context, b Batch) error {
	if err := b.validate(); err != nil {
		return err
	}
	errs := make([]error, len(m.sinks))
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range m.sinks {
		i, s := i, s
		g.Go(func() error {
			wctx, cancel := m.writeContext(gctx)
			defer cancel()
			start := time.Now()
			err := s.Write(wctx, b)
			m.metrics.SinkWrite(s.Name(), time.Since(start), err)
			if err != nil {
				m.log.Error("sink_write_failed",
					slog.String("sink", s.Name()),
					slog.String("collection", b.Collection),
					slog.Any("err", err))
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil
			}
			m.log.Info("sink_write_ok",
				slog.String("sink", s.Name()),
				slog.String("collection", b.Collection),
				slog.Int("documents", b.Len()),
				slog.Bool("update", b.Update))
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (m *Multi) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, m.timeout)
}

// Close closes every sink.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
