// Package ingest provides the execution ingestion pipeline with buffered COPY-based writes.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/vitrina-labs/vitrina/internal/model"
	"github.com/vitrina-labs/vitrina/internal/storage"
	"github.com/vitrina-labs/vitrina/internal/telemetry"
)

// maxBufferCapacity is the hard upper limit on buffered executions to prevent OOM.
// When this limit is reached, Append applies backpressure by returning ErrBufferFull.
const maxBufferCapacity = 100_000

// ErrBufferFull is returned by Append when the buffer is at capacity.
// Handlers map it to 503 so clients can retry.
var ErrBufferFull = errors.New("ingest: buffer at capacity")

// Buffer accumulates execution records in memory and flushes to the database
// using COPY when either the buffer size or flush timeout is reached.
type Buffer struct {
	db           *storage.DB
	logger       *slog.Logger
	maxSize      int
	flushTimeout time.Duration

	mu    sync.Mutex
	execs []model.AgentExecution

	droppedExecs atomic.Int64 // total executions dropped due to capacity after flush failure
	started      atomic.Bool

	flushCh    chan struct{}
	done       chan struct{}
	cancelLoop context.CancelFunc // cancels the flushLoop goroutine
	drainCtx   context.Context    // set by Drain so final flush respects caller's deadline
}

// NewBuffer creates a new execution buffer.
func NewBuffer(db *storage.DB, logger *slog.Logger, maxSize int, flushTimeout time.Duration) *Buffer {
	return &Buffer{
		db:           db,
		logger:       logger,
		maxSize:      maxSize,
		flushTimeout: flushTimeout,
		flushCh:      make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Start begins the background flush loop and registers OTEL metrics. Call Drain to stop.
func (b *Buffer) Start(ctx context.Context) {
	if !b.started.CompareAndSwap(false, true) {
		b.logger.Warn("ingest: buffer already started")
		return
	}
	b.registerMetrics()
	loopCtx, cancel := context.WithCancel(ctx)
	b.cancelLoop = cancel
	go b.flushLoop(loopCtx)
}

// Append adds an execution to the buffer, assigning its ID and created_at.
// Returns the record as it will be written. Returns ErrBufferFull when the
// buffer is at capacity (backpressure).
func (b *Buffer) Append(exec model.AgentExecution) (model.AgentExecution, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.execs)+1 > maxBufferCapacity {
		return model.AgentExecution{}, ErrBufferFull
	}

	if exec.ID == uuid.Nil {
		exec.ID = uuid.New()
	}
	if exec.CreatedAt.IsZero() {
		exec.CreatedAt = time.Now().UTC()
	}

	b.execs = append(b.execs, exec)

	if len(b.execs) >= b.maxSize {
		select {
		case b.flushCh <- struct{}{}:
		default:
		}
	}

	return exec, nil
}

func (b *Buffer) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(b.flushTimeout)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush using the drain context provided by Drain().
			// We need a non-cancelled context because ctx is already done.
			// The drain context has its own deadline set by the caller.
			if b.drainCtx != nil {
				b.flush(b.drainCtx)
			} else {
				// Fallback for direct cancellation without Drain (e.g., tests).
				fallbackCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				b.flush(fallbackCtx)
				cancel()
			}
			close(b.done)
			return
		case <-ticker.C:
			b.flush(ctx)
		case <-b.flushCh:
			b.flush(ctx)
		}
	}
}

func (b *Buffer) flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.execs) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.execs
	b.execs = nil
	b.mu.Unlock()

	start := time.Now()
	count, err := b.db.InsertExecutions(ctx, batch)
	duration := time.Since(start)

	if err != nil {
		b.logger.Error("ingest: flush failed", "error", err, "batch_size", len(batch))
		// Put executions back for retry, but respect the capacity limit.
		b.mu.Lock()
		if len(b.execs)+len(batch) <= maxBufferCapacity {
			b.execs = append(batch, b.execs...)
		} else {
			b.droppedExecs.Add(int64(len(batch)))
			b.logger.Error("ingest: dropping executions, buffer at capacity after flush failure", "dropped", len(batch))
		}
		b.mu.Unlock()
		return
	}

	b.logger.Info("ingest: batch flushed",
		"batch_size", count,
		"flush_duration_ms", duration.Milliseconds(),
	)
}

// Drain signals the background flush loop to stop, waits for it to complete
// its final flush, and returns. The ctx parameter controls the maximum time
// to wait for the goroutine to finish and is passed to the final flush so it
// respects the caller's deadline.
func (b *Buffer) Drain(ctx context.Context) {
	b.drainCtx = ctx // Store so flushLoop's final flush respects caller's deadline.
	if b.cancelLoop != nil {
		b.cancelLoop() // Signal flushLoop to exit; it does a final flush before closing b.done.
	}
	select {
	case <-b.done:
	case <-ctx.Done():
		b.logger.Warn("ingest: drain timed out waiting for flush loop")
	}
}

// registerMetrics registers observable OTEL gauges for buffer health monitoring.
// Called from Start() after the global meter provider has been initialized.
func (b *Buffer) registerMetrics() {
	meter := telemetry.Meter("vitrina/ingest")

	_, _ = meter.Int64ObservableGauge("vitrina.ingest.buffer_depth",
		metric.WithDescription("Current number of executions in the write buffer"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(b.Len()))
			return nil
		}),
	)

	_, _ = meter.Int64ObservableGauge("vitrina.ingest.dropped_total",
		metric.WithDescription("Total executions dropped due to buffer capacity exhaustion"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(b.DroppedExecutions())
			return nil
		}),
	)
}

// Len returns the current number of buffered executions.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.execs)
}

// DroppedExecutions returns the total number of executions dropped due to
// buffer capacity exhaustion after a flush failure. A non-zero value indicates
// data loss.
func (b *Buffer) DroppedExecutions() int64 {
	return b.droppedExecs.Load()
}
