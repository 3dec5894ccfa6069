package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Fadeefcom/Aggregator/ingest"
	"github.com/Fadeefcom/Aggregator/metrics"
	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/Fadeefcom/Aggregator/status"
	"github.com/davecgh/go-spew/spew"
	"github.com/rs/zerolog"
)

const (
	// DefaultBatchSize triggers a commit once this many ticks are buffered.
	DefaultBatchSize = 1000
	// DefaultFlushInterval triggers a commit and status snapshot persist even
	// when the batch size was not reached.
	DefaultFlushInterval = 5 * time.Second
	// DefaultShutdownGrace bounds the final drain and flush on shutdown.
	DefaultShutdownGrace = 10 * time.Second
)

// CoordinatorConfig represents the batch coordinator configuration.
type CoordinatorConfig struct {
	// Queue is the bounded ingestion queue drained by the coordinator.
	Queue *ingest.Queue
	// Processor runs each drained tick through the pipeline gates.
	Processor *Processor
	// Storage persists batches of pipeline output.
	Storage shared.BatchStorage
	// Tracker provides source status snapshots for periodic persistence.
	Tracker *status.Tracker
	// BatchSize is the tick buffer size triggering a commit.
	BatchSize int
	// FlushInterval is the periodic commit trigger.
	FlushInterval time.Duration
	// ShutdownGrace bounds the final flush on shutdown.
	ShutdownGrace time.Duration
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Coordinator drains the ingestion queue, buffers accepted ticks and closed
// candles, and commits them to storage on size and time triggers. It is the
// queue's single consumer and the exclusive owner of the batch buffers.
type Coordinator struct {
	cfg          *CoordinatorConfig
	tickBuffer   []shared.Tick
	candleBuffer []shared.Candle
	lastFlush    time.Time
}

// NewCoordinator initializes a new batch coordinator.
func NewCoordinator(cfg *CoordinatorConfig) *Coordinator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}

	return &Coordinator{
		cfg:        cfg,
		tickBuffer: make([]shared.Tick, 0, cfg.BatchSize),
	}
}

// process runs a single tick through the processor and buffers the results.
func (c *Coordinator) process(tick shared.Tick) {
	accepted, closed := c.cfg.Processor.Process(tick)
	if !accepted {
		return
	}

	c.tickBuffer = append(c.tickBuffer, tick)
	c.candleBuffer = append(c.candleBuffer, closed...)
}

// stage stages all buffered writes with the storage for the current batch.
func (c *Coordinator) stage(ctx context.Context, includeStatuses bool) error {
	if len(c.tickBuffer) > 0 {
		err := c.cfg.Storage.AddTicksBatch(ctx, c.tickBuffer)
		if err != nil {
			return fmt.Errorf("staging tick batch: %w", err)
		}
	}

	if len(c.candleBuffer) > 0 {
		err := c.cfg.Storage.AddCandlesBatch(ctx, c.candleBuffer)
		if err != nil {
			return fmt.Errorf("staging candle batch: %w", err)
		}
	}

	if includeStatuses {
		statuses := c.cfg.Tracker.Snapshot()
		for idx := range statuses {
			err := c.cfg.Storage.UpsertSourceStatus(ctx, statuses[idx])
			if err != nil {
				return fmt.Errorf("staging source status: %w", err)
			}
		}
	}

	return nil
}

// flush commits buffered ticks and candles, and optionally source status
// snapshots, as one transaction. Buffers are cleared regardless of outcome,
// a failed batch is logged and dropped rather than retried.
func (c *Coordinator) flush(ctx context.Context, includeStatuses bool) error {
	c.lastFlush = time.Now()
	metrics.QueueDepth.Set(float64(c.cfg.Queue.Len()))

	if len(c.tickBuffer) == 0 && len(c.candleBuffer) == 0 && !includeStatuses {
		return nil
	}

	start := time.Now()
	err := c.stage(ctx, includeStatuses)
	if err == nil {
		err = c.cfg.Storage.Commit(ctx)
	}

	ticks, candles := len(c.tickBuffer), len(c.candleBuffer)
	c.tickBuffer = c.tickBuffer[:0]
	c.candleBuffer = c.candleBuffer[:0]

	if err != nil {
		metrics.BatchFailures.Inc()
		c.cfg.Logger.Error().Msgf("dropping batch of %d ticks and %d candles: %v",
			ticks, candles, err)
		return err
	}

	metrics.BatchCommits.Inc()
	metrics.CommitDuration.Observe(time.Since(start).Seconds())

	return nil
}

// shutdown stops reading new ticks, drains what remains buffered in the queue
// and performs one final best-effort commit bounded by the shutdown grace
// period. A failed or timed out final flush is logged, never raised.
func (c *Coordinator) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownGrace)
	defer cancel()

	for {
		tick, ok := c.cfg.Queue.TryDequeue()
		if !ok {
			break
		}

		c.process(tick)
	}

	c.cfg.Logger.Info().Msgf("graceful shutdown: flushing %d ticks and %d candles",
		len(c.tickBuffer), len(c.candleBuffer))

	err := c.flush(ctx, true)
	if err != nil {
		c.cfg.Logger.WithLevel(zerolog.FatalLevel).Msgf("final flush failed: %v, source statuses: %s",
			err, spew.Sdump(c.cfg.Tracker.Snapshot()))
		return
	}

	c.cfg.Logger.Info().Msg("final flush completed")
}

// Run drains the ingestion queue until the provided context is cancelled or
// the queue is closed and exhausted, then performs the final drain and flush.
func (c *Coordinator) Run(ctx context.Context) {
	c.lastFlush = time.Now()

	for {
		waitCtx, cancelWait := context.WithTimeout(ctx, c.cfg.FlushInterval)
		tick, err := c.cfg.Queue.WaitForItem(waitCtx)
		cancelWait()

		switch {
		case err == nil:
			c.process(tick)

			// Drain the rest of the burst before checking commit triggers.
			for len(c.tickBuffer) < c.cfg.BatchSize {
				next, ok := c.cfg.Queue.TryDequeue()
				if !ok {
					break
				}

				c.process(next)
			}

			if len(c.tickBuffer) >= c.cfg.BatchSize {
				c.flush(ctx, false)
			}
		case errors.Is(err, ingest.ErrQueueClosed):
			c.shutdown()
			return
		default:
			if ctx.Err() != nil {
				c.shutdown()
				return
			}
			// The wait deadline elapsed with the queue idle, fall through to
			// the periodic flush check.
		}

		if time.Since(c.lastFlush) >= c.cfg.FlushInterval {
			c.flush(ctx, true)
		}
	}
}
