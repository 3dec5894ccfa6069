package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Fadeefcom/Aggregator/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// reconnectDelay is the wait before re-dialing a failed websocket source.
const reconnectDelay = 5 * time.Second

// SocketSource describes a streaming websocket exchange source.
type SocketSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// SocketWorkerConfig represents the websocket worker configuration.
type SocketWorkerConfig struct {
	// Sources represents the streamed exchange sources.
	Sources []SocketSource
	// Queue is the ingestion queue fed by the worker.
	Queue *Queue
	// MarkOffline records a delivery failure for a source.
	MarkOffline func(sourceName string, cause string)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// SocketWorker streams ticker payloads from websocket exchange sources into
// the ingestion queue, reconnecting with a delay on failure.
type SocketWorker struct {
	cfg *SocketWorkerConfig
	wg  sync.WaitGroup
}

// NewSocketWorker initializes a new websocket ingestion worker.
func NewSocketWorker(cfg *SocketWorkerConfig) *SocketWorker {
	return &SocketWorker{cfg: cfg}
}

// read consumes frames from the provided connection until it fails or the
// context is cancelled.
func (w *SocketWorker) read(ctx context.Context, source *SocketSource, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	// Unblock ReadMessage when the context is cancelled.
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		tick, err := ParseTick(payload, source.Name)
		if err != nil {
			w.cfg.Logger.Error().Msgf("parsing frame from %s: %v", source.Name, err)
			continue
		}

		metrics.TicksReceived.WithLabelValues(tick.Source).Inc()

		err = w.cfg.Queue.Enqueue(ctx, tick)
		switch {
		case errors.Is(err, ErrQueueClosed):
			return err
		case err != nil:
			return err
		}
	}
}

// stream maintains the connection lifecycle for one websocket source.
func (w *SocketWorker) stream(ctx context.Context, source *SocketSource) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, source.URL, nil)
		if err != nil {
			w.cfg.MarkOffline(source.Name, err.Error())
			w.cfg.Logger.Error().Msgf("connecting to %s at %s: %v", source.Name, source.URL, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
				continue
			}
		}

		w.cfg.Logger.Info().Msgf("streaming ticks from %s", source.Name)

		err = w.read(ctx, source, conn)
		conn.Close()
		switch {
		case errors.Is(err, ErrQueueClosed) || ctx.Err() != nil:
			return
		default:
			w.cfg.MarkOffline(source.Name, err.Error())
			w.cfg.Logger.Error().Msgf("reading from %s: %v", source.Name, err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
		}
	}
}

// Run streams every configured source until the provided context is cancelled.
func (w *SocketWorker) Run(ctx context.Context) {
	for idx := range w.cfg.Sources {
		source := w.cfg.Sources[idx]
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.stream(ctx, &source)
		}()
	}

	w.wg.Wait()
}
