// Package notify fans alerts out to the registered notification channels.
package notify

import (
	"context"

	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/rs/zerolog"
)

const (
	// alertBufferSize is the buffer size for the alert dispatch channel.
	alertBufferSize = 1024
)

// DispatcherConfig represents the alert dispatcher configuration.
type DispatcherConfig struct {
	// Channels represents the registered notification channels.
	Channels []shared.NotificationChannel
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Dispatcher delivers published alerts to every registered notification
// channel on a dedicated task, decoupling notification latency from the
// ingestion path. A failing channel is isolated from the others.
type Dispatcher struct {
	cfg    *DispatcherConfig
	alerts chan shared.Alert
}

// NewDispatcher initializes a new alert dispatcher.
func NewDispatcher(cfg *DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg,
		alerts: make(chan shared.Alert, alertBufferSize),
	}
}

// Publish relays the provided alert for dispatch.
func (d *Dispatcher) Publish(alert shared.Alert) {
	select {
	case d.alerts <- alert:
		// do nothing.
	default:
		d.cfg.Logger.Error().Msgf("alert channel at capacity: %d/%d",
			len(d.alerts), alertBufferSize)
	}
}

// dispatch delivers the provided alert to every registered channel. A channel
// failure is logged and does not affect delivery to the remaining channels.
func (d *Dispatcher) dispatch(ctx context.Context, alert shared.Alert) {
	for _, channel := range d.cfg.Channels {
		err := channel.Send(ctx, alert)
		if err != nil {
			d.cfg.Logger.Error().Msgf("sending alert via %s: %v", channel.Name(), err)
		}
	}
}

// Run dispatches published alerts until the provided context is cancelled,
// draining anything still queued before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case alert := <-d.alerts:
					d.dispatch(context.Background(), alert)
				default:
					return
				}
			}
		case alert := <-d.alerts:
			d.dispatch(ctx, alert)
		}
	}
}
