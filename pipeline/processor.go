// Package pipeline orchestrates per-tick processing and batched persistence.
package pipeline

import (
	"github.com/Fadeefcom/Aggregator/alert"
	"github.com/Fadeefcom/Aggregator/candle"
	"github.com/Fadeefcom/Aggregator/dedup"
	"github.com/Fadeefcom/Aggregator/metrics"
	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/Fadeefcom/Aggregator/status"
	"github.com/rs/zerolog"
)

// Rejection reasons recorded when a tick is dropped at a pipeline gate.
const (
	rejectSymbol    = "symbol"
	rejectDuplicate = "duplicate"
)

// ProcessorConfig represents the tick processor configuration.
type ProcessorConfig struct {
	// AllowedSymbols restricts ingestion to the configured instrument set.
	AllowedSymbols []shared.Symbol
	// Dedup suppresses duplicate tick deliveries.
	Dedup *dedup.Deduplicator
	// Tracker records per-source liveness.
	Tracker *status.Tracker
	// Alerts evaluates the alert rule set.
	Alerts *alert.Engine
	// Aggregator builds candles from accepted ticks.
	Aggregator *candle.Aggregator
	// PublishAlert relays the provided alert for dispatch.
	PublishAlert func(alert shared.Alert)
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Processor runs each tick through the ingestion state machine: allowed-symbol
// gate, normalization, duplicate gate, source heartbeat, alert evaluation and
// candle aggregation. All of its aggregation, dedup and status state is
// mutated only by the coordinator's single consumer.
type Processor struct {
	cfg     *ProcessorConfig
	allowed map[shared.Symbol]bool
}

// NewProcessor initializes a new tick processor.
func NewProcessor(cfg *ProcessorConfig) *Processor {
	allowed := make(map[shared.Symbol]bool, len(cfg.AllowedSymbols))
	for idx := range cfg.AllowedSymbols {
		allowed[cfg.AllowedSymbols[idx]] = true
	}

	return &Processor{
		cfg:     cfg,
		allowed: allowed,
	}
}

// Process runs the provided tick through every gate, reporting whether it was
// accepted and returning any candles its arrival closed. Ticks dropped at the
// symbol or duplicate gate are silent rejections, not errors.
func (p *Processor) Process(tick shared.Tick) (bool, []shared.Candle) {
	if !p.allowed[tick.Symbol] {
		metrics.TicksRejected.WithLabelValues(rejectSymbol).Inc()
		return false, nil
	}

	tick.Timestamp = tick.Timestamp.UTC()

	if p.cfg.Dedup.IsDuplicate(&tick) {
		metrics.TicksRejected.WithLabelValues(rejectDuplicate).Inc()
		return false, nil
	}

	p.cfg.Tracker.Heartbeat(tick.Source)

	closed := p.UpdateMetricsAndAggregate(tick)
	metrics.TicksProcessed.WithLabelValues(tick.Source).Inc()

	return true, closed
}

// UpdateMetricsAndAggregate evaluates the alert rules for the provided tick,
// publishes any triggered alerts and folds the tick into the candle
// aggregator, returning the newly closed candles.
func (p *Processor) UpdateMetricsAndAggregate(tick shared.Tick) []shared.Candle {
	for _, triggered := range p.cfg.Alerts.CheckAlerts(tick) {
		metrics.AlertsTriggered.WithLabelValues(triggered.Symbol.String()).Inc()
		p.cfg.PublishAlert(triggered)
	}

	closed := p.cfg.Aggregator.Aggregate(&tick)
	for idx := range closed {
		metrics.CandlesGenerated.WithLabelValues(closed[idx].Symbol.String(),
			closed[idx].Timeframe.String()).Inc()
	}

	return closed
}
