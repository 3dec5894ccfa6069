package alert

import (
	"sync"

	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/rs/zerolog"
)

// EngineConfig represents the alert engine configuration.
type EngineConfig struct {
	// Rules represents the ordered alert rule set.
	Rules []Rule
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Engine evaluates the configured rule set against incoming ticks, tracking
// the last seen tick per symbol. Writes come from the pipeline's single
// consumer, the last-tick map is guarded for concurrent monitoring reads.
type Engine struct {
	cfg          *EngineConfig
	lastTicks    map[shared.Symbol]shared.Tick
	lastTicksMtx sync.RWMutex
}

// NewEngine initializes a new alert engine.
func NewEngine(cfg *EngineConfig) *Engine {
	return &Engine{
		cfg:       cfg,
		lastTicks: make(map[shared.Symbol]shared.Tick),
	}
}

// CheckAlerts evaluates every rule in declaration order against the provided
// tick and returns the triggered alerts, then records the tick as the last
// seen for its symbol. A single tick can trigger multiple rules.
func (e *Engine) CheckAlerts(tick shared.Tick) []shared.Alert {
	e.lastTicksMtx.RLock()
	var previous *shared.Tick
	if last, ok := e.lastTicks[tick.Symbol]; ok {
		previous = &last
	}
	e.lastTicksMtx.RUnlock()

	var alerts []shared.Alert
	for _, rule := range e.cfg.Rules {
		triggered, reason := rule.Evaluate(tick, previous)
		if !triggered {
			continue
		}

		e.cfg.Logger.Warn().Msgf("alert triggered for %s: %s", tick.Symbol, reason)
		alerts = append(alerts, shared.Alert{
			Symbol:    tick.Symbol,
			Message:   reason,
			Timestamp: tick.Timestamp,
			Severity:  shared.SeverityWarning,
		})
	}

	e.lastTicksMtx.Lock()
	e.lastTicks[tick.Symbol] = tick
	e.lastTicksMtx.Unlock()

	return alerts
}

// LastTick returns the most recent tick recorded for the provided symbol.
func (e *Engine) LastTick(symbol shared.Symbol) (shared.Tick, bool) {
	e.lastTicksMtx.RLock()
	defer e.lastTicksMtx.RUnlock()

	tick, ok := e.lastTicks[symbol]
	return tick, ok
}
