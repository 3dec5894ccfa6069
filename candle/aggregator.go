package candle

import (
	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/rs/zerolog"
)

// AggregatorConfig represents the candle aggregator configuration.
type AggregatorConfig struct {
	// Timeframes represents the candle timeframes to aggregate.
	Timeframes []shared.Timeframe
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Aggregator maintains one open candle builder per (symbol, timeframe) pair
// and finalizes candles as ticks cross bucket boundaries. It is owned by the
// pipeline's single consumer and requires no locking.
type Aggregator struct {
	cfg       *AggregatorConfig
	builders  map[string]*Builder
	lateTicks uint64
}

// NewAggregator initializes a new candle aggregator.
func NewAggregator(cfg *AggregatorConfig) *Aggregator {
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = shared.DefaultTimeframes()
	}

	return &Aggregator{
		cfg:      cfg,
		builders: make(map[string]*Builder),
	}
}

// builderKey derives the active builder key for the provided pair.
func builderKey(symbol shared.Symbol, timeframe shared.Timeframe) string {
	return string(symbol) + "_" + timeframe.String()
}

// Aggregate folds the provided tick into every configured timeframe and
// returns the candles closed by it. Each timeframe is processed independently,
// a single tick can close up to one candle per configured timeframe. A tick
// belonging to a bucket older than the currently open one is dropped for that
// timeframe rather than reopening closed state.
func (a *Aggregator) Aggregate(tick *shared.Tick) []shared.Candle {
	var closed []shared.Candle
	for _, timeframe := range a.cfg.Timeframes {
		bucket := timeframe.Bucket(tick.Timestamp)
		key := builderKey(tick.Symbol, timeframe)

		builder, ok := a.builders[key]
		if !ok {
			builder = NewBuilder(tick.Symbol, bucket, timeframe)
			a.builders[key] = builder
		}

		switch {
		case bucket.After(builder.OpenTime()):
			closed = append(closed, builder.Snapshot())

			builder = NewBuilder(tick.Symbol, bucket, timeframe)
			a.builders[key] = builder
		case bucket.Before(builder.OpenTime()):
			a.lateTicks++
			a.cfg.Logger.Debug().Msgf("dropping late tick for %s: bucket %s precedes open bucket %s",
				key, bucket, builder.OpenTime())
			continue
		}

		builder.Add(tick)
	}

	return closed
}

// LateTicks returns the number of ticks dropped for arriving after their
// bucket closed.
func (a *Aggregator) LateTicks() uint64 {
	return a.lateTicks
}

// OpenBuilders returns the number of currently open candle builders.
func (a *Aggregator) OpenBuilders() int {
	return len(a.builders)
}
