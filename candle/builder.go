package candle

import (
	"math"
	"time"

	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Builder incrementally accumulates ticks for one open candle bucket.
type Builder struct {
	symbol    shared.Symbol
	openTime  time.Time
	timeframe shared.Timeframe

	open  decimal.Decimal
	high  decimal.Decimal
	low   decimal.Decimal
	close decimal.Decimal

	volume           decimal.Decimal
	sumPrice         decimal.Decimal
	sumPriceSquared  decimal.Decimal
	totalPriceVolume decimal.Decimal
	tickCount        int64
}

// NewBuilder initializes a new builder for the provided bucket.
func NewBuilder(symbol shared.Symbol, openTime time.Time, timeframe shared.Timeframe) *Builder {
	return &Builder{
		symbol:    symbol,
		openTime:  openTime,
		timeframe: timeframe,
	}
}

// Add folds the provided tick into the open candle.
func (b *Builder) Add(tick *shared.Tick) {
	if b.tickCount == 0 {
		b.open = tick.Price
		b.high = tick.Price
		b.low = tick.Price
	}

	if tick.Price.GreaterThan(b.high) {
		b.high = tick.Price
	}
	if tick.Price.LessThan(b.low) {
		b.low = tick.Price
	}

	b.close = tick.Price
	b.volume = b.volume.Add(tick.Volume)
	b.sumPrice = b.sumPrice.Add(tick.Price)
	b.sumPriceSquared = b.sumPriceSquared.Add(tick.Price.Mul(tick.Price))
	b.totalPriceVolume = b.totalPriceVolume.Add(tick.Price.Mul(tick.Volume))
	b.tickCount++
}

// OpenTime returns the aligned start of the bucket being built.
func (b *Builder) OpenTime() time.Time {
	return b.openTime
}

// TickCount returns the number of ticks folded into the builder.
func (b *Builder) TickCount() int64 {
	return b.tickCount
}

// Snapshot finalizes the builder into an immutable candle. The average price
// is volume weighted when the bucket traded volume, otherwise the simple mean
// of observed prices. Volatility is the population standard deviation of
// observed prices, with the variance floored at zero to guard against
// floating point cancellation.
func (b *Builder) Snapshot() shared.Candle {
	var averagePrice decimal.Decimal
	switch {
	case b.volume.IsPositive():
		averagePrice = b.totalPriceVolume.Div(b.volume)
	case b.tickCount > 0:
		averagePrice = b.sumPrice.Div(decimal.NewFromInt(b.tickCount))
	}

	var volatility float64
	if b.tickCount > 0 {
		count := decimal.NewFromInt(b.tickCount)
		mean, _ := b.sumPrice.Div(count).Float64()
		meanSquares, _ := b.sumPriceSquared.Div(count).Float64()
		variance := math.Max(0, meanSquares-mean*mean)
		volatility = math.Sqrt(variance)
	}

	return shared.Candle{
		ID:           uuid.New(),
		Symbol:       b.symbol,
		OpenTime:     b.openTime,
		CloseTime:    b.openTime.Add(b.timeframe.Duration()),
		Timeframe:    b.timeframe,
		Open:         b.open,
		High:         b.high,
		Low:          b.low,
		Close:        b.close,
		Volume:       b.volume,
		AveragePrice: averagePrice,
		Volatility:   volatility,
	}
}
