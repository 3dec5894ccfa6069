package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Candle represents an immutable OHLCV summary of trades within a fixed time
// bucket, finalized once a tick crosses the bucket boundary.
type Candle struct {
	ID        uuid.UUID
	Symbol    Symbol
	OpenTime  time.Time
	CloseTime time.Time
	Timeframe Timeframe

	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal

	// AveragePrice is the volume weighted average price of the bucket, or the
	// simple mean of observed prices when the bucket traded no volume.
	AveragePrice decimal.Decimal
	// Volatility is the population standard deviation of prices in the bucket.
	Volatility float64
}
