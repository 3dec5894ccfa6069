package shared

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tick represents a single observed (price, volume) trade event for a symbol
// at a point in time.
type Tick struct {
	ID        uuid.UUID
	Symbol    Symbol
	Price     decimal.Decimal
	Volume    decimal.Decimal
	Timestamp time.Time
	Source    string
}

// NewTick validates and creates a new tick. The timestamp is normalized to UTC
// and the tick is assigned a unique id for persistence.
func NewTick(symbol Symbol, price decimal.Decimal, volume decimal.Decimal, timestamp time.Time, source string) (Tick, error) {
	if price.IsNegative() {
		return Tick{}, fmt.Errorf("tick price cannot be negative: %s", price)
	}

	return Tick{
		ID:        uuid.New(),
		Symbol:    symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: timestamp.UTC(),
		Source:    source,
	}, nil
}

// Fingerprint derives the structural identity key used to detect duplicate
// deliveries of the same tick. The timestamp is truncated to the millisecond.
func (t *Tick) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%d:%s", t.Source, t.Symbol, t.Timestamp.UnixMilli(), t.Price)
}
