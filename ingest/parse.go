package ingest

import (
	"fmt"
	"time"

	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ParseTick maps an exchange ticker payload to a tick. The payload carries
// symbol, price, volume and optionally a timestamp (unix milliseconds or
// RFC3339) and a source overriding the transport's source name.
func ParseTick(payload []byte, sourceName string) (shared.Tick, error) {
	symbolField := gjson.GetBytes(payload, "symbol")
	if !symbolField.Exists() {
		return shared.Tick{}, fmt.Errorf("ticker payload missing symbol")
	}

	symbol, err := shared.NewSymbol(symbolField.String())
	if err != nil {
		return shared.Tick{}, fmt.Errorf("parsing ticker symbol: %v", err)
	}

	priceField := gjson.GetBytes(payload, "price")
	if !priceField.Exists() {
		return shared.Tick{}, fmt.Errorf("ticker payload missing price")
	}

	price, err := decimal.NewFromString(priceField.String())
	if err != nil {
		return shared.Tick{}, fmt.Errorf("parsing ticker price: %v", err)
	}

	volume := decimal.Zero
	if volumeField := gjson.GetBytes(payload, "volume"); volumeField.Exists() {
		volume, err = decimal.NewFromString(volumeField.String())
		if err != nil {
			return shared.Tick{}, fmt.Errorf("parsing ticker volume: %v", err)
		}
	}

	timestamp := time.Now().UTC()
	if timestampField := gjson.GetBytes(payload, "timestamp"); timestampField.Exists() {
		switch timestampField.Type {
		case gjson.Number:
			timestamp = time.UnixMilli(timestampField.Int()).UTC()
		default:
			timestamp, err = time.Parse(time.RFC3339, timestampField.String())
			if err != nil {
				return shared.Tick{}, fmt.Errorf("parsing ticker timestamp: %v", err)
			}
		}
	}

	if srcField := gjson.GetBytes(payload, "source"); srcField.Exists() && srcField.String() != "" {
		sourceName = srcField.String()
	}

	return shared.NewTick(symbol, price, volume, timestamp, sourceName)
}
