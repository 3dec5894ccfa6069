package database

import (
	"context"
	"testing"
	"time"

	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

func TestStaging(t *testing.T) {
	db := &Database{}
	ctx := context.Background()

	timestamp := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	tick, err := shared.NewTick("BTCUSD", decimal.NewFromInt(100),
		decimal.NewFromInt(1), timestamp, "binance")
	assert.NoError(t, err)

	candle := shared.Candle{
		ID:        uuid.New(),
		Symbol:    "BTCUSD",
		OpenTime:  timestamp,
		CloseTime: timestamp.Add(time.Minute),
		Timeframe: shared.OneMinute,
		Open:      decimal.NewFromInt(100),
		High:      decimal.NewFromInt(110),
		Low:       decimal.NewFromInt(95),
		Close:     decimal.NewFromInt(105),
		Volume:    decimal.NewFromInt(3),
	}

	stat := shared.SourceStatus{
		SourceName: "binance",
		IsOnline:   true,
		LastUpdate: timestamp,
		TicksCount: 1,
	}

	assert.NoError(t, db.AddTicksBatch(ctx, []shared.Tick{tick}))
	assert.NoError(t, db.AddCandlesBatch(ctx, []shared.Candle{candle}))
	assert.NoError(t, db.UpsertSourceStatus(ctx, stat))

	// Ensure one statement was staged per write, in staging order.
	assert.Equal(t, 3, len(db.pending))
	for idx := range db.pending {
		assert.NotNil(t, db.pending[idx])
	}
	assert.Equal(t, insertTickSQL, db.pending[0].SQL)
	assert.Equal(t, insertCandleSQL, db.pending[1].SQL)
	assert.Equal(t, upsertSourceStatusSQL, db.pending[2].SQL)

	// Ensure values are staged in their wire forms.
	assert.Equal[any](t, tick.ID.String(), db.pending[0].PositionalParams[0])
	assert.Equal[any](t, "100", db.pending[0].PositionalParams[2])
	assert.Equal[any](t, timestamp.UnixMilli(), db.pending[0].PositionalParams[4])
	assert.Equal[any](t, "1m", db.pending[1].PositionalParams[2])
	assert.Equal[any](t, "binance", db.pending[2].PositionalParams[0])
}

func TestCommitWithoutStagedWrites(t *testing.T) {
	// Ensure an empty commit is a no-op rather than a round trip.
	db := &Database{}
	assert.NoError(t, db.Commit(context.Background()))
}
