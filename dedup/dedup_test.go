package dedup

import (
	"testing"
	"time"

	"github.com/Fadeefcom/Aggregator/shared"
	"github.com/peterldowns/testy/assert"
	"github.com/shopspring/decimal"
)

func TestIsDuplicate(t *testing.T) {
	deduplicator := NewDeduplicator(DefaultTTL)

	timestamp := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	tick, err := shared.NewTick("BTCUSD", decimal.NewFromInt(100),
		decimal.NewFromInt(1), timestamp, "test")
	assert.NoError(t, err)

	// Ensure the first occurrence passes and the re-delivery is flagged.
	assert.False(t, deduplicator.IsDuplicate(&tick))
	assert.True(t, deduplicator.IsDuplicate(&tick))

	// A tick with the same fingerprint fields is a duplicate regardless of
	// its identifier.
	redelivered, err := shared.NewTick("BTCUSD", decimal.NewFromInt(100),
		decimal.NewFromInt(1), timestamp, "test")
	assert.NoError(t, err)
	assert.NotEqual(t, tick.ID, redelivered.ID)
	assert.True(t, deduplicator.IsDuplicate(&redelivered))

	// Ensure changing any fingerprint field admits the tick.
	differentPrice, err := shared.NewTick("BTCUSD", decimal.NewFromInt(101),
		decimal.NewFromInt(1), timestamp, "test")
	assert.NoError(t, err)
	assert.False(t, deduplicator.IsDuplicate(&differentPrice))

	differentSource, err := shared.NewTick("BTCUSD", decimal.NewFromInt(100),
		decimal.NewFromInt(1), timestamp, "other")
	assert.NoError(t, err)
	assert.False(t, deduplicator.IsDuplicate(&differentSource))
}

func TestIsDuplicateTTLExpiry(t *testing.T) {
	deduplicator := NewDeduplicator(50 * time.Millisecond)

	timestamp := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	tick, err := shared.NewTick("BTCUSD", decimal.NewFromInt(100),
		decimal.NewFromInt(1), timestamp, "test")
	assert.NoError(t, err)

	assert.False(t, deduplicator.IsDuplicate(&tick))
	assert.True(t, deduplicator.IsDuplicate(&tick))

	// Ensure the fingerprint is forgotten once the retention window lapses.
	time.Sleep(100 * time.Millisecond)
	assert.False(t, deduplicator.IsDuplicate(&tick))
}

func TestNewDeduplicatorDefaultsTTL(t *testing.T) {
	// Ensure a non-positive window falls back to the default instead of
	// disabling retention.
	deduplicator := NewDeduplicator(0)

	timestamp := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	tick, err := shared.NewTick("BTCUSD", decimal.NewFromInt(100),
		decimal.NewFromInt(1), timestamp, "test")
	assert.NoError(t, err)

	assert.False(t, deduplicator.IsDuplicate(&tick))
	assert.True(t, deduplicator.IsDuplicate(&tick))
}
