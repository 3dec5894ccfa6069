package shared

import "context"

// BatchStorage defines the requirements for persisting pipeline output. The
// Add and Upsert calls stage writes for the current batch; Commit applies all
// staged writes as a single transaction and discards them afterwards.
type BatchStorage interface {
	// AddTicksBatch stages the provided ticks for the current batch.
	AddTicksBatch(ctx context.Context, ticks []Tick) error
	// AddCandlesBatch stages the provided candles for the current batch.
	AddCandlesBatch(ctx context.Context, candles []Candle) error
	// UpsertSourceStatus stages a create-or-update of the provided source status.
	UpsertSourceStatus(ctx context.Context, status SourceStatus) error
	// Commit applies all staged writes atomically.
	Commit(ctx context.Context) error
}

// NotificationChannel defines the requirements for delivering alerts.
type NotificationChannel interface {
	// Name identifies the channel.
	Name() string
	// Send delivers the provided alert.
	Send(ctx context.Context, alert Alert) error
}
