package shared

import "time"

// SourceStatus represents the liveness record of a market data source.
type SourceStatus struct {
	SourceName string
	IsOnline   bool
	LastUpdate time.Time
	TicksCount int64
	LastError  string
}
