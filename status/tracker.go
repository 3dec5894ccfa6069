// Package status tracks per-source liveness for the ingestion pipeline.
package status

import (
	"sync"
	"time"

	"github.com/Fadeefcom/Aggregator/shared"
)

// Tracker records per-source heartbeats, tick counts and online state.
// Heartbeats come from the pipeline's single consumer while transports and the
// monitoring endpoint read and write concurrently, so the map is guarded.
type Tracker struct {
	statuses    map[string]*shared.SourceStatus
	statusesMtx sync.RWMutex
}

// NewTracker initializes a new source status tracker.
func NewTracker() *Tracker {
	return &Tracker{
		statuses: make(map[string]*shared.SourceStatus),
	}
}

// Heartbeat atomically creates or updates the status record for the provided
// source, incrementing its tick count, marking it online and clearing any
// previous error.
func (t *Tracker) Heartbeat(sourceName string) {
	t.statusesMtx.Lock()
	defer t.statusesMtx.Unlock()

	stat, ok := t.statuses[sourceName]
	if !ok {
		stat = &shared.SourceStatus{SourceName: sourceName}
		t.statuses[sourceName] = stat
	}

	stat.TicksCount++
	stat.IsOnline = true
	stat.LastError = ""
	stat.LastUpdate = time.Now().UTC()
}

// MarkOffline records a delivery failure for the provided source.
func (t *Tracker) MarkOffline(sourceName string, cause string) {
	t.statusesMtx.Lock()
	defer t.statusesMtx.Unlock()

	stat, ok := t.statuses[sourceName]
	if !ok {
		stat = &shared.SourceStatus{SourceName: sourceName}
		t.statuses[sourceName] = stat
	}

	stat.IsOnline = false
	stat.LastError = cause
	stat.LastUpdate = time.Now().UTC()
}

// Snapshot returns a point-in-time copy of all tracked statuses. Iteration
// order is unspecified.
func (t *Tracker) Snapshot() []shared.SourceStatus {
	t.statusesMtx.RLock()
	defer t.statusesMtx.RUnlock()

	snapshot := make([]shared.SourceStatus, 0, len(t.statuses))
	for _, stat := range t.statuses {
		snapshot = append(snapshot, *stat)
	}

	return snapshot
}
