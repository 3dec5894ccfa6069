// Package dedup suppresses re-delivery of identical ticks within a short
// time window.
package dedup

import (
	"time"

	"github.com/Fadeefcom/Aggregator/shared"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultTTL is the default retention window for tick fingerprints.
	DefaultTTL = 10 * time.Second
	// maxFingerprints caps the fingerprint cache to bound worst-case memory
	// when tick arrival outpaces TTL expiry.
	maxFingerprints = 1 << 18
)

// Deduplicator detects re-delivery of an identical tick within the retention
// window using the tick's structural fingerprint.
type Deduplicator struct {
	cache *lru.LRU[string, struct{}]
}

// NewDeduplicator initializes a new deduplicator with the provided fingerprint
// retention window.
func NewDeduplicator(ttl time.Duration) *Deduplicator {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Deduplicator{
		cache: lru.NewLRU[string, struct{}](maxFingerprints, nil, ttl),
	}
}

// IsDuplicate reports whether the provided tick's fingerprint was already seen
// within the retention window. First occurrences are recorded and return false.
func (d *Deduplicator) IsDuplicate(tick *shared.Tick) bool {
	key := tick.Fingerprint()
	if _, ok := d.cache.Get(key); ok {
		return true
	}

	d.cache.Add(key, struct{}{})
	return false
}
