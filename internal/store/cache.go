package store

import "time"

// DefaultCacheWindow is how long a stored analysis stays fresh.
const DefaultCacheWindow = 7 * 24 * time.Hour

// CacheEntry is a previously stored analysis with its write time.
type CacheEntry struct {
	Payload  *StoredAnalysis
	CachedAt time.Time
}

// IsFresh is the single definition of cache freshness: an entry written
// at cachedAt is fresh at now iff less than window has elapsed. Every
// cache-validity check in the codebase goes through this predicate.
func IsFresh(cachedAt, now time.Time, window time.Duration) bool {
	if cachedAt.IsZero() || window <= 0 {
		return false
	}
	return now.Sub(cachedAt) < window
}

// Fresh reports whether the entry is fresh at now for the given window.
func (e *CacheEntry) Fresh(now time.Time, window time.Duration) bool {
	if e == nil {
		return false
	}
	return IsFresh(e.CachedAt, now, window)
}
