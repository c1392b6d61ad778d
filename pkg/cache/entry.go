package cache

import (
	"time"
)

// Entry is a cached API response.
type Entry struct {
	// Body is the raw response body.
	Body []byte `json:"body"`

	// ETag for If-None-Match revalidation.
	ETag string `json:"etag,omitempty"`

	// LastModified for If-Modified-Since revalidation.
	LastModified time.Time `json:"last_modified,omitempty"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	StatusCode int       `json:"status_code"`
	StoredAt   time.Time `json:"stored_at"`
}

// IsExpired returns true if the entry is stale.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the remaining freshness lifetime, 0 if stale.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Revalidatable reports whether a stale copy can be revalidated with a
// conditional request.
func (e *Entry) Revalidatable() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}
