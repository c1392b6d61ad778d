package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback freshness when the response carries none.
	DefaultTTL = 5 * time.Minute
)

// NewEntry builds an entry from a response status, headers and body.
// It returns nil when the response forbids storing (Cache-Control: no-store).
func NewEntry(statusCode int, header http.Header, body []byte) *Entry {
	if hasDirective(header, "no-store") {
		return nil
	}

	entry := &Entry{
		Body:       body,
		ETag:       header.Get("ETag"),
		StatusCode: statusCode,
		StoredAt:   time.Now(),
		Expires:    parseExpires(header),
	}

	if lastMod := header.Get("Last-Modified"); lastMod != "" {
		if t, err := http.ParseTime(lastMod); err == nil {
			entry.LastModified = t
		}
	}

	return entry
}

// ExpiresFrom returns the freshness deadline advertised by header.
func ExpiresFrom(header http.Header) time.Time {
	return parseExpires(header)
}

// parseExpires prefers Cache-Control max-age over Expires and falls back to
// now + DefaultTTL.
func parseExpires(header http.Header) time.Time {
	now := time.Now()

	if hasDirective(header, "no-cache") {
		return now
	}
	if maxAge, ok := maxAgeDirective(header); ok {
		return now.Add(maxAge)
	}

	expiresStr := header.Get("Expires")
	if expiresStr == "" {
		return now.Add(DefaultTTL)
	}

	expires, err := http.ParseTime(expiresStr)
	if err != nil {
		return now.Add(DefaultTTL)
	}
	if expires.Before(now) {
		return now
	}
	return expires
}

func cacheControl(header http.Header) []string {
	var directives []string
	for _, v := range header.Values("Cache-Control") {
		for _, d := range strings.Split(v, ",") {
			directives = append(directives, strings.ToLower(strings.TrimSpace(d)))
		}
	}
	return directives
}

func hasDirective(header http.Header, name string) bool {
	for _, d := range cacheControl(header) {
		if d == name {
			return true
		}
	}
	return false
}

func maxAgeDirective(header http.Header) (time.Duration, bool) {
	for _, d := range cacheControl(header) {
		v, ok := strings.CutPrefix(d, "max-age=")
		if !ok {
			continue
		}
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}

// AddConditionalHeaders adds If-None-Match (preferred) or If-Modified-Since
// to req for a revalidatable entry.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}
	if req.Header == nil {
		req.Header = http.Header{}
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
}
