package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces all cache keys in Redis.
const KeyPrefix = "rickmorty"

// Key identifies a cached response.
type Key struct {
	// Endpoint is the request path (e.g. "/api/character/").
	Endpoint string

	// Query holds the request query parameters.
	Query url.Values
}

// String generates a deterministic Redis key.
// Format: rickmorty:endpoint:param1=v1,v2:param2=v
//
// Example:
//
//	rickmorty:api/character:page=2
func (k Key) String() string {
	parts := []string{KeyPrefix}

	if endpoint := strings.Trim(k.Endpoint, "/"); endpoint != "" {
		parts = append(parts, endpoint)
	}

	names := make([]string, 0, len(k.Query))
	for name := range k.Query {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parts = append(parts, name+"="+strings.Join(k.Query[name], ","))
	}

	return strings.Join(parts, ":")
}
