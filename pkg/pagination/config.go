package pagination

import (
	"fmt"
)

// Config holds pager configuration.
type Config struct {
	// PageSize is the number of items requested per page.
	PageSize int

	// PrefetchDistance is how close (in items) a read must come to an edge
	// of the loaded window before the adjacent page is requested.
	PrefetchDistance int

	// InitialLoadSize is the number of items requested by a refresh load.
	InitialLoadSize int

	// Dedup drops items whose key was already loaded on another page.
	// Requires the source to implement ItemKeyer.
	Dedup bool
}

// DefaultConfig returns the default pager configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:         10,
		PrefetchDistance: 3,
		InitialLoadSize:  10,
		Dedup:            false,
	}
}

// Validate checks the configuration and fills derived defaults.
func (c *Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be > 0 (got %d)", c.PageSize)
	}
	if c.PrefetchDistance < 0 {
		return fmt.Errorf("prefetch_distance must be >= 0 (got %d)", c.PrefetchDistance)
	}
	if c.InitialLoadSize <= 0 {
		c.InitialLoadSize = c.PageSize
	}
	return nil
}
