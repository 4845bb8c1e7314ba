package querycache

import "time"

// Config holds the sizing of the query-result cache.
type Config struct {
	MaxEntries int           `json:"max_entries"`
	TTL        time.Duration `json:"ttl"`
}

// DefaultConfig returns the default sizing: 1000 pages kept for 30 minutes.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 1000,
		TTL:        30 * time.Minute,
	}
}

// resolveTTL maps a configured TTL to a duration.
// 0 means indefinite (100 years), negative means use the 30-minute default.
func (c Config) resolveTTL() time.Duration {
	if c.TTL == 0 {
		return 100 * 365 * 24 * time.Hour // indefinite
	}
	if c.TTL < 0 {
		return 30 * time.Minute
	}
	return c.TTL
}
