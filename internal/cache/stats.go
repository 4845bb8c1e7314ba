package cache

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	Evictions   int64   `json:"evictions"`
	Expirations int64   `json:"expirations"`
	Updates     int64   `json:"updates"`
	Entries     int     `json:"entries"`
	HitRate     float64 `json:"hit_rate"`
}
