package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Very stable data (item IDs, names and buy limits rarely change)
	TTLItemMapping = 24 * time.Hour

	// Short-lived data (changes frequently)
	TTLLatestPrices = 5 * time.Minute // Latest high/low trade prices
	TTLDailyVolumes = time.Hour       // 24h traded volumes
)
