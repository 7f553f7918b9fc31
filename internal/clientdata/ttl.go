package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Daily closes for completed trading days never change
	TTLDailyPrices = 20 * time.Hour
)
