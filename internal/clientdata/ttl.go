package clientdata

import "time"

// TTL constants for different data types.
// These are added to time.Now() when storing to calculate expires_at.
const (
	// Quotes move all day; a short TTL keeps the slider responsive
	// without hammering the provider on every recalculation.
	TTLQuote = 10 * time.Minute

	// Fundamentals change with quarterly filings; a day is plenty.
	TTLFundamentals = 24 * time.Hour

	// Qualitative research is expensive (multi-minute web research);
	// matches the in-process research cache TTL.
	TTLResearch = 24 * time.Hour
)
