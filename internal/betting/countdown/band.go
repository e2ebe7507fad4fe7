package countdown

import "time"

// Band classifies how much of an opportunity's time budget is left.
// Rendering maps bands to colors; the classification itself lives here so
// every consumer derives the same urgency from the same remaining/duration
// pair.
type Band string

const (
	BandNormal  Band = "normal"  // more than 50% remaining
	BandWarning Band = "warning" // 25-50% remaining
	BandUrgent  Band = "urgent"  // 25% or less remaining
)

// Classify derives the band purely from remaining vs duration. It never looks
// at accumulated tick counts, so a resync after an external time jump (e.g. a
// panel restore) lands on the correct band immediately.
func Classify(remaining, duration time.Duration) Band {
	if duration <= 0 || remaining <= 0 {
		return BandUrgent
	}
	ratio := float64(remaining) / float64(duration)
	switch {
	case ratio > 0.50:
		return BandNormal
	case ratio > 0.25:
		return BandWarning
	default:
		return BandUrgent
	}
}
