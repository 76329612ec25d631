package metrics

import (
	"fmt"
	"math"
)

// FormatDuration renders minutes as "45m", "2h" or "1h 30m". The sign is
// dropped; use FormatDelta for signed values.
func FormatDuration(minutes float64) string {
	abs := math.Abs(minutes)
	hours := int(math.Floor(abs / 60))
	mins := int(math.Round(abs - float64(hours)*60))
	if mins == 60 {
		hours++
		mins = 0
	}

	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
}

// FormatDelta renders a signed minute difference, e.g. "+1h 5m" or "-20m".
// Zero is rendered with a plus sign.
func FormatDelta(minutes float64) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
	}
	return sign + FormatDuration(minutes)
}
