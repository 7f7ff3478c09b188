package stats

import "fmt"

// SecondsToHuman decomposes a duration in seconds into (hours, minutes,
// seconds) components.
func SecondsToHuman(seconds float64) (hours, minutes, secs int) {
	total := int(seconds + 0.5) // round half up
	hours = total / 3600
	rem := total % 3600
	minutes = rem / 60
	secs = rem % 60
	return hours, minutes, secs
}

// HumanTime renders a duration in seconds as "H hours, M minutes, S
// seconds" when hours > 0, "M minutes, S seconds" when minutes > 0, and
// "S seconds" otherwise. Used for ETA lines in the stats monitor.
func HumanTime(seconds float64) string {
	h, m, s := SecondsToHuman(seconds)
	switch {
	case h > 0:
		return fmt.Sprintf("%d hours, %d minutes, %d seconds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%d minutes, %d seconds", m, s)
	default:
		return fmt.Sprintf("%d seconds", s)
	}
}
