package rules

import (
	"fmt"
	"math"
)

// DisplayClock maps real elapsed seconds to the in-fiction wall clock.
type DisplayClock struct {
	StartMinutes     int     // minutes after midnight at elapsed 0
	SecondsPerMinute float64 // real seconds per in-fiction minute
}

// Format renders seconds as "H:MM AM/PM". Negative input clamps to zero.
func (d DisplayClock) Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	perMinute := d.SecondsPerMinute
	if perMinute <= 0 {
		perMinute = 1
	}
	total := d.StartMinutes + int(math.Floor(seconds/perMinute))
	total %= 24 * 60
	hour24 := total / 60
	minute := total % 60

	suffix := "AM"
	if hour24 >= 12 {
		suffix = "PM"
	}
	hour := hour24 % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%02d %s", hour, minute, suffix)
}
