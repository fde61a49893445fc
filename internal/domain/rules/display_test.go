package rules

import "testing"

func TestDisplayClockFormat(t *testing.T) {
	d := DisplayClock{StartMinutes: 17 * 60, SecondsPerMinute: 15}
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "5:00 PM"},
		{14.9, "5:00 PM"},
		{15, "5:01 PM"},
		{900, "6:00 PM"},
		{-30, "5:00 PM"},
		{7 * 60 * 15, "12:00 AM"},
		{19 * 60 * 15, "12:00 PM"},
		{(7*60 + 65) * 15, "1:05 AM"},
	}
	for _, tc := range tests {
		if got := d.Format(tc.seconds); got != tc.want {
			t.Fatalf("Format(%v)=%q want %q", tc.seconds, got, tc.want)
		}
	}
}
