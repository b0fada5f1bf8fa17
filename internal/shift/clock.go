package shift

import (
	"fmt"
	"math"
	"time"
)

// Clock is the in-game wall clock. It starts at the configured hour and the
// shift ends once it wraps around to that hour again.
type Clock struct {
	Hour    int     `json:"hour"`
	Minutes float64 `json:"minutes"`
}

// advance moves the clock by delta real time and reports whether it reached
// endHour on an hour boundary.
func (c *Clock) advance(delta time.Duration, minutesPerSecond float64, endHour int) bool {
	c.Minutes += delta.Seconds() * minutesPerSecond
	reached := false
	for c.Minutes >= 60 {
		c.Minutes -= 60
		c.Hour++
		if c.Hour > 24 {
			c.Hour -= 24
		}
		if c.Hour == endHour {
			reached = true
		}
	}
	return reached
}

// Label renders the clock the way the ward board shows it: 12-hour format
// with minutes rounded down to the quarter hour.
func (c Clock) Label() string {
	hour := (c.Hour-1)%12 + 1
	quarter := int(math.Floor(c.Minutes/15)) * 15
	suffix := "pm"
	if c.Hour == 24 || c.Hour < 12 {
		suffix = "am"
	}
	return fmt.Sprintf("%02d:%02d %s", hour, quarter, suffix)
}
