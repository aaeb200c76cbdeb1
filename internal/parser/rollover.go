package parser

import "time"

// dayClock turns time-of-day readings into full timestamps. Logs only carry
// HH:MM:SS per line, so a decreasing hour means midnight was crossed.
type dayClock struct {
	date     time.Time // midnight of the running day
	lastHour int
}

func newDayClock(start time.Time) *dayClock {
	y, m, d := start.Date()
	return &dayClock{
		date:     time.Date(y, m, d, 0, 0, 0, 0, start.Location()),
		lastHour: -1,
	}
}

// seed sets the last seen hour without producing a timestamp.
func (c *dayClock) seed(hour int) {
	c.lastHour = hour
}

func (c *dayClock) at(hour, minute, second int) time.Time {
	if hour < c.lastHour {
		c.date = c.date.AddDate(0, 0, 1)
	}
	c.lastHour = hour
	y, m, d := c.date.Date()
	return time.Date(y, m, d, hour, minute, second, 0, c.date.Location())
}
