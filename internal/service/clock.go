package service

import "time"

// Clock supplies the current time and the time zone that defines calendar days
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// NewClock returns a wall clock in loc
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Location: loc, Now: time.Now}
}

func (c Clock) now() time.Time {
	return c.Now().UTC()
}

// StartOfDay returns local midnight of t's calendar day
func (c Clock) StartOfDay(t time.Time) time.Time {
	local := t.In(c.Location)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location)
}

// EndOfDay returns the last instant of t's local calendar day
func (c Clock) EndOfDay(t time.Time) time.Time {
	return c.StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Window returns [startOfDay(asOf) - days, endOfDay(asOf)]
func (c Clock) Window(asOf time.Time, days int) (time.Time, time.Time) {
	return c.StartOfDay(asOf).AddDate(0, 0, -days), c.EndOfDay(asOf)
}

// Day formats t's local calendar day
func (c Clock) Day(t time.Time) string {
	return t.In(c.Location).Format("2006-01-02")
}
