// AngelaMos | 2026
// calendar.go

package core

import (
	"fmt"
	"time"
)

const DayLayout = "2006-01-02"

// Day is a calendar date in the service's configured time zone,
// formatted as YYYY-MM-DD.
type Day string

// Calendar maps instants onto calendar days. Now is injectable so tests
// can move across day boundaries.
type Calendar struct {
	Location *time.Location
	Now      func() time.Time
}

func NewCalendar(timezone string) (*Calendar, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", timezone, err)
	}
	return &Calendar{Location: loc, Now: time.Now}, nil
}

func (c *Calendar) Today() Day {
	return c.DayOf(c.now())
}

func (c *Calendar) DayOf(t time.Time) Day {
	return Day(t.In(c.location()).Format(DayLayout))
}

func (c *Calendar) ParseDay(s string) (Day, error) {
	t, err := time.ParseInLocation(DayLayout, s, c.location())
	if err != nil {
		return "", fmt.Errorf("parse day %q: %w", s, ErrInvalidInput)
	}
	return Day(t.Format(DayLayout)), nil
}

func (c *Calendar) StartOf(d Day) time.Time {
	t, err := time.ParseInLocation(DayLayout, string(d), c.location())
	if err != nil {
		return time.Time{}
	}
	return t
}

// EndOf returns the last representable instant of the day.
func (c *Calendar) EndOf(d Day) time.Time {
	return c.StartOf(d).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// NowUTC is truncated to microseconds, the precision Postgres stores.
func (c *Calendar) NowUTC() time.Time {
	return c.now().UTC().Truncate(time.Microsecond)
}

func (c *Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c *Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}
