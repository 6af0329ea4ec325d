// Package daily converts wall-clock time in a fixed time zone into the
// integer day number that identifies one puzzle period, and computes the
// countdown to the next rollover.
//
// The day number is pure arithmetic over the clock: within one reset period
// every call returns the same value, and crossing a reset boundary
// increments it by exactly one. It is used both as the cache key and
// (salted) as the PRNG seed for the daily selection, so the convention here
// is authoritative: floor whole days since the epoch's reset instant, minus
// one if today's reset has not happened yet, plus a fixed offset anchoring
// day 1 to the launch date.
package daily

import (
	"fmt"
	"time"
)

// Config describes a daily clock.
type Config struct {
	// Timezone is the IANA zone name. Default: America/New_York.
	Timezone string `yaml:"timezone"`
	// ResetHour/ResetMin set the daily rollover instant. Default: 00:00.
	ResetHour int `yaml:"reset_hour"`
	ResetMin  int `yaml:"reset_min"`
	// EpochDate is the launch date "2006-01-02" in the zone. Default: 2026-01-20.
	EpochDate string `yaml:"epoch_date"`
	// DayOffset is added to the raw day count. nil means the default of 2,
	// which anchors the launch date to day 2; an explicit zero is honored.
	DayOffset *int `yaml:"day_offset"`
}

func (c *Config) defaults() {
	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	if c.EpochDate == "" {
		c.EpochDate = "2026-01-20"
	}
	if c.DayOffset == nil {
		two := 2
		c.DayOffset = &two
	}
}

// Clock computes day numbers relative to a fixed epoch and reset time.
type Clock struct {
	loc       *time.Location
	resetHour int
	resetMin  int
	epoch     time.Time // epoch date at the reset time, in loc
	offset    int
	now       func() time.Time
}

// New creates a Clock from cfg. The zero Config uses the defaults above.
func New(cfg Config) (*Clock, error) {
	cfg.defaults()
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("daily: load zone %q: %w", cfg.Timezone, err)
	}
	if cfg.ResetHour < 0 || cfg.ResetHour > 23 || cfg.ResetMin < 0 || cfg.ResetMin > 59 {
		return nil, fmt.Errorf("daily: reset time %02d:%02d out of range", cfg.ResetHour, cfg.ResetMin)
	}
	date, err := time.ParseInLocation("2006-01-02", cfg.EpochDate, loc)
	if err != nil {
		return nil, fmt.Errorf("daily: parse epoch %q: %w", cfg.EpochDate, err)
	}
	epoch := time.Date(date.Year(), date.Month(), date.Day(), cfg.ResetHour, cfg.ResetMin, 0, 0, loc)
	return &Clock{
		loc:       loc,
		resetHour: cfg.ResetHour,
		resetMin:  cfg.ResetMin,
		epoch:     epoch,
		offset:    *cfg.DayOffset,
		now:       time.Now,
	}, nil
}

// WithNow returns a copy of the clock that reads time from fn. Test hook.
func (c *Clock) WithNow(fn func() time.Time) *Clock {
	cp := *c
	cp.now = fn
	return &cp
}

// DayNumber returns the current day number.
func (c *Clock) DayNumber() int {
	return c.DayNumberAt(c.now())
}

// DayNumberAt returns the day number for an arbitrary instant.
func (c *Clock) DayNumberAt(at time.Time) int {
	now := at.In(c.loc)
	days := calendarDays(c.epoch, now, c.loc)

	// If today's reset has not occurred yet, we are still in yesterday's
	// period.
	todayReset := time.Date(now.Year(), now.Month(), now.Day(), c.resetHour, c.resetMin, 0, 0, c.loc)
	if now.Before(todayReset) {
		days--
	}
	return days + c.offset
}

// calendarDays counts whole calendar dates from a to b in loc. Rounding
// absorbs the 23/25-hour days around DST transitions.
func calendarDays(a, b time.Time, loc *time.Location) int {
	am := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, loc)
	bm := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, loc)
	return int(bm.Sub(am).Round(24*time.Hour) / (24 * time.Hour))
}

// SecondsUntilNextReset returns the non-negative number of whole seconds
// from now to the next reset instant strictly after now.
func (c *Clock) SecondsUntilNextReset() int {
	return c.SecondsUntilNextResetAt(c.now())
}

// SecondsUntilNextResetAt is SecondsUntilNextReset for an arbitrary instant.
func (c *Clock) SecondsUntilNextResetAt(at time.Time) int {
	now := at.In(c.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), c.resetHour, c.resetMin, 0, 0, c.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	secs := int(next.Sub(now) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return secs
}

// Location returns the clock's time zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}
