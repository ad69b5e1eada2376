package timeclock

import (
	"fmt"
	"time"
)

// =============================================================================
// CLOCK TIME - Minute of day, as punched on the terminal
// =============================================================================

// ClockTime is a time of day in minutes since midnight (0..1439).
// Punches are day-scoped, so a plain minute offset is all the calculator
// ever needs; real timestamps only appear on audit metadata.
type ClockTime int

// ParseClockTime parses "HH:MM" (24h). Malformed values are reported as
// a ValidationError so one bad punch never aborts a whole batch.
func ParseClockTime(s string) (ClockTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, &ValidationError{Field: "time", Reason: fmt.Sprintf("cannot parse %q as HH:MM", s)}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, &ValidationError{Field: "time", Reason: fmt.Sprintf("%q is out of the 00:00-23:59 range", s)}
	}
	return ClockTime(h*60 + m), nil
}

func NewClockTime(hour, minute int) ClockTime { return ClockTime(hour*60 + minute) }

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }
func (c ClockTime) Valid() bool { return c >= 0 && c < 24*60 }

// MinutesUntil returns the minutes from c to other within the same day.
// Negative when other is earlier.
func (c ClockTime) MinutesUntil(other ClockTime) int { return int(other) - int(c) }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// NIGHT WINDOW - Clock range earning the nocturnal classification
// =============================================================================

// NightWindow is the configured clock range whose overtime earns the
// nocturnal classification. The default window wraps midnight.
type NightWindow struct {
	Start ClockTime
	End   ClockTime
}

// DefaultNightWindow is 22:00-05:00.
func DefaultNightWindow() NightWindow {
	return NightWindow{Start: NewClockTime(22, 0), End: NewClockTime(5, 0)}
}

// wraps reports whether the window crosses midnight (e.g. 22:00-05:00).
func (w NightWindow) wraps() bool { return w.End <= w.Start }

// Contains reports whether t falls inside the window [Start, End).
func (w NightWindow) Contains(t ClockTime) bool {
	if w.wraps() {
		return t >= w.Start || t < w.End
	}
	return t >= w.Start && t < w.End
}

// OverlapMinutes returns how many minutes of the half-open interval
// [from, to) fall inside the window. from and to are same-day clock
// times with from <= to.
func (w NightWindow) OverlapMinutes(from, to ClockTime) int {
	if to <= from {
		return 0
	}
	if !w.wraps() {
		return segmentOverlap(int(from), int(to), int(w.Start), int(w.End))
	}
	// Window crosses midnight: [Start, 24:00) plus [00:00, End).
	return segmentOverlap(int(from), int(to), int(w.Start), 24*60) +
		segmentOverlap(int(from), int(to), 0, int(w.End))
}

func segmentOverlap(aStart, aEnd, bStart, bEnd int) int {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}

// =============================================================================
// DATE - Day-granular calendar date
// =============================================================================

// Date is a calendar date, normalized to UTC midnight.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates any timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date { return DateOf(time.Now().UTC()) }

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("cannot parse %q as YYYY-MM-DD", s)}
	}
	return DateOf(t), nil
}

func (d Date) Before(o Date) bool        { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool         { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool         { return d.Time.Equal(o.Time) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }
func (d Date) AddDays(n int) Date        { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) Year() int                 { return d.Time.Year() }
func (d Date) Month() time.Month         { return d.Time.Month() }
func (d Date) Day() int                  { return d.Time.Day() }
func (d Date) IsZero() bool              { return d.Time.IsZero() }

func (d Date) IsWeekend() bool {
	wd := d.Time.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.Time.Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
