// Package timeutil provides timezone utilities pinned to the school's local timezone.
// Every "today", date key and chart label in Concordia is computed here so that a
// server running in UTC still agrees with the classroom wall clock.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// DefaultLocationName is the timezone used when none is configured.
const DefaultLocationName = "Europe/Berlin"

var (
	locMu sync.RWMutex
	// schoolTZ falls back to a fixed CET offset when the tz database is unavailable.
	schoolTZ = loadOrFixed(DefaultLocationName)
)

func loadOrFixed(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CET", 1*60*60)
	}
	return loc
}

// SetLocation switches the school timezone by IANA name.
func SetLocation(name string) error {
	if name == "" {
		name = DefaultLocationName
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load location %q: %w", name, err)
	}
	locMu.Lock()
	schoolTZ = loc
	locMu.Unlock()
	return nil
}

// Location returns the current school timezone.
func Location() *time.Location {
	locMu.RLock()
	defer locMu.RUnlock()
	return schoolTZ
}

// Clock returns the current time. Tests replace it with a fixed function.
type Clock func() time.Time

// SystemClock is the wall clock in the school timezone.
func SystemClock() time.Time {
	return Now()
}

// FixedClock returns a Clock frozen at t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Now returns the current time in the school timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// ToLocal converts a time to the school timezone.
func ToLocal(t time.Time) time.Time {
	return t.In(Location())
}

// Date creates a time at midnight in the school timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Location())
}

// StartOfDay returns 00:00:00 of t's day in the school timezone.
func StartOfDay(t time.Time) time.Time {
	l := ToLocal(t)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, l.Location())
}

// IsSameDay checks if two times fall on the same school-local day.
func IsSameDay(t1, t2 time.Time) bool {
	a1, a2 := ToLocal(t1), ToLocal(t2)
	return a1.Year() == a2.Year() && a1.YearDay() == a2.YearDay()
}

// Common date/time formats.
const (
	// FormatDate is the persisted date key format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatTime is the schedule slot format (HH:MM).
	FormatTime = "15:04"
	// FormatChartLabel is the trend axis label (MM-DD).
	FormatChartLabel = "01-02"
	// FormatGermanDate is the German date format (DD.MM.YYYY).
	FormatGermanDate = "02.01.2006"
	// FormatGermanDateTime is the German datetime format.
	FormatGermanDateTime = "02.01.2006 15:04"
)

// DateKey formats t as YYYY-MM-DD in the school timezone.
func DateKey(t time.Time) string {
	return ToLocal(t).Format(FormatDate)
}

// ChartLabel formats t as MM-DD in the school timezone.
func ChartLabel(t time.Time) string {
	return ToLocal(t).Format(FormatChartLabel)
}

// FormatGerman formats t as DD.MM.YYYY in the school timezone.
func FormatGerman(t time.Time) string {
	return ToLocal(t).Format(FormatGermanDate)
}

// FromUnixMilli converts a millisecond timestamp into school-local time.
func FromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).In(Location())
}

// ParseDate parses a YYYY-MM-DD date in the school timezone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, Location())
}

// ParseClock validates an HH:MM wall clock string.
func ParseClock(value string) (time.Time, error) {
	if len(value) != len(FormatTime) {
		return time.Time{}, fmt.Errorf("time %q: expected HH:MM", value)
	}
	return time.Parse(FormatTime, value)
}

// LastNDays returns n consecutive school-local days ending on today's date,
// oldest first. Each element is midnight of its day.
func LastNDays(today time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	end := StartOfDay(today)
	days := make([]time.Time, n)
	for i := 0; i < n; i++ {
		days[i] = end.AddDate(0, 0, i-(n-1))
	}
	return days
}

// Weekday returns t's weekday in the school timezone.
func Weekday(t time.Time) time.Weekday {
	return ToLocal(t).Weekday()
}

// WeekdayNameDe returns the German name for a weekday.
func WeekdayNameDe(d time.Weekday) string {
	switch d {
	case time.Sunday:
		return "Sonntag"
	case time.Monday:
		return "Montag"
	case time.Tuesday:
		return "Dienstag"
	case time.Wednesday:
		return "Mittwoch"
	case time.Thursday:
		return "Donnerstag"
	case time.Friday:
		return "Freitag"
	case time.Saturday:
		return "Samstag"
	default:
		return ""
	}
}
