// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"regexp"
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Clock Time Value Object
// ═══════════════════════════════════════════════════════════════════════════

// ClockTime is a zero-padded 24h "HH:MM" wall-clock time. Zero padding makes
// lexicographic order equal chronological order, which the schedule relies on.
type ClockTime string

var clockTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// IsValid checks the HH:MM format.
func (c ClockTime) IsValid() bool {
	return clockTimePattern.MatchString(string(c))
}

// String returns the string representation.
func (c ClockTime) String() string {
	return string(c)
}

// Before reports whether c sorts before other.
func (c ClockTime) Before(other ClockTime) bool {
	return c < other
}

// NewClockTime creates a ClockTime with validation.
func NewClockTime(s string) (ClockTime, error) {
	c := ClockTime(strings.TrimSpace(s))
	if !c.IsValid() {
		return "", WrapError("shared", "NewClockTime", ErrInvalidFormat, "expected HH:MM", nil)
	}
	return c, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Display Name Value Object
// ═══════════════════════════════════════════════════════════════════════════

// MaxNameLength bounds class and student names.
const MaxNameLength = 120

// NormalizeName trims a class or student name and rejects blanks.
func NormalizeName(s string) (string, error) {
	name := strings.TrimSpace(s)
	if name == "" {
		return "", NewDomainError("shared", "NormalizeName", ErrEmptyValue, "name cannot be empty")
	}
	if len([]rune(name)) > MaxNameLength {
		return "", NewDomainError("shared", "NormalizeName", ErrValueOutOfRange, "name is too long")
	}
	return name, nil
}
