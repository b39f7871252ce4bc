// Package validation holds the pure checks and display helpers for booking
// input. Nothing here performs I/O and nothing panics on malformed input.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	dateRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	// hour may be written with one digit ("9:30"), minutes always with two.
	timeRe = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)
)

var monthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// GenerateID returns a UUIDv7 string: a millisecond timestamp prefix followed by
// random bits. Collision resistant for local use; not a secret.
func GenerateID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// IsValidName reports whether the trimmed name has at least two characters.
func IsValidName(name string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(name)) >= 2
}

// IsValidDate checks dd/mm/yyyy against the current local year.
func IsValidDate(text string) bool {
	return IsValidDateAt(text, time.Now())
}

// IsValidDateAt checks that text is dd/mm/yyyy, names a real calendar day and
// that its year is not before now's year.
func IsValidDateAt(text string, now time.Time) bool {
	t, ok := parseDate(text, now.Location())
	return ok && t.Year() >= now.Year()
}

// IsValidTime checks hh:mm with hour 0-23 and minute 0-59.
func IsValidTime(text string) bool {
	return timeRe.MatchString(text)
}

// CanonicalTime zero-pads the hour so "9:30" and "09:30" name the same slot.
// Text that is not a valid time is returned unchanged.
func CanonicalTime(clock string) string {
	m := timeRe.FindStringSubmatch(clock)
	if m == nil {
		return clock
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// IsFutureDateTime reports whether date+time, read as local wall clock, is strictly after now.
func IsFutureDateTime(date, clock string) bool {
	return IsFutureDateTimeAt(date, clock, time.Now())
}

func IsFutureDateTimeAt(date, clock string, now time.Time) bool {
	if !IsValidDateAt(date, now) || !IsValidTime(clock) {
		return false
	}
	at, ok := Combine(date, clock, now.Location())
	if !ok {
		return false
	}
	return at.After(now)
}

// Combine turns a dd/mm/yyyy date and hh:mm time into an instant in loc.
// It only checks shape and calendar validity, not the year floor.
func Combine(date, clock string, loc *time.Location) (time.Time, bool) {
	day, ok := parseDate(date, loc)
	if !ok {
		return time.Time{}, false
	}
	m := timeRe.FindStringSubmatch(clock)
	if m == nil {
		return time.Time{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location()), true
}

// ParseDate returns midnight of a dd/mm/yyyy date in loc.
func ParseDate(text string, loc *time.Location) (time.Time, bool) {
	return parseDate(text, loc)
}

func parseDate(text string, loc *time.Location) (time.Time, bool) {
	m := dateRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	// time.Date normalises overflow (30/02 -> 02/03); a real day round-trips unchanged.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return time.Time{}, false
	}
	return t, true
}

// FormatDate renders dd/mm/yyyy as "dd de <Mês> de yyyy". Input that does not
// split into three parts with a known month is returned unchanged.
func FormatDate(date string) string {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return date
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return date
	}
	return parts[0] + " de " + monthNames[month-1] + " de " + parts[2]
}

// FormatTime appends the "h" suffix used on receipts: "10:00" -> "10:00h".
func FormatTime(clock string) string {
	return clock + "h"
}
