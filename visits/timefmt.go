package visits

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultTime is returned for any time code that cannot be interpreted.
const DefaultTime = "00:00"

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	clockTime  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// NormalizeTime converts an upstream arrival time code to a 24-hour "HH:MM" string.
//
// Accepted forms are HHMM digit codes of up to four digits ("930" -> "09:30", "0" -> "00:00"),
// "H:MM"/"HH:MM" clock strings, and longer digit strings holding milliseconds since the epoch,
// which are rendered in loc. Anything else yields DefaultTime.
func NormalizeTime(raw string, loc *time.Location) string {
	s := strings.TrimSpace(raw)
	if s == "" || s == "null" {
		return DefaultTime
	}

	if len(s) <= 4 && digitsOnly.MatchString(s) {
		hours, minutes := s, "00"
		if len(s) > 2 {
			hours, minutes = s[:len(s)-2], s[len(s)-2:]
		}
		return padLeft(hours) + ":" + padLeft(minutes)
	}

	if m := clockTime.FindStringSubmatch(s); m != nil {
		return padLeft(m[1]) + ":" + m[2]
	}

	if digitsOnly.MatchString(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return DefaultTime
		}
		if loc == nil {
			loc = time.Local
		}
		t := time.UnixMilli(ms).In(loc)
		return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
	}

	return DefaultTime
}

func padLeft(s string) string {
	if len(s) >= 2 {
		return s
	}
	return strings.Repeat("0", 2-len(s)) + s
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102", "01/02/2006"}

// ParseDate parses the calendar date of an upstream date field and returns local midnight in loc.
// Any time-of-day component ("2025-03-10 00:00:00.000", "2025-03-10T00:00:00Z") is ignored.
func ParseDate(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// clockParts splits a canonical "HH:MM" into hours and minutes. Unparseable parts are zero.
func clockParts(hhmm string) (int, int) {
	h, m, ok := strings.Cut(hhmm, ":")
	if !ok {
		return 0, 0
	}
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	return hours, minutes
}

// CombineDateTime returns the date's midnight shifted to the given "HH:MM" time of day.
func CombineDateTime(date time.Time, hhmm string) time.Time {
	hours, minutes := clockParts(hhmm)
	return time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, 0, 0, date.Location())
}

// ScheduledInstant combines a guest's scheduled date and arrival time code.
func ScheduledInstant(rawDate, rawTime string, loc *time.Location) (time.Time, bool) {
	date, ok := ParseDate(rawDate, loc)
	if !ok {
		return time.Time{}, false
	}
	return CombineDateTime(date, NormalizeTime(rawTime, loc)), true
}

// startOfDay returns local midnight of t.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// calendarDaysBetween counts whole calendar days from earlier to later, ignoring DST shifts.
func calendarDaysBetween(earlier, later time.Time) int {
	a := time.Date(earlier.Year(), earlier.Month(), earlier.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(later.Year(), later.Month(), later.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
