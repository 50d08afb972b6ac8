package view

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	dateTimeLayout = "2006年01月02日 15:04"
	shortLayout    = "2006/01/02 15:04"
)

// Stored times are whatever the browser's datetime-local input produced, so
// several layouts are accepted. Zone-less values are read in loc.
var inputLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// FormatDateTime renders s as "2006年01月02日 15:04", or s itself when it is
// not a recognisable time.
func FormatDateTime(s string, loc *time.Location) string {
	t, ok := ParseTime(s, loc)
	if !ok {
		return s
	}
	return t.Format(dateTimeLayout)
}

var numberPrinter = message.NewPrinter(language.Japanese)

// FormatNumber groups digits ("1234567" -> "1,234,567"). Non-numbers are
// returned as given.
func FormatNumber(s string) string {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return numberPrinter.Sprintf("%d", n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return numberPrinter.Sprintf("%v", f)
	}
	return s
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// daysBetween counts whole days from earlier to later, truncating partial days.
func daysBetween(later, earlier time.Time) int {
	return int(later.Sub(earlier) / (24 * time.Hour))
}
