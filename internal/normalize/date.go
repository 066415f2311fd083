// Package normalize turns free-text traveller input into the canonical values
// the reservation system consumes: calendar dates in YYYY/MM/DD wire form,
// HH:MM clock times extracted from heterogeneous timestamps, and destination
// codes matched from fuzzy city or airport names.
//
// All functions are pure with respect to a caller-supplied reference "today",
// so callers (and tests) control the clock.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DateLayout is the wire-form layout used by the reservation system.
const DateLayout = "2006/01/02"

// DateOutcome classifies the result of a [Date] call. Callers must branch on
// it explicitly: silently failing and silently accepting a past date are both
// wrong.
type DateOutcome int

const (
	// DateOK means the text parsed to an acceptable date.
	DateOK DateOutcome = iota

	// DatePast means the text parsed, but the date lies in the past even
	// after one-year-forward reinterpretation. Distinct from DateUnparsed so
	// callers can produce a specific "pick a future date" message.
	DatePast

	// DateUnparsed means the text could not be interpreted as a date at all.
	DateUnparsed
)

// Date parses a natural-language date expression against the reference day
// ref and returns the canonical YYYY/MM/DD form.
//
// Relative expressions (today, tomorrow, "in 3 days", weekday names, bare
// month-day forms) are resolved forward-preferring; absolute formats are
// delegated to dateparse. When allowPast is false and the resolved date
// precedes ref's calendar day, the date is reinterpreted one year forward; if
// the candidate is still in the past the outcome is [DatePast].
func Date(text string, ref time.Time, allowPast bool) (string, DateOutcome) {
	parsed, ok := parseDate(text, ref, allowPast)
	if !ok {
		return "", DateUnparsed
	}

	today := truncateDay(ref)
	day := truncateDay(parsed)

	if !allowPast && day.Before(today) {
		day = day.AddDate(1, 0, 0)
		if day.Before(today) {
			return "", DatePast
		}
	}

	return day.Format(DateLayout), DateOK
}

// Birthdate parses a date of birth. Past dates are expected and accepted
// unchanged; a future resolution from a year-less form is shifted one year
// back.
func Birthdate(text string, ref time.Time) (string, bool) {
	s, outcome := Date(text, ref, true)
	return s, outcome == DateOK
}

// ClockTime extracts HH:MM from a timestamp string of unknown format. It
// splits on the first of "T" or space and takes the following five
// characters, even when the separator ends the string; only when no
// separator is present does it fall back to the last five characters.
func ClockTime(s string) string {
	if s == "" {
		return ""
	}
	for _, sep := range []string{"T", " "} {
		if _, rest, found := strings.Cut(s, sep); found {
			if len(rest) > 5 {
				return rest[:5]
			}
			return rest
		}
	}
	if len(s) >= 5 {
		return s[len(s)-5:]
	}
	return s
}

var (
	inDaysRe   = regexp.MustCompile(`^in (\d+) (day|days|week|weeks|month|months)$`)
	monthDayRe = regexp.MustCompile(`^(?:the )?(\d{1,2})(?:st|nd|rd|th)?(?: of)? ([a-z]+)$`)
	dayMonthRe = regexp.MustCompile(`^([a-z]+)(?: the)? (\d{1,2})(?:st|nd|rd|th)?$`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday,
	"friday": time.Friday, "saturday": time.Saturday,
}

// parseDate resolves text to a concrete time. Relative forms are handled
// first; anything else goes through dateparse for absolute formats.
func parseDate(text string, ref time.Time, preferPast bool) (time.Time, bool) {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return time.Time{}, false
	}

	today := truncateDay(ref)

	switch t {
	case "today", "tonight":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "day after tomorrow", "the day after tomorrow":
		return today.AddDate(0, 0, 2), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "next week":
		return today.AddDate(0, 0, 7), true
	case "next month":
		return today.AddDate(0, 1, 0), true
	}

	if m := inDaysRe.FindStringSubmatch(t); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch {
		case strings.HasPrefix(m[2], "day"):
			return today.AddDate(0, 0, n), true
		case strings.HasPrefix(m[2], "week"):
			return today.AddDate(0, 0, 7*n), true
		default:
			return today.AddDate(0, n, 0), true
		}
	}

	// Weekday names, optionally prefixed with this/next.
	wd := t
	nextWeek := false
	if rest, ok := strings.CutPrefix(wd, "next "); ok {
		wd, nextWeek = rest, true
	} else if rest, ok := strings.CutPrefix(wd, "this "); ok {
		wd = rest
	}
	if day, ok := weekdays[wd]; ok {
		return resolveWeekday(today, day, nextWeek, preferPast), true
	}

	// Year-less month-day forms ("15 march", "march 15th", "3rd of june").
	if m := monthDayRe.FindStringSubmatch(t); m != nil {
		if month, ok := months[m[2]]; ok {
			return resolveMonthDay(today, month, m[1], preferPast)
		}
	}
	if m := dayMonthRe.FindStringSubmatch(t); m != nil {
		if month, ok := months[m[1]]; ok {
			return resolveMonthDay(today, month, m[2], preferPast)
		}
	}

	parsed, err := dateparse.ParseIn(text, ref.Location())
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// resolveWeekday returns the occurrence of day nearest to today in the
// preferred direction. "next <day>" always skips at least a full week border.
func resolveWeekday(today time.Time, day time.Weekday, nextWeek, preferPast bool) time.Time {
	delta := (int(day) - int(today.Weekday()) + 7) % 7
	if preferPast {
		back := (int(today.Weekday()) - int(day) + 7) % 7
		if back == 0 {
			back = 7
		}
		return today.AddDate(0, 0, -back)
	}
	if delta == 0 {
		delta = 7
	}
	if nextWeek && delta < 7 {
		delta += 7
	}
	return today.AddDate(0, 0, delta)
}

// resolveMonthDay builds a date in today's year from a month and a day-of-
// month string. Direction preference decides which year a same-named past or
// future date falls into; the caller's past-date rule handles the rest.
func resolveMonthDay(today time.Time, month time.Month, dayStr string, preferPast bool) (time.Time, bool) {
	dom, err := strconv.Atoi(dayStr)
	if err != nil || dom < 1 || dom > 31 {
		return time.Time{}, false
	}
	d := time.Date(today.Year(), month, dom, 0, 0, 0, 0, today.Location())
	if d.Month() != month {
		// Day overflowed the month (e.g. 31 February).
		return time.Time{}, false
	}
	if preferPast && d.After(today) {
		d = d.AddDate(-1, 0, 0)
	}
	return d, true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AddDays returns the YYYY/MM/DD date n days after the given wire-form date.
// Used for the availability search window end date.
func AddDays(wire string, n int) (string, error) {
	t, err := time.Parse(DateLayout, wire)
	if err != nil {
		return "", fmt.Errorf("normalize: parse date %q: %w", wire, err)
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}
