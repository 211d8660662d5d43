package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period is a calendar-month bucket: the "YYYY-MM" key plus the first and
// last instants of the month in the operator's zone.
type Period struct {
	Key  string
	From time.Time
	To   time.Time
}

// PeriodKey derives the "YYYY-MM" bucket for t in the given zone. Deriving
// in a fixed operator zone keeps movements posted near midnight from landing
// in the wrong month when the server runs in UTC.
func PeriodKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01")
}

// PeriodOf returns the full month bucket containing t.
func PeriodOf(t time.Time, loc *time.Location) Period {
	lt := t.In(loc)
	from := time.Date(lt.Year(), lt.Month(), 1, 0, 0, 0, 0, loc)
	return Period{
		Key:  from.Format("2006-01"),
		From: from,
		To:   from.AddDate(0, 1, 0).Add(-time.Nanosecond),
	}
}

// PeriodFromKey builds a Period from a "YYYY-MM" key. Returns an error for
// anything else.
func PeriodFromKey(key string, loc *time.Location) (Period, error) {
	t, err := time.ParseInLocation("2006-01", key, loc)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", key, err)
	}
	return PeriodOf(t, loc), nil
}

var spanishMonths = map[string]time.Month{
	"enero": 1, "febrero": 2, "marzo": 3, "abril": 4,
	"mayo": 5, "junio": 6, "julio": 7, "agosto": 8,
	"septiembre": 9, "setiembre": 9, "octubre": 10,
	"noviembre": 11, "diciembre": 12,
}

var (
	reYearMonth  = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)    // 2025-10
	reMonthYear  = regexp.MustCompile(`^(\d{1,2})[/-](\d{4})$`) // 10/2025, 10-2025
	reMonthYearY = regexp.MustCompile(`^(\d{1,2})[/-](\d{2})$`) // 10-25, 10/25
)

// ResolvePeriod turns a period token or phrase into a month bucket.
// Accepted forms: "2025-10", "10/2025", "10-25", a Spanish month name
// ("octubre", resolved against now's year), "este mes", "hoy", or empty.
// Anything unresolvable defaults to the month containing now.
func ResolvePeriod(token string, now time.Time, loc *time.Location) Period {
	token = strings.ToLower(strings.TrimSpace(token))

	switch token {
	case "", "este mes", "mes actual", "hoy":
		return PeriodOf(now, loc)
	}

	if m := reYearMonth.FindStringSubmatch(token); m != nil {
		if p, ok := periodFromParts(m[1], m[2], loc); ok {
			return p
		}
	}
	if m := reMonthYear.FindStringSubmatch(token); m != nil {
		if p, ok := periodFromParts(m[2], m[1], loc); ok {
			return p
		}
	}
	if m := reMonthYearY.FindStringSubmatch(token); m != nil {
		if p, ok := periodFromParts("20"+m[2], m[1], loc); ok {
			return p
		}
	}
	if month, ok := spanishMonths[FoldDiacritics(token)]; ok {
		year := now.In(loc).Year()
		return PeriodOf(time.Date(year, month, 1, 0, 0, 0, 0, loc), loc)
	}

	return PeriodOf(now, loc)
}

func periodFromParts(yearStr, monthStr string, loc *time.Location) (Period, bool) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return Period{}, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return Period{}, false
	}
	return PeriodOf(time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc), loc), true
}

var diacriticReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
)

// FoldDiacritics strips Spanish accents for keyword matching. Names and
// descriptions keep their original form; only classification uses this.
func FoldDiacritics(s string) string {
	return diacriticReplacer.Replace(s)
}
