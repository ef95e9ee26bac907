// internal/engine/extract-entities/dates.go
package extractentities

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for every date the engine produces.
const DateLayout = "2006-01-02"

var (
	numericDateRe = regexp.MustCompile(`\b(\d{1,2})[-/](\d{1,2})[-/](\d{2,4})\b`)
	slashDateRe   = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`)
	dayThenAnyRe  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:st|nd|rd|th)?\s*(?:of\s+)?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
	anyThenDayRe  = regexp.MustCompile(`(?i)(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{1,2})\b`)
)

var monthNames = []struct {
	name string
	num  time.Month
}{
	{"jan", time.January}, {"feb", time.February}, {"mar", time.March},
	{"apr", time.April}, {"may", time.May}, {"jun", time.June},
	{"jul", time.July}, {"aug", time.August}, {"sep", time.September},
	{"oct", time.October}, {"nov", time.November}, {"dec", time.December},
}

var dayThenMonthRes = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(monthNames))
	for _, mn := range monthNames {
		m[mn.name] = regexp.MustCompile(`\b(\d{1,2})\s+` + mn.name)
	}
	return m
}()

// ParseDate extracts a calendar date from free text and returns it as
// YYYY-MM-DD, or "" when the text names no date. Recognized, in priority
// order: "today", "yesterday", "this week"/"last week" (resolved to today,
// the weekly handler applies its own range), numeric D-M-Y or D/M/Y with
// 2- or 4-digit years, "23 Feb"/"Feb 23" forms with optional ordinal
// suffix in the current year, and "last Monday". Values that do not form a
// real calendar date are ignored rather than reported.
func ParseDate(question string, now time.Time) string {
	if question == "" {
		return ""
	}
	q := strings.ToLower(strings.TrimSpace(question))
	today := now.Format(DateLayout)

	if strings.Contains(q, "today") {
		return today
	}
	if strings.Contains(q, "yesterday") {
		return now.AddDate(0, 0, -1).Format(DateLayout)
	}
	if strings.Contains(q, "this week") || strings.Contains(q, "last week") {
		return today
	}

	if m := numericDateRe.FindStringSubmatch(q); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if d, ok := validDate(year, time.Month(month), day, now.Location()); ok {
			return d.Format(DateLayout)
		}
	}

	for _, mn := range monthNames {
		if !strings.Contains(q, mn.name) {
			continue
		}
		if m := firstMatch(q, dayThenAnyRe, anyThenDayRe); m != "" {
			day, _ := strconv.Atoi(m)
			if d, ok := validDate(now.Year(), mn.num, day, now.Location()); ok {
				return d.Format(DateLayout)
			}
		}
		if m := dayThenMonthRes[mn.name].FindStringSubmatch(q); m != nil {
			day, _ := strconv.Atoi(m[1])
			if d, ok := validDate(now.Year(), mn.num, day, now.Location()); ok {
				return d.Format(DateLayout)
			}
		}
	}

	if strings.Contains(q, "last monday") {
		d := now
		for d.Weekday() != time.Monday {
			d = d.AddDate(0, 0, -1)
		}
		return d.Format(DateLayout)
	}

	return ""
}

// DateMentioned reports whether the text carries any explicit date cue:
// today/yesterday/last monday, a month-name fragment, or a numeric
// D-M-Y/D/M/Y date. Used to decide when a classifier-proposed date may be
// overridden with a derived one.
func DateMentioned(question string) bool {
	q := strings.ToLower(question)
	if strings.Contains(q, "today") || strings.Contains(q, "yesterday") || strings.Contains(q, "last monday") {
		return true
	}
	for _, mn := range monthNames {
		if strings.Contains(q, mn.name) {
			return true
		}
	}
	return slashDateRe.MatchString(q)
}

func firstMatch(q string, res ...*regexp.Regexp) string {
	for _, re := range res {
		if m := re.FindStringSubmatch(q); m != nil {
			return m[1]
		}
	}
	return ""
}

func validDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}
