package listing

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// priceRe matches the first decimal token, with an optional currency prefix.
// Thousands separators are stripped before matching.
var priceRe = regexp.MustCompile(`\$?(\d+\.?\d*)`)

// ParsePrice extracts a price from free text. Returns nil when no decimal
// token is present — never an error.
func ParsePrice(text string) *float64 {
	m := priceRe.FindStringSubmatch(strings.ReplaceAll(text, ",", ""))
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}

// Date patterns, attempted in priority order.
var (
	slashDateRe = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)      // MM/DD/YYYY
	monthDateRe = regexp.MustCompile(`([A-Za-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})`) // Month DD, YYYY
	isoDateRe   = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)          // YYYY-MM-DD
)

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// ParseTarget extracts a target date from free text, attaching a time of day
// when a separate time token is supplied. A date with no time token means
// midnight local time. Returns nil when no pattern matches.
func ParseTarget(dateText, timeText string) *time.Time {
	date, ok := parseDate(dateText)
	if !ok {
		return nil
	}

	hour, minute := 0, 0
	if t, ok := parseClock(timeText); ok {
		hour, minute = t.Hour(), t.Minute()
	}

	target := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.Local)
	return &target
}

func parseDate(text string) (time.Time, bool) {
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if validDate(year, month, day) {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), true
		}
	}

	if m := monthDateRe.FindStringSubmatch(text); m != nil {
		if month, ok := lookupMonth(m[1]); ok {
			day, _ := strconv.Atoi(m[2])
			year, _ := strconv.Atoi(m[3])
			if validDate(year, int(month), day) {
				return time.Date(year, month, day, 0, 0, 0, 0, time.Local), true
			}
		}
	}

	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if validDate(year, month, day) {
			return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), true
		}
	}

	return time.Time{}, false
}

// lookupMonth resolves a full or abbreviated English month name.
func lookupMonth(token string) (time.Month, bool) {
	lower := strings.ToLower(token)
	if m, ok := monthNames[lower]; ok {
		return m, true
	}
	if len(lower) >= 3 {
		prefix := lower[:3]
		for name, m := range monthNames {
			if strings.HasPrefix(name, prefix) {
				return m, true
			}
		}
	}
	return 0, false
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return false
	}
	// Reject overflow like Feb 31 — time.Date would silently normalize it.
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return d.Day() == day && int(d.Month()) == month
}

var clockLayouts = []string{"15:04", "3:04 PM", "3:04PM"}

func parseClock(text string) (time.Time, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(text))
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
