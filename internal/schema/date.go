package schema

import (
	"strings"
	"time"
)

// DateLayout is the DD.MM.YYYY form used by every date field.
const DateLayout = "02.01.2006"

// ParseDate parses DD.MM.YYYY into UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), time.UTC)
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Range is a half-open [From, To) interval.
type Range struct {
	From time.Time
	To   time.Time
}

// today is the calendar day of now as UTC midnight, the form ParseDate
// stores.
func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ThisWeek starts on Monday.
func ThisWeek(now time.Time) Range {
	day := today(now)
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Range{From: start, To: start.AddDate(0, 0, 7)}
}

func ThisMonth(now time.Time) Range {
	y, m, _ := now.Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return Range{From: start, To: start.AddDate(0, 1, 0)}
}

func LastMonth(now time.Time) Range {
	this := ThisMonth(now)
	return Range{From: this.From.AddDate(0, -1, 0), To: this.From}
}

func ThisYear(now time.Time) Range {
	start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	return Range{From: start, To: start.AddDate(1, 0, 0)}
}

// RelativeRange resolves the tokens accepted by stored filters.
func RelativeRange(token string, now time.Time) (Range, bool) {
	switch token {
	case "current_week":
		return ThisWeek(now), true
	case "current_month":
		return ThisMonth(now), true
	case "last_month":
		return LastMonth(now), true
	case "current_year":
		return ThisYear(now), true
	}
	return Range{}, false
}

func containsDateMarker(name string) bool {
	return strings.Contains(name, "_date")
}
