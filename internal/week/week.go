// Package week computes the calendar weeks shown by the dashboard.
//
// Week numbers follow a year-start weekday offset, not ISO-8601: weeks are
// counted from January 1 shifted by its weekday (Sunday = 0), so a Sunday
// carries the number of the following Monday and the last days of some years
// fall in week 53. Week spans are always Monday to Sunday.
package week

import "time"

// WeeksPerYear is the highest week number a Selector holds after Advance.
const WeeksPerYear = 52

// Selector identifies the week displayed by the dashboard.
type Selector struct {
	Week int `json:"week"`
	Year int `json:"year"`
}

// Current returns the selector containing now.
func Current(now time.Time) Selector {
	return Selector{Week: NumberOf(now), Year: now.Year()}
}

// NumberOf returns the 1-based week number containing t:
// ceil((daysSinceJan1 + weekdayOfJan1 + 1) / 7).
func NumberOf(t time.Time) int {
	year, month, day := t.Date()
	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	pastDays := date.YearDay() - 1
	n := pastDays + int(jan1.Weekday()) + 1
	return (n + 6) / 7
}

// DatesOf returns the seven dates, Monday first, of the given week. Dates are
// civil dates at midnight UTC.
func DatesOf(week, year int) [7]time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	offset := (week-1)*7 - int(jan1.Weekday()) + 1
	monday := jan1.AddDate(0, 0, offset)

	var dates [7]time.Time
	for i := range dates {
		dates[i] = monday.AddDate(0, 0, i)
	}
	return dates
}

// Dates returns the seven dates of the selected week.
func (s Selector) Dates() [7]time.Time {
	return DatesOf(s.Week, s.Year)
}

// Advance moves the selector one week in the sign of direction. Stepping past
// week 52 wraps to week 1 of the next year, before week 1 to week 52 of the
// previous year. A zero direction returns s unchanged.
func Advance(s Selector, direction int) Selector {
	switch {
	case direction > 0:
		s.Week++
	case direction < 0:
		s.Week--
	default:
		return s
	}

	if s.Week > WeeksPerYear {
		s.Week = 1
		s.Year++
	} else if s.Week < 1 {
		s.Week = WeeksPerYear
		s.Year--
	}
	return s
}

// DateKey formats t as the YYYY-MM-DD key used by planning records.
func DateKey(t time.Time) string {
	return t.Format(time.DateOnly)
}
