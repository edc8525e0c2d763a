// Package weekcal implements the Sunday-start week calendar used across the
// roadmap: week keys ("2025-W01"), the 7 days a week spans, and navigation
// between adjacent weeks. Weeks are anchored to the first Sunday on or after
// Jan 1; days before that Sunday belong to the last week of the previous year.
//
// All arithmetic happens on timezone-normalized civil dates (midnight UTC),
// so daylight-saving transitions in the display timezone cannot shift a day.
package weekcal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var ErrInvalidWeekKey = errors.New("invalid week key")

var weekKeyRegex = regexp.MustCompile(`^(\d{4})-W(\d{1,2})$`)

const daysPerWeek = 7

// WeekKey identifies one Sunday..Saturday week, e.g. "2024-W45".
type WeekKey struct {
	Year int
	Week int
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%d-W%02d", k.Year, k.Week)
}

func (k WeekKey) IsZero() bool {
	return k.Year == 0 && k.Week == 0
}

func (k WeekKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *WeekKey) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// DayEntry is one calendar day of a week, as shown on the dashboard.
type DayEntry struct {
	// Date is the ISO-8601 civil date, e.g. "2024-12-29".
	Date string `json:"date"`
	// Label is the short display string, e.g. "Sun 29".
	Label string `json:"label"`
}

// Parse validates and parses a week key string. A key whose week number does
// not exist in that year (some years have only 52 Sunday weeks) is invalid.
func Parse(s string) (WeekKey, error) {
	m := weekKeyRegex.FindStringSubmatch(s)
	if m == nil {
		return WeekKey{}, fmt.Errorf("%w: %q", ErrInvalidWeekKey, s)
	}

	year, err := strconv.Atoi(m[1])
	if err != nil {
		return WeekKey{}, fmt.Errorf("%w: %q", ErrInvalidWeekKey, s)
	}
	week, err := strconv.Atoi(m[2])
	if err != nil {
		return WeekKey{}, fmt.Errorf("%w: %q", ErrInvalidWeekKey, s)
	}

	if year < 2000 || year > 2100 {
		return WeekKey{}, fmt.Errorf("%w: year out of range: %q", ErrInvalidWeekKey, s)
	}
	if week < 1 || week > WeeksInYear(year) {
		return WeekKey{}, fmt.Errorf("%w: week out of range: %q", ErrInvalidWeekKey, s)
	}

	return WeekKey{Year: year, Week: week}, nil
}

// ForDate returns the week key covering t when observed in loc.
func ForDate(t time.Time, loc *time.Location) WeekKey {
	return forCivilDate(civilDate(t, loc))
}

func forCivilDate(d time.Time) WeekKey {
	first := firstSunday(d.Year())
	if d.Before(first) {
		// belongs to the last week of the previous year
		return forCivilDate(time.Date(d.Year()-1, time.December, 31, 0, 0, 0, 0, time.UTC))
	}
	daysSince := int(d.Sub(first).Hours() / 24)
	return WeekKey{
		Year: d.Year(),
		Week: daysSince/daysPerWeek + 1,
	}
}

// WeeksInYear returns how many Sunday-start weeks the given year has (52 or 53).
func WeeksInYear(year int) int {
	span := firstSunday(year + 1).Sub(firstSunday(year))
	return int(span.Hours()/24) / daysPerWeek
}

// Sunday returns the civil date (midnight UTC) of the week's first day.
func (k WeekKey) Sunday() time.Time {
	return firstSunday(k.Year).AddDate(0, 0, (k.Week-1)*daysPerWeek)
}

// Days returns the 7 contiguous days of the week, Sunday..Saturday.
func (k WeekKey) Days() []DayEntry {
	sunday := k.Sunday()
	days := make([]DayEntry, 0, daysPerWeek)
	for i := 0; i < daysPerWeek; i++ {
		d := sunday.AddDate(0, 0, i)
		days = append(days, DayEntry{
			Date:  d.Format("2006-01-02"),
			Label: fmt.Sprintf("%s %d", d.Format("Mon"), d.Day()),
		})
	}
	return days
}

// DateRangeLabel formats the week span for display, e.g. "Dec 29 - Jan 4, 2025".
func (k WeekKey) DateRangeLabel() string {
	sunday := k.Sunday()
	saturday := sunday.AddDate(0, 0, daysPerWeek-1)
	return fmt.Sprintf(
		"%s %d - %s %d, %d",
		sunday.Format("Jan"), sunday.Day(),
		saturday.Format("Jan"), saturday.Day(),
		saturday.Year(),
	)
}

// Next returns the following week, rolling over to week 1 of the next year
// after the year's real last week (52 or 53, never a phantom week 53).
func (k WeekKey) Next() WeekKey {
	if k.Week >= WeeksInYear(k.Year) {
		return WeekKey{Year: k.Year + 1, Week: 1}
	}
	return WeekKey{Year: k.Year, Week: k.Week + 1}
}

// Prev returns the preceding week, rolling back to the real last week of the
// previous year when dropping below week 1.
func (k WeekKey) Prev() WeekKey {
	if k.Week <= 1 {
		return WeekKey{Year: k.Year - 1, Week: WeeksInYear(k.Year - 1)}
	}
	return WeekKey{Year: k.Year, Week: k.Week - 1}
}

// ContainsDate reports whether the given ISO date ("2006-01-02") falls inside
// the week.
func (k WeekKey) ContainsDate(isoDate string) bool {
	d, err := time.ParseInLocation("2006-01-02", isoDate, time.UTC)
	if err != nil {
		return false
	}
	sunday := k.Sunday()
	return !d.Before(sunday) && d.Before(sunday.AddDate(0, 0, daysPerWeek))
}

// civilDate projects t into loc and truncates it to a midnight-UTC civil date.
func civilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// firstSunday returns Jan 1 of the year advanced to the next Sunday
// (0 days when Jan 1 already is a Sunday), as a midnight-UTC civil date.
func firstSunday(year int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	daysToSunday := (daysPerWeek - int(jan1.Weekday())) % daysPerWeek
	return jan1.AddDate(0, 0, daysToSunday)
}
