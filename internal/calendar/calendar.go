// Package calendar rolls dates onto business days (Monday to Friday) and converts
// between time.Time and the ERP's date formats. Holidays are not modeled.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// Direction selects which neighbouring weekday a weekend date rolls to.
type Direction int

const (
	Forward  Direction = iota // Saturday/Sunday → next Monday
	Backward                  // Saturday/Sunday → previous Friday
)

// ERPLayout is the date format used on the ERP wire.
const ERPLayout = "02.01.2006"

var inputLayouts = []string{ERPLayout, "20060102", "2006-01-02"}

// Roll returns d unchanged on weekdays and moves weekend dates to the nearest
// weekday in the given direction. The zero time passes through.
func Roll(d time.Time, dir Direction) time.Time {
	if d.IsZero() {
		return d
	}

	switch d.Weekday() {
	case time.Saturday:
		if dir == Forward {
			return d.AddDate(0, 0, 2)
		}
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		if dir == Forward {
			return d.AddDate(0, 0, 1)
		}
		return d.AddDate(0, 0, -2)
	}
	return d
}

// RollForward rolls weekend dates to the following Monday.
func RollForward(d time.Time) time.Time { return Roll(d, Forward) }

// RollBackward rolls weekend dates to the preceding Friday.
func RollBackward(d time.Time) time.Time { return Roll(d, Backward) }

// IsBusinessDay reports whether d falls on Monday to Friday.
func IsBusinessDay(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// AddBusinessDays rolls d onto a business day (forward for n >= 0, backward for n < 0)
// and then moves n business days.
func AddBusinessDays(d time.Time, n int) time.Time {
	if d.IsZero() {
		return d
	}

	step := 1
	dir := Forward
	if n < 0 {
		step, dir, n = -1, Backward, -n
	}

	d = Roll(d, dir)
	for n > 0 {
		d = d.AddDate(0, 0, step)
		if IsBusinessDay(d) {
			n--
		}
	}
	return d
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day returns midnight UTC of t's calendar day as seen in t's location.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseERPDate parses DD.MM.YYYY, YYYYMMDD or YYYY-MM-DD.
func ParseERPDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (want DD.MM.YYYY)", s)
}

// FormatERPDate renders d as DD.MM.YYYY; the zero time renders empty.
func FormatERPDate(d time.Time) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(ERPLayout)
}
