// v0
// internal/calendar/england.go
package calendar

import (
	"context"
	"time"
)

// EnglandProvider computes the England and Wales bank holidays, with weekend
// substitutes. One-off royal holidays are not included; supply them through a
// FileProvider instead.
type EnglandProvider struct{}

// Holidays implements Provider; region is ignored.
func (EnglandProvider) Holidays(ctx context.Context, _ string, from, to time.Time) (HolidaySet, error) {
	var dates []time.Time
	for y := from.UTC().Year(); y <= to.UTC().Year(); y++ {
		if err := ctx.Err(); err != nil {
			return HolidaySet{}, err
		}
		dates = append(dates, EnglandBankHolidays(y)...)
	}
	return NewHolidaySet(dates...).Within(from, to), nil
}

// EnglandBankHolidays returns the regular bank holidays of year in date order.
func EnglandBankHolidays(year int) []time.Time {
	easter := Easter(year)
	out := []time.Time{
		substitute(date(year, time.January, 1)),
		easter.AddDate(0, 0, -2),
		easter.AddDate(0, 0, 1),
		nthMonday(year, time.May, 1),
		lastMonday(year, time.May),
		lastMonday(year, time.August),
	}
	xmas := date(year, time.December, 25)
	switch xmas.Weekday() {
	case time.Saturday:
		out = append(out, date(year, time.December, 27), date(year, time.December, 28))
	case time.Sunday:
		out = append(out, date(year, time.December, 26), date(year, time.December, 27))
	case time.Friday:
		out = append(out, xmas, date(year, time.December, 28))
	default:
		out = append(out, xmas, date(year, time.December, 26))
	}
	return out
}

// Easter returns Easter Sunday of the Gregorian year (anonymous algorithm).
func Easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// substitute moves a weekend date to the following Monday.
func substitute(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

func nthMonday(y int, m time.Month, n int) time.Time {
	t := date(y, m, 1)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, 1)
	}
	return t.AddDate(0, 0, 7*(n-1))
}

func lastMonday(y int, m time.Month) time.Time {
	t := date(y, m+1, 1).AddDate(0, 0, -1)
	for t.Weekday() != time.Monday {
		t = t.AddDate(0, 0, -1)
	}
	return t
}
