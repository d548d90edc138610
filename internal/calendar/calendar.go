// v0
// internal/calendar/calendar.go

// Package calendar holds the holiday set consumed by the weekday/holiday
// weighting and the providers that load it.
package calendar

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// HolidaySet is a read-only set of calendar days (midnight UTC).
type HolidaySet struct {
	days map[time.Time]struct{}
}

// NewHolidaySet builds a set from arbitrary instants; only the date part is kept.
func NewHolidaySet(dates ...time.Time) HolidaySet {
	m := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		m[day(d)] = struct{}{}
	}
	return HolidaySet{days: m}
}

// ParseDates parses YYYY-MM-DD strings into a set.
func ParseDates(values []string) (HolidaySet, error) {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return HolidaySet{}, fmt.Errorf("invalid holiday date %q: %w", v, err)
		}
		dates = append(dates, d)
	}
	return NewHolidaySet(dates...), nil
}

// Contains reports whether t falls on a holiday.
func (h HolidaySet) Contains(t time.Time) bool {
	_, ok := h.days[day(t)]
	return ok
}

// Len returns the number of holidays.
func (h HolidaySet) Len() int { return len(h.days) }

// Dates returns the holidays in ascending order.
func (h HolidaySet) Dates() []time.Time {
	out := make([]time.Time, 0, len(h.days))
	for d := range h.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Within returns the subset of holidays in [from, to].
func (h HolidaySet) Within(from, to time.Time) HolidaySet {
	lo, hi := day(from), day(to)
	var keep []time.Time
	for d := range h.days {
		if !d.Before(lo) && !d.After(hi) {
			keep = append(keep, d)
		}
	}
	return NewHolidaySet(keep...)
}

// IsBusinessDay reports whether t is Monday to Friday and not a holiday.
func (h HolidaySet) IsBusinessDay(t time.Time) bool {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !h.Contains(t)
}

// Groups partitions the non-business days among days into runs of
// consecutive calendar days. days may contain duplicates and need not be sorted.
func (h HolidaySet) Groups(days []time.Time) [][]time.Time {
	uniq := make(map[time.Time]struct{}, len(days))
	var off []time.Time
	for _, t := range days {
		d := day(t)
		if _, seen := uniq[d]; seen {
			continue
		}
		uniq[d] = struct{}{}
		if !h.IsBusinessDay(d) {
			off = append(off, d)
		}
	}
	sort.Slice(off, func(i, j int) bool { return off[i].Before(off[j]) })

	var groups [][]time.Time
	for i, d := range off {
		if i > 0 && d.Sub(off[i-1]) == 24*time.Hour {
			last := len(groups) - 1
			groups[last] = append(groups[last], d)
			continue
		}
		groups = append(groups, []time.Time{d})
	}
	return groups
}

// Provider supplies holidays for a region over a date range.
type Provider interface {
	Holidays(ctx context.Context, region string, from, to time.Time) (HolidaySet, error)
}

// StaticProvider serves a fixed set regardless of region.
type StaticProvider struct {
	Set HolidaySet
}

// Holidays implements Provider.
func (p StaticProvider) Holidays(_ context.Context, _ string, from, to time.Time) (HolidaySet, error) {
	return p.Set.Within(from, to), nil
}

func day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
