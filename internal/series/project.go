// v0
// internal/series/project.go
package series

import "time"

// FractionalHour returns the hour of day with minutes and seconds as a fraction.
func FractionalHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// FractionalMonth places t inside its month as month + day/31 + hour/24/31.
func FractionalMonth(t time.Time) float64 {
	return float64(t.Month()) + float64(t.Day())/31 + FractionalHour(t)/24/31
}

// Hours projects every timestamp onto its fractional hour of day.
func (ix Index) Hours() []float64 {
	out := make([]float64, len(ix.ts))
	for i, t := range ix.ts {
		out[i] = FractionalHour(t)
	}
	return out
}

// Months projects every timestamp onto its fractional month.
func (ix Index) Months() []float64 {
	out := make([]float64, len(ix.ts))
	for i, t := range ix.ts {
		out[i] = FractionalMonth(t)
	}
	return out
}

// Years returns the calendar year of every timestamp.
func (ix Index) Years() []int {
	out := make([]int, len(ix.ts))
	for i, t := range ix.ts {
		out[i] = t.Year()
	}
	return out
}

// Days truncates every timestamp to midnight UTC.
func (ix Index) Days() []time.Time {
	out := make([]time.Time, len(ix.ts))
	for i, t := range ix.ts {
		out[i] = Day(t)
	}
	return out
}

// UnixMilli returns every timestamp as milliseconds since the epoch.
func (ix Index) UnixMilli() []int64 {
	out := make([]int64, len(ix.ts))
	for i, t := range ix.ts {
		out[i] = t.UnixMilli()
	}
	return out
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
