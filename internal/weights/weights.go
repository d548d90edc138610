// v0
// internal/weights/weights.go

// Package weights implements the periodic weighting signals (hour of day,
// month of year, weekday/holiday and anomaly windows). Every signal carries an
// additive floor or a clip so that its values stay strictly positive.
package weights

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/exp/rand"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/calendar"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/sampler"
)

const (
	diurnalSigma   = 2.0 // hours
	seasonalSigma  = 2.0 // months
	anomalySigmaMS = 2 * 3_600_000.0

	// DwellLift is added to the diurnal weight for dwell-time metrics.
	DwellLift = 0.5
)

// DiurnalPeaks are the two hours of day where traffic peaks.
type DiurnalPeaks struct {
	First  float64
	Second float64
}

// Validate checks that both peaks are inside [0, 24).
func (p DiurnalPeaks) Validate() error {
	if p.First < 0 || p.First >= 24 || p.Second < 0 || p.Second >= 24 {
		return fmt.Errorf("diurnal peaks must be in [0,24): %v, %v", p.First, p.Second)
	}
	return nil
}

// SeasonPeak is a (year, month) pair marking a high season. The peak recurs
// every year; Year anchors it for reporting.
type SeasonPeak struct {
	Year  int
	Month float64
}

// SeasonPeaks holds the primary and secondary high seasons.
type SeasonPeaks struct {
	First  SeasonPeak
	Second SeasonPeak
}

// Validate checks that both peak months are inside [1, 13).
func (p SeasonPeaks) Validate() error {
	for _, pk := range []SeasonPeak{p.First, p.Second} {
		if pk.Month < 1 || pk.Month >= 13 {
			return fmt.Errorf("season peak month must be in [1,13): %v", pk.Month)
		}
	}
	return nil
}

// Diurnal returns the bimodal hour-of-day weight for fractional hour h.
func Diurnal(h float64, p DiurnalPeaks) float64 {
	return 2*gauss(h-p.First, diurnalSigma) + 1.7*gauss(h-p.Second, diurnalSigma) + 0.05
}

// DiurnalField applies Diurnal to every hour.
func DiurnalField(hours []float64, p DiurnalPeaks) []float64 {
	out := make([]float64, len(hours))
	for i, h := range hours {
		out[i] = Diurnal(h, p)
	}
	return out
}

// DwellField is DiurnalField lifted by DwellLift.
func DwellField(hours []float64, p DiurnalPeaks) []float64 {
	out := DiurnalField(hours, p)
	for i := range out {
		out[i] += DwellLift
	}
	return out
}

// MonthDistance is the smallest absolute distance in months between the
// fractional month and the yearly recurrence of peak month pm, looking at the
// previous, current and next year's occurrence.
func MonthDistance(month, pm float64) float64 {
	best := math.Inf(1)
	for _, dy := range []int{-1, 0, 1} {
		d := math.Abs(month - pm + 12*float64(dy))
		if d < best {
			best = d
		}
	}
	return best
}

// Seasonal returns the bimodal month-of-year weight.
func Seasonal(month float64, p SeasonPeaks) float64 {
	d1 := MonthDistance(month, p.First.Month)
	d2 := MonthDistance(month, p.Second.Month)
	return 0.65*gauss(d1, seasonalSigma) + 0.45*gauss(d2, seasonalSigma) + 0.7
}

// SeasonalField applies Seasonal to every fractional month.
func SeasonalField(months []float64, p SeasonPeaks) []float64 {
	out := make([]float64, len(months))
	for i, m := range months {
		out[i] = Seasonal(m, p)
	}
	return out
}

// HolidayRange is the bounded normal a non-business day group draws its factor from.
type HolidayRange struct {
	Mean, SD, Min, Max float64
}

var (
	// ReducedWeekends applies when weekdays are the busier regime.
	ReducedWeekends = HolidayRange{Mean: 0.75, SD: 0.1, Min: 0.5, Max: 0.8}
	// BoostedWeekends applies when weekends and holidays are busier.
	BoostedWeekends = HolidayRange{Mean: 1.25, SD: 0.1, Min: 1.1, Max: 1.5}
)

// HolidayField returns one factor per timestamp day: 1 on business days, and
// one shared random factor per run of consecutive non-business days.
func HolidayField(days []time.Time, cal calendar.HolidaySet, higherWeekdays bool, src rand.Source) []float64 {
	r := BoostedWeekends
	if higherWeekdays {
		r = ReducedWeekends
	}
	factor := make(map[time.Time]float64)
	for _, group := range cal.Groups(days) {
		f := sampler.Truncated(src, r.Mean, r.SD, r.Min, r.Max)
		for _, d := range group {
			factor[d] = f
		}
	}
	out := make([]float64, len(days))
	for i, t := range days {
		if f, ok := factor[dayOf(t)]; ok {
			out[i] = f
			continue
		}
		out[i] = 1
	}
	return out
}

// Anomaly returns the Gaussian anomaly weight of t for a window peaking at
// peak, scaled by factor.
func Anomaly(peak, t time.Time, factor float64) float64 {
	deltaMS := float64(t.Sub(peak)) / float64(time.Millisecond)
	return gauss(deltaMS, anomalySigmaMS) * factor
}

// AnomalyFactor draws the window amplitude. Night-time peaks (outside
// [5, 19]) are sharper.
func AnomalyFactor(src rand.Source, peakHour float64) float64 {
	if peakHour < 5 || peakHour > 19 {
		return sampler.Uniform(src, 10, 20)
	}
	return sampler.Uniform(src, 2, 4)
}

func gauss(x, sigma float64) float64 {
	return math.Exp(-(x * x) / (2 * sigma * sigma))
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
