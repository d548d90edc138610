// v0
// internal/generator/request.go
package generator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/anomaly"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/calendar"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/compose"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/series"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/weights"
)

// DefaultAnchorSeed keeps window placement identical across runs unless the
// caller picks another seed.
const DefaultAnchorSeed uint64 = 12

const msPerHour = 3_600_000.0

// Request describes one synthetic series.
type Request struct {
	VenueID string
	Metric  string
	UseCase compose.UseCase

	Start       time.Time
	End         time.Time
	Granularity time.Duration
	// Anchors is the number of anomaly anchors; n anchors give n-1 windows.
	Anchors     int
	IncludeTail bool

	// Bounds and Base are in the metric's unit; dwell time uses hours.
	Bounds compose.Bounds
	Base   compose.Base

	Diurnal        weights.DiurnalPeaks
	Seasons        weights.SeasonPeaks
	Holidays       calendar.HolidaySet
	HigherWeekdays bool

	AnchorSeed uint64
	// NoiseSeed pins the noise source; nil draws fresh entropy every run.
	NoiseSeed *uint64
	Clip      anomaly.Clip

	// AnomalySeries also emits the anomaly-only sub-series.
	AnomalySeries bool
}

// DefaultRequest returns a week of 10 minute footfall samples with the
// standard peaks.
func DefaultRequest() Request {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return Request{
		VenueID:     "venue-1",
		Metric:      "footfall",
		UseCase:     compose.Footfall,
		Start:       start,
		End:         start.Add(7 * 24 * time.Hour),
		Granularity: 10 * time.Minute,
		Anchors:     3,
		Bounds:      compose.Bounds{Min: 0, Max: 500},
		Base:        compose.Base{Mean: 40, SD: 10},
		Diurnal:     weights.DiurnalPeaks{First: 8, Second: 18},
		Seasons: weights.SeasonPeaks{
			First:  weights.SeasonPeak{Year: 2022, Month: 12},
			Second: weights.SeasonPeak{Year: 2023, Month: 7},
		},
		HigherWeekdays: true,
		AnchorSeed:     DefaultAnchorSeed,
		Clip:           anomaly.DefaultClip,
	}
}

// Validate rejects malformed requests before any sampling happens.
func (r Request) Validate() error {
	var errs []error
	if strings.TrimSpace(r.Metric) == "" {
		errs = append(errs, errors.New("metric name is required"))
	}
	if !r.End.After(r.Start) {
		errs = append(errs, fmt.Errorf("%w: start=%s end=%s", series.ErrInvalidRange,
			r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339)))
	}
	if r.Granularity <= 0 {
		errs = append(errs, series.ErrInvalidStep)
	}
	if r.Anchors <= 0 {
		errs = append(errs, fmt.Errorf("%w: n=%d", anomaly.ErrInvalidSampleCount, r.Anchors))
	} else if err := CheckAnchors(r.Start, r.End, r.Anchors); err != nil && !errors.Is(err, series.ErrInvalidRange) {
		errs = append(errs, err)
	}
	if err := r.Bounds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if r.Base.SD < 0 {
		errs = append(errs, fmt.Errorf("base sd must be >= 0: %v", r.Base.SD))
	}
	if err := r.Diurnal.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Seasons.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := r.Clip.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CheckAnchors reports ErrInvalidSampleCount when n anchors do not fit in the
// hourly slots of [start, end].
func CheckAnchors(start, end time.Time, n int) error {
	slots, err := anomaly.Slots(start, end, anomaly.DefaultGenerator().Unit)
	if err != nil {
		return err
	}
	if n <= 0 || n > slots {
		return fmt.Errorf("%w: n=%d slots=%d", anomaly.ErrInvalidSampleCount, n, slots)
	}
	return nil
}

// scaled converts dwell-time inputs from hours to milliseconds.
func (r Request) scaled() (compose.Base, compose.Bounds) {
	if r.UseCase != compose.DwellTime {
		return r.Base, r.Bounds
	}
	return compose.Base{Mean: r.Base.Mean * msPerHour, SD: r.Base.SD * msPerHour},
		compose.Bounds{Min: r.Bounds.Min * msPerHour, Max: r.Bounds.Max * msPerHour}
}
