// v0
// internal/anomaly/window.go

// Package anomaly places random, non-overlapping anomaly windows inside a date
// range and turns them into a multiplicative weight mask.
package anomaly

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/exp/rand"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/sampler"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/series"
)

var (
	// ErrInvalidRange is the series sentinel, re-exported for callers that only
	// import this package.
	ErrInvalidRange = series.ErrInvalidRange
	// ErrInvalidSampleCount is returned when the anchor count is not positive
	// or exceeds the available slots.
	ErrInvalidSampleCount = errors.New("anomaly: invalid anchor count")
)

// Window is a contiguous run of timestamps. End before Start marks an empty
// window, End equal to Start a single-timestamp one.
type Window struct {
	Start      time.Time
	End        time.Time
	Step       time.Duration
	Timestamps series.Index
}

// Peak is the midpoint of the window.
func (w Window) Peak() time.Time {
	if w.Empty() {
		return w.Start
	}
	return w.Start.Add(w.End.Sub(w.Start) / 2)
}

// Empty reports whether the window holds no timestamps.
func (w Window) Empty() bool { return w.End.Before(w.Start) }

// Duration is End-Start, zero for empty windows.
func (w Window) Duration() time.Duration {
	if w.Empty() {
		return 0
	}
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !w.Empty() && !t.Before(w.Start) && !t.After(w.End)
}

// Windows is a list of windows sorted by start.
type Windows []Window

// Locate returns the start and peak of the window containing t.
func (ws Windows) Locate(t time.Time) (start, peak time.Time, ok bool) {
	i := sort.Search(len(ws), func(i int) bool { return ws[i].Start.After(t) })
	for j := i - 1; j >= 0; j-- {
		if ws[j].Contains(t) {
			return ws[j].Start, ws[j].Peak(), true
		}
		if !ws[j].Empty() {
			break
		}
	}
	return time.Time{}, time.Time{}, false
}

// Union returns every window timestamp as one sorted index.
func (ws Windows) Union() series.Index {
	parts := make([]series.Index, 0, len(ws))
	for _, w := range ws {
		parts = append(parts, w.Timestamps)
	}
	return series.Union(parts...)
}

// NonEmpty drops the empty windows.
func (ws Windows) NonEmpty() Windows {
	out := make(Windows, 0, len(ws))
	for _, w := range ws {
		if !w.Empty() {
			out = append(out, w)
		}
	}
	return out
}

// Slots returns how many anchor positions of width unit fit in [start, end]:
// slot k is start + k*unit, so the last one never passes end.
func Slots(start, end time.Time, unit time.Duration) (int, error) {
	if !end.After(start) {
		return 0, fmt.Errorf("%w: start=%s end=%s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if unit <= 0 {
		return 0, series.ErrInvalidStep
	}
	return int(end.Sub(start)/unit) + 1, nil
}

// Anchors draws n distinct slots of [start, end] and returns their instants
// in ascending order. The same source state always yields the same anchors.
func Anchors(src rand.Source, start, end time.Time, n int, unit time.Duration) ([]time.Time, error) {
	slots, err := Slots(start, end, unit)
	if err != nil {
		return nil, err
	}
	if n <= 0 || n > slots {
		return nil, fmt.Errorf("%w: n=%d slots=%d", ErrInvalidSampleCount, n, slots)
	}
	// Floyd's algorithm: n draws, no replacement, O(n) memory.
	r := rand.New(src)
	picked := make(map[int]struct{}, n)
	offsets := make([]int, 0, n)
	for j := slots - n; j < slots; j++ {
		k := r.Intn(j + 1)
		if _, dup := picked[k]; dup {
			k = j
		}
		picked[k] = struct{}{}
		offsets = append(offsets, k)
	}
	sort.Ints(offsets)
	out := make([]time.Time, n)
	base := start.UTC()
	for i, off := range offsets {
		out[i] = base.Add(time.Duration(off) * unit)
	}
	return out, nil
}

// Generator holds the window placement parameters.
type Generator struct {
	// Granularity is the step of the window timestamps and the guard kept
	// before the next anchor.
	Granularity time.Duration
	// Unit is the width of an anchor slot.
	Unit time.Duration

	DurationMean time.Duration
	DurationSD   time.Duration
	DurationMin  time.Duration
	DurationMax  time.Duration

	// IncludeTail gives the last anchor a window bounded by the range end.
	IncludeTail bool
}

// DefaultGenerator returns 10s granularity, hourly anchors and window
// durations ~ N(10h, 3h) clipped to [1h, 20h].
func DefaultGenerator() Generator {
	return Generator{
		Granularity:  10 * time.Second,
		Unit:         time.Hour,
		DurationMean: 10 * time.Hour,
		DurationSD:   3 * time.Hour,
		DurationMin:  time.Hour,
		DurationMax:  20 * time.Hour,
	}
}

// Validate checks the generator parameters.
func (g Generator) Validate() error {
	if g.Granularity <= 0 || g.Unit <= 0 {
		return series.ErrInvalidStep
	}
	if g.DurationMin < 0 || g.DurationMin > g.DurationMax {
		return fmt.Errorf("anomaly: duration bounds [%s, %s] are invalid", g.DurationMin, g.DurationMax)
	}
	return nil
}

// Generate draws n anchors from anchorSrc and builds one window for each
// adjacent pair, plus the tail window when enabled. Durations come from
// durationSrc; passing the anchor source for both keeps the whole placement
// reproducible from one seed.
func (g Generator) Generate(anchorSrc, durationSrc rand.Source, start, end time.Time, n int) (Windows, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	anchors, err := Anchors(anchorSrc, start, end, n, g.Unit)
	if err != nil {
		return nil, err
	}
	out := make(Windows, 0, len(anchors))
	for i := 0; i+1 < len(anchors); i++ {
		a, next := anchors[i], anchors[i+1]
		out = append(out, g.window(a, minTime(a.Add(g.duration(durationSrc)), next.Add(-g.Granularity))))
	}
	if g.IncludeTail {
		a := anchors[len(anchors)-1]
		out = append(out, g.window(a, minTime(a.Add(g.duration(durationSrc)), end.UTC())))
	}
	return out, nil
}

func (g Generator) duration(src rand.Source) time.Duration {
	h := sampler.Truncated(src,
		g.DurationMean.Hours(), g.DurationSD.Hours(),
		g.DurationMin.Hours(), g.DurationMax.Hours())
	return time.Duration(h * float64(time.Hour))
}

func (g Generator) window(start, end time.Time) Window {
	return Window{
		Start:      start,
		End:        end,
		Step:       g.Granularity,
		Timestamps: series.Dense(start, end, g.Granularity),
	}
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
