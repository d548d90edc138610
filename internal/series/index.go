// v0
// internal/series/index.go
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrInvalidRange is returned when end is not after start.
	ErrInvalidRange = errors.New("invalid range: end must be after start")
	// ErrInvalidStep is returned for non-positive granularities.
	ErrInvalidStep = errors.New("invalid step: granularity must be positive")
	// ErrNotIncreasing is returned when explicit timestamps are not strictly increasing.
	ErrNotIncreasing = errors.New("timestamps must be strictly increasing")
)

// Index is an ordered, strictly increasing sequence of UTC timestamps.
// It is never mutated after construction.
type Index struct {
	ts []time.Time
}

// Range builds the dense sequence start, start+step, ... up to and including end.
func Range(start, end time.Time, step time.Duration) (Index, error) {
	if !end.After(start) {
		return Index{}, fmt.Errorf("%w: start=%s end=%s", ErrInvalidRange, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if step <= 0 {
		return Index{}, ErrInvalidStep
	}
	return Index{ts: dense(start.UTC(), end.UTC(), step)}, nil
}

// Dense is like Range but tolerates end <= start: end == start yields a single
// timestamp and end < start yields an empty index.
func Dense(start, end time.Time, step time.Duration) Index {
	if step <= 0 || end.Before(start) {
		return Index{}
	}
	return Index{ts: dense(start.UTC(), end.UTC(), step)}
}

// FromTimes wraps explicit timestamps, which must be strictly increasing.
func FromTimes(ts []time.Time) (Index, error) {
	out := make([]time.Time, len(ts))
	for i, t := range ts {
		out[i] = t.UTC()
		if i > 0 && !out[i].After(out[i-1]) {
			return Index{}, fmt.Errorf("%w: position %d", ErrNotIncreasing, i)
		}
	}
	return Index{ts: out}, nil
}

// Union merges several indexes, dropping duplicate instants.
func Union(parts ...Index) Index {
	n := 0
	for _, p := range parts {
		n += len(p.ts)
	}
	all := make([]time.Time, 0, n)
	for _, p := range parts {
		all = append(all, p.ts...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
	out := all[:0]
	for i, t := range all {
		if i > 0 && t.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, t)
	}
	return Index{ts: out}
}

func dense(start, end time.Time, step time.Duration) []time.Time {
	n := int(end.Sub(start)/step) + 1
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * step)
	}
	return out
}

// Len returns the number of timestamps.
func (ix Index) Len() int { return len(ix.ts) }

// At returns the i-th timestamp.
func (ix Index) At(i int) time.Time { return ix.ts[i] }

// Times returns a copy of the timestamps.
func (ix Index) Times() []time.Time {
	return append([]time.Time(nil), ix.ts...)
}

// First and Last return the bounds; both panic on an empty index.
func (ix Index) First() time.Time { return ix.ts[0] }
func (ix Index) Last() time.Time  { return ix.ts[len(ix.ts)-1] }

// Search returns the position of the first timestamp not before t.
func (ix Index) Search(t time.Time) int {
	return sort.Search(len(ix.ts), func(i int) bool { return !ix.ts[i].Before(t) })
}

// Between returns the half-open position range [lo, hi) of timestamps in [from, to].
func (ix Index) Between(from, to time.Time) (lo, hi int) {
	lo = ix.Search(from)
	hi = sort.Search(len(ix.ts), func(i int) bool { return ix.ts[i].After(to) })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}
