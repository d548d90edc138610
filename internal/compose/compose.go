// v0
// internal/compose/compose.go

// Package compose multiplies the periodic weight fields into one weight per
// timestamp, turns it into distribution parameters and samples the metric.
package compose

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/sampler"
)

const sdFloor = 1.0

var (
	// ErrShapeMismatch is returned when weight fields have different lengths.
	ErrShapeMismatch = errors.New("compose: weight fields have different lengths")
	// ErrWeightUnderflow signals a non-positive combined weight. The floors of
	// the weight functions rule it out, so callers treat it as fatal.
	ErrWeightUnderflow = errors.New("compose: combined weight is not positive")
)

// Fields are the weight arrays for one index. A nil field counts as all ones.
type Fields struct {
	Hour    []float64
	Season  []float64
	Holiday []float64
	Anomaly []float64
}

// Len returns the common length, or an error when the non-nil fields disagree.
func (f Fields) Len() (int, error) {
	n := -1
	for _, fld := range f.present() {
		if n >= 0 && len(fld) != n {
			return 0, fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, n, len(fld))
		}
		n = len(fld)
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

func (f Fields) present() [][]float64 {
	out := make([][]float64, 0, 4)
	for _, fld := range [][]float64{f.Hour, f.Season, f.Holiday, f.Anomaly} {
		if fld != nil {
			out = append(out, fld)
		}
	}
	return out
}

// Combined returns the element-wise product of all fields.
func (f Fields) Combined() ([]float64, error) {
	n, err := f.Len()
	if err != nil {
		return nil, err
	}
	present := f.present()
	out := make([]float64, n)
	for i := range out {
		w := 1.0
		for _, fld := range present {
			w *= fld[i]
		}
		if !(w > 0) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: index %d weight %v", ErrWeightUnderflow, i, w)
		}
		out[i] = w
	}
	return out, nil
}

// Base is the unweighted distribution of the metric.
type Base struct {
	Mean float64
	SD   float64
}

// Params are per-timestamp distribution parameters.
type Params struct {
	Mean   []float64
	SD     []float64
	Weight []float64
}

// Len returns the number of elements.
func (p Params) Len() int { return len(p.Mean) }

// Compose combines the fields with base according to the use case, then
// clamps every mean to max and floors every sd at 1.
func Compose(f Fields, base Base, uc UseCase, max float64) (Params, error) {
	w, err := f.Combined()
	if err != nil {
		return Params{}, err
	}
	return Apply(w, base, uc, max), nil
}

// Apply turns an already combined weight field into parameters.
func Apply(w []float64, base Base, uc UseCase, max float64) Params {
	p := Params{
		Mean:   make([]float64, len(w)),
		SD:     make([]float64, len(w)),
		Weight: w,
	}
	comb := uc.Combination()
	for i, wi := range w {
		mean := base.Mean * wi
		if comb == Divide {
			mean = base.Mean / wi
		}
		sd := base.SD * math.Sqrt(wi)
		p.Mean[i] = math.Min(mean, max)
		p.SD[i] = math.Max(sd, sdFloor)
	}
	return p
}

// Bounds are the global limits of the metric.
type Bounds struct {
	Min float64
	Max float64
}

// Validate checks Min <= Max.
func (b Bounds) Validate() error {
	if b.Min > b.Max {
		return fmt.Errorf("bounds: min %v greater than max %v", b.Min, b.Max)
	}
	return nil
}

// Evaluate samples one bounded normal value per element of p.
func Evaluate(src rand.Source, p Params, b Bounds) ([]float64, error) {
	return sampler.Sample(src, p.Mean, p.SD, b.Min, b.Max, p.Len())
}
