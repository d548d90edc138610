// v0
// internal/sampler/sampler.go

// Package sampler draws clipped normal and uniform values from explicit,
// caller-owned random sources.
package sampler

import (
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	// ErrShapeMismatch is returned when a parameter slice is neither scalar nor count long.
	ErrShapeMismatch = errors.New("sampler: parameter length does not match count")
	// ErrInvalidBounds is returned when min > max.
	ErrInvalidBounds = errors.New("sampler: min greater than max")
)

// NewSource returns a reproducible source for the given seed.
func NewSource(seed uint64) rand.Source {
	return rand.NewSource(seed)
}

// NewEntropySource returns a source seeded from the OS entropy pool. Runs that
// use it are intentionally not reproducible.
func NewEntropySource() rand.Source {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.NewSource(uint64(time.Now().UnixNano()))
	}
	return rand.NewSource(binary.LittleEndian.Uint64(b[:]))
}

// Sample draws count values from Normal(mean, sd) and clamps them into [min, max].
// mean and sd are either scalar (length 1) or per element (length count).
// A non-positive sd degenerates to the mean before clamping.
func Sample(src rand.Source, mean, sd []float64, min, max float64, count int) ([]float64, error) {
	if count < 0 {
		return nil, fmt.Errorf("sampler: negative count %d", count)
	}
	if min > max {
		return nil, ErrInvalidBounds
	}
	if !broadcastable(mean, count) || !broadcastable(sd, count) {
		return nil, fmt.Errorf("%w: mean=%d sd=%d count=%d", ErrShapeMismatch, len(mean), len(sd), count)
	}
	out := make([]float64, count)
	dist := distuv.Normal{Src: src}
	for i := range out {
		dist.Mu = at(mean, i)
		dist.Sigma = at(sd, i)
		out[i] = clamp(draw(dist), min, max)
	}
	return out, nil
}

// Truncated draws a single clipped normal value.
func Truncated(src rand.Source, mean, sd, min, max float64) float64 {
	return clamp(draw(distuv.Normal{Mu: mean, Sigma: sd, Src: src}), min, max)
}

// Uniform draws a single value from [lo, hi).
func Uniform(src rand.Source, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: src}.Rand()
}

// Clamp limits v to [min, max].
func Clamp(v, min, max float64) float64 { return clamp(v, min, max) }

func draw(d distuv.Normal) float64 {
	if d.Sigma <= 0 {
		return d.Mu
	}
	return d.Rand()
}

func broadcastable(p []float64, count int) bool {
	return len(p) == 1 || len(p) == count
}

func at(p []float64, i int) float64 {
	if len(p) == 1 {
		return p[0]
	}
	return p[i]
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
