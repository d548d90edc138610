// v0
// internal/anomaly/mask.go
package anomaly

import (
	"fmt"

	"golang.org/x/exp/rand"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/series"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/weights"
)

// Clip bounds the anomaly mask.
type Clip struct {
	Min float64
	Max float64
}

var (
	// DefaultClip allows sharp night-time spikes to pass through.
	DefaultClip = Clip{Min: 1, Max: 50}
	// NarrowClip caps anomalies at eight times the regular weight.
	NarrowClip = Clip{Min: 1, Max: 8}
)

// Validate requires 0 < Min <= Max.
func (c Clip) Validate() error {
	if !(c.Min > 0) || c.Min > c.Max {
		return fmt.Errorf("anomaly: invalid clip [%v, %v]", c.Min, c.Max)
	}
	return nil
}

func (c Clip) apply(v float64) float64 {
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}

// BuildMask returns one anomaly weight per index timestamp. Timestamps outside
// every window keep weight 1 before clipping. Each non-empty window draws its
// amplitude from src once.
func BuildMask(ws Windows, ix series.Index, src rand.Source, clip Clip) []float64 {
	mask := make([]float64, ix.Len())
	for i := range mask {
		mask[i] = 1
	}
	for _, w := range ws {
		if w.Empty() {
			continue
		}
		peak := w.Peak()
		factor := weights.AnomalyFactor(src, series.FractionalHour(peak))
		lo, hi := ix.Between(w.Start, w.End)
		for i := lo; i < hi; i++ {
			mask[i] *= weights.Anomaly(peak, ix.At(i), factor)
		}
	}
	for i, v := range mask {
		mask[i] = clip.apply(v)
	}
	return mask
}

// Membership flags the index timestamps that fall inside a non-empty window.
func Membership(ws Windows, ix series.Index) []bool {
	in := make([]bool, ix.Len())
	for _, w := range ws {
		if w.Empty() {
			continue
		}
		lo, hi := ix.Between(w.Start, w.End)
		for i := lo; i < hi; i++ {
			in[i] = true
		}
	}
	return in
}
