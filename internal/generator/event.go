// v0
// internal/generator/event.go
package generator

import (
	"time"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/anomaly"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/compose"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/sampler"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/series"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/weights"
)

// EventParams are the distribution parameters of a single instant.
type EventParams struct {
	Mean      float64 `json:"mean"`
	SD        float64 `json:"sd"`
	Weight    float64 `json:"weight"`
	Anomalous bool    `json:"anomalous"`
}

func (st *run) events() ([]EventWindow, error) {
	out := make([]EventWindow, 0, len(st.windows))
	for _, w := range st.windows.NonEmpty() {
		p, err := st.paramsAt(w.Peak())
		if err != nil {
			return nil, err
		}
		out = append(out, EventWindow{Start: w.Start, End: w.End, Peak: w.Peak(), Mean: p.Mean, SD: p.SD})
	}
	return out, nil
}

// paramsAt composes every weight at t. Inside a window the anomaly weight
// follows the window's Gaussian around its peak.
func (st *run) paramsAt(t time.Time) (EventParams, error) {
	anom := 1.0
	_, peak, in := st.windows.Locate(t)
	if in {
		factor := weights.AnomalyFactor(st.noise, series.FractionalHour(peak))
		anom = weights.Anomaly(peak, t, factor)
	}
	anom = clip(anom, st.req.Clip)

	hour := series.FractionalHour(t)
	hw := weights.Diurnal(hour, st.req.Diurnal)
	if st.req.UseCase == compose.DwellTime {
		hw += weights.DwellLift
	}
	f := compose.Fields{
		Hour:    []float64{hw},
		Season:  []float64{weights.Seasonal(series.FractionalMonth(t), st.req.Seasons)},
		Holiday: []float64{st.holidayAt(t)},
		Anomaly: []float64{anom},
	}
	p, err := compose.Compose(f, st.base, st.req.UseCase, st.bounds.Max)
	if err != nil {
		return EventParams{}, err
	}
	return EventParams{Mean: p.Mean[0], SD: p.SD[0], Weight: p.Weight[0], Anomalous: in}, nil
}

// EventParamsAt evaluates caller-supplied timestamps against the windows a
// request produces. Window starts and ends depend only on the anchor seed,
// so they match those of a Run with the same request.
func EventParamsAt(req Request, ts []time.Time) ([]EventParams, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req.Start, req.End = req.Start.UTC(), req.End.UTC()
	st := &run{req: req, noise: noiseSource(req)}
	st.base, st.bounds = req.scaled()
	ws, err := windowsFor(req)
	if err != nil {
		return nil, err
	}
	st.windows = ws
	st.holidays = holidayLookup(req, st.noise)

	out := make([]EventParams, len(ts))
	for i, t := range ts {
		p, err := st.paramsAt(t.UTC())
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// Windows previews the anomaly windows of req without sampling any values.
func Windows(req Request) (anomaly.Windows, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return windowsFor(req)
}

// windowsFor places the windows from the anchor seed alone: one source draws
// the anchors, then the durations.
func windowsFor(req Request) (anomaly.Windows, error) {
	gen := anomaly.DefaultGenerator()
	gen.Granularity = req.Granularity
	gen.IncludeTail = req.IncludeTail
	src := sampler.NewSource(req.AnchorSeed)
	return gen.Generate(src, src, req.Start.UTC(), req.End.UTC(), req.Anchors)
}

func clip(v float64, c anomaly.Clip) float64 {
	if v < c.Min {
		return c.Min
	}
	if v > c.Max {
		return c.Max
	}
	return v
}
