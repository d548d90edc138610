// v0
// internal/generator/generator.go

// Package generator turns a Request into a synthetic series: it places the
// anomaly windows, builds every weight field over the timestamp index,
// composes them with the base distribution and samples one value per
// timestamp. Event requests yield per-window distribution parameters instead.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/anomaly"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/compose"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/metrics"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/sampler"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/series"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/weights"
)

// Record is one generated sample.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	VenueID   string    `json:"venueId"`
	RunID     string    `json:"runId"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Weight    float64   `json:"weight"`
	Anomalous bool      `json:"anomalous"`
}

// EventWindow carries the distribution parameters at the peak of an anomaly window.
type EventWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Peak  time.Time `json:"peak"`
	Mean  float64   `json:"mean"`
	SD    float64   `json:"sd"`
}

// Series is a bare timestamp/value pair list.
type Series struct {
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
}

// Result is the outcome of one run.
type Result struct {
	RunID   string          `json:"runId"`
	VenueID string          `json:"venueId"`
	Metric  string          `json:"metric"`
	UseCase compose.UseCase `json:"useCase"`
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Windows int             `json:"windows"`

	Records       []Record      `json:"records,omitempty"`
	Events        []EventWindow `json:"events,omitempty"`
	AnomalySeries *Series       `json:"anomalySeries,omitempty"`
}

// Len is the number of generated records or event windows.
func (r *Result) Len() int {
	if r.UseCase == compose.Event {
		return len(r.Events)
	}
	return len(r.Records)
}

// Runner executes requests. Each run owns its random sources, so a Runner
// may serve concurrent callers.
type Runner struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	newID   func() string
}

// NewRunner returns a runner; m may be nil.
func NewRunner(log *slog.Logger, m *metrics.Metrics) *Runner {
	return &Runner{log: log, metrics: m, newID: func() string { return uuid.NewString() }}
}

// run is the state of one execution.
type run struct {
	req      Request
	base     compose.Base
	bounds   compose.Bounds
	noise    rand.Source
	windows  anomaly.Windows
	holidays map[time.Time]float64
}

// Run generates the series described by req.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	begin := time.Now()
	res, err := r.run(ctx, req)
	windows, n := 0, 0
	if res != nil {
		windows, n = res.Windows, res.Len()
	}
	r.metrics.RunFinished(req.UseCase.String(), n, windows, time.Since(begin), err)
	if err != nil {
		r.log.Error("run_failed", slog.String("metric", req.Metric), slog.String("useCase", req.UseCase.String()), slog.Any("err", err))
		return nil, err
	}
	r.log.Info("run_finished",
		slog.String("runId", res.RunID),
		slog.String("metric", res.Metric),
		slog.String("useCase", res.UseCase.String()),
		slog.Int("records", n),
		slog.Int("windows", windows),
		slog.Duration("elapsed", time.Since(begin)))
	return res, nil
}

func (r *Runner) run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	req.Start, req.End = req.Start.UTC(), req.End.UTC()

	st := &run{req: req, noise: noiseSource(req)}
	st.base, st.bounds = req.scaled()

	res := &Result{
		RunID:   r.newID(),
		VenueID: req.VenueID,
		Metric:  req.Metric,
		UseCase: req.UseCase,
		Start:   req.Start,
		End:     req.End,
	}
	r.log.Info("run_started",
		slog.String("runId", res.RunID),
		slog.String("metric", req.Metric),
		slog.String("useCase", req.UseCase.String()),
		slog.Time("start", req.Start),
		slog.Time("end", req.End),
		slog.Int("anchors", req.Anchors))

	ws, err := windowsFor(req)
	if err != nil {
		return nil, err
	}
	st.windows = ws
	res.Windows = len(ws.NonEmpty())
	st.holidays = holidayLookup(req, st.noise)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.UseCase == compose.Event {
		events, err := st.events()
		if err != nil {
			return nil, err
		}
		res.Events = events
		return res, nil
	}

	ix, err := series.Range(req.Start, req.End, req.Granularity)
	if err != nil {
		return nil, err
	}
	values, w, err := st.sample(ix)
	if err != nil {
		return nil, err
	}
	in := anomaly.Membership(ws, ix)
	res.Records = make([]Record, ix.Len())
	for i := range res.Records {
		res.Records[i] = Record{
			Timestamp: ix.At(i),
			VenueID:   req.VenueID,
			RunID:     res.RunID,
			Metric:    req.Metric,
			Value:     values[i],
			Weight:    w[i],
			Anomalous: in[i],
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.AnomalySeries {
		u := ws.Union()
		if u.Len() > 0 {
			sub, _, err := st.sample(u)
			if err != nil {
				return nil, err
			}
			res.AnomalySeries = &Series{Timestamps: u.Times(), Values: sub}
		}
	}
	return res, nil
}

// sample builds every field over ix and draws one value per timestamp.
func (st *run) sample(ix series.Index) ([]float64, []float64, error) {
	f := compose.Fields{
		Hour:    st.hourField(ix.Hours()),
		Season:  weights.SeasonalField(ix.Months(), st.req.Seasons),
		Holiday: st.holidayField(ix.Days()),
		Anomaly: anomaly.BuildMask(st.windows, ix, st.noise, st.req.Clip),
	}
	params, err := compose.Compose(f, st.base, st.req.UseCase, st.bounds.Max)
	if err != nil {
		return nil, nil, err
	}
	values, err := compose.Evaluate(st.noise, params, st.bounds)
	if err != nil {
		return nil, nil, err
	}
	return values, params.Weight, nil
}

func (st *run) hourField(hours []float64) []float64 {
	if st.req.UseCase == compose.DwellTime {
		return weights.DwellField(hours, st.req.Diurnal)
	}
	return weights.DiurnalField(hours, st.req.Diurnal)
}

func (st *run) holidayField(days []time.Time) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = st.holidayAt(d)
	}
	return out
}

func (st *run) holidayAt(t time.Time) float64 {
	if f, ok := st.holidays[series.Day(t)]; ok {
		return f
	}
	return 1
}

// holidayLookup draws the weekday/holiday factor of every day in the range
// once, so that all timestamps of a non-business day group share it.
func holidayLookup(req Request, src rand.Source) map[time.Time]float64 {
	days := series.Dense(series.Day(req.Start), series.Day(req.End), 24*time.Hour).Times()
	field := weights.HolidayField(days, req.Holidays, req.HigherWeekdays, src)
	out := make(map[time.Time]float64, len(days))
	for i, d := range days {
		out[d] = field[i]
	}
	return out
}

func noiseSource(req Request) rand.Source {
	if req.NoiseSeed != nil {
		return sampler.NewSource(*req.NoiseSeed)
	}
	return sampler.NewEntropySource()
}
