// v0
// internal/api/http.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/anomaly"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/calendar"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/compose"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/config"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/series"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/sink"
)

const maxBodyBytes = 1 << 20

// Server exposes the generator over HTTP. Defaults seeds every request; the
// JSON body only overrides what it sets.
type Server struct {
	runner   *generator.Runner
	sinks    *sink.Multi
	defaults generator.Request
	log      *slog.Logger
}

// NewServer wires a runner and an optional sink fan-out; a nil sinks value
// disables persistence.
func NewServer(runner *generator.Runner, sinks *sink.Multi, defaults generator.Request, log *slog.Logger) *Server {
	return &Server{runner: runner, sinks: sinks, defaults: defaults, log: log}
}

type generateRequest struct {
	VenueID        string   `json:"venueId"`
	Metric         string   `json:"metric"`
	UseCase        string   `json:"useCase"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	Granularity    string   `json:"granularity"`
	Anchors        *int     `json:"anchors"`
	IncludeTail    *bool    `json:"includeTail"`
	Mean           *float64 `json:"mean"`
	SD             *float64 `json:"sd"`
	Min            *float64 `json:"min"`
	Max            *float64 `json:"max"`
	Holidays       []string `json:"holidays"`
	HigherWeekdays *bool    `json:"higherWeekdays"`
	AnchorSeed     *uint64  `json:"anchorSeed"`
	NoiseSeed      *uint64  `json:"noiseSeed"`
	AnomalySeries  bool     `json:"anomalySeries"`

	Persist    bool   `json:"persist"`
	Collection string `json:"collection"`
	Update     bool   `json:"update"`
}

type windowDTO struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Peak       time.Time `json:"peak"`
	Empty      bool      `json:"empty"`
	Timestamps int       `json:"timestamps"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	sinks := 0
	if s.sinks != nil {
		sinks = s.sinks.Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sinks": sinks})
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var in generateRequest
	if len(strings.TrimSpace(string(b))) > 0 {
		if err := json.Unmarshal(b, &in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}
	req, err := s.requestFrom(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if in.Persist && s.sinks == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is disabled")
		return
	}

	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, anomaly.ErrInvalidSampleCount), errors.Is(err, series.ErrInvalidRange):
			status = http.StatusBadRequest
		case errors.Is(err, context.Canceled):
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, fmt.Sprintf("generation failed: %v", err))
		return
	}
	if in.Persist {
		if err := s.sinks.Write(r.Context(), sink.FromResult(res, in.Collection, in.Update)); err != nil {
			s.log.Warn("persist_failed", slog.String("runId", res.RunID), slog.Any("err", err))
			writeError(w, http.StatusBadGateway, fmt.Sprintf("persist failed: %v", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) windows(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := generateRequest{Start: q.Get("start"), End: q.Get("end"), Granularity: q.Get("granularity")}
	if raw := q.Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid n")
			return
		}
		in.Anchors = &n
	}
	if raw := q.Get("seed"); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid seed")
			return
		}
		in.AnchorSeed = &seed
	}
	if q.Get("tail") == "true" {
		tail := true
		in.IncludeTail = &tail
	}
	req, err := s.requestFrom(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws, err := generator.Windows(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(ws), "items": toWindowDTOs(ws)})
}

func (s *Server) requestFrom(in generateRequest) (generator.Request, error) {
	req := s.defaults
	if in.VenueID != "" {
		req.VenueID = in.VenueID
	}
	if in.Metric != "" {
		req.Metric = in.Metric
		req.UseCase = compose.ParseUseCase(in.Metric)
	}
	if in.UseCase != "" {
		req.UseCase = compose.ParseUseCase(in.UseCase)
	}
	if in.Start != "" {
		t, err := config.ParseTime(in.Start)
		if err != nil {
			return req, fmt.Errorf("start: %w", err)
		}
		req.Start = t
	}
	if in.End != "" {
		t, err := config.ParseTime(in.End)
		if err != nil {
			return req, fmt.Errorf("end: %w", err)
		}
		req.End = t
	}
	if in.Granularity != "" {
		d, err := time.ParseDuration(in.Granularity)
		if err != nil {
			return req, fmt.Errorf("granularity: %w", err)
		}
		req.Granularity = d
	}
	if in.Anchors != nil {
		req.Anchors = *in.Anchors
	}
	if in.IncludeTail != nil {
		req.IncludeTail = *in.IncludeTail
	}
	if in.Mean != nil {
		req.Base.Mean = *in.Mean
	}
	if in.SD != nil {
		req.Base.SD = *in.SD
	}
	if in.Min != nil {
		req.Bounds.Min = *in.Min
	}
	if in.Max != nil {
		req.Bounds.Max = *in.Max
	}
	if len(in.Holidays) > 0 {
		set, err := calendar.ParseDates(in.Holidays)
		if err != nil {
			return req, err
		}
		req.Holidays = set
	}
	if in.HigherWeekdays != nil {
		req.HigherWeekdays = *in.HigherWeekdays
	}
	if in.AnchorSeed != nil {
		req.AnchorSeed = *in.AnchorSeed
	}
	if in.NoiseSeed != nil {
		seed := *in.NoiseSeed
		req.NoiseSeed = &seed
	}
	req.AnomalySeries = req.AnomalySeries || in.AnomalySeries
	return req, nil
}

func toWindowDTOs(ws anomaly.Windows) []windowDTO {
	out := make([]windowDTO, 0, len(ws))
	for _, w := range ws {
		out = append(out, windowDTO{
			Start:      w.Start,
			End:        w.End,
			Peak:       w.Peak(),
			Empty:      w.Empty(),
			Timestamps: w.Timestamps.Len(),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
