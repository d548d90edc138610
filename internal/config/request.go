// v0
// internal/config/request.go
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/calendar"
	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
)

// Providers lists the holiday sources enabled by the configuration.
func (c Config) Providers() ([]calendar.Provider, error) {
	var out []calendar.Provider
	if len(c.HolidayDates) > 0 {
		set, err := calendar.ParseDates(c.HolidayDates)
		if err != nil {
			return nil, err
		}
		out = append(out, calendar.StaticProvider{Set: set})
	}
	if c.HolidayFile != "" {
		out = append(out, calendar.FileProvider{Path: c.HolidayFile})
	}
	switch strings.ToLower(strings.TrimSpace(c.HolidayRegion)) {
	case "":
	case "england", "uk", "gb":
		out = append(out, calendar.EnglandProvider{})
	default:
		if c.HolidayFile == "" {
			return nil, fmt.Errorf("unknown holiday region %q", c.HolidayRegion)
		}
	}
	return out, nil
}

// Holidays merges every configured provider over the run range.
func (c Config) Holidays(ctx context.Context) (calendar.HolidaySet, error) {
	providers, err := c.Providers()
	if err != nil {
		return calendar.HolidaySet{}, err
	}
	var dates []time.Time
	for _, p := range providers {
		set, err := p.Holidays(ctx, c.HolidayRegion, c.Run.Start, c.Run.End)
		if err != nil {
			return calendar.HolidaySet{}, err
		}
		dates = append(dates, set.Dates()...)
	}
	return calendar.NewHolidaySet(dates...).Within(c.Run.Start, c.Run.End), nil
}

// Metric returns the named metric, or false.
func (c Config) Metric(name string) (Metric, bool) {
	for _, m := range c.Metrics {
		if strings.EqualFold(m.Name, name) {
			return m, true
		}
	}
	return Metric{}, false
}

// Request builds the generator request for one configured metric.
func (c Config) Request(m Metric, holidays calendar.HolidaySet) generator.Request {
	return generator.Request{
		VenueID:        c.Venue,
		Metric:         m.Name,
		UseCase:        m.UseCase,
		Start:          c.Run.Start,
		End:            c.Run.End,
		Granularity:    c.Run.Granularity,
		Anchors:        c.Run.Anchors,
		IncludeTail:    c.Run.IncludeTail,
		Bounds:         m.Bounds,
		Base:           m.Base,
		Diurnal:        c.Run.Diurnal,
		Seasons:        c.Run.Seasons,
		Holidays:       holidays,
		HigherWeekdays: c.Run.HigherWeekdays,
		AnchorSeed:     c.Run.AnchorSeed,
		NoiseSeed:      c.Run.NoiseSeed,
		Clip:           c.Run.Clip,
		AnomalySeries:  c.Run.AnomalySeries,
	}
}

// Requests builds one request per configured metric.
func (c Config) Requests(ctx context.Context) ([]generator.Request, error) {
	holidays, err := c.Holidays(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	out := make([]generator.Request, 0, len(c.Metrics))
	for _, m := range c.Metrics {
		out = append(out, c.Request(m, holidays))
	}
	return out, nil
}
