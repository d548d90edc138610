// v0
// internal/sink/document.go
package sink

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/generator"
)

// ErrNotFinite is returned when a value cannot be represented in JSON.
var ErrNotFinite = errors.New("sink: value is NaN or infinite")

// Document is the JSON-native form of a record: RFC 3339 timestamp, epoch
// milliseconds and values rounded to 4 decimals.
type Document struct {
	Timestamp string  `json:"timestamp"`
	EpochMS   int64   `json:"epochMs"`
	VenueID   string  `json:"venueId"`
	RunID     string  `json:"runId"`
	Metric    string  `json:"metric"`
	Value     float64 `json:"value"`
	Weight    float64 `json:"weight"`
	Anomalous bool    `json:"anomalous"`
}

// EventDocument is the JSON-native form of an event window.
type EventDocument struct {
	Start   string  `json:"start"`
	End     string  `json:"end"`
	Peak    string  `json:"peak"`
	StartMS int64   `json:"startMs"`
	EndMS   int64   `json:"endMs"`
	PeakMS  int64   `json:"peakMs"`
	Mean    float64 `json:"mean"`
	SD      float64 `json:"sd"`
}

// ToDocument converts r, rejecting NaN and infinities.
func ToDocument(r generator.Record) (Document, error) {
	v, err := round(r.Value)
	if err != nil {
		return Document{}, fmt.Errorf("value at %s: %w", r.Timestamp.Format(time.RFC3339), err)
	}
	w, err := round(r.Weight)
	if err != nil {
		return Document{}, fmt.Errorf("weight at %s: %w", r.Timestamp.Format(time.RFC3339), err)
	}
	ts := r.Timestamp.UTC()
	return Document{
		Timestamp: ts.Format(time.RFC3339),
		EpochMS:   ts.UnixMilli(),
		VenueID:   r.VenueID,
		RunID:     r.RunID,
		Metric:    r.Metric,
		Value:     v,
		Weight:    w,
		Anomalous: r.Anomalous,
	}, nil
}

// ToEventDocument converts an event window.
func ToEventDocument(e generator.EventWindow) (EventDocument, error) {
	mean, err := round(e.Mean)
	if err != nil {
		return EventDocument{}, fmt.Errorf("mean at %s: %w", e.Peak.Format(time.RFC3339), err)
	}
	sd, err := round(e.SD)
	if err != nil {
		return EventDocument{}, fmt.Errorf("sd at %s: %w", e.Peak.Format(time.RFC3339), err)
	}
	return EventDocument{
		Start:   e.Start.UTC().Format(time.RFC3339),
		End:     e.End.UTC().Format(time.RFC3339),
		Peak:    e.Peak.UTC().Format(time.RFC3339),
		StartMS: e.Start.UnixMilli(),
		EndMS:   e.End.UnixMilli(),
		PeakMS:  e.Peak.UnixMilli(),
		Mean:    mean,
		SD:      sd,
	}, nil
}

// entry is an encoded document with the instant it is indexed by.
type entry struct {
	at  time.Time
	key string
	raw []byte
}

// encode turns a batch into JSON documents in record order.
func encode(b Batch) ([]entry, error) {
	out := make([]entry, 0, b.Len())
	for _, r := range b.Records {
		doc, err := ToDocument(r)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, entry{at: r.Timestamp, key: r.VenueID, raw: raw})
	}
	for _, e := range b.Events {
		doc, err := ToEventDocument(e)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, entry{at: e.Peak, key: b.Collection, raw: raw})
	}
	return out, nil
}

func round(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotFinite
	}
	return math.Round(v*1e4) / 1e4, nil
}
