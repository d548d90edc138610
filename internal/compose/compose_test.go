// v0
// internal/compose/compose_test.go
package compose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"it.uniroma2.dicii/nrg-champ/footfall/internal/sampler"
)

func TestFreeSeatsDivides(t *testing.T) {
	p, err := Compose(Fields{Hour: []float64{4}}, Base{Mean: 10, SD: 2}, FreeSeats, 100)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, p.Mean[0], 1e-12)
	assert.InDelta(t, 4.0, p.SD[0], 1e-12)
}

func TestFootfallMultiplies(t *testing.T) {
	f := Fields{
		Hour:    []float64{2, 0.5},
		Season:  []float64{1.5, 1},
		Holiday: nil,
		Anomaly: []float64{1, 3},
	}
	p, err := Compose(f, Base{Mean: 10, SD: 4}, Footfall, 1000)
	require.NoError(t, err)
	assert.InDelta(t, 30, p.Mean[0], 1e-9)
	assert.InDelta(t, 15, p.Mean[1], 1e-9)
	assert.InDelta(t, 4*math.Sqrt(3), p.SD[0], 1e-9)
	assert.InDelta(t, 3, p.Weight[0], 1e-12)
}

func TestComposeClampsEveryUseCase(t *testing.T) {
	f := Fields{Hour: []float64{0.01, 1, 50, 400}}
	for _, uc := range []UseCase{Footfall, FreeSeats, DwellTime, Event} {
		p, err := Compose(f, Base{Mean: 20, SD: 0.5}, uc, 120)
		require.NoError(t, err, uc.String())
		for i := range p.Mean {
			if p.SD[i] < 1 {
				t.Fatalf("%s: sd[%d]=%f below floor", uc, i, p.SD[i])
			}
			if p.Mean[i] > 120 {
				t.Fatalf("%s: mean[%d]=%f above max", uc, i, p.Mean[i])
			}
		}
	}
}

func TestComposeShapeMismatch(t *testing.T) {
	_, err := Compose(Fields{Hour: []float64{1, 2}, Season: []float64{1}}, Base{Mean: 1, SD: 1}, Footfall, 10)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestComposeWeightUnderflow(t *testing.T) {
	for _, bad := range []float64{0, -1, math.NaN()} {
		_, err := Compose(Fields{Hour: []float64{1, bad}}, Base{Mean: 1, SD: 1}, FreeSeats, 10)
		assert.ErrorIs(t, err, ErrWeightUnderflow, "weight %v", bad)
	}
}

func TestNilFieldsAreOnes(t *testing.T) {
	w, err := Fields{Season: []float64{2, 3}}.Combined()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, w)

	w, err = Fields{}.Combined()
	require.NoError(t, err)
	assert.Empty(t, w)
}

func TestParseUseCase(t *testing.T) {
	cases := map[string]UseCase{
		"freeSeats":    FreeSeats,
		"dwellTime":    DwellTime,
		"event":        Event,
		"footfall":     Footfall,
		"queue_length": Footfall,
		"":             Footfall,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseUseCase(in), in)
	}
	assert.Equal(t, Divide, FreeSeats.Combination())
	assert.Equal(t, Multiply, DwellTime.Combination())

	var u UseCase
	require.NoError(t, u.UnmarshalText([]byte("freeSeats")))
	assert.Equal(t, FreeSeats, u)
	b, err := Event.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "event", string(b))
}

func TestEvaluateWithinBounds(t *testing.T) {
	p, err := Compose(Fields{Hour: []float64{0.5, 1, 2, 8, 20}}, Base{Mean: 30, SD: 10}, Footfall, 200)
	require.NoError(t, err)
	vals, err := Evaluate(sampler.NewSource(4), p, Bounds{Min: 0, Max: 200})
	require.NoError(t, err)
	require.Len(t, vals, p.Len())
	for _, v := range vals {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 200.0)
	}
}

func TestBoundsValidate(t *testing.T) {
	assert.NoError(t, Bounds{Min: 0, Max: 1}.Validate())
	assert.Error(t, Bounds{Min: 2, Max: 1}.Validate())
}
