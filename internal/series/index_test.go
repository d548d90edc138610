// v0
// internal/series/index_test.go
package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeInclusive(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	ix, err := Range(start, start.Add(time.Minute), 10*time.Second)
	require.NoError(t, err)
	require.Equal(t, 7, ix.Len())
	assert.Equal(t, start, ix.First())
	assert.Equal(t, start.Add(time.Minute), ix.Last())
}

func TestRangeRejectsInvalidInput(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := Range(start, start, time.Second)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = Range(start, start.Add(time.Hour), 0)
	assert.ErrorIs(t, err, ErrInvalidStep)
}

func TestDenseDegenerate(t *testing.T) {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, Dense(start, start, time.Second).Len())
	assert.Equal(t, 0, Dense(start, start.Add(-time.Second), time.Second).Len())
}

func TestFromTimesRequiresIncreasing(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := FromTimes([]time.Time{t0, t0})
	assert.ErrorIs(t, err, ErrNotIncreasing)
}

func TestUnionDropsDuplicates(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	a := Dense(t0, t0.Add(20*time.Second), 10*time.Second)
	b := Dense(t0.Add(20*time.Second), t0.Add(40*time.Second), 10*time.Second)
	u := Union(b, a)
	require.Equal(t, 5, u.Len())
	for i := 1; i < u.Len(); i++ {
		if !u.At(i).After(u.At(i - 1)) {
			t.Fatalf("union not strictly increasing at %d", i)
		}
	}
}

func TestBetween(t *testing.T) {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	ix := Dense(t0, t0.Add(time.Hour), 10*time.Minute)
	lo, hi := ix.Between(t0.Add(5*time.Minute), t0.Add(30*time.Minute))
	assert.Equal(t, 1, lo)
	assert.Equal(t, 4, hi)
	lo, hi = ix.Between(t0.Add(2*time.Hour), t0.Add(3*time.Hour))
	assert.Equal(t, lo, hi)
}

func TestProjections(t *testing.T) {
	ts := time.Date(2023, 3, 31, 18, 30, 36, 0, time.UTC)
	if got := FractionalHour(ts); math.Abs(got-18.51) > 1e-9 {
		t.Fatalf("fractional hour mismatch: got %f want 18.51", got)
	}
	want := 3 + 31.0/31 + 18.51/24/31
	if got := FractionalMonth(ts); math.Abs(got-want) > 1e-9 {
		t.Fatalf("fractional month mismatch: got %f want %f", got, want)
	}
	ix, err := FromTimes([]time.Time{ts})
	require.NoError(t, err)
	assert.Equal(t, []int{2023}, ix.Years())
	assert.Equal(t, []time.Time{time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)}, ix.Days())
	assert.Equal(t, []int64{ts.UnixMilli()}, ix.UnixMilli())
}
