// v0
// internal/calendar/calendar_test.go
package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessDay(t *testing.T) {
	set := NewHolidaySet(date(2023, 5, 1))
	assert.False(t, set.IsBusinessDay(date(2023, 4, 29)), "saturday")
	assert.False(t, set.IsBusinessDay(date(2023, 4, 30)), "sunday")
	assert.False(t, set.IsBusinessDay(date(2023, 5, 1).Add(13*time.Hour)), "bank holiday monday")
	assert.True(t, set.IsBusinessDay(date(2023, 5, 2)))
}

func TestGroupsJoinWeekendAndHoliday(t *testing.T) {
	set := NewHolidaySet(date(2023, 5, 1))
	var days []time.Time
	for d := date(2023, 4, 27); !d.After(date(2023, 5, 7)); d = d.Add(24 * time.Hour) {
		days = append(days, d, d.Add(6*time.Hour))
	}
	groups := set.Groups(days)
	require.Len(t, groups, 2)
	assert.Equal(t, []time.Time{date(2023, 4, 29), date(2023, 4, 30), date(2023, 5, 1)}, groups[0])
	assert.Equal(t, []time.Time{date(2023, 5, 6), date(2023, 5, 7)}, groups[1])
}

func TestParseDates(t *testing.T) {
	set, err := ParseDates([]string{"2023-12-25", " 2023-12-26 ", ""})
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
	_, err = ParseDates([]string{"25/12/2023"})
	assert.Error(t, err)
}

func TestStaticProviderFiltersRange(t *testing.T) {
	p := StaticProvider{Set: NewHolidaySet(date(2022, 12, 26), date(2023, 1, 2))}
	got, err := p.Holidays(context.Background(), "england", date(2023, 1, 1), date(2023, 1, 8))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2023, 1, 2)}, got.Dates())
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.txt")
	body := "# bank holidays\n2023-01-02 england\n2023-01-03 scotland\n2023-04-07\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	set, err := FileProvider{Path: path}.Holidays(context.Background(), "england", date(2023, 1, 1), date(2023, 12, 31))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date(2023, 1, 2), date(2023, 4, 7)}, set.Dates())
}

func TestFileProviderMissingFile(t *testing.T) {
	_, err := FileProvider{Path: filepath.Join(t.TempDir(), "nope")}.Holidays(context.Background(), "", date(2023, 1, 1), date(2023, 1, 2))
	assert.Error(t, err)
}

func TestEaster(t *testing.T) {
	assert.Equal(t, date(2023, time.April, 9), Easter(2023))
	assert.Equal(t, date(2024, time.March, 31), Easter(2024))
	assert.Equal(t, date(2019, time.April, 21), Easter(2019))
}

func TestEnglandBankHolidays2023(t *testing.T) {
	want := []time.Time{
		date(2023, time.January, 2),
		date(2023, time.April, 7),
		date(2023, time.April, 10),
		date(2023, time.May, 1),
		date(2023, time.May, 29),
		date(2023, time.August, 28),
		date(2023, time.December, 25),
		date(2023, time.December, 26),
	}
	assert.Equal(t, want, EnglandBankHolidays(2023))
}

func TestEnglandChristmasSubstitutes(t *testing.T) {
	// 2021: Christmas on Saturday, Boxing Day on Sunday
	got := EnglandBankHolidays(2021)
	assert.Equal(t, []time.Time{date(2021, time.December, 27), date(2021, time.December, 28)}, got[len(got)-2:])
	// 2022: Christmas on Sunday
	got = EnglandBankHolidays(2022)
	assert.Equal(t, []time.Time{date(2022, time.December, 26), date(2022, time.December, 27)}, got[len(got)-2:])
}

func TestEnglandProviderSpansYears(t *testing.T) {
	set, err := EnglandProvider{}.Holidays(context.Background(), "", date(2022, time.December, 20), date(2023, time.January, 10))
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		date(2022, time.December, 26),
		date(2022, time.December, 27),
		date(2023, time.January, 2),
	}, set.Dates())
}
