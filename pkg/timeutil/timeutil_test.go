package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLastNDays_EndsTodayInclusive(t *testing.T) {
	today := time.Date(2025, 3, 10, 15, 30, 0, 0, Location())

	days := LastNDays(today, 7)
	require.Len(t, days, 7)

	assert.Equal(t, "2025-03-04", DateKey(days[0]))
	assert.Equal(t, "2025-03-10", DateKey(days[6]))
	assert.Equal(t, "03-10", ChartLabel(days[6]))
}

func TestLastNDays_CrossesMonthBoundary(t *testing.T) {
	today := time.Date(2025, 3, 2, 8, 0, 0, 0, Location())

	days := LastNDays(today, 7)
	require.Len(t, days, 7)
	assert.Equal(t, "2025-02-24", DateKey(days[0]))
	assert.Equal(t, "02-28", ChartLabel(days[4]))
}

func TestLastNDays_NonPositive(t *testing.T) {
	assert.Nil(t, LastNDays(Now(), 0))
}

func TestWeekdayNameDe(t *testing.T) {
	assert.Equal(t, "Sonntag", WeekdayNameDe(time.Sunday))
	assert.Equal(t, "Samstag", WeekdayNameDe(time.Saturday))
	assert.Equal(t, "", WeekdayNameDe(time.Weekday(9)))
}

func TestParseClock(t *testing.T) {
	_, err := ParseClock("08:00")
	assert.NoError(t, err)

	_, err = ParseClock("8:00")
	assert.Error(t, err)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestFormatGerman(t *testing.T) {
	ts := time.Date(2025, 1, 5, 12, 0, 0, 0, Location())
	assert.Equal(t, "05.01.2025", FormatGerman(ts))
	assert.Equal(t, "05.01.2025", FormatGerman(FromUnixMilli(ts.UnixMilli())))
}

func TestFixedClock(t *testing.T) {
	ts := time.Date(2024, 12, 24, 9, 0, 0, 0, time.UTC)
	clock := FixedClock(ts)
	assert.True(t, clock().Equal(ts))
}
