package charging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCivilFormatterRendersLondonTime(t *testing.T) {
	f, err := NewCivilFormatter("")
	require.NoError(t, err)

	// GMT: civil time equals UTC.
	winter := time.Date(2024, 1, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-15", f.Date(winter))
	assert.Equal(t, "23:30", f.Time(winter))

	// BST: 23:30 UTC is already the next civil day.
	summer := time.Date(2024, 7, 15, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-07-16", f.Date(summer))
	assert.Equal(t, "00:30", f.Time(summer))
}

func TestCivilFormatterUnknownZone(t *testing.T) {
	_, err := NewCivilFormatter("Not/AZone")
	assert.Error(t, err)
}

func TestSpanOvernightWraparound(t *testing.T) {
	f, err := NewCivilFormatter("")
	require.NoError(t, err)

	start, end, err := f.Span("2024-01-15", "23:30", "05:30")
	require.NoError(t, err)
	assert.True(t, end.After(start))
	assert.Equal(t, "2024-01-16", f.Date(end))

	sameDayStart, sameDayEnd, err := f.Span("2024-01-15", "09:00", "10:00")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, sameDayEnd.Sub(sameDayStart))
}

func TestSpanRoundTripsFormattedSession(t *testing.T) {
	f, err := NewCivilFormatter("")
	require.NoError(t, err)

	sessionStart := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	sessionEnd := time.Date(2024, 3, 2, 4, 30, 0, 0, time.UTC)

	start, end, err := f.Span(f.Date(sessionStart), f.Time(sessionStart), f.Time(sessionEnd))
	require.NoError(t, err)
	assert.True(t, start.Equal(sessionStart))
	assert.True(t, end.Equal(sessionEnd))
}
