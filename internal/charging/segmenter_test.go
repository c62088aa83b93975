package charging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func block(t *testing.T, start, end string, kwh float64) Block {
	t.Helper()
	return Block{
		Start:     mustParse(t, start),
		End:       mustParse(t, end),
		EnergyKWh: kwh,
		DeltaKWh:  -kwh,
		Source:    SourceDispatch,
	}
}

func TestSegmentConsumptionScenario(t *testing.T) {
	blocks := []Block{
		block(t, "2024-03-01T09:00:00Z", "2024-03-01T09:30:00Z", 3.0),
		block(t, "2024-03-01T09:30:00Z", "2024-03-01T10:00:00Z", 2.5),
		block(t, "2024-03-01T14:00:00Z", "2024-03-01T14:30:00Z", 0.5),
	}

	sessions := SegmentConsumption(blocks, 2.0, time.Hour)

	require.Len(t, sessions, 1)
	assert.Equal(t, mustParse(t, "2024-03-01T09:00:00Z"), sessions[0].Start)
	assert.Equal(t, mustParse(t, "2024-03-01T10:00:00Z"), sessions[0].End)
	assert.Equal(t, 5.5, sessions[0].TotalKWh)
	assert.Equal(t, 2, sessions[0].BlockCount())
}

func TestSegmentConsumptionThresholdClosesOpenSession(t *testing.T) {
	blocks := []Block{
		block(t, "2024-03-01T09:00:00Z", "2024-03-01T09:30:00Z", 3.0),
		block(t, "2024-03-01T09:30:00Z", "2024-03-01T10:00:00Z", 0.2),
		block(t, "2024-03-01T10:00:00Z", "2024-03-01T10:30:00Z", 3.0),
	}

	sessions := SegmentConsumption(blocks, 2.0, time.Hour)

	require.Len(t, sessions, 2)
	for _, s := range sessions {
		for _, b := range s.Blocks {
			assert.GreaterOrEqual(t, b.EnergyKWh, 2.0)
		}
	}
}

func TestSegmentConsumptionUnsortedInput(t *testing.T) {
	blocks := []Block{
		block(t, "2024-03-01T09:30:00Z", "2024-03-01T10:00:00Z", 2.5),
		block(t, "2024-03-01T09:00:00Z", "2024-03-01T09:30:00Z", 3.0),
	}

	sessions := SegmentConsumption(blocks, 2.0, time.Hour)

	require.Len(t, sessions, 1)
	assert.Equal(t, mustParse(t, "2024-03-01T09:00:00Z"), sessions[0].Start)
	assert.Equal(t, 5.5, sessions[0].TotalKWh)
}

func TestSegmentConsumptionEmptyInput(t *testing.T) {
	assert.Empty(t, SegmentConsumption(nil, 2.0, time.Hour))
	assert.Empty(t, SegmentConsumption([]Block{
		block(t, "2024-03-01T09:00:00Z", "2024-03-01T09:30:00Z", 0.1),
	}, 2.0, time.Hour))
}

func TestSegmentDispatchesScenario(t *testing.T) {
	blocks := []Block{
		block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.0),
		block(t, "2024-03-01T04:00:00Z", "2024-03-01T04:30:00Z", 1.0),
	}

	sessions := SegmentDispatches(blocks, 240*time.Minute, false)

	require.Len(t, sessions, 1)
	assert.Equal(t, mustParse(t, "2024-03-01T00:00:00Z"), sessions[0].Start)
	assert.Equal(t, mustParse(t, "2024-03-01T04:30:00Z"), sessions[0].End)
	assert.Equal(t, 2.0, sessions[0].TotalKWh)
}

func TestGapInclusivity(t *testing.T) {
	gap := time.Hour
	first := block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.0)

	atTolerance := block(t, "2024-03-01T01:30:00Z", "2024-03-01T02:00:00Z", 1.0)
	sessions := SegmentDispatches([]Block{first, atTolerance}, gap, false)
	assert.Len(t, sessions, 1, "gap exactly equal to tolerance must merge")

	overTolerance := block(t, "2024-03-01T01:30:00.001Z", "2024-03-01T02:00:00Z", 1.0)
	sessions = SegmentDispatches([]Block{first, overTolerance}, gap, false)
	assert.Len(t, sessions, 2, "gap one millisecond over tolerance must split")
}

func TestSegmentDispatchesSameLocationConstraint(t *testing.T) {
	home := block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.0)
	home.Location = "AT_HOME"
	away := block(t, "2024-03-01T01:00:00Z", "2024-03-01T01:30:00Z", 1.0)
	away.Location = "AWAY"

	sessions := SegmentDispatches([]Block{home, away}, 240*time.Minute, true)
	assert.Len(t, sessions, 2)

	sessions = SegmentDispatches([]Block{home, away}, 240*time.Minute, false)
	assert.Len(t, sessions, 1)
}

func TestSegmentationDeterminism(t *testing.T) {
	blocks := []Block{
		block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.2),
		block(t, "2024-03-01T02:00:00Z", "2024-03-01T02:30:00Z", 0.8),
		block(t, "2024-03-01T09:00:00Z", "2024-03-01T09:30:00Z", 2.4),
	}

	first := SegmentDispatches(blocks, 240*time.Minute, false)
	second := SegmentDispatches(blocks, 240*time.Minute, false)
	assert.Equal(t, first, second)
}

func TestEnergyConservation(t *testing.T) {
	blocks := []Block{
		block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.111),
		block(t, "2024-03-01T00:30:00Z", "2024-03-01T01:00:00Z", 2.222),
		block(t, "2024-03-01T01:00:00Z", "2024-03-01T01:30:00Z", 0.004),
	}

	sessions := SegmentDispatches(blocks, time.Hour, false)
	require.Len(t, sessions, 1)

	var sum float64
	for _, b := range sessions[0].Blocks {
		sum += b.EnergyKWh
	}
	assert.InDelta(t, sum, sessions[0].TotalKWh, 0.001)
}
