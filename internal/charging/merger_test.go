package charging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFoldsStoredAndIncoming(t *testing.T) {
	gap := 240 * time.Minute
	stored := SegmentDispatches([]Block{
		block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.0),
	}, gap, false)
	incoming := SegmentDispatches([]Block{
		block(t, "2024-03-01T04:00:00Z", "2024-03-01T04:30:00Z", 1.0),
	}, gap, false)
	require.Len(t, stored, 1)
	require.Len(t, incoming, 1)

	merged := Merge(incoming[0], stored, gap)

	assert.Equal(t, mustParse(t, "2024-03-01T00:00:00Z"), merged.Start)
	assert.Equal(t, mustParse(t, "2024-03-01T04:30:00Z"), merged.End)
	assert.Equal(t, 2.0, merged.TotalKWh)
	assert.Equal(t, 2, merged.BlockCount())
}

func TestMergeIdempotence(t *testing.T) {
	gap := 240 * time.Minute
	stored := []Session{
		{
			Start: mustParse(t, "2024-03-01T00:00:00Z"),
			End:   mustParse(t, "2024-03-01T01:00:00Z"),
			Blocks: []Block{
				block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.5),
				block(t, "2024-03-01T00:30:00Z", "2024-03-01T01:00:00Z", 2.5),
			},
		},
	}
	incoming := Session{
		Start: mustParse(t, "2024-03-01T02:00:00Z"),
		End:   mustParse(t, "2024-03-01T02:30:00Z"),
		Blocks: []Block{
			block(t, "2024-03-01T02:00:00Z", "2024-03-01T02:30:00Z", 1.0),
		},
	}

	once := Merge(incoming, stored, gap)
	twice := Merge(once, []Session{once}, gap)

	assert.Equal(t, once, twice)
}

func TestMergeDedupByExactWindow(t *testing.T) {
	gap := 240 * time.Minute
	shared := block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.5)

	stored := []Session{{
		Start:  shared.Start,
		End:    shared.End,
		Blocks: []Block{shared},
	}}
	incoming := Session{
		Start: shared.Start,
		End:   mustParse(t, "2024-03-01T01:00:00Z"),
		Blocks: []Block{
			shared,
			block(t, "2024-03-01T00:30:00Z", "2024-03-01T01:00:00Z", 1.0),
		},
	}

	merged := Merge(incoming, stored, gap)

	assert.Equal(t, 2, merged.BlockCount())
	assert.Equal(t, 2.5, merged.TotalKWh, "shared block must be counted exactly once")
}

func TestMergeDedupKeepsFirstOccurrence(t *testing.T) {
	gap := 240 * time.Minute
	storedBlock := block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.5)
	storedBlock.CostGBP = 0.11

	reimported := storedBlock
	reimported.CostGBP = 0

	stored := []Session{{Start: storedBlock.Start, End: storedBlock.End, Blocks: []Block{storedBlock}}}
	incoming := Session{Start: reimported.Start, End: reimported.End, Blocks: []Block{reimported}}

	merged := Merge(incoming, stored, gap)

	require.Equal(t, 1, merged.BlockCount())
	assert.Equal(t, 0.11, merged.Blocks[0].CostGBP)
}

func TestMergeSubsumesFragmentedStoredSessions(t *testing.T) {
	gap := 240 * time.Minute
	stored := []Session{
		{
			Start:  mustParse(t, "2024-03-01T00:00:00Z"),
			End:    mustParse(t, "2024-03-01T00:30:00Z"),
			Blocks: []Block{block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.0)},
		},
		{
			Start:  mustParse(t, "2024-03-01T03:00:00Z"),
			End:    mustParse(t, "2024-03-01T03:30:00Z"),
			Blocks: []Block{block(t, "2024-03-01T03:00:00Z", "2024-03-01T03:30:00Z", 1.0)},
		},
	}
	incoming := Session{
		Start:  mustParse(t, "2024-03-01T01:30:00Z"),
		End:    mustParse(t, "2024-03-01T02:00:00Z"),
		Blocks: []Block{block(t, "2024-03-01T01:30:00Z", "2024-03-01T02:00:00Z", 1.0)},
	}

	merged := Merge(incoming, stored, gap)

	assert.Equal(t, 3, merged.BlockCount())
	assert.Equal(t, 3.0, merged.TotalKWh)
	assert.Equal(t, mustParse(t, "2024-03-01T00:00:00Z"), merged.Start)
	assert.Equal(t, mustParse(t, "2024-03-01T03:30:00Z"), merged.End)
}

func TestMergeFallsBackToLargestGroup(t *testing.T) {
	// Candidates that the gap rule no longer connects to the incoming span:
	// the biggest group wins.
	gap := 30 * time.Minute
	stored := []Session{
		{
			Start: mustParse(t, "2024-03-01T00:00:00Z"),
			End:   mustParse(t, "2024-03-01T01:00:00Z"),
			Blocks: []Block{
				block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 4.0),
				block(t, "2024-03-01T00:30:00Z", "2024-03-01T01:00:00Z", 4.0),
			},
		},
		{
			Start:  mustParse(t, "2024-03-01T20:00:00Z"),
			End:    mustParse(t, "2024-03-01T20:30:00Z"),
			Blocks: []Block{block(t, "2024-03-01T20:00:00Z", "2024-03-01T20:30:00Z", 1.0)},
		},
	}
	incoming := Session{
		Start:  mustParse(t, "2024-03-01T10:00:00Z"),
		End:    mustParse(t, "2024-03-01T10:30:00Z"),
		Blocks: nil,
	}

	merged := Merge(incoming, stored, gap)
	assert.Equal(t, 8.0, merged.TotalKWh)
}

func TestMergeKeySpanComposition(t *testing.T) {
	gap := 240 * time.Minute
	blocks := []Block{
		block(t, "2024-03-01T00:00:00Z", "2024-03-01T00:30:00Z", 1.0),
		block(t, "2024-03-01T04:00:00Z", "2024-03-01T04:30:00Z", 1.0),
	}
	sessions := SegmentDispatches(blocks, gap, false)
	require.Len(t, sessions, 1)

	// Re-import of already merged data keeps the same identity.
	merged := Merge(sessions[0], sessions, gap)
	assert.Equal(t,
		SessionKey(sessions[0].Start, sessions[0].End, sessions[0].BlockCount()),
		SessionKey(merged.Start, merged.End, merged.BlockCount()),
	)
}

func TestOverlapWindowWidensBothEnds(t *testing.T) {
	start := mustParse(t, "2024-01-10T00:00:00Z")
	end := mustParse(t, "2024-01-10T04:30:00Z")

	lo, hi := OverlapWindow(start, end, 240*time.Minute)

	assert.Equal(t, mustParse(t, "2024-01-09T20:00:00Z"), lo)
	assert.Equal(t, mustParse(t, "2024-01-10T08:30:00Z"), hi)
}
