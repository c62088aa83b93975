package charging

import "time"

// Default segmentation parameters, matching the provider's sampling
// characteristics: half-hourly consumption samples above 2 kWh indicate EV
// charging, dispatch blocks up to four hours apart belong to the same
// overnight smart-charge.
const (
	DefaultThresholdKWh   = 2.0
	DefaultConsumptionGap = time.Hour
	DefaultDispatchGap    = 240 * time.Minute
)

// SegmentConsumption groups raw consumption samples into sessions. A sample
// below thresholdKWh never belongs to a session and closes any open one; a
// sample at or above the threshold extends the open session when the gap
// between the previous block's end and its start is within gap (inclusive),
// otherwise starts a new session.
func SegmentConsumption(blocks []Block, thresholdKWh float64, gap time.Duration) []Session {
	var sessions []Session
	var open *Session

	for _, block := range sortBlocks(blocks) {
		if block.EnergyKWh < thresholdKWh {
			if open != nil {
				sessions = append(sessions, closeSession(*open))
				open = nil
			}
			continue
		}
		if open != nil && withinGap(open.End, block.Start, gap) {
			extendSession(open, block)
			continue
		}
		if open != nil {
			sessions = append(sessions, closeSession(*open))
		}
		open = newSession(block)
	}
	if open != nil {
		sessions = append(sessions, closeSession(*open))
	}
	return sessions
}

// SegmentDispatches groups dispatch blocks into sessions using only the gap
// rule. When sameLocation is set, blocks with differing location tags never
// merge even if temporally adjacent.
func SegmentDispatches(blocks []Block, gap time.Duration, sameLocation bool) []Session {
	var sessions []Session
	var open *Session

	for _, block := range sortBlocks(blocks) {
		if open != nil && withinGap(open.End, block.Start, gap) && (!sameLocation || locationOf(open) == block.Location) {
			extendSession(open, block)
			continue
		}
		if open != nil {
			sessions = append(sessions, closeSession(*open))
		}
		open = newSession(block)
	}
	if open != nil {
		sessions = append(sessions, closeSession(*open))
	}
	return sessions
}

// withinGap reports whether next starts no more than gap after prevEnd.
// The comparison is inclusive: a gap exactly equal to the tolerance merges.
func withinGap(prevEnd, nextStart time.Time, gap time.Duration) bool {
	return !nextStart.After(prevEnd.Add(gap))
}

func newSession(block Block) *Session {
	return &Session{
		Start:  block.Start,
		End:    block.End,
		Blocks: []Block{block},
	}
}

func extendSession(s *Session, block Block) {
	if block.End.After(s.End) {
		s.End = block.End
	}
	s.Blocks = append(s.Blocks, block)
}

func closeSession(s Session) Session {
	var total float64
	for _, block := range s.Blocks {
		total += block.EnergyKWh
	}
	s.TotalKWh = roundKWh(total)
	return s
}

// locationOf is the session's location tag: the tag of its opening block.
func locationOf(s *Session) string {
	if len(s.Blocks) == 0 {
		return ""
	}
	return s.Blocks[0].Location
}
