package charging

import "time"

// Merge reconciles an incoming session with previously stored sessions whose
// spans fall within gap of it. All constituent blocks are unioned,
// deduplicated by exact (start, end) pair, and re-grouped with the dispatch
// gap rule. The group overlapping the incoming span becomes the authoritative
// session; when no group overlaps, the group with the greatest total energy
// is used. Merging is idempotent: folding a merged session back into its own
// output reproduces it.
func Merge(incoming Session, stored []Session, gap time.Duration) Session {
	var all []Block
	for _, candidate := range stored {
		all = append(all, candidate.Blocks...)
	}
	all = append(all, incoming.Blocks...)

	unique := dedupeBlocks(all)
	if len(unique) == 0 {
		return closeSession(incoming)
	}

	groups := SegmentDispatches(unique, gap, false)
	return selectGroup(groups, incoming)
}

// dedupeBlocks drops blocks whose (start, end) pair was already seen. The
// first occurrence wins, so a stored block's annotations survive a re-import
// of the same window.
func dedupeBlocks(blocks []Block) []Block {
	seen := make(map[string]struct{}, len(blocks))
	var unique []Block
	for _, block := range blocks {
		if block.Start.IsZero() || block.End.IsZero() {
			continue
		}
		key := block.Start.UTC().Format(time.RFC3339Nano) + "|" + block.End.UTC().Format(time.RFC3339Nano)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, block)
	}
	return unique
}

// selectGroup picks the merged group covering the incoming span, inclusive
// at both edges. A miss means the candidate window query returned sessions
// the grouping no longer connects; the largest group is the safest owner of
// the new evidence then.
func selectGroup(groups []Session, incoming Session) Session {
	for _, group := range groups {
		if !group.Start.After(incoming.End) && !group.End.Before(incoming.Start) {
			return group
		}
	}
	best := groups[0]
	for _, group := range groups[1:] {
		if group.TotalKWh > best.TotalKWh {
			best = group
		}
	}
	return best
}

// OverlapWindow is the candidate-selection predicate the storage layer must
// apply: a stored session is a merge candidate when its adjusted civil end
// is at or after start-gap and its start at or before end+gap.
func OverlapWindow(start, end time.Time, gap time.Duration) (time.Time, time.Time) {
	return start.Add(-gap), end.Add(gap)
}
