package charging

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"
)

// Known source tags for charging evidence.
const (
	SourceConsumption = "consumption"
	SourceDispatch    = "completed-dispatch"
	SourceUnknown     = "unknown"
)

// Block is the atomic unit of charging evidence: a timestamped span with an
// energy quantity. Blocks are created once per import run and never mutated
// after normalization, only grouped.
type Block struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	EnergyKWh float64   `json:"charged_kwh"`
	DeltaKWh  float64   `json:"charge_in_kwh"`
	CostGBP   float64   `json:"cost"`
	Source    string    `json:"source"`
	Location  string    `json:"location,omitempty"`
}

// Session is a contiguous cluster of blocks representing one real-world
// charging event. End is the maximum block end, TotalKWh the rounded sum of
// block energies.
type Session struct {
	Start    time.Time
	End      time.Time
	TotalKWh float64
	Blocks   []Block
}

// BlockCount returns the number of constituent blocks.
func (s Session) BlockCount() int {
	return len(s.Blocks)
}

// RawRecord is a provider record as decoded from JSON. Field names vary by
// upstream source; the normalizer resolves them through per-source priority
// lists.
type RawRecord map[string]any

// fieldSet lists accepted field names per logical field, in priority order.
type fieldSet struct {
	start  []string
	end    []string
	energy []string
}

var (
	dispatchFields = fieldSet{
		start:  []string{"start", "start_time"},
		end:    []string{"end", "end_time"},
		energy: []string{"charge_in_kwh", "kwh", "energy_added"},
	}
	consumptionFields = fieldSet{
		start:  []string{"interval_start"},
		end:    []string{"interval_end"},
		energy: []string{"consumption"},
	}
)

// NormalizeDispatch converts a scheduler dispatch record into a canonical
// block. The second return is false when the record is malformed: such
// records are dropped from the batch, never fatal.
func NormalizeDispatch(rec RawRecord) (Block, bool) {
	return normalize(rec, dispatchFields, SourceUnknown)
}

// NormalizeConsumption converts a raw meter consumption sample into a
// canonical block.
func NormalizeConsumption(rec RawRecord) (Block, bool) {
	return normalize(rec, consumptionFields, SourceConsumption)
}

func normalize(rec RawRecord, fields fieldSet, defaultSource string) (Block, bool) {
	start, ok := resolveTime(rec, fields.start)
	if !ok {
		return Block{}, false
	}
	end, ok := resolveTime(rec, fields.end)
	if !ok || end.Before(start) {
		return Block{}, false
	}
	delta, ok := resolveFloat(rec, fields.energy)
	if !ok {
		return Block{}, false
	}

	block := Block{
		Start:     start,
		End:       end,
		EnergyKWh: math.Abs(delta),
		DeltaKWh:  delta,
		Source:    defaultSource,
	}
	if src, ok := stringField(rec, "source"); ok {
		block.Source = src
	}
	if loc, ok := stringField(rec, "location"); ok {
		block.Location = loc
	}
	if cost, ok := resolveFloat(rec, []string{"cost"}); ok && cost != 0 {
		block.CostGBP = cost
	}
	return block, true
}

func resolveTime(rec RawRecord, names []string) (time.Time, bool) {
	for _, name := range names {
		raw, present := rec[name]
		if !present || raw == nil {
			continue
		}
		text, ok := raw.(string)
		if !ok {
			return time.Time{}, false
		}
		if t, ok := parseInstant(text); ok {
			return t, true
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseInstant(text string) (time.Time, bool) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func resolveFloat(rec RawRecord, names []string) (float64, bool) {
	for _, name := range names {
		raw, present := rec[name]
		if !present || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case float64:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, false
			}
			return v, true
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return 0, false
			}
			return f, true
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return 0, false
			}
			return f, true
		default:
			return 0, false
		}
	}
	return 0, false
}

func stringField(rec RawRecord, name string) (string, bool) {
	raw, present := rec[name]
	if !present {
		return "", false
	}
	text, ok := raw.(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// sortBlocks returns a copy ordered by start time ascending.
func sortBlocks(blocks []Block) []Block {
	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})
	return sorted
}

// roundKWh rounds energy totals to 3 decimal places.
func roundKWh(v float64) float64 {
	return math.Round(v*1000) / 1000
}
