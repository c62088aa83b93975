package charging

import "math"

// SmartChargeRatePence is the off-peak rate applied to smart-charging
// dispatches when no override is configured. It is a fixed placeholder for
// the provider's scheduled tariff, not fetched from the account's actual
// tariff products.
const SmartChargeRatePence = 7.5

// ResolveRate returns the override rate when one is set (zero is a valid
// free-electricity override), otherwise the smart-charging constant.
func ResolveRate(override *float64) float64 {
	if override != nil && *override >= 0 {
		return *override
	}
	return SmartChargeRatePence
}

// Cost converts an energy quantity and a pence-per-kWh rate into pounds,
// rounded to 2 decimal places.
func Cost(energyKWh, ratePence float64) float64 {
	return math.Round(energyKWh*ratePence) / 100
}

// Annotate applies a session-level rate: each block without a
// provider-supplied cost gets one computed from its own energy, for display
// only. The session cost is priced from the session's total energy in one
// step, so per-block penny rounding never accumulates into the total.
// Returns the session cost.
func Annotate(s *Session, ratePence float64) float64 {
	var sum float64
	for i := range s.Blocks {
		if s.Blocks[i].CostGBP == 0 {
			s.Blocks[i].CostGBP = Cost(s.Blocks[i].EnergyKWh, ratePence)
		}
		sum += s.Blocks[i].EnergyKWh
	}
	total := s.TotalKWh
	if total == 0 {
		total = roundKWh(sum)
	}
	return Cost(total, ratePence)
}
