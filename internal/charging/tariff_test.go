package charging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCost(t *testing.T) {
	assert.Equal(t, 0.49, Cost(7.0, 7.0))
	assert.Equal(t, 0.53, Cost(7.0, SmartChargeRatePence))
	assert.Equal(t, 0.0, Cost(0, 30.0))
}

func TestResolveRate(t *testing.T) {
	assert.Equal(t, SmartChargeRatePence, ResolveRate(nil))

	override := 28.6
	assert.Equal(t, 28.6, ResolveRate(&override))

	free := 0.0
	assert.Equal(t, 0.0, ResolveRate(&free))

	negative := -1.0
	assert.Equal(t, SmartChargeRatePence, ResolveRate(&negative))
}

func TestAnnotateComputesMissingBlockCosts(t *testing.T) {
	session := Session{
		Blocks: []Block{
			{EnergyKWh: 2.0},
			{EnergyKWh: 3.0, CostGBP: 0.5},
		},
	}

	total := Annotate(&session, 10.0)

	assert.Equal(t, 0.2, session.Blocks[0].CostGBP)
	assert.Equal(t, 0.5, session.Blocks[1].CostGBP, "provider-supplied cost survives per block")
	assert.Equal(t, 0.5, total, "session cost is priced from total energy, not block costs")
}

func TestAnnotatePricesSessionFromTotalEnergy(t *testing.T) {
	// Two 1.0 kWh blocks each round to £0.08 on their own; the session
	// must cost 2.0 kWh worth, £0.15, not the £0.16 block sum.
	session := Session{
		TotalKWh: 2.0,
		Blocks: []Block{
			{EnergyKWh: 1.0},
			{EnergyKWh: 1.0},
		},
	}

	total := Annotate(&session, SmartChargeRatePence)

	assert.Equal(t, 0.08, session.Blocks[0].CostGBP)
	assert.Equal(t, 0.08, session.Blocks[1].CostGBP)
	assert.Equal(t, 0.15, total)
}

func TestAnnotateSumsBlocksWhenTotalUnset(t *testing.T) {
	session := Session{
		Blocks: []Block{
			{EnergyKWh: 1.0},
			{EnergyKWh: 1.0},
		},
	}

	assert.Equal(t, 0.15, Annotate(&session, SmartChargeRatePence))
}
