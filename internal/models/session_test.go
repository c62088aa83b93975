package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImported(t *testing.T) {
	assert.False(t, ChargingSession{Source: SourceManual}.Imported())
	assert.True(t, ChargingSession{Source: SourceOctopus}.Imported())
	assert.True(t, ChargingSession{Source: SourceOctopusGraphQL}.Imported())
	assert.False(t, ChargingSession{}.Imported())
}
