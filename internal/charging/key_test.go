package charging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionKeyStability(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 4, 30, 0, 0, time.UTC)

	key := SessionKey(start, end, 2)
	assert.Equal(t, "2024-03-01T00:00:00Z_2024-03-01T04:30:00Z_2", key)
	assert.Equal(t, key, SessionKey(start, end, 2))

	assert.NotEqual(t, key, SessionKey(start.Add(time.Minute), end, 2))
	assert.NotEqual(t, key, SessionKey(start, end.Add(time.Minute), 2))
	assert.NotEqual(t, key, SessionKey(start, end, 3))
}

func TestSessionKeyNormalizesZone(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 4, 30, 0, 0, time.UTC)

	plusOne := time.FixedZone("CET", 3600)
	assert.Equal(t,
		SessionKey(start, end, 2),
		SessionKey(start.In(plusOne), end.In(plusOne), 2),
	)
}
