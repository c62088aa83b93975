package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// NewSessionID generates a session row id: millisecond timestamp plus a
// random suffix to prevent collisions between rows created in the same
// millisecond.
func NewSessionID() string {
	suffix := make([]byte, 5)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
