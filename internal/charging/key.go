package charging

import (
	"fmt"
	"time"
)

// SessionKey derives the stable identifier a session carries across repeated
// imports: its temporal span plus block count. Sessions with identical
// start, end and block count always collide, which is what lets the store's
// unique constraint reject exact re-imports the merge path did not fold.
// A merge that changes the block count produces a new key, so merged rows
// are replaced explicitly rather than upserted by key.
func SessionKey(start, end time.Time, blockCount int) string {
	return fmt.Sprintf("%s_%s_%d",
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		blockCount,
	)
}
