package pool

import "github.com/google/uuid"

// newID mints an opaque transport id, which the Connection wrapping that
// transport also uses as its connection id. The original Rust
// implementation used nanoid!(); this pack carries no nanoid package, and
// the teacher repo uses google/uuid pervasively, so ids are UUIDs instead
// (same shape: an opaque, collision-resistant string).
func newID() string {
	return uuid.New().String()
}
