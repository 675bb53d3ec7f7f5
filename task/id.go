package task

import "github.com/google/uuid"

// NewID returns a short, collision-resistant task identifier: the first 8
// hex characters of a random UUIDv4. Short ids keep branch names
// (sideeffects derives branch names from task ids) readable while still
// being effectively unique within one engine session.
func NewID() string {
	return uuid.New().String()[:8]
}
