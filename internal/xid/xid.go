package xid

import (
	"github.com/google/uuid"
)

// New returns a prefixed UUIDv7. The time-ordered layout keeps ids sortable by
// creation while the random tail prevents collisions between concurrent writers.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "_" + id.String()
}
