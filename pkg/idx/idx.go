// Package idx generates the ULIDs used for user, role and refresh token row
// ids, token family ids and request ids.
package idx

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID in canonical string form. IDs sort by creation time, and
// IDs made in the same millisecond still sort in the order they were made.
type ID string

func (id ID) String() string { return string(id) }

// New returns an ID stamped with the current time.
func New() ID {
	return NewAt(time.Now())
}

// NewAt returns an ID stamped with t. Safe for concurrent use.
func NewAt(t time.Time) ID {
	return ID(ulid.MustNew(ulid.Timestamp(t), ulid.DefaultEntropy()).String())
}
