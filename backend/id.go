package backend

import (
	"strings"

	"github.com/google/uuid"
)

// ID identifies a task or list. Remote IDs are assigned by the
// service; provisional IDs are generated locally for records created
// offline and carry a reserved prefix the service never uses. All
// prefix handling lives in this file: callers mint provisional IDs
// through NewTaskID/NewListID and classify through Provisional.
type ID string

const (
	provisionalPrefix     = "temp_"
	provisionalListPrefix = "temp_list_"
)

// NewTaskID returns a fresh provisional task identifier, unique for
// the process lifetime.
func NewTaskID() ID {
	return ID(provisionalPrefix + uuid.NewString())
}

// NewListID returns a fresh provisional list identifier.
func NewListID() ID {
	return ID(provisionalListPrefix + uuid.NewString())
}

// Provisional reports whether the ID was generated locally and has not
// yet been replaced by a server-assigned identifier. The list prefix
// extends the task prefix, so one check covers both kinds.
func (id ID) Provisional() bool {
	return strings.HasPrefix(string(id), provisionalPrefix)
}
