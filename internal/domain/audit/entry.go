package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action identifies the kind of mutation an audit entry records.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Entry is an immutable audit log record: who changed what, from what value
// to what value, and from where. Entries are created exactly once per
// mutation, immediately after the primary write succeeds, and are never
// mutated or deleted by this subsystem.
type Entry struct {
	ID         uuid.UUID
	Action     Action
	Partition  string
	DocumentID string
	// AccountNo is nullable but expected to be populated for business-record
	// actions; the writer attempts recovery from the payload before giving up.
	AccountNo *string
	UserID    string
	Timestamp time.Time
	// Changes holds a field→{before,after} map for updates, or the full
	// record for creates and deletes.
	Changes   any
	IPAddress string
	UserAgent string
}

// RequestContext carries request provenance supplied by the upstream
// authentication middleware.
type RequestContext struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// Filter narrows audit entry listings.
type Filter struct {
	AccountNo string
	Action    Action
	Partition string
	Page      int
	PageSize  int
}

// Store is the append-only persistence port for audit entries.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, int64, error)
}
