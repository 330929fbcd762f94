package registry

import (
	"context"
	"time"

	"github.com/bplo/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// StoredDocument pairs a partition document with its storage identity.
type StoredDocument struct {
	ID        uuid.UUID
	Year      Year
	Document  Document
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordStore is the document-oriented persistence layer: one logical
// partition per year, each keyed by an account number that is unique within
// the partition and denotes the same real-world entity across partitions.
type RecordStore interface {
	// Get returns the record with the given account number from a year's
	// partition, or shared.ErrNotFound.
	Get(ctx context.Context, year Year, accountNo string) (*StoredDocument, error)

	// Insert adds a new record to a year's partition. A record with the same
	// account number already present yields shared.ErrAlreadyExists.
	Insert(ctx context.Context, year Year, doc Document) (*StoredDocument, error)

	// Upsert inserts the record if absent, otherwise fully replaces the
	// existing record with the same account number. The replace is total,
	// not a merge.
	Upsert(ctx context.Context, year Year, doc Document) (*StoredDocument, error)

	// Delete removes the record with the given account number from a year's
	// partition, returning shared.ErrNotFound when no such record exists.
	Delete(ctx context.Context, year Year, accountNo string) error

	// List returns a page of records from a year's partition along with the
	// total match count.
	List(ctx context.Context, year Year, filter shared.Filter) ([]StoredDocument, int64, error)

	// AccountNumbers returns every account number present in a year's
	// partition, used by the reconciliation job.
	AccountNumbers(ctx context.Context, year Year) ([]string, error)
}
