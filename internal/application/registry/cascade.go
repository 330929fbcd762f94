package registry

import (
	"context"
	"errors"

	"github.com/bplo/backend/internal/domain/registry"
	"github.com/bplo/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Synchronizer keeps a business entity consistent across the year partitions
// by projecting canonical-year writes forward into every later partition.
// Propagation is best-effort: each per-year write is its own atomic unit,
// failures are isolated per year, and the cascade as a whole is not atomic.
type Synchronizer struct {
	store registry.RecordStore
	log   *zap.Logger
	// preserveExtensions switches the per-year upsert from the historical
	// full-replace (which resets the target year's status/notes on every
	// canonical edit) to a merge that keeps whatever the target year had
	// already accumulated.
	preserveExtensions bool
}

// SynchronizerOption configures a Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithPreserveExtensions keeps existing year-scoped status/notes values in
// target partitions instead of overwriting them with empty ones.
func WithPreserveExtensions(preserve bool) SynchronizerOption {
	return func(s *Synchronizer) {
		s.preserveExtensions = preserve
	}
}

// NewSynchronizer creates a forward cascade synchronizer.
func NewSynchronizer(store registry.RecordStore, log *zap.Logger, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		store: store,
		log:   log.Named("cascade"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncForward upserts a year-scoped projection of the canonical record into
// every partition with a year strictly greater than sourceYear, in ascending
// order. Each target year is independent: a failed upsert is logged and
// skipped so a single bad partition never aborts the rest of the cascade.
// Re-running with the same record is a no-op in effect because the
// projection is pure and the upsert is a full replace.
func (s *Synchronizer) SyncForward(ctx context.Context, sourceYear registry.Year, canonical registry.Document) {
	accountNo := canonical.AccountNo()
	if accountNo == "" {
		s.log.Warn("skipping cascade for record without account number",
			zap.Int("source_year", int(sourceYear)))
		return
	}

	base := registry.StripExtensions(canonical)
	for _, year := range registry.YearsAfter(sourceYear) {
		doc := registry.ProjectForYear(base, year)
		if s.preserveExtensions {
			s.mergeExistingExtensions(ctx, year, accountNo, doc)
		}
		if _, err := s.store.Upsert(ctx, year, doc); err != nil {
			s.log.Error("cascade upsert failed",
				zap.Int("source_year", int(sourceYear)),
				zap.Int("target_year", int(year)),
				zap.String("account_no", accountNo),
				zap.Error(err),
			)
			continue
		}
		s.log.Debug("cascaded record forward",
			zap.Int("target_year", int(year)),
			zap.String("account_no", accountNo),
		)
	}
}

// DeleteForward removes the record with the given account number from every
// partition with a year strictly greater than sourceYear. Absent records
// count as success; per-year failures are isolated the same way as upserts.
func (s *Synchronizer) DeleteForward(ctx context.Context, sourceYear registry.Year, accountNo string) {
	if accountNo == "" {
		s.log.Warn("skipping cascade delete without account number",
			zap.Int("source_year", int(sourceYear)))
		return
	}

	for _, year := range registry.YearsAfter(sourceYear) {
		err := s.store.Delete(ctx, year, accountNo)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			s.log.Error("cascade delete failed",
				zap.Int("source_year", int(sourceYear)),
				zap.Int("target_year", int(year)),
				zap.String("account_no", accountNo),
				zap.Error(err),
			)
		}
	}
}

func (s *Synchronizer) mergeExistingExtensions(ctx context.Context, year registry.Year, accountNo string, doc registry.Document) {
	existing, err := s.store.Get(ctx, year, accountNo)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			s.log.Warn("could not read existing record for extension merge",
				zap.Int("target_year", int(year)),
				zap.String("account_no", accountNo),
				zap.Error(err),
			)
		}
		return
	}
	if v, ok := existing.Document[registry.StatusKey(year)]; ok {
		doc[registry.StatusKey(year)] = v
	}
	if v, ok := existing.Document[registry.NotesKey(year)]; ok {
		doc[registry.NotesKey(year)] = v
	}
}
