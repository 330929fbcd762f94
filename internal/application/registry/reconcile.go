package registry

import (
	"context"

	"github.com/bplo/backend/internal/domain/registry"
	"github.com/bplo/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Reconciler repairs partitions that drifted from the canonical year, which
// happens when individual cascade writes fail and are skipped. It replays the
// forward cascade for every canonical record and prunes later-year records
// whose canonical counterpart no longer exists.
type Reconciler struct {
	store   registry.RecordStore
	cascade ForwardSynchronizer
	year    registry.Year
	log     *zap.Logger
}

// NewReconciler creates a reconciliation job over the given store.
func NewReconciler(store registry.RecordStore, cascade ForwardSynchronizer, log *zap.Logger) *Reconciler {
	return &Reconciler{
		store:   store,
		cascade: cascade,
		year:    registry.CanonicalYear,
		log:     log.Named("reconcile"),
	}
}

// Run performs one full reconciliation pass and reports what it touched.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	canonical := make(map[string]struct{})
	filter := shared.DefaultFilter()
	filter.PageSize = 200
	for page := 1; ; page++ {
		filter.Page = page
		records, total, err := r.store.List(ctx, r.year, filter)
		if err != nil {
			return nil, err
		}
		for i := range records {
			doc := records[i].Document
			accountNo := doc.AccountNo()
			if accountNo == "" {
				continue
			}
			canonical[accountNo] = struct{}{}
			r.cascade.SyncForward(ctx, r.year, doc)
			report.RecordsSynced++
		}
		if int64(page*filter.Limit()) >= total || len(records) == 0 {
			break
		}
	}
	report.CanonicalRecords = len(canonical)

	for _, year := range registry.YearsAfter(r.year) {
		accounts, err := r.store.AccountNumbers(ctx, year)
		if err != nil {
			r.log.Error("could not list partition accounts",
				zap.Int("year", int(year)), zap.Error(err))
			continue
		}
		for _, accountNo := range accounts {
			if _, ok := canonical[accountNo]; ok {
				continue
			}
			if err := r.store.Delete(ctx, year, accountNo); err != nil {
				r.log.Error("could not prune orphaned record",
					zap.Int("year", int(year)),
					zap.String("account_no", accountNo),
					zap.Error(err))
				continue
			}
			report.OrphansRemoved++
		}
	}

	r.log.Info("reconciliation finished",
		zap.Int("canonical_records", report.CanonicalRecords),
		zap.Int("records_synced", report.RecordsSynced),
		zap.Int("orphans_removed", report.OrphansRemoved),
	)
	return report, nil
}
