package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/bplo/backend/internal/domain/registry"
	"github.com/bplo/backend/internal/domain/shared"
	"github.com/bplo/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// recordDataColumns are the columns replaced by an upsert. The identity
// columns (id, year, account_no, created_at) are never touched on conflict.
var recordDataColumns = []string{
	"application_date",
	"receipt_no",
	"amount_paid",
	"payment_date",
	"risk_status",
	"application_status",
	"business_name",
	"owner_name",
	"address",
	"barangay",
	"nature_of_business",
	"remarks",
	"status",
	"notes",
	"updated_at",
}

// GormRecordStore implements registry.RecordStore using GORM. All year
// partitions live in one table keyed by (year, account_no).
type GormRecordStore struct {
	db *gorm.DB
}

// NewGormRecordStore creates a new GormRecordStore
func NewGormRecordStore(db *gorm.DB) *GormRecordStore {
	return &GormRecordStore{db: db}
}

// Get finds a record by account number within a year partition
func (r *GormRecordStore) Get(ctx context.Context, year registry.Year, accountNo string) (*registry.StoredDocument, error) {
	var model models.BusinessRecordModel
	if err := r.db.WithContext(ctx).
		Where("year = ? AND account_no = ?", int(year), accountNo).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToStoredDocument(), nil
}

// Insert creates a new record in a year partition. An existing record with
// the same account number aborts with shared.ErrAlreadyExists.
func (r *GormRecordStore) Insert(ctx context.Context, year registry.Year, doc registry.Document) (*registry.StoredDocument, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.BusinessRecordModel{}).
		Where("year = ? AND account_no = ?", int(year), doc.AccountNo()).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, shared.ErrAlreadyExists
	}

	model := &models.BusinessRecordModel{}
	model.FromDocument(year, doc)
	model.ID = uuid.New()
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, err
	}
	return model.ToStoredDocument(), nil
}

// Upsert fully replaces the record for (year, accountNo), creating it when
// absent. The row identity (id, created_at) of an existing record survives;
// every data column is overwritten.
func (r *GormRecordStore) Upsert(ctx context.Context, year registry.Year, doc registry.Document) (*registry.StoredDocument, error) {
	model := &models.BusinessRecordModel{}
	model.FromDocument(year, doc)
	model.ID = uuid.New()

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "year"}, {Name: "account_no"}},
		DoUpdates: clause.AssignmentColumns(recordDataColumns),
	}).Create(model).Error; err != nil {
		return nil, err
	}

	// Re-read to observe the surviving identity of a replaced row.
	return r.Get(ctx, year, doc.AccountNo())
}

// Delete removes a record from a year partition
func (r *GormRecordStore) Delete(ctx context.Context, year registry.Year, accountNo string) error {
	result := r.db.WithContext(ctx).
		Delete(&models.BusinessRecordModel{}, "year = ? AND account_no = ?", int(year), accountNo)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List finds records in a year partition matching the filter, with the total
// count before pagination
func (r *GormRecordStore) List(ctx context.Context, year registry.Year, filter shared.Filter) ([]registry.StoredDocument, int64, error) {
	countQuery := applyRecordSearch(
		r.db.WithContext(ctx).Model(&models.BusinessRecordModel{}).Where("year = ?", int(year)),
		filter,
	)
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := applyRecordSearch(
		r.db.WithContext(ctx).Model(&models.BusinessRecordModel{}).Where("year = ?", int(year)),
		filter,
	)
	sortField := ValidateSortField(filter.OrderBy, BusinessRecordSortFields, "account_no")
	sortOrder := ValidateSortOrder(filter.OrderDir)

	var recordModels []models.BusinessRecordModel
	if err := listQuery.
		Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&recordModels).Error; err != nil {
		return nil, 0, err
	}

	records := make([]registry.StoredDocument, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToStoredDocument()
	}
	return records, total, nil
}

// AccountNumbers returns every account number present in a year partition
func (r *GormRecordStore) AccountNumbers(ctx context.Context, year registry.Year) ([]string, error) {
	var accounts []string
	if err := r.db.WithContext(ctx).
		Model(&models.BusinessRecordModel{}).
		Where("year = ?", int(year)).
		Order("account_no ASC").
		Pluck("account_no", &accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// applyRecordSearch matches the search term against the uppercased identity
// columns. Stored values are already uppercase, so a LIKE with an uppercased
// pattern is case-insensitive and portable across postgres and sqlite.
func applyRecordSearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search == "" {
		return query
	}
	pattern := "%" + strings.ToUpper(filter.Search) + "%"
	return query.Where(
		"account_no LIKE ? OR business_name LIKE ? OR owner_name LIKE ? OR barangay LIKE ?",
		pattern, pattern, pattern, pattern,
	)
}

// Ensure GormRecordStore implements registry.RecordStore
var _ registry.RecordStore = (*GormRecordStore)(nil)
