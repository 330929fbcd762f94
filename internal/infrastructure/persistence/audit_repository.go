package persistence

import (
	"context"
	"encoding/json"

	"github.com/bplo/backend/internal/domain/audit"
	"github.com/bplo/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditStore implements audit.Store using GORM. The table is append-only:
// entries are never updated or deleted once written.
type GormAuditStore struct {
	db *gorm.DB
}

// NewGormAuditStore creates a new GormAuditStore
func NewGormAuditStore(db *gorm.DB) *GormAuditStore {
	return &GormAuditStore{db: db}
}

// Append writes one audit entry
func (r *GormAuditStore) Append(ctx context.Context, entry *audit.Entry) error {
	changes, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}
	model := &models.AuditLogModel{
		ID:         entry.ID,
		Action:     string(entry.Action),
		Partition:  entry.Partition,
		DocumentID: entry.DocumentID,
		AccountNo:  entry.AccountNo,
		UserID:     entry.UserID,
		Timestamp:  entry.Timestamp,
		Changes:    changes,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// List finds audit entries matching the filter, newest first, with the total
// count before pagination
func (r *GormAuditStore) List(ctx context.Context, filter audit.Filter) ([]audit.Entry, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.AuditLogModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var logModels []models.AuditLogModel
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.AuditLogModel{}), filter).
		Order("timestamp DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&logModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]audit.Entry, len(logModels))
	for i := range logModels {
		entries[i] = *toAuditEntry(&logModels[i])
	}
	return entries, total, nil
}

func (r *GormAuditStore) applyFilter(query *gorm.DB, filter audit.Filter) *gorm.DB {
	if filter.AccountNo != "" {
		query = query.Where("account_no = ?", filter.AccountNo)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", string(filter.Action))
	}
	if filter.Partition != "" {
		query = query.Where("partition = ?", filter.Partition)
	}
	return query
}

func toAuditEntry(m *models.AuditLogModel) *audit.Entry {
	entry := &audit.Entry{
		ID:         m.ID,
		Action:     audit.Action(m.Action),
		Partition:  m.Partition,
		DocumentID: m.DocumentID,
		AccountNo:  m.AccountNo,
		UserID:     m.UserID,
		Timestamp:  m.Timestamp,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
	}
	if len(m.Changes) > 0 {
		var changes map[string]any
		if err := json.Unmarshal(m.Changes, &changes); err == nil {
			entry.Changes = changes
		}
	}
	return entry
}

// Ensure GormAuditStore implements audit.Store
var _ audit.Store = (*GormAuditStore)(nil)
