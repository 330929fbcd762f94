package registry

import (
	"context"
	"encoding/json"

	"github.com/bplo/backend/internal/domain/audit"
	"github.com/bplo/backend/internal/domain/registry"
	"github.com/bplo/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ActionLogger is the audit trail port consumed after every successful
// primary write. Implementations must be fire-and-forget.
type ActionLogger interface {
	LogAction(action audit.Action, partition, documentID, userID string, payload any, rc audit.RequestContext, accountNo string)
}

// ForwardSynchronizer propagates canonical-year writes into later partitions.
type ForwardSynchronizer interface {
	SyncForward(ctx context.Context, sourceYear registry.Year, canonical registry.Document)
	DeleteForward(ctx context.Context, sourceYear registry.Year, accountNo string)
}

// ResponseCache is an optional read-through cache for record lookups.
type ResponseCache interface {
	Get(ctx context.Context, year registry.Year, accountNo string) ([]byte, bool)
	Set(ctx context.Context, year registry.Year, accountNo string, payload []byte)
	Invalidate(ctx context.Context, accountNo string)
}

// RecordService orchestrates canonical-year mutations: field transformation,
// the primary write, the audit entry and the forward cascade, in that order.
// The store write owns the transaction boundary; audit and cascade are
// downstream consumers whose failures never alter the caller-visible result.
type RecordService struct {
	store   registry.RecordStore
	auditor ActionLogger
	cascade ForwardSynchronizer
	cache   ResponseCache
	year    registry.Year
	log     *zap.Logger
}

// RecordServiceOption configures a RecordService.
type RecordServiceOption func(*RecordService)

// WithResponseCache enables read-through caching of record lookups.
func WithResponseCache(cache ResponseCache) RecordServiceOption {
	return func(s *RecordService) {
		s.cache = cache
	}
}

// NewRecordService creates the canonical-year mutation service.
func NewRecordService(store registry.RecordStore, auditor ActionLogger, cascade ForwardSynchronizer, log *zap.Logger, opts ...RecordServiceOption) *RecordService {
	s := &RecordService{
		store:   store,
		auditor: auditor,
		cascade: cascade,
		year:    registry.CanonicalYear,
		log:     log.Named("records"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create inserts a new canonical-year record, audits it and cascades it
// forward. A duplicate account number aborts before any side effect.
func (s *RecordService) Create(ctx context.Context, req CreateRecordRequest, rc audit.RequestContext) (*RecordResponse, error) {
	doc := registry.NormalizeUppercase(registry.ToStorageShape(req.Document()))
	accountNo := doc.AccountNo()
	if accountNo == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Account number is required")
	}
	doc[registry.StatusKey(s.year)] = stringOrEmpty(req.Status)
	doc[registry.NotesKey(s.year)] = stringOrEmpty(req.Notes)

	stored, err := s.store.Insert(ctx, s.year, doc)
	if err != nil {
		return nil, err
	}

	s.auditor.LogAction(audit.ActionCreate, registry.PartitionName(s.year), stored.ID.String(),
		rc.UserID, stored.Document, rc, accountNo)
	s.cascade.SyncForward(ctx, s.year, stored.Document)
	s.invalidate(ctx, accountNo)

	return toRecordResponse(stored), nil
}

// Update fully replaces the canonical-year record identified by accountNo,
// audits the field diff and cascades the new state forward. Omitting the
// status/notes fields keeps the canonical extension pair unchanged.
func (s *RecordService) Update(ctx context.Context, accountNo string, req UpdateRecordRequest, rc audit.RequestContext) (*RecordResponse, error) {
	accountNo = registry.NormalizeAccountNo(accountNo)
	before, err := s.store.Get(ctx, s.year, accountNo)
	if err != nil {
		return nil, err
	}

	after := registry.NormalizeUppercase(registry.ToStorageShape(req.Document()))
	after[registry.FieldAccountNo] = before.Document.AccountNo()
	after[registry.StatusKey(s.year)] = extensionValue(req.Status, before.Document, registry.StatusKey(s.year))
	after[registry.NotesKey(s.year)] = extensionValue(req.Notes, before.Document, registry.NotesKey(s.year))

	stored, err := s.store.Upsert(ctx, s.year, after)
	if err != nil {
		return nil, err
	}

	changes := registry.Diff(before.Document, stored.Document)
	s.auditor.LogAction(audit.ActionUpdate, registry.PartitionName(s.year), stored.ID.String(),
		rc.UserID, changes, rc, accountNo)
	s.cascade.SyncForward(ctx, s.year, stored.Document)
	s.invalidate(ctx, accountNo)

	return toRecordResponse(stored), nil
}

// Delete removes the canonical-year record and cascades the deletion into
// every later partition.
func (s *RecordService) Delete(ctx context.Context, accountNo string, rc audit.RequestContext) error {
	accountNo = registry.NormalizeAccountNo(accountNo)
	before, err := s.store.Get(ctx, s.year, accountNo)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, s.year, accountNo); err != nil {
		return err
	}

	s.auditor.LogAction(audit.ActionDelete, registry.PartitionName(s.year), before.ID.String(),
		rc.UserID, before.Document, rc, accountNo)
	s.cascade.DeleteForward(ctx, s.year, accountNo)
	s.invalidate(ctx, accountNo)

	return nil
}

// Get returns the canonical-year record for an account number.
func (s *RecordService) Get(ctx context.Context, accountNo string) (*RecordResponse, error) {
	return s.GetForYear(ctx, s.year, accountNo)
}

// GetForYear returns a record from any partition. Later-year partitions are
// readable but derived; they are never mutated through this service.
func (s *RecordService) GetForYear(ctx context.Context, year registry.Year, accountNo string) (*RecordResponse, error) {
	if !year.Valid() {
		return nil, shared.ErrInvalidYear
	}
	accountNo = registry.NormalizeAccountNo(accountNo)
	if s.cache != nil {
		if payload, ok := s.cache.Get(ctx, year, accountNo); ok {
			var resp RecordResponse
			if err := json.Unmarshal(payload, &resp); err == nil {
				return &resp, nil
			}
		}
	}
	stored, err := s.store.Get(ctx, year, accountNo)
	if err != nil {
		return nil, err
	}
	resp := toRecordResponse(stored)
	if s.cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			s.cache.Set(ctx, year, accountNo, payload)
		}
	}
	return resp, nil
}

// List returns a page of canonical-year records.
func (s *RecordService) List(ctx context.Context, filter RecordListFilter) ([]RecordResponse, int64, error) {
	return s.ListForYear(ctx, s.year, filter)
}

// ListForYear returns a page of records from any partition.
func (s *RecordService) ListForYear(ctx context.Context, year registry.Year, filter RecordListFilter) ([]RecordResponse, int64, error) {
	if !year.Valid() {
		return nil, 0, shared.ErrInvalidYear
	}
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.Search = filter.Search
	if filter.SortBy != "" {
		domainFilter.OrderBy = filter.SortBy
	}
	if filter.SortOrder != "" {
		domainFilter.OrderDir = filter.SortOrder
	}

	records, total, err := s.store.List(ctx, year, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]RecordResponse, len(records))
	for i := range records {
		out[i] = *toRecordResponse(&records[i])
	}
	return out, total, nil
}

// CanonicalYear returns the year this service mutates.
func (s *RecordService) CanonicalYear() registry.Year {
	return s.year
}

func (s *RecordService) invalidate(ctx context.Context, accountNo string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, accountNo)
	}
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func extensionValue(requested *string, before registry.Document, key string) any {
	if requested != nil {
		return *requested
	}
	if v, ok := before[key]; ok {
		return v
	}
	return ""
}
