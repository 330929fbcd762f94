package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/bplo/backend/internal/domain/audit"
	"github.com/bplo/backend/internal/domain/registry"
	"github.com/bplo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type loggedAction struct {
	action    audit.Action
	partition string
	payload   any
	accountNo string
}

// recordingAuditor captures LogAction calls synchronously.
type recordingAuditor struct {
	actions []loggedAction
}

func (r *recordingAuditor) LogAction(action audit.Action, partition, _, _ string, payload any, _ audit.RequestContext, accountNo string) {
	r.actions = append(r.actions, loggedAction{
		action:    action,
		partition: partition,
		payload:   payload,
		accountNo: accountNo,
	})
}

// recordingCascade captures sync/delete calls without touching any store.
type recordingCascade struct {
	synced  []registry.Document
	deleted []string
}

func (r *recordingCascade) SyncForward(_ context.Context, _ registry.Year, canonical registry.Document) {
	r.synced = append(r.synced, canonical)
}

func (r *recordingCascade) DeleteForward(_ context.Context, _ registry.Year, accountNo string) {
	r.deleted = append(r.deleted, accountNo)
}

func strPtr(s string) *string { return &s }

func newTestService(store registry.RecordStore) (*RecordService, *recordingAuditor, *recordingCascade) {
	auditor := &recordingAuditor{}
	cascade := &recordingCascade{}
	svc := NewRecordService(store, auditor, cascade, zap.NewNop())
	return svc, auditor, cascade
}

func TestRecordServiceCreate(t *testing.T) {
	ctx := context.Background()
	rc := audit.RequestContext{UserID: "clerk-7", IPAddress: "10.0.0.7", UserAgent: "curl/8.0"}

	t.Run("transforms, writes, audits and cascades", func(t *testing.T) {
		store := newFakeRecordStore()
		auditor := &recordingAuditor{}
		svc := NewRecordService(store, auditor, NewSynchronizer(store, zap.NewNop()), zap.NewNop())

		amount := decimal.NewFromFloat(1500.50)
		resp, err := svc.Create(ctx, CreateRecordRequest{
			AccountNo:    "1001",
			BusinessName: strPtr("acme laundry"),
			OwnerName:    strPtr("juan dela cruz"),
			AmountPaid:   &amount,
			Remarks:      strPtr("Walk-in renewal"),
			Status:       strPtr("RENEWED"),
		}, rc)
		require.NoError(t, err)

		assert.Equal(t, 2025, resp.Year)
		assert.Equal(t, "ACME LAUNDRY", resp.Record[registry.FieldBusinessName])
		assert.Equal(t, "JUAN DELA CRUZ", resp.Record[registry.FieldOwnerName])
		assert.Equal(t, "Walk-in renewal", resp.Record[registry.FieldRemarks])
		assert.Equal(t, "RENEWED", resp.Record[registry.StatusKey(2025)])
		assert.Equal(t, "", resp.Record[registry.NotesKey(2025)])
		assert.Nil(t, resp.Record[registry.FieldReceiptNo])

		stored, err := store.Get(ctx, 2025, "1001")
		require.NoError(t, err)
		assert.Equal(t, resp.Record, stored.Document)

		for _, year := range registry.YearsAfter(2025) {
			derived, err := store.Get(ctx, year, "1001")
			require.NoError(t, err, "year %d", year)
			assert.Equal(t, "ACME LAUNDRY", derived.Document[registry.FieldBusinessName])
			assert.Equal(t, "", derived.Document[registry.StatusKey(year)])
			assert.NotContains(t, derived.Document, registry.StatusKey(2025))
		}

		require.Len(t, auditor.actions, 1)
		assert.Equal(t, audit.ActionCreate, auditor.actions[0].action)
		assert.Equal(t, "businesses_2025", auditor.actions[0].partition)
		assert.Equal(t, "1001", auditor.actions[0].accountNo)
	})

	t.Run("duplicate account aborts before any side effect", func(t *testing.T) {
		store := newFakeRecordStore()
		svc, auditor, cascade := newTestService(store)

		_, err := svc.Create(ctx, CreateRecordRequest{AccountNo: "1001"}, rc)
		require.NoError(t, err)

		_, err = svc.Create(ctx, CreateRecordRequest{
			AccountNo:    "1001",
			BusinessName: strPtr("impostor corp"),
		}, rc)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)

		assert.Len(t, auditor.actions, 1)
		assert.Len(t, cascade.synced, 1)
	})

	t.Run("rejects a blank account number", func(t *testing.T) {
		svc, auditor, cascade := newTestService(newFakeRecordStore())

		_, err := svc.Create(ctx, CreateRecordRequest{AccountNo: "   "}, rc)
		require.Error(t, err)
		var domainErr *shared.DomainError
		assert.ErrorAs(t, err, &domainErr)
		assert.Empty(t, auditor.actions)
		assert.Empty(t, cascade.synced)
	})

	t.Run("insert failure reaches the caller", func(t *testing.T) {
		store := newFakeRecordStore()
		store.failInsert = errors.New("connection reset")
		svc, auditor, cascade := newTestService(store)

		_, err := svc.Create(ctx, CreateRecordRequest{AccountNo: "1001"}, rc)
		assert.Error(t, err)
		assert.Empty(t, auditor.actions)
		assert.Empty(t, cascade.synced)
	})
}

func TestRecordServiceUpdate(t *testing.T) {
	ctx := context.Background()
	rc := audit.RequestContext{UserID: "clerk-7"}

	seed := func(t *testing.T, svc *RecordService) {
		t.Helper()
		_, err := svc.Create(ctx, CreateRecordRequest{
			AccountNo:    "1001",
			BusinessName: strPtr("acme laundry"),
			Barangay:     strPtr("poblacion"),
			Status:       strPtr("RENEWED"),
			Notes:        strPtr("walk-in"),
		}, rc)
		require.NoError(t, err)
	}

	t.Run("audits only the changed fields", func(t *testing.T) {
		store := newFakeRecordStore()
		svc, auditor, _ := newTestService(store)
		seed(t, svc)
		auditor.actions = nil

		resp, err := svc.Update(ctx, "1001", UpdateRecordRequest{
			BusinessName: strPtr("acme laundry and dry cleaning"),
			Barangay:     strPtr("poblacion"),
		}, rc)
		require.NoError(t, err)
		assert.Equal(t, "ACME LAUNDRY AND DRY CLEANING", resp.Record[registry.FieldBusinessName])

		require.Len(t, auditor.actions, 1)
		assert.Equal(t, audit.ActionUpdate, auditor.actions[0].action)
		changes, ok := auditor.actions[0].payload.(registry.Changes)
		require.True(t, ok)
		assert.Contains(t, changes, registry.FieldBusinessName)
		assert.Equal(t, "ACME LAUNDRY", changes[registry.FieldBusinessName].Before)
		assert.Equal(t, "ACME LAUNDRY AND DRY CLEANING", changes[registry.FieldBusinessName].After)
		assert.NotContains(t, changes, registry.FieldBarangay)
		assert.NotContains(t, changes, registry.FieldAccountNo)
	})

	t.Run("full replace nulls omitted fields", func(t *testing.T) {
		store := newFakeRecordStore()
		svc, auditor, _ := newTestService(store)
		seed(t, svc)
		auditor.actions = nil

		resp, err := svc.Update(ctx, "1001", UpdateRecordRequest{
			BusinessName: strPtr("acme laundry"),
		}, rc)
		require.NoError(t, err)
		assert.Nil(t, resp.Record[registry.FieldBarangay])

		require.Len(t, auditor.actions, 1)
		changes := auditor.actions[0].payload.(registry.Changes)
		assert.Equal(t, "POBLACION", changes[registry.FieldBarangay].Before)
		assert.Nil(t, changes[registry.FieldBarangay].After)
	})

	t.Run("keeps the canonical extension pair when omitted", func(t *testing.T) {
		store := newFakeRecordStore()
		svc, _, _ := newTestService(store)
		seed(t, svc)

		resp, err := svc.Update(ctx, "1001", UpdateRecordRequest{
			BusinessName: strPtr("acme laundry"),
		}, rc)
		require.NoError(t, err)
		assert.Equal(t, "RENEWED", resp.Record[registry.StatusKey(2025)])
		assert.Equal(t, "walk-in", resp.Record[registry.NotesKey(2025)])
	})

	t.Run("cascades the replaced state forward", func(t *testing.T) {
		store := newFakeRecordStore()
		svc, _, cascade := newTestService(store)
		seed(t, svc)
		cascade.synced = nil

		_, err := svc.Update(ctx, "1001", UpdateRecordRequest{
			BusinessName: strPtr("renamed corp"),
		}, rc)
		require.NoError(t, err)

		require.Len(t, cascade.synced, 1)
		assert.Equal(t, "RENAMED CORP", cascade.synced[0][registry.FieldBusinessName])
	})

	t.Run("unknown account returns not found", func(t *testing.T) {
		svc, auditor, cascade := newTestService(newFakeRecordStore())

		_, err := svc.Update(ctx, "9999", UpdateRecordRequest{}, rc)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Empty(t, auditor.actions)
		assert.Empty(t, cascade.synced)
	})
}

func TestRecordServiceDelete(t *testing.T) {
	ctx := context.Background()
	rc := audit.RequestContext{UserID: "clerk-7"}

	t.Run("removes the record everywhere and audits once", func(t *testing.T) {
		store := newFakeRecordStore()
		auditor := &recordingAuditor{}
		svc := NewRecordService(store, auditor, NewSynchronizer(store, zap.NewNop()), zap.NewNop())

		_, err := svc.Create(ctx, CreateRecordRequest{AccountNo: "1001"}, rc)
		require.NoError(t, err)
		auditor.actions = nil

		require.NoError(t, svc.Delete(ctx, "1001", rc))

		for _, year := range registry.Years() {
			_, err := store.Get(ctx, year, "1001")
			assert.ErrorIs(t, err, shared.ErrNotFound, "year %d", year)
		}

		require.Len(t, auditor.actions, 1)
		assert.Equal(t, audit.ActionDelete, auditor.actions[0].action)
		assert.Equal(t, "1001", auditor.actions[0].accountNo)
		payload, ok := auditor.actions[0].payload.(registry.Document)
		require.True(t, ok)
		assert.Equal(t, "1001", payload.AccountNo())
	})

	t.Run("unknown account returns not found", func(t *testing.T) {
		svc, auditor, cascade := newTestService(newFakeRecordStore())

		err := svc.Delete(ctx, "9999", rc)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Empty(t, auditor.actions)
		assert.Empty(t, cascade.deleted)
	})
}

func TestRecordServiceAccountNoCasing(t *testing.T) {
	ctx := context.Background()
	rc := audit.RequestContext{UserID: "clerk-7"}

	store := newFakeRecordStore()
	auditor := &recordingAuditor{}
	svc := NewRecordService(store, auditor, NewSynchronizer(store, zap.NewNop()), zap.NewNop())

	_, err := svc.Create(ctx, CreateRecordRequest{
		AccountNo:    "bp-2025-0001",
		BusinessName: strPtr("acme laundry"),
	}, rc)
	require.NoError(t, err)

	t.Run("lookups match the casing applied on create", func(t *testing.T) {
		resp, err := svc.Get(ctx, "bp-2025-0001")
		require.NoError(t, err)
		assert.Equal(t, "BP-2025-0001", resp.Record.AccountNo())

		resp, err = svc.GetForYear(ctx, 2027, "Bp-2025-0001")
		require.NoError(t, err)
		assert.Equal(t, 2027, resp.Year)
	})

	t.Run("update accepts the caller's casing", func(t *testing.T) {
		resp, err := svc.Update(ctx, "bp-2025-0001", UpdateRecordRequest{
			BusinessName: strPtr("renamed corp"),
		}, rc)
		require.NoError(t, err)
		assert.Equal(t, "RENAMED CORP", resp.Record[registry.FieldBusinessName])
	})

	t.Run("delete accepts the caller's casing", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, "bp-2025-0001", rc))
		for _, year := range registry.Years() {
			_, err := store.Get(ctx, year, "BP-2025-0001")
			assert.ErrorIs(t, err, shared.ErrNotFound, "year %d", year)
		}
	})
}

func TestRecordServiceReads(t *testing.T) {
	ctx := context.Background()
	rc := audit.RequestContext{UserID: "clerk-7"}

	t.Run("reads any valid partition", func(t *testing.T) {
		store := newFakeRecordStore()
		svc := NewRecordService(store, &recordingAuditor{}, NewSynchronizer(store, zap.NewNop()), zap.NewNop())

		_, err := svc.Create(ctx, CreateRecordRequest{AccountNo: "1001"}, rc)
		require.NoError(t, err)

		resp, err := svc.GetForYear(ctx, 2028, "1001")
		require.NoError(t, err)
		assert.Equal(t, 2028, resp.Year)
	})

	t.Run("rejects years outside the window", func(t *testing.T) {
		svc, _, _ := newTestService(newFakeRecordStore())

		_, err := svc.GetForYear(ctx, 2031, "1001")
		assert.ErrorIs(t, err, shared.ErrInvalidYear)

		_, _, err = svc.ListForYear(ctx, 2024, RecordListFilter{})
		assert.ErrorIs(t, err, shared.ErrInvalidYear)
	})

	t.Run("lists a canonical page", func(t *testing.T) {
		store := newFakeRecordStore()
		svc, _, _ := newTestService(store)
		for _, accountNo := range []string{"1001", "1002", "1003"} {
			_, err := svc.Create(ctx, CreateRecordRequest{AccountNo: accountNo}, rc)
			require.NoError(t, err)
		}

		records, total, err := svc.List(ctx, RecordListFilter{Page: 1, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, records, 3)
	})
}
