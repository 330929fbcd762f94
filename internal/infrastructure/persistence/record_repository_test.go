package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/bplo/backend/internal/domain/registry"
	"github.com/bplo/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bplo/backend/internal/infrastructure/persistence/models"
)

func setupRecordTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.BusinessRecordModel{})
	require.NoError(t, err)

	return db
}

func storageDoc(accountNo string) registry.Document {
	amount := decimal.NewFromFloat(1500.50)
	doc := registry.ToStorageShape(registry.Document{
		registry.FieldAccountNo:       accountNo,
		registry.FieldBusinessName:    "ACME LAUNDRY",
		registry.FieldBarangay:        "POBLACION",
		registry.FieldAmountPaid:      amount,
		registry.FieldApplicationDate: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
	})
	doc[registry.StatusKey(2025)] = "RENEWED"
	doc[registry.NotesKey(2025)] = "walk-in"
	return doc
}

func TestGormRecordStore_InsertAndGet(t *testing.T) {
	db := setupRecordTestDB(t)
	store := NewGormRecordStore(db)
	ctx := context.Background()

	t.Run("round-trips a full record", func(t *testing.T) {
		doc := storageDoc("1001")

		stored, err := store.Insert(ctx, 2025, doc)
		require.NoError(t, err)
		assert.NotEqual(t, "", stored.ID.String())
		assert.Equal(t, registry.Year(2025), stored.Year)

		found, err := store.Get(ctx, 2025, "1001")
		require.NoError(t, err)
		assert.Equal(t, "1001", found.Document.AccountNo())
		assert.Equal(t, "ACME LAUNDRY", found.Document[registry.FieldBusinessName])
		assert.Equal(t, "RENEWED", found.Document[registry.StatusKey(2025)])
		assert.Equal(t, "walk-in", found.Document[registry.NotesKey(2025)])
		assert.Nil(t, found.Document[registry.FieldReceiptNo])

		amount, ok := found.Document[registry.FieldAmountPaid].(decimal.Decimal)
		require.True(t, ok)
		assert.True(t, amount.Equal(decimal.NewFromFloat(1500.50)))
	})

	t.Run("rejects duplicate account numbers within a partition", func(t *testing.T) {
		_, err := store.Insert(ctx, 2025, storageDoc("1001"))
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("same account number in another partition is fine", func(t *testing.T) {
		_, err := store.Insert(ctx, 2026, registry.ProjectForYear(storageDoc("1001"), 2026))
		assert.NoError(t, err)
	})

	t.Run("missing record returns not found", func(t *testing.T) {
		_, err := store.Get(ctx, 2025, "9999")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormRecordStore_Upsert(t *testing.T) {
	db := setupRecordTestDB(t)
	store := NewGormRecordStore(db)
	ctx := context.Background()

	t.Run("creates when absent", func(t *testing.T) {
		stored, err := store.Upsert(ctx, 2026, registry.ProjectForYear(storageDoc("2001"), 2026))
		require.NoError(t, err)
		assert.Equal(t, "2001", stored.Document.AccountNo())
		assert.Equal(t, "", stored.Document[registry.StatusKey(2026)])
	})

	t.Run("replaces every data column and keeps row identity", func(t *testing.T) {
		first, err := store.Get(ctx, 2026, "2001")
		require.NoError(t, err)

		replacement := registry.ProjectForYear(registry.ToStorageShape(registry.Document{
			registry.FieldAccountNo:    "2001",
			registry.FieldBusinessName: "RENAMED CORP",
		}), 2026)

		stored, err := store.Upsert(ctx, 2026, replacement)
		require.NoError(t, err)
		assert.Equal(t, first.ID, stored.ID)
		assert.Equal(t, "RENAMED CORP", stored.Document[registry.FieldBusinessName])
		assert.Nil(t, stored.Document[registry.FieldBarangay])
	})
}

func TestGormRecordStore_Delete(t *testing.T) {
	db := setupRecordTestDB(t)
	store := NewGormRecordStore(db)
	ctx := context.Background()

	_, err := store.Insert(ctx, 2025, storageDoc("3001"))
	require.NoError(t, err)

	t.Run("deletes only the targeted partition", func(t *testing.T) {
		_, err := store.Insert(ctx, 2026, registry.ProjectForYear(storageDoc("3001"), 2026))
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, 2025, "3001"))

		_, err = store.Get(ctx, 2025, "3001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = store.Get(ctx, 2026, "3001")
		assert.NoError(t, err)
	})

	t.Run("missing record returns not found", func(t *testing.T) {
		err := store.Delete(ctx, 2025, "3001")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormRecordStore_List(t *testing.T) {
	db := setupRecordTestDB(t)
	store := NewGormRecordStore(db)
	ctx := context.Background()

	seed := map[string]string{
		"1001": "ACME LAUNDRY",
		"1002": "BETA BAKERY",
		"1003": "GAMMA GROCERY",
	}
	for accountNo, name := range seed {
		doc := registry.ToStorageShape(registry.Document{
			registry.FieldAccountNo:    accountNo,
			registry.FieldBusinessName: name,
		})
		doc[registry.StatusKey(2025)] = ""
		doc[registry.NotesKey(2025)] = ""
		_, err := store.Insert(ctx, 2025, doc)
		require.NoError(t, err)
	}

	t.Run("pages in account number order", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 2

		records, total, err := store.List(ctx, 2025, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, records, 2)
		assert.Equal(t, "1001", records[0].Document.AccountNo())
		assert.Equal(t, "1002", records[1].Document.AccountNo())

		filter.Page = 2
		records, _, err = store.List(ctx, 2025, filter)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "1003", records[0].Document.AccountNo())
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Search = "bakery"

		records, total, err := store.List(ctx, 2025, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, records, 1)
		assert.Equal(t, "1002", records[0].Document.AccountNo())
	})

	t.Run("sorts by a whitelisted column", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = "business_name"
		filter.OrderDir = "desc"

		records, _, err := store.List(ctx, 2025, filter)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "1003", records[0].Document.AccountNo())
		assert.Equal(t, "1001", records[2].Document.AccountNo())
	})

	t.Run("ignores a non-whitelisted sort column", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.OrderBy = "id; DROP TABLE business_records"

		records, _, err := store.List(ctx, 2025, filter)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "1001", records[0].Document.AccountNo())
	})

	t.Run("other partitions are invisible", func(t *testing.T) {
		records, total, err := store.List(ctx, 2026, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		assert.Empty(t, records)
	})
}

func TestGormRecordStore_AccountNumbers(t *testing.T) {
	db := setupRecordTestDB(t)
	store := NewGormRecordStore(db)
	ctx := context.Background()

	for _, accountNo := range []string{"1003", "1001", "1002"} {
		doc := registry.ToStorageShape(registry.Document{registry.FieldAccountNo: accountNo})
		doc[registry.StatusKey(2027)] = ""
		doc[registry.NotesKey(2027)] = ""
		_, err := store.Insert(ctx, 2027, doc)
		require.NoError(t, err)
	}

	accounts, err := store.AccountNumbers(ctx, 2027)
	require.NoError(t, err)
	assert.Equal(t, []string{"1001", "1002", "1003"}, accounts)

	accounts, err = store.AccountNumbers(ctx, 2028)
	require.NoError(t, err)
	assert.Empty(t, accounts)
}
