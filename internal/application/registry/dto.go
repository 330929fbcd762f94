package registry

import (
	"time"

	"github.com/bplo/backend/internal/domain/registry"
	"github.com/shopspring/decimal"
)

// CreateRecordRequest carries an externally-shaped canonical-year record.
// Field names follow the public API; the field transformer renames them to
// the partition schema.
type CreateRecordRequest struct {
	AccountNo         string           `json:"accountNo" binding:"required,max=50"`
	ApplicationDate   *string          `json:"applicationDate"`
	OrNumber          *string          `json:"orNumber"`
	AmountPaid        *decimal.Decimal `json:"amountPaid"`
	PaymentDate       *string          `json:"paymentDate"`
	RiskStatus        *string          `json:"riskStatus"`
	ApplicationStatus *string          `json:"applicationStatus"`
	BusinessName      *string          `json:"businessName"`
	OwnerName         *string          `json:"ownerName"`
	Address           *string          `json:"address"`
	Barangay          *string          `json:"barangay"`
	NatureOfBusiness  *string          `json:"natureOfBusiness"`
	Remarks           *string          `json:"remarks"`
	Status            *string          `json:"status"`
	Notes             *string          `json:"notes"`
}

// UpdateRecordRequest is a full-record update: the canonical record is
// replaced with the shaped request, so omitted optional fields become null.
// The account number comes from the URL and cannot be changed.
type UpdateRecordRequest struct {
	ApplicationDate   *string          `json:"applicationDate"`
	OrNumber          *string          `json:"orNumber"`
	AmountPaid        *decimal.Decimal `json:"amountPaid"`
	PaymentDate       *string          `json:"paymentDate"`
	RiskStatus        *string          `json:"riskStatus"`
	ApplicationStatus *string          `json:"applicationStatus"`
	BusinessName      *string          `json:"businessName"`
	OwnerName         *string          `json:"ownerName"`
	Address           *string          `json:"address"`
	Barangay          *string          `json:"barangay"`
	NatureOfBusiness  *string          `json:"natureOfBusiness"`
	Remarks           *string          `json:"remarks"`
	Status            *string          `json:"status"`
	Notes             *string          `json:"notes"`
}

// Document returns the externally-keyed input document for the transformer.
func (r CreateRecordRequest) Document() registry.Document {
	doc := registry.Document{registry.FieldAccountNo: r.AccountNo}
	putString(doc, "applicationDate", r.ApplicationDate)
	putString(doc, "orNumber", r.OrNumber)
	if r.AmountPaid != nil {
		doc[registry.FieldAmountPaid] = *r.AmountPaid
	}
	putString(doc, "paymentDate", r.PaymentDate)
	putString(doc, registry.FieldRiskStatus, r.RiskStatus)
	putString(doc, registry.FieldApplicationStatus, r.ApplicationStatus)
	putString(doc, registry.FieldBusinessName, r.BusinessName)
	putString(doc, registry.FieldOwnerName, r.OwnerName)
	putString(doc, registry.FieldAddress, r.Address)
	putString(doc, registry.FieldBarangay, r.Barangay)
	putString(doc, registry.FieldNatureOfBusiness, r.NatureOfBusiness)
	putString(doc, registry.FieldRemarks, r.Remarks)
	return doc
}

// Document returns the externally-keyed input document for the transformer.
func (r UpdateRecordRequest) Document() registry.Document {
	doc := registry.Document{}
	putString(doc, "applicationDate", r.ApplicationDate)
	putString(doc, "orNumber", r.OrNumber)
	if r.AmountPaid != nil {
		doc[registry.FieldAmountPaid] = *r.AmountPaid
	}
	putString(doc, "paymentDate", r.PaymentDate)
	putString(doc, registry.FieldRiskStatus, r.RiskStatus)
	putString(doc, registry.FieldApplicationStatus, r.ApplicationStatus)
	putString(doc, registry.FieldBusinessName, r.BusinessName)
	putString(doc, registry.FieldOwnerName, r.OwnerName)
	putString(doc, registry.FieldAddress, r.Address)
	putString(doc, registry.FieldBarangay, r.Barangay)
	putString(doc, registry.FieldNatureOfBusiness, r.NatureOfBusiness)
	putString(doc, registry.FieldRemarks, r.Remarks)
	return doc
}

func putString(doc registry.Document, key string, value *string) {
	if value != nil {
		doc[key] = *value
	}
}

// RecordListFilter carries list query parameters for a partition.
type RecordListFilter struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Search    string `form:"search"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}

// RecordResponse is the API representation of a stored partition record.
type RecordResponse struct {
	ID        string            `json:"id"`
	Year      int               `json:"year"`
	Record    registry.Document `json:"record"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ReconcileReport summarizes one reconciliation run.
type ReconcileReport struct {
	CanonicalRecords int `json:"canonical_records"`
	RecordsSynced    int `json:"records_synced"`
	OrphansRemoved   int `json:"orphans_removed"`
}

func toRecordResponse(stored *registry.StoredDocument) *RecordResponse {
	return &RecordResponse{
		ID:        stored.ID.String(),
		Year:      int(stored.Year),
		Record:    stored.Document,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}
}
