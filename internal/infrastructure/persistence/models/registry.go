package models

import (
	"time"

	"github.com/bplo/backend/internal/domain/registry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BusinessRecordModel is the persistence model for one year partition row of a
// business record. The year-scoped extension pair is stored in plain status
// and notes columns; the year column scopes them, so the document keys
// (<year>_STATUS, <year>_NOTES) only exist in the document representation.
type BusinessRecordModel struct {
	BaseModel
	Year              int              `gorm:"not null;uniqueIndex:idx_business_records_year_account"`
	AccountNo         string           `gorm:"size:50;not null;uniqueIndex:idx_business_records_year_account"`
	ApplicationDate   *time.Time       ``
	ReceiptNo         *string          `gorm:"size:100"`
	AmountPaid        *decimal.Decimal `gorm:"type:numeric(14,2)"`
	PaymentDate       *time.Time       ``
	RiskStatus        *string          `gorm:"size:50"`
	ApplicationStatus *string          `gorm:"size:50"`
	BusinessName      *string          `gorm:"size:255"`
	OwnerName         *string          `gorm:"size:255"`
	Address           *string          `gorm:"size:500"`
	Barangay          *string          `gorm:"size:100"`
	NatureOfBusiness  *string          `gorm:"size:255"`
	Remarks           *string          `gorm:"type:text"`
	Status            string           `gorm:"size:100;not null;default:''"`
	Notes             string           `gorm:"type:text;not null;default:''"`
}

// TableName specifies the table name for BusinessRecordModel
func (BusinessRecordModel) TableName() string {
	return "business_records"
}

// ToDocument converts the row to its document representation: every base
// field present (nil when the column is null), plus the row's year-scoped
// extension pair under its year-named keys.
func (m *BusinessRecordModel) ToDocument() registry.Document {
	year := registry.Year(m.Year)
	doc := registry.Document{
		registry.FieldAccountNo:         m.AccountNo,
		registry.FieldApplicationDate:   timeValue(m.ApplicationDate),
		registry.FieldReceiptNo:         stringValue(m.ReceiptNo),
		registry.FieldAmountPaid:        decimalValue(m.AmountPaid),
		registry.FieldPaymentDate:       timeValue(m.PaymentDate),
		registry.FieldRiskStatus:        stringValue(m.RiskStatus),
		registry.FieldApplicationStatus: stringValue(m.ApplicationStatus),
		registry.FieldBusinessName:      stringValue(m.BusinessName),
		registry.FieldOwnerName:         stringValue(m.OwnerName),
		registry.FieldAddress:           stringValue(m.Address),
		registry.FieldBarangay:          stringValue(m.Barangay),
		registry.FieldNatureOfBusiness:  stringValue(m.NatureOfBusiness),
		registry.FieldRemarks:           stringValue(m.Remarks),
	}
	doc[registry.StatusKey(year)] = m.Status
	doc[registry.NotesKey(year)] = m.Notes
	return doc
}

// FromDocument populates the row columns from a document for the given year.
// The document is expected in storage shape; unknown keys are ignored.
func (m *BusinessRecordModel) FromDocument(year registry.Year, doc registry.Document) {
	m.Year = int(year)
	m.AccountNo = doc.AccountNo()
	m.ApplicationDate = docTime(doc, registry.FieldApplicationDate)
	m.ReceiptNo = docString(doc, registry.FieldReceiptNo)
	m.AmountPaid = docDecimal(doc, registry.FieldAmountPaid)
	m.PaymentDate = docTime(doc, registry.FieldPaymentDate)
	m.RiskStatus = docString(doc, registry.FieldRiskStatus)
	m.ApplicationStatus = docString(doc, registry.FieldApplicationStatus)
	m.BusinessName = docString(doc, registry.FieldBusinessName)
	m.OwnerName = docString(doc, registry.FieldOwnerName)
	m.Address = docString(doc, registry.FieldAddress)
	m.Barangay = docString(doc, registry.FieldBarangay)
	m.NatureOfBusiness = docString(doc, registry.FieldNatureOfBusiness)
	m.Remarks = docString(doc, registry.FieldRemarks)
	m.Status = docExtension(doc, registry.StatusKey(year))
	m.Notes = docExtension(doc, registry.NotesKey(year))
}

// ToStoredDocument converts the row to the domain's stored document.
func (m *BusinessRecordModel) ToStoredDocument() *registry.StoredDocument {
	return &registry.StoredDocument{
		ID:        m.ID,
		Year:      registry.Year(m.Year),
		Document:  m.ToDocument(),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// AuditLogModel is the persistence model for one immutable audit trail entry.
// Rows are append-only; nothing in the application updates or deletes them.
type AuditLogModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	Action     string    `gorm:"size:20;not null;index"`
	Partition  string    `gorm:"size:50;not null;index"`
	DocumentID string    `gorm:"size:64;not null"`
	AccountNo  *string   `gorm:"size:50;index"`
	UserID     string    `gorm:"size:64"`
	Timestamp  time.Time `gorm:"not null;index"`
	Changes    []byte    `gorm:"type:jsonb"`
	IPAddress  string    `gorm:"size:45"`
	UserAgent  string    `gorm:"size:255"`
}

// TableName specifies the table name for AuditLogModel
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

func stringValue(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func timeValue(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

func decimalValue(v *decimal.Decimal) any {
	if v == nil {
		return nil
	}
	return *v
}

func docString(doc registry.Document, field string) *string {
	if s, ok := doc[field].(string); ok {
		return &s
	}
	return nil
}

func docTime(doc registry.Document, field string) *time.Time {
	if t, ok := doc[field].(time.Time); ok {
		return &t
	}
	return nil
}

func docDecimal(doc registry.Document, field string) *decimal.Decimal {
	if d, ok := doc[field].(decimal.Decimal); ok {
		return &d
	}
	return nil
}

func docExtension(doc registry.Document, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}
