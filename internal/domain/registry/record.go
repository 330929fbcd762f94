package registry

import "fmt"

// Year identifies one of the fixed business-record partitions.
type Year int

const (
	// CanonicalYear is the earliest partition. Its records are the source of
	// truth and the only ones edited directly; every later partition holds a
	// derived projection.
	CanonicalYear Year = 2025

	// MaxYear is the last partition that receives cascaded projections.
	MaxYear Year = 2030
)

// Valid reports whether y falls inside the configured partition range.
func (y Year) Valid() bool {
	return y >= CanonicalYear && y <= MaxYear
}

// Years returns every configured partition year in ascending order.
func Years() []Year {
	years := make([]Year, 0, int(MaxYear-CanonicalYear)+1)
	for y := CanonicalYear; y <= MaxYear; y++ {
		years = append(years, y)
	}
	return years
}

// YearsAfter returns the partition years strictly greater than y, ascending.
// Propagation only ever flows through these years; there is no backward or
// lateral path.
func YearsAfter(y Year) []Year {
	var years []Year
	for target := y + 1; target <= MaxYear; target++ {
		years = append(years, target)
	}
	return years
}

// PartitionName returns the storage partition name for a year, used as the
// target identifier in audit entries.
func PartitionName(y Year) string {
	return fmt.Sprintf("businesses_%d", y)
}

// StatusKey returns the name of the year-scoped status extension field.
func StatusKey(y Year) string {
	return fmt.Sprintf("%d_STATUS", y)
}

// NotesKey returns the name of the year-scoped notes extension field.
func NotesKey(y Year) string {
	return fmt.Sprintf("%d_NOTES", y)
}

// Canonical field names within a partition document.
const (
	FieldAccountNo         = "accountNo"
	FieldApplicationDate   = "applicationDate"
	FieldReceiptNo         = "receiptNo"
	FieldAmountPaid        = "amountPaid"
	FieldPaymentDate       = "paymentDate"
	FieldRiskStatus        = "riskStatus"
	FieldApplicationStatus = "applicationStatus"
	FieldBusinessName      = "businessName"
	FieldOwnerName         = "ownerName"
	FieldAddress           = "address"
	FieldBarangay          = "barangay"
	FieldNatureOfBusiness  = "natureOfBusiness"
	FieldRemarks           = "remarks"
)

// BaseFields lists the canonical field names shared by every partition, in
// their persisted order. Year-scoped extension fields are excluded.
func BaseFields() []string {
	return []string{
		FieldAccountNo,
		FieldApplicationDate,
		FieldReceiptNo,
		FieldAmountPaid,
		FieldPaymentDate,
		FieldRiskStatus,
		FieldApplicationStatus,
		FieldBusinessName,
		FieldOwnerName,
		FieldAddress,
		FieldBarangay,
		FieldNatureOfBusiness,
		FieldRemarks,
	}
}

// Document is the partition-level representation of a business record: the
// base fields plus exactly one year-scoped extension pair. A partition's
// document never carries extension fields for any year other than its own.
type Document map[string]any

// AccountNo returns the document's account number, or "" when absent or not
// a string.
func (d Document) AccountNo() string {
	if v, ok := d[FieldAccountNo].(string); ok {
		return v
	}
	return ""
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
