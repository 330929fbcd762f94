package registry

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// upper performs the case mapping used for search normalization. English
// casing rules are close enough for the Latin-script data this office holds.
var upper = cases.Upper(language.English)

// uppercaseFields is the allow-list of fields normalized to uppercase so that
// later equality and search comparisons are case-insensitive without a
// separate search index.
var uppercaseFields = map[string]struct{}{
	FieldAccountNo:         {},
	FieldReceiptNo:         {},
	FieldRiskStatus:        {},
	FieldApplicationStatus: {},
	FieldBusinessName:      {},
	FieldOwnerName:         {},
	FieldAddress:           {},
	FieldBarangay:          {},
	FieldNatureOfBusiness:  {},
}

// renamedFields maps externally-facing request keys to their partition field
// names. Keys not listed here keep their external name.
var renamedFields = map[string]string{
	"orNumber": FieldReceiptNo,
}

// dateFields are coerced to a time value, or nil when absent or unparseable.
var dateFields = map[string]struct{}{
	FieldApplicationDate: {},
	FieldPaymentDate:     {},
}

// dateLayouts accepted for date-like string inputs.
var dateLayouts = []string{"2006-01-02", time.RFC3339, "01/02/2006"}

// NormalizeUppercase uppercases the allow-listed string fields of a document.
// Fields that are absent or not strings pass through unchanged. The input is
// not mutated.
func NormalizeUppercase(doc Document) Document {
	out := doc.Clone()
	for field := range uppercaseFields {
		if s, ok := out[field].(string); ok {
			out[field] = upper.String(s)
		}
	}
	return out
}

// NormalizeAccountNo applies the same case mapping to a lookup key that
// NormalizeUppercase applies on write, so a record stored under an
// uppercased account number stays reachable with whatever casing the
// caller supplies.
func NormalizeAccountNo(accountNo string) string {
	return upper.String(strings.TrimSpace(accountNo))
}

// ToStorageShape maps an externally-shaped input document to the partition
// storage schema: external keys are renamed to their partition field names,
// date-like values are coerced to a time value or nil, and the amount field
// is coerced to a decimal or nil. Every base field is present in the result;
// missing optional fields become nil. The function is total and never fails
// on missing or malformed optional input.
func ToStorageShape(input Document) Document {
	out := make(Document, len(BaseFields()))

	renamed := make(Document, len(input))
	for k, v := range input {
		if internal, ok := renamedFields[k]; ok {
			k = internal
		}
		renamed[k] = v
	}

	for _, field := range BaseFields() {
		v, ok := renamed[field]
		if !ok || v == nil {
			out[field] = nil
			continue
		}
		switch {
		case field == FieldAmountPaid:
			out[field] = coerceAmount(v)
		default:
			if _, isDate := dateFields[field]; isDate {
				out[field] = coerceDate(v)
			} else {
				out[field] = coerceString(v)
			}
		}
	}
	return out
}

// StripExtensions returns a copy of the document without any year-scoped
// extension fields, for any configured year. The result is the base
// projection that cascades forward.
func StripExtensions(doc Document) Document {
	out := doc.Clone()
	for _, y := range Years() {
		delete(out, StatusKey(y))
		delete(out, NotesKey(y))
	}
	return out
}

// ProjectForYear produces the year-scoped projection of a base record: all
// extension fields for every year are removed, then a fresh, empty pair for
// the target year is attached. The function is pure and total; projecting a
// projection yields the same result, which is what makes the forward cascade
// idempotent.
func ProjectForYear(base Document, year Year) Document {
	out := StripExtensions(base)
	out[StatusKey(year)] = ""
	out[NotesKey(year)] = ""
	return out
}

func coerceString(v any) any {
	switch s := v.(type) {
	case string:
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		return s
	default:
		return v
	}
}

func coerceDate(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	case string:
		if t == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
		return nil
	default:
		return nil
	}
}

func coerceAmount(v any) any {
	switch a := v.(type) {
	case decimal.Decimal:
		return a
	case *decimal.Decimal:
		if a == nil {
			return nil
		}
		return *a
	case float64:
		return decimal.NewFromFloat(a)
	case int:
		return decimal.NewFromInt(int64(a))
	case int64:
		return decimal.NewFromInt(a)
	case json.Number:
		if d, err := decimal.NewFromString(a.String()); err == nil {
			return d
		}
		return nil
	case string:
		if a == "" {
			return nil
		}
		if d, err := decimal.NewFromString(a); err == nil {
			return d
		}
		return nil
	default:
		return nil
	}
}
