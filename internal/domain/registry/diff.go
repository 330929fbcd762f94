package registry

import (
	"reflect"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Change captures a single field transition for an audit entry.
type Change struct {
	Before any `json:"before"`
	After  any `json:"after"`
}

// Changes maps field names to their before/after values.
type Changes map[string]Change

// Diff computes a shallow, top-level field diff between two versions of a
// document. A field is reported only when its values differ; fields equal
// under value comparison (including two nils) are omitted. Nested values are
// compared by value equality only, never by a recursive structural diff;
// the contract is scoped to top-level fields. Empty inputs produce an empty
// diff; the function never fails.
func Diff(before, after Document) Changes {
	changes := make(Changes)
	for _, field := range fieldUnion(before, after) {
		b, a := before[field], after[field]
		if !valuesEqual(b, a) {
			changes[field] = Change{Before: b, After: a}
		}
	}
	return changes
}

func fieldUnion(before, after Document) []string {
	seen := make(map[string]struct{}, len(before)+len(after))
	for k := range before {
		seen[k] = struct{}{}
	}
	for k := range after {
		seen[k] = struct{}{}
	}
	fields := make([]string, 0, len(seen))
	for k := range seen {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// valuesEqual compares two field values. Decimals and times get semantic
// comparison because their struct representations differ for equal values.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := b.(decimal.Decimal); ok {
			return da.Equal(db)
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
