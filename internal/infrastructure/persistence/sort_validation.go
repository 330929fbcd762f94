package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "ASC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "DESC" {
		return "DESC"
	}
	return "ASC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// BusinessRecordSortFields contains allowed sort fields for business records
var BusinessRecordSortFields = map[string]bool{
	"account_no":         true,
	"business_name":      true,
	"owner_name":         true,
	"barangay":           true,
	"application_status": true,
	"application_date":   true,
	"created_at":         true,
	"updated_at":         true,
}

// AuditLogSortFields contains allowed sort fields for audit log entries
var AuditLogSortFields = map[string]bool{
	"timestamp":  true,
	"action":     true,
	"partition":  true,
	"account_no": true,
}
