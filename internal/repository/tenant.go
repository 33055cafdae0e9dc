package repository

import (
	"context"
	"strings"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxPageSize is the maximum allowed page size for paginated queries
const MaxPageSize = 200

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SortConfig holds sorting configuration for list queries
type SortConfig struct {
	Field string    // The field to sort by (API field name)
	Order SortOrder // asc or desc
}

// DefaultSortConfig returns a default sort configuration (updated_at DESC)
func DefaultSortConfig() SortConfig {
	return SortConfig{
		Field: "updatedAt",
		Order: SortOrderDesc,
	}
}

// ParseSortOrder parses a string into SortOrder, defaulting to desc
func ParseSortOrder(s string) SortOrder {
	if strings.ToLower(s) == "asc" {
		return SortOrderAsc
	}
	return SortOrderDesc
}

// BuildOrderClause builds the SQL ORDER BY clause from field mapping and sort config.
// Returns the default sort if field is not in the whitelist.
func BuildOrderClause(config SortConfig, fieldMap map[string]string, defaultColumn string) string {
	column, ok := fieldMap[config.Field]
	if !ok {
		column = defaultColumn
	}

	order := "DESC"
	if config.Order == SortOrderAsc {
		order = "ASC"
	}

	return column + " " + order
}

// ApplyBranchFilter scopes a query to the caller's effective branch.
// Admins without an explicit ?branch see every branch and the query is returned unchanged.
func ApplyBranchFilter(ctx context.Context, query *gorm.DB) *gorm.DB {
	return ApplyBranchFilterWithColumn(ctx, query, "branch_id")
}

// ApplyBranchFilterWithColumn applies the branch filter using a specific column name
func ApplyBranchFilterWithColumn(ctx context.Context, query *gorm.DB, columnName string) *gorm.DB {
	branchID := auth.GetEffectiveBranchFilter(ctx)
	if branchID != nil {
		return query.Where(columnName+" = ?", *branchID)
	}
	return query
}

// applyExplicitBranch narrows a query to a branch requested by the caller
func applyExplicitBranch(query *gorm.DB, branchID *uuid.UUID) *gorm.DB {
	if branchID != nil {
		return query.Where("branch_id = ?", *branchID)
	}
	return query
}

// HasBranchAccess checks whether a record's branch is visible to the caller.
// Records without a branch are visible to everyone.
func HasBranchAccess(ctx context.Context, recordBranchID *uuid.UUID) bool {
	branchID := auth.GetEffectiveBranchFilter(ctx)
	if branchID == nil || recordBranchID == nil {
		return true
	}
	return *branchID == *recordBranchID
}

func offsetFor(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
