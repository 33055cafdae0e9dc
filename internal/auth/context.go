package auth

import (
	"context"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID   uuid.UUID
	Username string
	FullName string
	Email    string
	Role     domain.UserRole
	BranchID *uuid.UUID
}

type contextKey string

const userContextKey contextKey = "userContext"
const branchFilterKey contextKey = "branchFilter"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRole) bool {
	return u.Role == role
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user sees every branch
func (u *UserContext) IsAdmin() bool {
	return u.HasRole(domain.RoleAdmin)
}

// CanAccessBranch checks if user can access data for a specific branch
func (u *UserContext) CanAccessBranch(branchID uuid.UUID) bool {
	if u.IsAdmin() || u.BranchID == nil {
		return true
	}
	return *u.BranchID == branchID
}

// GetBranchFilter returns the branch to filter queries by.
// Returns nil for admins and for users without a branch.
func (u *UserContext) GetBranchFilter() *uuid.UUID {
	if u.IsAdmin() {
		return nil
	}
	return u.BranchID
}

// DisplayName is the name written into history rows and remarks
func (u *UserContext) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// BranchFilter represents the effective branch filter for queries.
// It is set by middleware from the user context and the ?branch query parameter.
type BranchFilter struct {
	// BranchID is the branch to filter by (nil means all branches)
	BranchID *uuid.UUID
	// RequestedByAdmin indicates an admin explicitly narrowed to one branch
	RequestedByAdmin bool
}

// WithBranchFilter adds branch filter to the context
func WithBranchFilter(ctx context.Context, filter *BranchFilter) context.Context {
	return context.WithValue(ctx, branchFilterKey, filter)
}

// BranchFilterFromContext extracts branch filter from the context
func BranchFilterFromContext(ctx context.Context) (*BranchFilter, bool) {
	filter, ok := ctx.Value(branchFilterKey).(*BranchFilter)
	return filter, ok
}

// GetEffectiveBranchFilter returns the branch repositories should scope to.
// Returns nil if no filtering should be applied.
func GetEffectiveBranchFilter(ctx context.Context) *uuid.UUID {
	if filter, ok := BranchFilterFromContext(ctx); ok && filter != nil {
		return filter.BranchID
	}
	if userCtx, ok := FromContext(ctx); ok {
		return userCtx.GetBranchFilter()
	}
	return nil
}
