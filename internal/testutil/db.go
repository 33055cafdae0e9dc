// Package testutil provides database fixtures for package tests
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/database"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SetupTestDB opens a fresh in-memory SQLite database with the schema migrated
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err, "Failed to open in-memory test database")

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateTestBranch creates a branch with the given name
func CreateTestBranch(t *testing.T, db *gorm.DB, name string) *domain.Branch {
	t.Helper()
	branch := &domain.Branch{Name: name, Location: name + " office"}
	require.NoError(t, db.Create(branch).Error)
	return branch
}

// CreateTestUser creates an active user with the given role in branchID
func CreateTestUser(t *testing.T, db *gorm.DB, role domain.UserRole, branchID *uuid.UUID) *domain.User {
	t.Helper()
	n := uniqueSuffix()
	user := &domain.User{
		FirstName:    string(role),
		LastName:     n,
		Username:     fmt.Sprintf("%s-%s", role, n),
		Email:        fmt.Sprintf("%s-%s@example.com", role, n),
		Role:         role,
		BranchID:     branchID,
		Status:       domain.UserStatusActive,
		PasswordHash: "x",
	}
	require.NoError(t, db.Omit(clause.Associations).Create(user).Error)
	return user
}

// CreateTestCustomer creates a customer in branchID
func CreateTestCustomer(t *testing.T, db *gorm.DB, name string, branchID *uuid.UUID) *domain.Customer {
	t.Helper()
	customer := &domain.Customer{
		Name:     name,
		Phone:    "0300" + uniqueSuffix()[:7],
		Email:    "customer@example.com",
		BranchID: branchID,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(customer).Error)
	return customer
}

// CreateTestWorkOrder creates a work order for customer in the given status
func CreateTestWorkOrder(t *testing.T, db *gorm.DB, customer *domain.Customer, category domain.ProjectCategory, status lifecycle.Status, technicianID *uuid.UUID) *domain.WorkOrder {
	t.Helper()
	workOrder := &domain.WorkOrder{
		OrderID:         "WO-TEST-" + uniqueSuffix(),
		CustomerID:      customer.ID,
		ProjectType:     "Solar Panel",
		ProjectCategory: category,
		Status:          status,
		TechnicianID:    technicianID,
		BranchID:        customer.BranchID,
	}
	require.NoError(t, db.Omit(clause.Associations).Create(workOrder).Error)
	return workOrder
}

// ContextFor returns a context authenticated as user
func ContextFor(user *domain.User) context.Context {
	return auth.WithUserContext(context.Background(), UserContextFor(user))
}

// UserContextFor builds the session view of user
func UserContextFor(user *domain.User) *auth.UserContext {
	return &auth.UserContext{
		UserID:   user.ID,
		Username: user.Username,
		FullName: user.FullName(),
		Email:    user.Email,
		Role:     user.Role,
		BranchID: user.BranchID,
	}
}

// AdminContext returns a context for an admin that exists only in the session
func AdminContext() context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:   uuid.New(),
		Username: "admin",
		FullName: "Test Admin",
		Email:    "admin@example.com",
		Role:     domain.RoleAdmin,
	})
}

func uniqueSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
