package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/fieldline/crm-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{"name": "name", "updatedAt": "updated_at"}

	assert.Equal(t, "name ASC", repository.BuildOrderClause(repository.SortConfig{Field: "name", Order: repository.SortOrderAsc}, fields, "created_at"))
	assert.Equal(t, "created_at DESC", repository.BuildOrderClause(repository.SortConfig{Field: "drop table", Order: repository.ParseSortOrder("ASC; --")}, fields, "created_at"))
	assert.Equal(t, "updated_at DESC", repository.BuildOrderClause(repository.DefaultSortConfig(), fields, "created_at"))
}

func TestHasBranchAccess(t *testing.T) {
	north, south := uuid.New(), uuid.New()
	scoped := auth.WithUserContext(context.Background(), &auth.UserContext{Role: domain.RoleManager, BranchID: &north})
	admin := auth.WithUserContext(context.Background(), &auth.UserContext{Role: domain.RoleAdmin})

	assert.True(t, repository.HasBranchAccess(scoped, &north))
	assert.False(t, repository.HasBranchAccess(scoped, &south))
	assert.True(t, repository.HasBranchAccess(scoped, nil), "unbranched records are shared")
	assert.True(t, repository.HasBranchAccess(admin, &south))

	narrowed := auth.WithBranchFilter(admin, &auth.BranchFilter{BranchID: &north, RequestedByAdmin: true})
	assert.False(t, repository.HasBranchAccess(narrowed, &south))
}

func seedTwoBranches(t *testing.T, db *gorm.DB) (north, south *domain.Branch) {
	t.Helper()
	north = testutil.CreateTestBranch(t, db, "North")
	south = testutil.CreateTestBranch(t, db, "South")

	for _, b := range []*domain.Branch{north, south} {
		customer := testutil.CreateTestCustomer(t, db, b.Name+" Customer", &b.ID)
		testutil.CreateTestWorkOrder(t, db, customer, domain.CategoryNewInstallation, lifecycle.StatusPending, nil)
		testutil.CreateTestWorkOrder(t, db, customer, domain.CategoryNewInstallation, lifecycle.StatusCompleted, nil)
	}
	return north, south
}

func TestWorkOrderRepository_BranchScoping(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWorkOrderRepository(db)
	north, south := seedTwoBranches(t, db)

	manager := testutil.CreateTestUser(t, db, domain.RoleManager, &north.ID)
	managerCtx := testutil.ContextFor(manager)

	t.Run("staff see their own branch", func(t *testing.T) {
		orders, err := repo.List(managerCtx, domain.WorkOrderFilters{})
		require.NoError(t, err)
		assert.Len(t, orders, 2)
		for _, o := range orders {
			assert.Equal(t, north.ID, *o.BranchID)
		}
	})

	t.Run("explicit branch cannot widen staff scope", func(t *testing.T) {
		orders, err := repo.List(managerCtx, domain.WorkOrderFilters{BranchID: &south.ID})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})

	t.Run("admin sees everything or narrows", func(t *testing.T) {
		orders, err := repo.List(testutil.AdminContext(), domain.WorkOrderFilters{})
		require.NoError(t, err)
		assert.Len(t, orders, 4)

		orders, err = repo.List(testutil.AdminContext(), domain.WorkOrderFilters{BranchID: &south.ID})
		require.NoError(t, err)
		assert.Len(t, orders, 2)
	})

	t.Run("status filter and counts", func(t *testing.T) {
		pending := lifecycle.StatusPending
		orders, err := repo.List(testutil.AdminContext(), domain.WorkOrderFilters{Status: &pending})
		require.NoError(t, err)
		assert.Len(t, orders, 2)

		counts, err := repo.CountByStatus(managerCtx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[lifecycle.StatusPending])
		assert.Equal(t, 1, counts[lifecycle.StatusCompleted])
	})
}

func TestWorkOrderRepository_IncomingTransferScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWorkOrderRepository(db)
	north, south := seedTwoBranches(t, db)
	customer := testutil.CreateTestCustomer(t, db, "Moving Customer", &north.ID)
	moving := testutil.CreateTestWorkOrder(t, db, customer, domain.CategoryNewInstallation, lifecycle.StatusTransferring, nil)
	require.NoError(t, db.Model(moving).Update("transfer_to_branch_id", south.ID).Error)

	southCtx := testutil.ContextFor(testutil.CreateTestUser(t, db, domain.RoleManager, &south.ID))

	orders, err := repo.List(southCtx, domain.WorkOrderFilters{})
	require.NoError(t, err)
	assert.Len(t, orders, 3)

	got, err := repo.GetByID(southCtx, moving.ID)
	require.NoError(t, err)
	assert.Equal(t, north.ID, *got.BranchID)

	// once accepted elsewhere it is no longer addressed to the branch
	require.NoError(t, db.Model(moving).Update("status", lifecycle.StatusTransferred).Error)
	_, err = repo.GetByID(southCtx, moving.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestWorkOrderRepository_SaveIfStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWorkOrderRepository(db)
	customer := testutil.CreateTestCustomer(t, db, "Customer", nil)
	created := testutil.CreateTestWorkOrder(t, db, customer, domain.CategoryNewInstallation, lifecycle.StatusPendingApproval, nil)
	ctx := context.Background()

	var winner, loser *domain.WorkOrder
	require.NoError(t, repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		winner, err = repo.LockByID(tx, created.ID)
		return err
	}))
	require.NoError(t, repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		loser, err = repo.LockByID(tx, created.ID)
		return err
	}))

	winner.Status = lifecycle.StatusCompleted
	err := repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		saved, err := repo.SaveIfStatus(tx, winner, lifecycle.StatusPendingApproval)
		assert.True(t, saved)
		return err
	})
	require.NoError(t, err)

	loser.Status = lifecycle.StatusInProgress
	err = repo.WithTransaction(ctx, func(tx *gorm.DB) error {
		saved, err := repo.SaveIfStatus(tx, loser, lifecycle.StatusPendingApproval)
		assert.False(t, saved, "stale copy must not overwrite")
		return err
	})
	require.NoError(t, err)

	got, err := repo.GetByIDUnscoped(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, got.Status)
}

func TestCustomerRepository_GetByIDScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewCustomerRepository(db)
	north := testutil.CreateTestBranch(t, db, "North")
	south := testutil.CreateTestBranch(t, db, "South")
	customer := testutil.CreateTestCustomer(t, db, "Southern Customer", &south.ID)

	outsider := testutil.CreateTestUser(t, db, domain.RoleTechnician, &north.ID)
	_, err := repo.GetByID(testutil.ContextFor(outsider), customer.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	insider := testutil.CreateTestUser(t, db, domain.RoleTechnician, &south.ID)
	got, err := repo.GetByID(testutil.ContextFor(insider), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Southern Customer", got.Name)
}

func TestWorkOrderRepository_ListStaleInStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewWorkOrderRepository(db)
	branch := testutil.CreateTestBranch(t, db, "North")
	customer := testutil.CreateTestCustomer(t, db, "Customer", &branch.ID)

	old := testutil.CreateTestWorkOrder(t, db, customer, domain.CategoryNewInstallation, lifecycle.StatusPendingApproval, nil)
	testutil.CreateTestWorkOrder(t, db, customer, domain.CategoryNewInstallation, lifecycle.StatusPendingApproval, nil)
	require.NoError(t, db.Model(&domain.WorkOrder{}).Where("id = ?", old.ID).
		UpdateColumn("updated_at", time.Now().Add(-72*time.Hour)).Error)

	stale, err := repo.ListStaleInStatus(context.Background(), lifecycle.StatusPendingApproval, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)
	assert.Equal(t, "Customer", stale[0].Customer.Name)
}

func TestNumberSequenceRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := repository.NewNumberSequenceRepository(db)
	ctx := context.Background()

	current, err := repo.GetCurrentSequence(ctx, "WO", 2026)
	require.NoError(t, err)
	assert.Zero(t, current)

	for want := 1; want <= 3; want++ {
		got, err := repo.GetNextNumber(ctx, "WO", 2026)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	next, err := repo.GetNextNumber(ctx, "BL", 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, next, "prefixes count independently")

	require.NoError(t, repo.SetSequence(ctx, "WO", 2026, 40))
	require.NoError(t, repo.SetSequence(ctx, "WO", 2026, 10))
	next, err = repo.GetNextNumber(ctx, "WO", 2026)
	require.NoError(t, err)
	assert.Equal(t, 41, next)
}
