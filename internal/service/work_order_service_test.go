package service_test

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/service"
	"github.com/fieldline/crm-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkOrderService_Create(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &branch.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &branch.ID)
	ctx := testutil.ContextFor(manager)

	t.Run("new installation starts pending with one history row", func(t *testing.T) {
		wo, err := s.workOrders.Create(ctx, &domain.CreateWorkOrderRequest{
			CustomerID:      customer.ID,
			ProjectType:     "Solar Panel",
			ProjectCategory: domain.CategoryNewInstallation,
			InitialRemark:   "Roof faces south",
		})
		require.NoError(t, err)

		assert.Equal(t, lifecycle.StatusPending, wo.Status)
		assert.True(t, strings.HasPrefix(wo.OrderID, "WO-"))
		require.Len(t, wo.StatusHistory, 1)
		assert.Equal(t, lifecycle.StatusPending, wo.StatusHistory[0].Status)
		assert.Equal(t, "Roof faces south", wo.StatusHistory[0].Remark)
		require.NotNil(t, wo.Manager)
		assert.Equal(t, manager.ID, wo.Manager.ID)
	})

	t.Run("order numbers are sequential", func(t *testing.T) {
		first, err := s.workOrders.Create(ctx, &domain.CreateWorkOrderRequest{
			CustomerID: customer.ID, ProjectType: "Inverter", ProjectCategory: domain.CategoryNewInstallation,
		})
		require.NoError(t, err)
		second, err := s.workOrders.Create(ctx, &domain.CreateWorkOrderRequest{
			CustomerID: customer.ID, ProjectType: "Battery", ProjectCategory: domain.CategoryNewInstallation,
		})
		require.NoError(t, err)
		assert.NotEqual(t, first.OrderID, second.OrderID)
		assert.Less(t, first.OrderID, second.OrderID)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := s.workOrders.Create(ctx, &domain.CreateWorkOrderRequest{
			CustomerID: uuid.New(), ProjectType: "Solar Panel", ProjectCategory: domain.CategoryNewInstallation,
		})
		assert.ErrorIs(t, err, service.ErrCustomerNotFound)
	})

	t.Run("invalid category", func(t *testing.T) {
		_, err := s.workOrders.Create(ctx, &domain.CreateWorkOrderRequest{
			CustomerID: customer.ID, ProjectType: "Solar Panel", ProjectCategory: "Upgrade",
		})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "projectCategory", verr.Field)
	})
}

func TestWorkOrderService_RepairRequiresCompletedInstallation(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	customer := testutil.CreateTestCustomer(t, s.db, "Ola Nordmann", &branch.ID)
	other := testutil.CreateTestCustomer(t, s.db, "Someone Else", &branch.ID)
	ctx := testutil.AdminContext()

	completed := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusCompleted, nil)
	open := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusInProgress, nil)
	foreign := testutil.CreateTestWorkOrder(t, s.db, other, domain.CategoryNewInstallation, lifecycle.StatusCompleted, nil)

	repair := func(related *uuid.UUID) error {
		_, err := s.workOrders.Create(ctx, &domain.CreateWorkOrderRequest{
			CustomerID:      customer.ID,
			ProjectType:     "Solar Panel",
			ProjectCategory: domain.CategoryRepair,
			RelatedOrderID:  related,
		})
		return err
	}

	var verr *domain.ValidationError
	assert.ErrorAs(t, repair(nil), &verr)
	assert.ErrorAs(t, repair(&open.ID), &verr)
	assert.ErrorAs(t, repair(&foreign.ID), &verr)
	missing := uuid.New()
	assert.ErrorAs(t, repair(&missing), &verr)

	assert.NoError(t, repair(&completed.ID))

	_, err := s.workOrders.Create(ctx, &domain.CreateWorkOrderRequest{
		CustomerID:      customer.ID,
		ProjectType:     "Solar Panel",
		ProjectCategory: domain.CategoryNewInstallation,
		RelatedOrderID:  &completed.ID,
	})
	assert.ErrorAs(t, err, &verr, "only repairs reference another work order")
}

func TestWorkOrderService_Lifecycle(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &branch.ID)
	technician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	otherTechnician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &branch.ID)

	managerCtx := testutil.ContextFor(manager)
	techCtx := testutil.ContextFor(technician)

	wo, err := s.workOrders.Create(managerCtx, &domain.CreateWorkOrderRequest{
		CustomerID: customer.ID, ProjectType: "Solar Panel", ProjectCategory: domain.CategoryNewInstallation,
	})
	require.NoError(t, err)

	wo, err = s.workOrders.AssignTechnician(managerCtx, &domain.AssignTechnicianRequest{
		WorkOrderID: wo.ProjectID, TechnicianID: technician.ID, Instructions: "Bring the long ladder",
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAssigned, wo.Status)
	require.NotNil(t, wo.Technician)
	assert.Equal(t, technician.ID, wo.Technician.ID)
	assert.Equal(t, "Bring the long ladder", wo.Instructions)

	t.Run("another technician cannot move it", func(t *testing.T) {
		_, err := s.workOrders.UpdateStatus(testutil.ContextFor(otherTechnician), &domain.UpdateWorkOrderStatusRequest{
			WorkOrderID: wo.ProjectID, Status: lifecycle.StatusInProgress,
		})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("completed cannot be set directly", func(t *testing.T) {
		_, err := s.workOrders.UpdateStatus(techCtx, &domain.UpdateWorkOrderStatusRequest{
			WorkOrderID: wo.ProjectID, Status: lifecycle.StatusCompleted,
		})
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
	})

	t.Run("approval before the work is done", func(t *testing.T) {
		_, err := s.workOrders.Approve(managerCtx, &domain.ApproveWorkOrderRequest{
			WorkOrderID: wo.ProjectID, Remark: approvalRemark,
		})
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
	})

	for _, next := range []lifecycle.Status{lifecycle.StatusInProgress, lifecycle.StatusPaused, lifecycle.StatusInProgress, lifecycle.StatusPendingApproval} {
		wo, err = s.workOrders.UpdateStatus(techCtx, &domain.UpdateWorkOrderStatusRequest{
			WorkOrderID: wo.ProjectID, Status: next,
		})
		require.NoError(t, err, "move to %s", next)
		assert.Equal(t, next, wo.Status)
	}

	t.Run("remark gate", func(t *testing.T) {
		_, err := s.workOrders.Approve(managerCtx, &domain.ApproveWorkOrderRequest{
			WorkOrderID: wo.ProjectID, Remark: "looks fine",
		})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "remark", verr.Field)
	})

	wo, err = s.workOrders.Approve(managerCtx, &domain.ApproveWorkOrderRequest{
		WorkOrderID: wo.ProjectID, Remark: approvalRemark,
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, wo.Status)
	require.NotNil(t, wo.CompletedAt)
	require.NotNil(t, wo.ApprovedBy)
	assert.Equal(t, manager.ID, wo.ApprovedBy.ID)

	// pending, assigned, in-progress, paused, in-progress, pending-approval, completed
	require.Len(t, wo.StatusHistory, 7)
	assert.Equal(t, lifecycle.StatusCompleted, wo.StatusHistory[6].Status)
	assert.Equal(t, approvalRemark, wo.StatusHistory[6].Remark)

	t.Run("completed is closed", func(t *testing.T) {
		_, err := s.workOrders.Approve(managerCtx, &domain.ApproveWorkOrderRequest{
			WorkOrderID: wo.ProjectID, Remark: approvalRemark,
		})
		assert.ErrorIs(t, err, service.ErrWorkOrderClosed)
	})

	t.Run("notifications follow the lifecycle", func(t *testing.T) {
		var techTypes []string
		require.NoError(t, s.db.Model(&domain.Notification{}).
			Where("user_id = ?", technician.ID).Order("created_at ASC").Pluck("type", &techTypes).Error)
		assert.Equal(t, []string{
			string(domain.NotificationTypeAssigned),
			string(domain.NotificationTypeApproved),
		}, techTypes)

		var managerCount int64
		require.NoError(t, s.db.Model(&domain.Notification{}).
			Where("user_id = ? AND type = ?", manager.ID, domain.NotificationTypeApprovalRequest).
			Count(&managerCount).Error)
		assert.Equal(t, int64(1), managerCount)
	})
}

func TestWorkOrderService_Transfer(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &branch.ID)
	technician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	replacement := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &branch.ID)
	wo := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusInProgress, &technician.ID)

	managerCtx := testutil.ContextFor(manager)
	techCtx := testutil.ContextFor(technician)

	_, err := s.workOrders.RequestTransfer(techCtx, &domain.TransferRequest{WorkOrderID: wo.ID, Remark: "   "})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	dto, err := s.workOrders.RequestTransfer(techCtx, &domain.TransferRequest{WorkOrderID: wo.ID, Remark: "Moving to another region"})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusTransferring, dto.Status)
	assert.Equal(t, "Moving to another region", dto.TransferRemark)

	_, err = s.workOrders.AcceptTransfer(managerCtx, &domain.AcceptTransferRequest{WorkOrderID: wo.ID, Remark: "ok"})
	assert.ErrorAs(t, err, &verr)

	dto, err = s.workOrders.AcceptTransfer(managerCtx, &domain.AcceptTransferRequest{
		WorkOrderID: wo.ID, Remark: "Accepted, will reassign this week",
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusTransferred, dto.Status)
	require.NotNil(t, dto.Technician, "technician stays on record until reassigned")
	assert.Equal(t, technician.ID, dto.Technician.ID)

	before := len(dto.StatusHistory)
	dto, err = s.workOrders.AssignTechnician(managerCtx, &domain.AssignTechnicianRequest{
		WorkOrderID: wo.ID, TechnicianID: replacement.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAssigned, dto.Status)
	assert.Equal(t, replacement.ID, dto.Technician.ID)
	require.Len(t, dto.StatusHistory, before+2)
	assert.Equal(t, lifecycle.StatusPending, dto.StatusHistory[before].Status)
	assert.Equal(t, lifecycle.StatusAssigned, dto.StatusHistory[before+1].Status)

	t.Run("assigning an assigned work order is rejected", func(t *testing.T) {
		_, err := s.workOrders.AssignTechnician(managerCtx, &domain.AssignTechnicianRequest{
			WorkOrderID: wo.ID, TechnicianID: technician.ID,
		})
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
	})

	t.Run("only technicians can be assigned", func(t *testing.T) {
		other := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusPending, nil)
		_, err := s.workOrders.AssignTechnician(managerCtx, &domain.AssignTechnicianRequest{
			WorkOrderID: other.ID, TechnicianID: manager.ID,
		})
		assert.ErrorIs(t, err, service.ErrTechnicianNotFound)
	})
}

func TestWorkOrderService_TransferAcrossBranches(t *testing.T) {
	s := newServices(t)
	north := testutil.CreateTestBranch(t, s.db, "North")
	south := testutil.CreateTestBranch(t, s.db, "South")
	east := testutil.CreateTestBranch(t, s.db, "East")
	empty := testutil.CreateTestBranch(t, s.db, "Empty")
	northManager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &north.ID)
	southManager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &south.ID)
	eastManager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &east.ID)
	technician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &north.ID)
	southTechnician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &south.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &north.ID)
	wo := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusInProgress, &technician.ID)

	techCtx := testutil.ContextFor(technician)
	northCtx := testutil.ContextFor(northManager)
	southCtx := testutil.ContextFor(southManager)

	t.Run("target manager must be a manager", func(t *testing.T) {
		_, err := s.workOrders.RequestTransfer(techCtx, &domain.TransferRequest{
			WorkOrderID: wo.ID, Remark: "Customer moved south", ToManagerID: &southTechnician.ID,
		})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "toManager", verr.Field)
	})

	t.Run("target branch needs a manager", func(t *testing.T) {
		_, err := s.workOrders.RequestTransfer(techCtx, &domain.TransferRequest{
			WorkOrderID: wo.ID, Remark: "Customer moved south", ToBranchID: &empty.ID,
		})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "toBranch", verr.Field)
	})

	dto, err := s.workOrders.RequestTransfer(techCtx, &domain.TransferRequest{
		WorkOrderID: wo.ID, Remark: "Customer moved south", ToBranchID: &south.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusTransferring, dto.Status)
	require.NotNil(t, dto.TransferTo)
	assert.Equal(t, south.ID, *dto.TransferTo.BranchID)

	countNotifications := func(userID uuid.UUID, notificationType domain.NotificationType) int64 {
		var n int64
		require.NoError(t, s.db.Model(&domain.Notification{}).
			Where("user_id = ? AND type = ?", userID, notificationType).Count(&n).Error)
		return n
	}
	assert.Equal(t, int64(1), countNotifications(southManager.ID, domain.NotificationTypeTransferRequest))
	assert.Zero(t, countNotifications(northManager.ID, domain.NotificationTypeTransferRequest))

	t.Run("receiving manager sees the request", func(t *testing.T) {
		projects, err := s.workOrders.ManagerProjects(southCtx, nil, nil)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, wo.ID, projects[0].ProjectID)
	})

	t.Run("sending branch cannot accept", func(t *testing.T) {
		_, err := s.workOrders.AcceptTransfer(northCtx, &domain.AcceptTransferRequest{
			WorkOrderID: wo.ID, Remark: "We will keep this one here",
		})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("unrelated branch does not see it", func(t *testing.T) {
		_, err := s.workOrders.AcceptTransfer(testutil.ContextFor(eastManager), &domain.AcceptTransferRequest{
			WorkOrderID: wo.ID, Remark: "East team can take this over",
		})
		assert.ErrorIs(t, err, service.ErrWorkOrderNotFound)
	})

	dto, err = s.workOrders.AcceptTransfer(southCtx, &domain.AcceptTransferRequest{
		WorkOrderID: wo.ID, Remark: "South team will take this job over",
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusTransferred, dto.Status)
	require.NotNil(t, dto.BranchID)
	assert.Equal(t, south.ID, *dto.BranchID)
	require.NotNil(t, dto.Manager)
	assert.Equal(t, southManager.ID, dto.Manager.ID)
	assert.Nil(t, dto.Technician)
	assert.Nil(t, dto.TransferTo)
	assert.Equal(t, int64(1), countNotifications(technician.ID, domain.NotificationTypeTransferAccepted))

	_, err = s.workOrders.GetByID(northCtx, wo.ID)
	assert.ErrorIs(t, err, service.ErrWorkOrderNotFound)

	dto, err = s.workOrders.AssignTechnician(southCtx, &domain.AssignTechnicianRequest{
		WorkOrderID: wo.ID, TechnicianID: southTechnician.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusAssigned, dto.Status)
	assert.Equal(t, southTechnician.ID, dto.Technician.ID)
}

func TestWorkOrderService_TransferToManager(t *testing.T) {
	s := newServices(t)
	north := testutil.CreateTestBranch(t, s.db, "North")
	south := testutil.CreateTestBranch(t, s.db, "South")
	northManager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &north.ID)
	southManager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &south.ID)
	otherSouthManager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &south.ID)
	technician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &north.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Ola Nordmann", &north.ID)
	wo := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusAssigned, &technician.ID)

	_, err := s.workOrders.RequestTransfer(testutil.ContextFor(northManager), &domain.TransferRequest{
		WorkOrderID: wo.ID, Remark: "Handing over to the south office", ToManagerID: &southManager.ID,
	})
	require.NoError(t, err)

	var notified []uuid.UUID
	require.NoError(t, s.db.Model(&domain.Notification{}).
		Where("type = ?", domain.NotificationTypeTransferRequest).Pluck("user_id", &notified).Error)
	assert.Equal(t, []uuid.UUID{southManager.ID}, notified)

	_, err = s.workOrders.AcceptTransfer(testutil.ContextFor(otherSouthManager), &domain.AcceptTransferRequest{
		WorkOrderID: wo.ID, Remark: "I can take this one instead",
	})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	dto, err := s.workOrders.AcceptTransfer(testutil.AdminContext(), &domain.AcceptTransferRequest{
		WorkOrderID: wo.ID, Remark: "Approved on behalf of the south office",
	})
	require.NoError(t, err)
	require.NotNil(t, dto.BranchID)
	assert.Equal(t, south.ID, *dto.BranchID)
	require.NotNil(t, dto.Manager)
	assert.Equal(t, southManager.ID, dto.Manager.ID)
}

func TestWorkOrderService_ConcurrentApprovals(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager, &branch.ID)
	technician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &branch.ID)
	wo := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusPendingApproval, &technician.ID)
	ctx := testutil.ContextFor(manager)

	var wg sync.WaitGroup
	var approved atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.workOrders.Approve(ctx, &domain.ApproveWorkOrderRequest{WorkOrderID: wo.ID, Remark: approvalRemark})
			if err == nil {
				approved.Add(1)
				return
			}
			assert.True(t, errors.Is(err, service.ErrWorkOrderClosed) || errors.Is(err, service.ErrInvalidStatusTransition), err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), approved.Load())

	var completedRows int64
	require.NoError(t, s.db.Model(&domain.StatusHistory{}).
		Where("work_order_id = ? AND status = ?", wo.ID, lifecycle.StatusCompleted).Count(&completedRows).Error)
	assert.Equal(t, int64(1), completedRows)
}

func TestWorkOrderService_Dashboard(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	technician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &branch.ID)

	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusPending, nil)
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusInProgress, &technician.ID)
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusPaused, &technician.ID)
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusPendingApproval, &technician.ID)
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusCompleted, &technician.ID)
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusTransferred, &technician.ID)
	// in progress but nobody assigned: excluded from the buckets
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusInProgress, nil)

	dashboard, err := s.workOrders.Dashboard(testutil.AdminContext(), &branch.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, dashboard.Counts.InProgress)
	assert.Equal(t, 1, dashboard.Counts.PendingApprovals)
	assert.Equal(t, 1, dashboard.Counts.Completed)
	assert.Equal(t, 1, dashboard.Counts.Transferred)
	assert.Equal(t, 1, dashboard.Counts.Unassigned)
	for _, wo := range dashboard.Buckets.InProgress {
		assert.NotNil(t, wo.Technician)
	}
}

func TestWorkOrderService_TechnicianProjects(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	technician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	other := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &branch.ID)
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusAssigned, &technician.ID)
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusAssigned, &other.ID)

	own, err := s.workOrders.TechnicianProjects(testutil.ContextFor(technician), technician.ID)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	_, err = s.workOrders.TechnicianProjects(testutil.ContextFor(technician), other.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	all, err := s.workOrders.TechnicianProjects(testutil.AdminContext(), other.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWorkOrderService_SendApprovalReminders(t *testing.T) {
	s := newServices(t)
	branch := testutil.CreateTestBranch(t, s.db, "North")
	testutil.CreateTestUser(t, s.db, domain.RoleManager, &branch.ID)
	testutil.CreateTestUser(t, s.db, domain.RoleManager, &branch.ID)
	technician := testutil.CreateTestUser(t, s.db, domain.RoleTechnician, &branch.ID)
	customer := testutil.CreateTestCustomer(t, s.db, "Kari Nordmann", &branch.ID)

	stale := testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusPendingApproval, &technician.ID)
	testutil.CreateTestWorkOrder(t, s.db, customer, domain.CategoryNewInstallation, lifecycle.StatusPendingApproval, &technician.ID)
	require.NoError(t, s.db.Model(&domain.WorkOrder{}).Where("id = ?", stale.ID).
		UpdateColumn("updated_at", time.Now().Add(-72*time.Hour)).Error)

	sent, err := s.workOrders.SendApprovalReminders(testutil.AdminContext(), 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, sent, "both branch managers are reminded about the stale order")

	sent, err = s.workOrders.SendApprovalReminders(testutil.AdminContext(), 48*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, sent, "a reminder is not repeated within the period")

	var count int64
	require.NoError(t, s.db.Model(&domain.Notification{}).
		Where("type = ? AND entity_id = ?", domain.NotificationTypeApprovalReminder, stale.ID).
		Count(&count).Error)
	assert.Equal(t, int64(2), count)
}
