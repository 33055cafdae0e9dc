package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/fieldline/crm-api/internal/mapper"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// technicianMoves are the statuses a technician may set directly
var technicianMoves = map[lifecycle.Status]bool{
	lifecycle.StatusAssigned:        true,
	lifecycle.StatusInProgress:      true,
	lifecycle.StatusPaused:          true,
	lifecycle.StatusPendingApproval: true,
}

// actor is whoever performs a change, as written into history rows
type actor struct {
	id   *uuid.UUID
	name string
	role domain.UserRole
}

func actorFrom(ctx context.Context) actor {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return actor{name: "system"}
	}
	id := userCtx.UserID
	return actor{id: &id, name: userCtx.DisplayName(), role: userCtx.Role}
}

// newPendingWorkOrder builds a work order in pending with its first history row
func newPendingWorkOrder(orderID string, customer *domain.Customer, projectType string, category domain.ProjectCategory, remark, instructions string, by actor) *domain.WorkOrder {
	workOrder := &domain.WorkOrder{
		OrderID:         orderID,
		CustomerID:      customer.ID,
		ProjectType:     strings.TrimSpace(projectType),
		ProjectCategory: category,
		Status:          lifecycle.StatusPending,
		BranchID:        customer.BranchID,
		InitialRemark:   strings.TrimSpace(remark),
		Instructions:    strings.TrimSpace(instructions),
		StatusHistory: []domain.StatusHistory{{
			Status:      lifecycle.StatusPending,
			Remark:      strings.TrimSpace(remark),
			UpdatedBy:   by.name,
			UpdatedByID: by.id,
		}},
	}
	if by.role == domain.RoleManager {
		workOrder.ManagerID = by.id
	}
	return workOrder
}

// WorkOrderService owns the work order lifecycle. Every status change goes through
// lifecycle.IsValidTransition and appends a history row.
type WorkOrderService struct {
	workOrderRepo *repository.WorkOrderRepository
	customerRepo  *repository.CustomerRepository
	userRepo      *repository.UserRepository
	numbers       *NumberSequenceService
	notifications *NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

// NewWorkOrderService creates a new WorkOrderService
func NewWorkOrderService(
	workOrderRepo *repository.WorkOrderRepository,
	customerRepo *repository.CustomerRepository,
	userRepo *repository.UserRepository,
	numbers *NumberSequenceService,
	notifications *NotificationService,
	logger *zap.Logger,
) *WorkOrderService {
	return &WorkOrderService{
		workOrderRepo: workOrderRepo,
		customerRepo:  customerRepo,
		userRepo:      userRepo,
		numbers:       numbers,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// Create opens a new work order for a customer. A repair must reference a completed
// work order of the same customer.
func (s *WorkOrderService) Create(ctx context.Context, req *domain.CreateWorkOrderRequest) (*domain.WorkOrderDTO, error) {
	if !req.ProjectCategory.IsValid() {
		return nil, domain.NewValidationError("projectCategory", "must be \"New Installation\" or \"Repair\"")
	}
	if strings.TrimSpace(req.ProjectType) == "" {
		return nil, domain.NewValidationError("projectType", "project type is required")
	}

	customer, err := s.customerRepo.GetByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	if err := s.checkRelatedOrder(ctx, req); err != nil {
		return nil, err
	}

	orderID, err := s.numbers.GenerateWorkOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	workOrder := newPendingWorkOrder(orderID, customer, req.ProjectType, req.ProjectCategory, req.InitialRemark, req.Instructions, actorFrom(ctx))
	workOrder.RelatedOrderID = req.RelatedOrderID
	if req.BranchID != nil {
		workOrder.BranchID = req.BranchID
	}

	if err := s.workOrderRepo.Create(ctx, workOrder); err != nil {
		return nil, fmt.Errorf("failed to create work order: %w", err)
	}

	s.logger.Info("work order created",
		zap.String("workOrderID", workOrder.ID.String()),
		zap.String("orderID", workOrder.OrderID),
		zap.String("category", string(workOrder.ProjectCategory)),
	)

	return s.reload(ctx, workOrder.ID)
}

func (s *WorkOrderService) checkRelatedOrder(ctx context.Context, req *domain.CreateWorkOrderRequest) error {
	if req.ProjectCategory != domain.CategoryRepair {
		if req.RelatedOrderID != nil {
			return domain.NewValidationError("relatedOrderId", "only repair work orders reference another work order")
		}
		return nil
	}

	if req.RelatedOrderID == nil {
		return domain.NewValidationError("relatedOrderId", "a repair must reference a completed installation")
	}

	related, err := s.workOrderRepo.GetByID(ctx, *req.RelatedOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.NewValidationError("relatedOrderId", "referenced work order does not exist")
		}
		return fmt.Errorf("failed to get related work order: %w", err)
	}
	if related.CustomerID != req.CustomerID {
		return domain.NewValidationError("relatedOrderId", "referenced work order belongs to another customer")
	}
	if related.Status != lifecycle.StatusCompleted {
		return domain.NewValidationError("relatedOrderId", "referenced work order is not completed")
	}
	return nil
}

// GetByID returns a work order with its history and bills
func (s *WorkOrderService) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkOrderDTO, error) {
	return s.reload(ctx, id)
}

// Details looks a work order up by customer and order number
func (s *WorkOrderService) Details(ctx context.Context, customerID uuid.UUID, orderID string) (*domain.WorkOrderDTO, error) {
	workOrder, err := s.workOrderRepo.GetByOrderID(ctx, customerID, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	dto := mapper.ToWorkOrderDTO(workOrder)
	return &dto, nil
}

// List returns work orders in display order
func (s *WorkOrderService) List(ctx context.Context, filters domain.WorkOrderFilters) ([]domain.WorkOrderDTO, error) {
	workOrders, err := s.workOrderRepo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	return lifecycle.SortForDisplay(mapper.ToWorkOrderDTOs(workOrders)), nil
}

// ManagerProjects is the manager's view of their branch
func (s *WorkOrderService) ManagerProjects(ctx context.Context, branchID *uuid.UUID, status *lifecycle.Status) ([]domain.WorkOrderDTO, error) {
	return s.List(ctx, domain.WorkOrderFilters{BranchID: branchID, Status: status})
}

// TechnicianProjects returns the work orders assigned to a technician.
// Technicians may only read their own.
func (s *WorkOrderService) TechnicianProjects(ctx context.Context, technicianID uuid.UUID) ([]domain.WorkOrderDTO, error) {
	by := actorFrom(ctx)
	if by.role == domain.RoleTechnician && (by.id == nil || *by.id != technicianID) {
		return nil, ErrPermissionDenied
	}
	return s.List(ctx, domain.WorkOrderFilters{TechnicianID: &technicianID})
}

// Dashboard splits assigned work into display buckets and lists the unassigned queue
func (s *WorkOrderService) Dashboard(ctx context.Context, branchID *uuid.UUID) (*domain.DashboardDTO, error) {
	workOrders, err := s.workOrderRepo.List(ctx, domain.WorkOrderFilters{BranchID: branchID})
	if err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	dtos := mapper.ToWorkOrderDTOs(workOrders)

	buckets := lifecycle.Categorize(lifecycle.FilterAssignedOnly(dtos))
	buckets.PendingApprovals = lifecycle.SortForDisplay(buckets.PendingApprovals)
	buckets.InProgress = lifecycle.SortForDisplay(buckets.InProgress)
	buckets.Transferred = lifecycle.SortForDisplay(buckets.Transferred)
	buckets.Completed = lifecycle.SortForDisplay(buckets.Completed)

	unassigned := lifecycle.SortForDisplay(lifecycle.Unassigned(dtos))

	return &domain.DashboardDTO{
		Buckets:    buckets,
		Unassigned: unassigned,
		Counts: domain.DashboardCounts{
			Unassigned:       len(unassigned),
			PendingApprovals: len(buckets.PendingApprovals),
			InProgress:       len(buckets.InProgress),
			Transferred:      len(buckets.Transferred),
			Completed:        len(buckets.Completed),
		},
	}, nil
}

// AssignTechnician gives a pending work order to a technician. A transferred work
// order first returns to pending, so it records two history rows.
func (s *WorkOrderService) AssignTechnician(ctx context.Context, req *domain.AssignTechnicianRequest) (*domain.WorkOrderDTO, error) {
	technician, err := s.userRepo.GetByID(ctx, req.TechnicianID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTechnicianNotFound
		}
		return nil, fmt.Errorf("failed to get technician: %w", err)
	}
	if technician.Role != domain.RoleTechnician || !technician.IsActive() {
		return nil, ErrTechnicianNotFound
	}

	workOrder, err := s.load(ctx, req.WorkOrderID)
	if err != nil {
		return nil, err
	}

	by := actorFrom(ctx)
	remark := fmt.Sprintf("Assigned to %s", technician.FullName())

	workOrder, err = s.mutate(ctx, workOrder.ID, func(tx *gorm.DB, workOrder *domain.WorkOrder) error {
		var path []lifecycle.Status
		switch workOrder.Status {
		case lifecycle.StatusPending:
			path = []lifecycle.Status{lifecycle.StatusAssigned}
		case lifecycle.StatusTransferred:
			path = []lifecycle.Status{lifecycle.StatusPending, lifecycle.StatusAssigned}
		default:
			return fmt.Errorf("%w: cannot assign a work order in status %s", ErrInvalidStatusTransition, workOrder.Status)
		}

		for i, next := range path {
			note := remark
			if i < len(path)-1 {
				note = "Returned to pool after transfer"
			}
			if err := s.transition(tx, workOrder, next, note, by); err != nil {
				return err
			}
		}
		if strings.TrimSpace(req.Instructions) != "" {
			workOrder.Instructions = strings.TrimSpace(req.Instructions)
		}
		workOrder.TechnicianID = &technician.ID
		workOrder.TransferRequestedByID = nil
		if by.role == domain.RoleManager {
			workOrder.ManagerID = by.id
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("technician assigned",
		zap.String("workOrderID", workOrder.ID.String()),
		zap.String("technicianID", technician.ID.String()),
	)

	s.notifications.Notify(ctx, technician.ID, domain.NotificationTypeAssigned,
		"New work order assigned",
		fmt.Sprintf("%s (%s) has been assigned to you", workOrder.OrderID, workOrder.ProjectType),
		workOrder.ID)

	return s.reload(ctx, workOrder.ID)
}

// UpdateStatus applies a technician move (start, pause, resume, hand back, request approval)
func (s *WorkOrderService) UpdateStatus(ctx context.Context, req *domain.UpdateWorkOrderStatusRequest) (*domain.WorkOrderDTO, error) {
	next, err := lifecycle.ParseStatus(string(req.Status))
	if err != nil {
		return nil, domain.NewValidationError("status", err.Error())
	}
	if !technicianMoves[next] {
		return nil, fmt.Errorf("%w: status %s cannot be set directly", ErrInvalidStatusTransition, next)
	}

	workOrder, err := s.load(ctx, req.WorkOrderID)
	if err != nil {
		return nil, err
	}

	by := actorFrom(ctx)
	workOrder, err = s.mutate(ctx, workOrder.ID, func(tx *gorm.DB, workOrder *domain.WorkOrder) error {
		if by.role == domain.RoleTechnician && !sameID(workOrder.TechnicianID, by.id) {
			return ErrPermissionDenied
		}
		return s.transition(tx, workOrder, next, strings.TrimSpace(req.Remark), by)
	})
	if err != nil {
		return nil, err
	}

	if next == lifecycle.StatusPendingApproval {
		s.notifyManagers(ctx, workOrder, domain.NotificationTypeApprovalRequest,
			"Approval requested",
			fmt.Sprintf("%s is ready for approval", workOrder.OrderID))
	}

	return s.reload(ctx, workOrder.ID)
}

// Approve completes a work order waiting for approval. The remark must pass the
// approval remark gate.
func (s *WorkOrderService) Approve(ctx context.Context, req *domain.ApproveWorkOrderRequest) (*domain.WorkOrderDTO, error) {
	if v := lifecycle.ValidateApprovalRemark(req.Remark); !v.Valid {
		return nil, domain.NewValidationError("remark", v.Message)
	}

	workOrder, err := s.load(ctx, req.WorkOrderID)
	if err != nil {
		return nil, err
	}

	by := actorFrom(ctx)
	workOrder, err = s.mutate(ctx, workOrder.ID, func(tx *gorm.DB, workOrder *domain.WorkOrder) error {
		if lifecycle.IsTerminal(workOrder.Status) {
			return ErrWorkOrderClosed
		}
		if err := s.transition(tx, workOrder, lifecycle.StatusCompleted, strings.TrimSpace(req.Remark), by); err != nil {
			return err
		}
		completedAt := s.now()
		workOrder.CompletedAt = &completedAt
		workOrder.ApprovedByID = by.id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("work order approved",
		zap.String("workOrderID", workOrder.ID.String()),
		zap.String("approvedBy", by.name),
	)

	if workOrder.TechnicianID != nil {
		s.notifications.Notify(ctx, *workOrder.TechnicianID, domain.NotificationTypeApproved,
			"Work order approved",
			fmt.Sprintf("%s has been approved and completed", workOrder.OrderID),
			workOrder.ID)
	}

	return s.reload(ctx, workOrder.ID)
}

// RequestTransfer asks another manager or branch to take over an active work order.
// Without a target the request goes to the managers of the work order's own branch.
func (s *WorkOrderService) RequestTransfer(ctx context.Context, req *domain.TransferRequest) (*domain.WorkOrderDTO, error) {
	remark := strings.TrimSpace(req.Remark)
	if remark == "" {
		return nil, domain.NewValidationError("remark", "a transfer reason is required")
	}

	workOrder, err := s.load(ctx, req.WorkOrderID)
	if err != nil {
		return nil, err
	}

	toBranch, toManager, err := s.resolveTransferTarget(ctx, req, workOrder)
	if err != nil {
		return nil, err
	}

	by := actorFrom(ctx)
	workOrder, err = s.mutate(ctx, workOrder.ID, func(tx *gorm.DB, workOrder *domain.WorkOrder) error {
		if by.role == domain.RoleTechnician && !sameID(workOrder.TechnicianID, by.id) {
			return ErrPermissionDenied
		}
		if err := s.transition(tx, workOrder, lifecycle.StatusTransferring, remark, by); err != nil {
			return err
		}
		workOrder.TransferRequestedByID = by.id
		workOrder.TransferRemark = remark
		workOrder.TransferToBranchID = toBranch
		workOrder.TransferToManagerID = toManager
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer requested",
		zap.String("workOrderID", workOrder.ID.String()),
		idField("toBranch", toBranch),
		idField("toManager", toManager),
	)

	recipients, err := s.transferRecipients(ctx, workOrder)
	if err != nil {
		s.logger.Warn("failed to list transfer recipients", zap.Error(err))
	} else {
		s.notifications.NotifyMany(ctx, recipients, domain.NotificationTypeTransferRequest,
			"Transfer requested",
			fmt.Sprintf("%s: %s", workOrder.OrderID, remark),
			workOrder.ID)
	}

	return s.reload(ctx, workOrder.ID)
}

// resolveTransferTarget validates the requested target. A target manager fixes the
// branch to the manager's own.
func (s *WorkOrderService) resolveTransferTarget(ctx context.Context, req *domain.TransferRequest, workOrder *domain.WorkOrder) (*uuid.UUID, *uuid.UUID, error) {
	if req.ToManagerID != nil {
		manager, err := s.userRepo.GetByID(ctx, *req.ToManagerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, domain.NewValidationError("toManager", "manager not found")
			}
			return nil, nil, fmt.Errorf("failed to get manager: %w", err)
		}
		if manager.Role != domain.RoleManager || !manager.IsActive() {
			return nil, nil, domain.NewValidationError("toManager", "must be an active manager")
		}
		if req.ToBranchID != nil && !sameID(req.ToBranchID, manager.BranchID) {
			return nil, nil, domain.NewValidationError("toBranch", "target manager belongs to another branch")
		}
		return manager.BranchID, &manager.ID, nil
	}

	toBranch := workOrder.BranchID
	if req.ToBranchID != nil {
		toBranch = req.ToBranchID
	}
	managers, err := s.userRepo.ListByRoleUnscoped(ctx, domain.RoleManager, toBranch)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list managers: %w", err)
	}
	if len(managers) == 0 {
		return nil, nil, domain.NewValidationError("toBranch", "no active manager can receive the transfer")
	}
	return toBranch, nil, nil
}

// AcceptTransfer completes a transfer request. The remark must pass the approval
// remark gate. Only the target manager, or a manager of the target branch, may
// accept; the work order then moves into the acceptor's scope.
func (s *WorkOrderService) AcceptTransfer(ctx context.Context, req *domain.AcceptTransferRequest) (*domain.WorkOrderDTO, error) {
	if v := lifecycle.ValidateApprovalRemark(req.Remark); !v.Valid {
		return nil, domain.NewValidationError("remark", v.Message)
	}

	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrPermissionDenied
	}

	workOrder, err := s.workOrderRepo.GetByIDUnscoped(ctx, req.WorkOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	if !canAcceptTransfer(userCtx, workOrder) {
		visible := repository.HasBranchAccess(ctx, workOrder.BranchID) ||
			(workOrder.Status == lifecycle.StatusTransferring && workOrder.TransferToBranchID != nil &&
				repository.HasBranchAccess(ctx, workOrder.TransferToBranchID))
		if visible {
			return nil, ErrPermissionDenied
		}
		return nil, ErrWorkOrderNotFound
	}

	by := actorFrom(ctx)
	fromBranch := workOrder.BranchID
	workOrder, err = s.mutate(ctx, workOrder.ID, func(tx *gorm.DB, workOrder *domain.WorkOrder) error {
		if err := s.transition(tx, workOrder, lifecycle.StatusTransferred, strings.TrimSpace(req.Remark), by); err != nil {
			return err
		}
		branchID, managerID := acceptedScope(userCtx, workOrder)
		if !sameBranch(branchID, workOrder.BranchID) {
			// the old branch's technician does not follow the work order
			workOrder.TechnicianID = nil
		}
		workOrder.BranchID = branchID
		workOrder.ManagerID = managerID
		workOrder.TransferToBranchID = nil
		workOrder.TransferToManagerID = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transfer accepted",
		zap.String("workOrderID", workOrder.ID.String()),
		idField("fromBranch", fromBranch),
		idField("toBranch", workOrder.BranchID),
		zap.String("acceptedBy", by.name),
	)

	if workOrder.TransferRequestedByID != nil {
		s.notifications.Notify(ctx, *workOrder.TransferRequestedByID, domain.NotificationTypeTransferAccepted,
			"Transfer accepted",
			fmt.Sprintf("Your transfer request for %s was accepted", workOrder.OrderID),
			workOrder.ID)
	}

	return s.reloadUnscoped(ctx, workOrder.ID)
}

// canAcceptTransfer reports whether u may accept the pending transfer of workOrder
func canAcceptTransfer(u *auth.UserContext, workOrder *domain.WorkOrder) bool {
	if u.IsAdmin() {
		return true
	}
	if u.Role != domain.RoleManager {
		return false
	}
	if workOrder.TransferToManagerID != nil {
		return *workOrder.TransferToManagerID == u.UserID
	}
	target := workOrder.TransferToBranchID
	if target == nil {
		target = workOrder.BranchID
	}
	if target == nil {
		return true
	}
	return sameID(u.BranchID, target)
}

// acceptedScope is the branch and manager a work order belongs to once u accepts it
func acceptedScope(u *auth.UserContext, workOrder *domain.WorkOrder) (*uuid.UUID, *uuid.UUID) {
	branchID := workOrder.BranchID
	if workOrder.TransferToBranchID != nil {
		branchID = workOrder.TransferToBranchID
	}
	if u.IsAdmin() {
		managerID := workOrder.TransferToManagerID
		if managerID == nil && sameBranch(branchID, workOrder.BranchID) {
			managerID = workOrder.ManagerID
		}
		return branchID, managerID
	}
	if u.BranchID != nil {
		branchID = u.BranchID
	}
	id := u.UserID
	return branchID, &id
}

// transferRecipients is the target manager, or every manager of the target branch
func (s *WorkOrderService) transferRecipients(ctx context.Context, workOrder *domain.WorkOrder) ([]uuid.UUID, error) {
	if workOrder.TransferToManagerID != nil {
		return []uuid.UUID{*workOrder.TransferToManagerID}, nil
	}
	branchID := workOrder.TransferToBranchID
	if branchID == nil {
		branchID = workOrder.BranchID
	}
	managers, err := s.userRepo.ListByRoleUnscoped(ctx, domain.RoleManager, branchID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// mutate runs apply against a freshly locked copy of the work order and writes it
// back only if its status is unchanged since the lock. Returns the written copy.
func (s *WorkOrderService) mutate(ctx context.Context, id uuid.UUID, apply func(tx *gorm.DB, workOrder *domain.WorkOrder) error) (*domain.WorkOrder, error) {
	var workOrder *domain.WorkOrder
	err := s.workOrderRepo.WithTransaction(ctx, func(tx *gorm.DB) error {
		current, err := s.workOrderRepo.LockByID(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWorkOrderNotFound
			}
			return fmt.Errorf("failed to lock work order: %w", err)
		}
		from := current.Status
		if err := apply(tx, current); err != nil {
			return err
		}
		saved, err := s.workOrderRepo.SaveIfStatus(tx, current, from)
		if err != nil {
			return fmt.Errorf("failed to save work order: %w", err)
		}
		if !saved {
			return fmt.Errorf("%w: work order was changed concurrently", ErrInvalidStatusTransition)
		}
		workOrder = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return workOrder, nil
}

// transition moves workOrder to next inside tx and records the history row
func (s *WorkOrderService) transition(tx *gorm.DB, workOrder *domain.WorkOrder, next lifecycle.Status, remark string, by actor) error {
	if !lifecycle.IsValidTransition(workOrder.Status, next, lifecycle.EntityWorkOrder) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, workOrder.Status, next)
	}

	entry := domain.StatusHistory{
		WorkOrderID: workOrder.ID,
		Status:      next,
		Remark:      remark,
		UpdatedBy:   by.name,
		UpdatedByID: by.id,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record status history: %w", err)
	}

	s.logger.Debug("work order status changed",
		zap.String("workOrderID", workOrder.ID.String()),
		zap.String("from", string(workOrder.Status)),
		zap.String("to", string(next)),
	)

	workOrder.Status = next
	return nil
}

// SendApprovalReminders reminds branch managers of work orders that have waited in
// pending-approval for longer than after. A manager gets at most one reminder per
// work order per period. Returns the number of reminders sent.
func (s *WorkOrderService) SendApprovalReminders(ctx context.Context, after time.Duration) (int, error) {
	cutoff := s.now().Add(-after)
	stale, err := s.workOrderRepo.ListStaleInStatus(ctx, lifecycle.StatusPendingApproval, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list work orders awaiting approval: %w", err)
	}

	sent := 0
	for i := range stale {
		workOrder := &stale[i]
		recipients, err := s.managerIDs(ctx, workOrder)
		if err != nil {
			s.logger.Warn("failed to list managers for reminder",
				zap.String("orderID", workOrder.OrderID),
				zap.Error(err),
			)
			continue
		}
		message := fmt.Sprintf("%s has been awaiting approval since %s",
			workOrder.OrderID, workOrder.UpdatedAt.Format("2006-01-02 15:04"))
		for _, id := range recipients {
			if s.notifications.NotifyUnlessSince(ctx, id, domain.NotificationTypeApprovalReminder,
				"Work order awaiting approval", message, workOrder.ID, cutoff) {
				sent++
			}
		}
	}
	return sent, nil
}

func (s *WorkOrderService) managerIDs(ctx context.Context, workOrder *domain.WorkOrder) ([]uuid.UUID, error) {
	if workOrder.ManagerID != nil {
		return []uuid.UUID{*workOrder.ManagerID}, nil
	}
	managers, err := s.userRepo.ListByRoleUnscoped(ctx, domain.RoleManager, workOrder.BranchID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// notifyManagers tells the work order's manager, or every manager of its branch
func (s *WorkOrderService) notifyManagers(ctx context.Context, workOrder *domain.WorkOrder, notificationType domain.NotificationType, title, message string) {
	ids, err := s.managerIDs(ctx, workOrder)
	if err != nil {
		s.logger.Warn("failed to list managers for notification", zap.Error(err))
		return
	}
	s.notifications.NotifyMany(ctx, ids, notificationType, title, message, workOrder.ID)
}

func (s *WorkOrderService) load(ctx context.Context, id uuid.UUID) (*domain.WorkOrder, error) {
	workOrder, err := s.workOrderRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	return workOrder, nil
}

func (s *WorkOrderService) reload(ctx context.Context, id uuid.UUID) (*domain.WorkOrderDTO, error) {
	workOrder, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToWorkOrderDTO(workOrder)
	return &dto, nil
}

// reloadUnscoped renders the work order even when it left the caller's branch
func (s *WorkOrderService) reloadUnscoped(ctx context.Context, id uuid.UUID) (*domain.WorkOrderDTO, error) {
	workOrder, err := s.workOrderRepo.GetByIDUnscoped(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	dto := mapper.ToWorkOrderDTO(workOrder)
	return &dto, nil
}

func sameID(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

// sameBranch treats two missing branches as the same scope
func sameBranch(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func idField(key string, id *uuid.UUID) zap.Field {
	if id == nil {
		return zap.String(key, "none")
	}
	return zap.String(key, id.String())
}
