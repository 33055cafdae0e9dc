package repository

import (
	"context"
	"time"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/lifecycle"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func preloadHistory(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// withDetails preloads everything a WorkOrderDTO renders
func withDetails(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Customer").
		Preload("Technician").
		Preload("Manager").
		Preload("ApprovedBy").
		Preload("StatusHistory", preloadHistory).
		Preload("Bills.Items")
}

// applyWorkOrderScope is ApplyBranchFilter widened to transfers addressed to the
// caller's branch, so the receiving managers can see what they are asked to accept
func applyWorkOrderScope(ctx context.Context, query *gorm.DB) *gorm.DB {
	branchID := auth.GetEffectiveBranchFilter(ctx)
	if branchID == nil {
		return query
	}
	return query.Where("(branch_id = ? OR (status = ? AND transfer_to_branch_id = ?))",
		*branchID, lifecycle.StatusTransferring, *branchID)
}

// Create inserts the work order and its initial history rows
func (r *WorkOrderRepository) Create(ctx context.Context, workOrder *domain.WorkOrder) error {
	return r.db.WithContext(ctx).Create(workOrder).Error
}

func (r *WorkOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WorkOrder, error) {
	var workOrder domain.WorkOrder
	query := withDetails(r.db.WithContext(ctx)).Where("id = ?", id)
	query = applyWorkOrderScope(ctx, query)
	err := query.First(&workOrder).Error
	if err != nil {
		return nil, err
	}
	return &workOrder, nil
}

// GetByIDUnscoped ignores branch scoping. Callers check access themselves.
func (r *WorkOrderRepository) GetByIDUnscoped(ctx context.Context, id uuid.UUID) (*domain.WorkOrder, error) {
	var workOrder domain.WorkOrder
	err := withDetails(r.db.WithContext(ctx)).Where("id = ?", id).First(&workOrder).Error
	if err != nil {
		return nil, err
	}
	return &workOrder, nil
}

// LockByID re-reads the work order row inside tx and holds a row lock until tx ends
func (r *WorkOrderRepository) LockByID(tx *gorm.DB, id uuid.UUID) (*domain.WorkOrder, error) {
	var workOrder domain.WorkOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&workOrder).Error
	if err != nil {
		return nil, err
	}
	return &workOrder, nil
}

// SaveIfStatus writes the work order's own columns only while the stored status is
// still from. It reports false when another writer moved the row first.
func (r *WorkOrderRepository) SaveIfStatus(tx *gorm.DB, workOrder *domain.WorkOrder, from lifecycle.Status) (bool, error) {
	result := tx.Model(workOrder).
		Where("status = ?", from).
		Select("*").
		Omit(clause.Associations, "id", "created_at").
		Updates(workOrder)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// GetByOrderID looks a work order up by customer and human order number
func (r *WorkOrderRepository) GetByOrderID(ctx context.Context, customerID uuid.UUID, orderID string) (*domain.WorkOrder, error) {
	var workOrder domain.WorkOrder
	query := withDetails(r.db.WithContext(ctx)).
		Where("customer_id = ? AND order_id = ?", customerID, orderID)
	query = applyWorkOrderScope(ctx, query)
	err := query.First(&workOrder).Error
	if err != nil {
		return nil, err
	}
	return &workOrder, nil
}

// List returns work orders matching filters, most recently touched first
func (r *WorkOrderRepository) List(ctx context.Context, filters domain.WorkOrderFilters) ([]domain.WorkOrder, error) {
	var workOrders []domain.WorkOrder

	query := withDetails(r.db.WithContext(ctx).Model(&domain.WorkOrder{}))
	query = applyWorkOrderScope(ctx, query)
	query = applyExplicitBranch(query, filters.BranchID)

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.TechnicianID != nil {
		query = query.Where("technician_id = ?", *filters.TechnicianID)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}

	err := query.Order("updated_at DESC").Find(&workOrders).Error
	return workOrders, err
}

// ListStaleInStatus returns work orders sitting in status since before the cutoff.
// Not branch scoped; used by background jobs.
func (r *WorkOrderRepository) ListStaleInStatus(ctx context.Context, status lifecycle.Status, before time.Time) ([]domain.WorkOrder, error) {
	var workOrders []domain.WorkOrder
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("status = ? AND updated_at < ?", status, before).
		Order("updated_at ASC").
		Find(&workOrders).Error
	return workOrders, err
}

// Update saves the work order's own columns. Associations are written separately.
func (r *WorkOrderRepository) Update(ctx context.Context, workOrder *domain.WorkOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(workOrder).Error
}

// WithTransaction runs fn in a transaction. fn must only use the given tx.
func (r *WorkOrderRepository) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *WorkOrderRepository) CountByStatus(ctx context.Context) (map[lifecycle.Status]int, error) {
	type row struct {
		Status lifecycle.Status
		Count  int
	}
	var rows []row
	query := r.db.WithContext(ctx).Model(&domain.WorkOrder{}).Select("status, COUNT(*) AS count")
	query = ApplyBranchFilter(ctx, query)
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[lifecycle.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
