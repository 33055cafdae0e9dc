package repository

import (
	"context"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) *BillRepository {
	return &BillRepository{db: db}
}

// Create inserts the bill with its items
func (r *BillRepository) Create(ctx context.Context, bill *domain.Bill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

func (r *BillRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bill, error) {
	var bill domain.Bill
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("WorkOrder.Customer").
		First(&bill, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *BillRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID) ([]domain.Bill, error) {
	var bills []domain.Bill
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("work_order_id = ?", workOrderID).
		Order("created_at DESC").
		Find(&bills).Error
	return bills, err
}
