package repository

import (
	"context"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) Create(ctx context.Context, item *domain.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// ListByType returns stock of one type held by branches
func (r *InventoryRepository) ListByType(ctx context.Context, itemType domain.InventoryType, branchID *uuid.UUID) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	query := r.db.WithContext(ctx).Where("type = ?", itemType)
	query = ApplyBranchFilter(ctx, query)
	query = applyExplicitBranch(query, branchID)
	err := query.Order("product_name ASC").Find(&items).Error
	return items, err
}

func (r *InventoryRepository) ListByTechnician(ctx context.Context, technicianID uuid.UUID) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	err := r.db.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Order("product_name ASC").
		Find(&items).Error
	return items, err
}

// GetBySerial returns the item with the serial number, including its customer
func (r *InventoryRepository) GetBySerial(ctx context.Context, serialNumber string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("serial_number = ?", serialNumber).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}
