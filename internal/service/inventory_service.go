package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/mapper"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/fieldline/crm-api/internal/warranty"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InventoryService answers stock and installed-unit questions, including warranty coverage
type InventoryService struct {
	inventoryRepo *repository.InventoryRepository
	warrantyRepo  *repository.WarrantyRepository
	logger        *zap.Logger
	now           func() time.Time
}

func NewInventoryService(
	inventoryRepo *repository.InventoryRepository,
	warrantyRepo *repository.WarrantyRepository,
	logger *zap.Logger,
) *InventoryService {
	return &InventoryService{
		inventoryRepo: inventoryRepo,
		warrantyRepo:  warrantyRepo,
		logger:        logger,
		now:           time.Now,
	}
}

// ByType returns branch stock of one inventory type
func (s *InventoryService) ByType(ctx context.Context, itemType domain.InventoryType, branchID *uuid.UUID) ([]domain.InventoryItemDTO, error) {
	if !itemType.IsValid() {
		return nil, domain.NewValidationError("type", "must be serialized, generic or service")
	}
	items, err := s.inventoryRepo.ListByType(ctx, itemType, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return toInventoryDTOs(items), nil
}

// ForTechnician returns the stock a technician carries
func (s *InventoryService) ForTechnician(ctx context.Context, technicianID uuid.UUID) ([]domain.InventoryItemDTO, error) {
	items, err := s.inventoryRepo.ListByTechnician(ctx, technicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list technician inventory: %w", err)
	}
	return toInventoryDTOs(items), nil
}

// SerialDetails returns an item with its warranty coverage and replacement history
func (s *InventoryService) SerialDetails(ctx context.Context, serialNumber string) (*domain.SerialDetailsDTO, error) {
	item, replacement, err := s.resolveSerial(ctx, serialNumber)
	if err != nil {
		return nil, err
	}

	details := &domain.SerialDetailsDTO{
		Item:     mapper.ToInventoryItemDTO(item),
		Warranty: warranty.ComputeWarrantyStatus(item.InstallationDate, item.WarrantyPeriod, s.now()),
	}
	if replacement != nil {
		dto := mapper.ToWarrantyReplacementDTO(replacement)
		details.Replacement = &dto
	}
	return details, nil
}

// CheckWarranty reports whether the unit behind a serial is still covered.
// A replacement serial is covered by the warranty of the unit it replaced.
func (s *InventoryService) CheckWarranty(ctx context.Context, serialNumber string) (*domain.WarrantyStatusDTO, error) {
	item, replacement, err := s.resolveSerial(ctx, serialNumber)
	if err != nil {
		return nil, err
	}

	status := &domain.WarrantyStatusDTO{
		SerialNumber: strings.TrimSpace(serialNumber),
		ProductName:  item.ProductName,
		Coverage:     warranty.ComputeWarrantyStatus(item.InstallationDate, item.WarrantyPeriod, s.now()),
	}
	if replacement != nil {
		status.ReplacementStatus = replacement.Status
	}
	return status, nil
}

// resolveSerial finds the inventory item for serialNumber, following a replacement
// serial back to the originally installed unit
func (s *InventoryService) resolveSerial(ctx context.Context, serialNumber string) (*domain.InventoryItem, *domain.WarrantyReplacement, error) {
	serialNumber = strings.TrimSpace(serialNumber)
	if serialNumber == "" {
		return nil, nil, domain.NewValidationError("serialNumber", "serial number is required")
	}

	replacement, err := s.warrantyRepo.GetBySerial(ctx, serialNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		replacement, err = s.warrantyRepo.FindByReplacementSerial(ctx, serialNumber)
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, fmt.Errorf("failed to get replacement record: %w", err)
	}
	if err != nil {
		replacement = nil
	}

	item, err := s.inventoryRepo.GetBySerial(ctx, serialNumber)
	if errors.Is(err, gorm.ErrRecordNotFound) && replacement != nil {
		item, err = s.inventoryRepo.GetBySerial(ctx, replacement.SerialNumber)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInventoryNotFound
		}
		return nil, nil, fmt.Errorf("failed to get inventory item: %w", err)
	}
	return item, replacement, nil
}

func toInventoryDTOs(items []domain.InventoryItem) []domain.InventoryItemDTO {
	dtos := make([]domain.InventoryItemDTO, len(items))
	for i := range items {
		dtos[i] = mapper.ToInventoryItemDTO(&items[i])
	}
	return dtos
}
