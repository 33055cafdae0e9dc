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

// WarrantyService persists the replacement records driven by the warranty state machine
type WarrantyService struct {
	warrantyRepo  *repository.WarrantyRepository
	inventoryRepo *repository.InventoryRepository
	userRepo      *repository.UserRepository
	notifications *NotificationService
	logger        *zap.Logger
	now           func() time.Time
}

func NewWarrantyService(
	warrantyRepo *repository.WarrantyRepository,
	inventoryRepo *repository.InventoryRepository,
	userRepo *repository.UserRepository,
	notifications *NotificationService,
	logger *zap.Logger,
) *WarrantyService {
	return &WarrantyService{
		warrantyRepo:  warrantyRepo,
		inventoryRepo: inventoryRepo,
		userRepo:      userRepo,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// Register reports an issue on a serial. A serial already replaced before gets the
// issue appended to its existing record.
func (s *WarrantyService) Register(ctx context.Context, req *domain.RegisterWarrantyRequest) (*domain.WarrantyReplacementDTO, error) {
	serial := strings.TrimSpace(req.SerialNumber)

	stored, err := s.findRecord(ctx, serial)
	if err != nil {
		return nil, err
	}

	report := warranty.IssueReport{
		SerialNumber:  serial,
		Description:   req.IssueDescription,
		CheckedBy:     req.IssueCheckedBy,
		ProductName:   req.ProductName,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	}

	var item *domain.InventoryItem
	if stored == nil {
		item = s.lookupItem(ctx, serial)
		if item != nil {
			if report.ProductName == "" {
				report.ProductName = item.ProductName
			}
			if item.Customer != nil {
				if report.CustomerName == "" {
					report.CustomerName = item.Customer.Name
				}
				if report.CustomerPhone == "" {
					report.CustomerPhone = item.Customer.Phone
				}
			}
		}
	}

	record, err := warranty.RegisterIssue(mapper.ToWarrantyRecord(stored), report, s.now())
	if err != nil {
		return nil, translateWarrantyError(err)
	}

	if stored == nil {
		stored = &domain.WarrantyReplacement{}
	}
	mapper.ApplyWarrantyRecord(stored, record)
	if err := s.warrantyRepo.Save(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save replacement record: %w", err)
	}

	s.logger.Info("warranty issue registered",
		zap.String("replacementID", stored.ID.String()),
		zap.String("serialNumber", stored.SerialNumber),
		zap.Int("issues", len(stored.Issues)),
	)

	if item == nil {
		item = s.lookupItem(ctx, stored.SerialNumber)
	}
	s.notifyBranchManagers(ctx, item, stored)

	dto := mapper.ToWarrantyReplacementDTO(stored)
	return &dto, nil
}

// Complete records the replacement unit for the latest issue
func (s *WarrantyService) Complete(ctx context.Context, req *domain.CompleteWarrantyRequest) (*domain.WarrantyReplacementDTO, error) {
	stored, err := s.load(ctx, req.ReplacementID)
	if err != nil {
		return nil, err
	}

	record, err := warranty.CompleteReplacement(mapper.ToWarrantyRecord(stored), req.NewSerialNumber, s.now())
	if err != nil {
		return nil, translateWarrantyError(err)
	}

	mapper.ApplyWarrantyRecord(stored, record)
	if err := s.warrantyRepo.Save(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save replacement record: %w", err)
	}

	s.logger.Info("warranty replacement completed",
		zap.String("replacementID", stored.ID.String()),
		zap.String("newSerialNumber", stored.CurrentSerialNumber),
	)

	dto := mapper.ToWarrantyReplacementDTO(stored)
	return &dto, nil
}

// UpdateClaim approves or rejects a pending claim
func (s *WarrantyService) UpdateClaim(ctx context.Context, req *domain.UpdateWarrantyClaimRequest) (*domain.WarrantyReplacementDTO, error) {
	stored, err := s.load(ctx, req.ReplacementID)
	if err != nil {
		return nil, err
	}

	record, err := warranty.UpdateClaim(mapper.ToWarrantyRecord(stored), req.Status, req.Remark)
	if err != nil {
		return nil, translateWarrantyError(err)
	}

	mapper.ApplyWarrantyRecord(stored, record)
	if err := s.warrantyRepo.Save(ctx, stored); err != nil {
		return nil, fmt.Errorf("failed to save replacement record: %w", err)
	}

	dto := mapper.ToWarrantyReplacementDTO(stored)
	return &dto, nil
}

func (s *WarrantyService) List(ctx context.Context, status *warranty.Status) ([]domain.WarrantyReplacementDTO, error) {
	replacements, err := s.warrantyRepo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list replacements: %w", err)
	}
	dtos := make([]domain.WarrantyReplacementDTO, len(replacements))
	for i := range replacements {
		dtos[i] = mapper.ToWarrantyReplacementDTO(&replacements[i])
	}
	return dtos, nil
}

// History returns the record of a serial, given either the original or a replacement serial
func (s *WarrantyService) History(ctx context.Context, serialNumber string) (*domain.WarrantyReplacementDTO, error) {
	stored, err := s.findRecord(ctx, strings.TrimSpace(serialNumber))
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrReplacementNotFound
	}
	dto := mapper.ToWarrantyReplacementDTO(stored)
	return &dto, nil
}

// FindByReplacementSerial finds the record a replacement unit was issued under
func (s *WarrantyService) FindByReplacementSerial(ctx context.Context, serialNumber string) (*domain.WarrantyReplacementDTO, error) {
	stored, err := s.warrantyRepo.FindByReplacementSerial(ctx, strings.TrimSpace(serialNumber))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReplacementNotFound
		}
		return nil, fmt.Errorf("failed to find replacement: %w", err)
	}
	dto := mapper.ToWarrantyReplacementDTO(stored)
	return &dto, nil
}

// findRecord returns the record keyed by serial or currently carrying it; nil when none
func (s *WarrantyService) findRecord(ctx context.Context, serial string) (*domain.WarrantyReplacement, error) {
	if serial == "" {
		return nil, domain.NewValidationError("serialNumber", "serial number is required")
	}
	stored, err := s.warrantyRepo.GetBySerial(ctx, serial)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		stored, err = s.warrantyRepo.FindByReplacementSerial(ctx, serial)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get replacement record: %w", err)
	}
	return stored, nil
}

func (s *WarrantyService) load(ctx context.Context, id uuid.UUID) (*domain.WarrantyReplacement, error) {
	stored, err := s.warrantyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReplacementNotFound
		}
		return nil, fmt.Errorf("failed to get replacement record: %w", err)
	}
	return stored, nil
}

func (s *WarrantyService) lookupItem(ctx context.Context, serial string) *domain.InventoryItem {
	item, err := s.inventoryRepo.GetBySerial(ctx, serial)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("failed to look up inventory item", zap.String("serialNumber", serial), zap.Error(err))
		}
		return nil
	}
	return item
}

func (s *WarrantyService) notifyBranchManagers(ctx context.Context, item *domain.InventoryItem, stored *domain.WarrantyReplacement) {
	if item == nil || item.BranchID == nil {
		return
	}
	managers, err := s.userRepo.ListByRoleUnscoped(ctx, domain.RoleManager, item.BranchID)
	if err != nil {
		s.logger.Warn("failed to list managers for warranty claim", zap.Error(err))
		return
	}
	ids := make([]uuid.UUID, 0, len(managers))
	for _, m := range managers {
		ids = append(ids, m.ID)
	}
	s.notifications.NotifyMany(ctx, ids, domain.NotificationTypeWarrantyClaim,
		"Warranty claim registered",
		fmt.Sprintf("%s (%s) has a new warranty claim", stored.SerialNumber, stored.ProductName),
		stored.ID)
}

// translateWarrantyError maps state machine errors onto service errors
func translateWarrantyError(err error) error {
	var verr *warranty.ValidationError
	switch {
	case errors.As(err, &verr):
		return domain.NewValidationError(verr.Field, verr.Message)
	case errors.Is(err, warranty.ErrOpenClaim):
		return ErrOpenWarrantyClaim
	case errors.Is(err, warranty.ErrInvalidStatus):
		return fmt.Errorf("%w: %v", ErrInvalidStatusTransition, err)
	default:
		return err
	}
}
