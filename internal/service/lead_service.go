package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fieldline/crm-api/internal/auth"
	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/mapper"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LeadService handles lead intake and conversion to customers
type LeadService struct {
	db           *gorm.DB
	leadRepo     *repository.LeadRepository
	customerRepo *repository.CustomerRepository
	numbers      *NumberSequenceService
	logger       *zap.Logger
	now          func() time.Time
}

func NewLeadService(
	db *gorm.DB,
	leadRepo *repository.LeadRepository,
	customerRepo *repository.CustomerRepository,
	numbers *NumberSequenceService,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		db:           db,
		leadRepo:     leadRepo,
		customerRepo: customerRepo,
		numbers:      numbers,
		logger:       logger,
		now:          time.Now,
	}
}

// resolveBranch pins non-admins to their own branch; admins choose freely
func resolveBranch(ctx context.Context, requested *uuid.UUID) *uuid.UUID {
	if userCtx, ok := auth.FromContext(ctx); ok && !userCtx.IsAdmin() && userCtx.BranchID != nil {
		return userCtx.BranchID
	}
	return requested
}

// Create registers a lead. The optional initial remark sets the lead's status;
// without one the lead starts neutral.
func (s *LeadService) Create(ctx context.Context, req *domain.CreateLeadRequest) (*domain.LeadDTO, error) {
	lead := &domain.Lead{
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Address:  strings.TrimSpace(req.Address),
		Status:   domain.LeadStatusNeutral,
		BranchID: resolveBranch(ctx, req.BranchID),
	}

	by := actorFrom(ctx)
	lead.CreatedByID = by.id

	if req.Remark != nil && strings.TrimSpace(req.Remark.Text) != "" {
		if !req.Remark.Status.IsValid() {
			return nil, domain.NewValidationError("remark.status", "must be positive, neutral or negative")
		}
		lead.Status = req.Remark.Status
		lead.Remarks = []domain.LeadRemark{{
			Text:      strings.TrimSpace(req.Remark.Text),
			Status:    req.Remark.Status,
			CreatedBy: by.name,
		}}
	}

	if err := s.leadRepo.Create(ctx, lead); err != nil {
		return nil, fmt.Errorf("failed to create lead: %w", err)
	}

	s.logger.Info("lead created",
		zap.String("leadID", lead.ID.String()),
		zap.String("status", string(lead.Status)),
	)

	dto := mapper.ToLeadDTO(lead)
	return &dto, nil
}

func (s *LeadService) GetByID(ctx context.Context, id uuid.UUID) (*domain.LeadDTO, error) {
	lead, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToLeadDTO(lead)
	return &dto, nil
}

// List returns leads that have not been converted
func (s *LeadService) List(ctx context.Context, branchID *uuid.UUID) ([]domain.LeadDTO, error) {
	leads, err := s.leadRepo.List(ctx, branchID, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	dtos := make([]domain.LeadDTO, len(leads))
	for i := range leads {
		dtos[i] = mapper.ToLeadDTO(&leads[i])
	}
	return dtos, nil
}

// AddRemark appends a note. The lead's status stays as set at creation.
func (s *LeadService) AddRemark(ctx context.Context, id uuid.UUID, req *domain.LeadRemarkRequest) (*domain.LeadDTO, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, domain.NewValidationError("text", "remark text is required")
	}
	if !req.Status.IsValid() {
		return nil, domain.NewValidationError("status", "must be positive, neutral or negative")
	}

	lead, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Converted {
		return nil, ErrLeadAlreadyConverted
	}

	remark := &domain.LeadRemark{
		LeadID:    lead.ID,
		Text:      text,
		Status:    req.Status,
		CreatedBy: actorFrom(ctx).name,
	}
	remark.CreatedAt = s.now()
	if err := s.leadRepo.AddRemark(ctx, remark); err != nil {
		return nil, fmt.Errorf("failed to add remark: %w", err)
	}

	return s.GetByID(ctx, id)
}

// ConvertToCustomer turns a lead into a customer with a first New Installation
// work order in pending. The lead is flagged converted rather than deleted.
func (s *LeadService) ConvertToCustomer(ctx context.Context, id uuid.UUID, req *domain.ConvertLeadRequest) (*domain.CustomerDTO, error) {
	if strings.TrimSpace(req.ProjectType) == "" {
		return nil, domain.NewValidationError("projectType", "project type is required")
	}

	lead, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead.Converted {
		return nil, ErrLeadAlreadyConverted
	}

	orderID, err := s.numbers.GenerateWorkOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	by := actorFrom(ctx)
	customer := &domain.Customer{
		Name:              lead.Name,
		Phone:             lead.Phone,
		Email:             lead.Email,
		Address:           lead.Address,
		ConvertedFromLead: true,
		LeadID:            &lead.ID,
		BranchID:          lead.BranchID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(customer).Error; err != nil {
			return fmt.Errorf("failed to create customer: %w", err)
		}

		workOrder := newPendingWorkOrder(orderID, customer, req.ProjectType, domain.CategoryNewInstallation, req.InitialRemark, req.Instructions, by)
		if err := tx.Create(workOrder).Error; err != nil {
			return fmt.Errorf("failed to create work order: %w", err)
		}

		convertedAt := s.now()
		result := tx.Model(&domain.Lead{}).
			Where("id = ? AND converted = ?", lead.ID, false).
			Updates(map[string]interface{}{
				"converted":    true,
				"converted_at": convertedAt,
				"customer_id":  customer.ID,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to mark lead converted: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrLeadAlreadyConverted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("lead converted to customer",
		zap.String("leadID", lead.ID.String()),
		zap.String("customerID", customer.ID.String()),
		zap.String("orderID", orderID),
	)

	created, err := s.customerRepo.GetByID(ctx, customer.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload customer: %w", err)
	}
	dto := mapper.ToCustomerDTO(created)
	return &dto, nil
}

func (s *LeadService) load(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	lead, err := s.leadRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}
