package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/mapper"
	"github.com/fieldline/crm-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// searchLimit caps each side of the merged lead/customer search
const searchLimit = 50

type CustomerService struct {
	customerRepo  *repository.CustomerRepository
	leadRepo      *repository.LeadRepository
	workOrderRepo *repository.WorkOrderRepository
	numbers       *NumberSequenceService
	logger        *zap.Logger
}

func NewCustomerService(
	customerRepo *repository.CustomerRepository,
	leadRepo *repository.LeadRepository,
	workOrderRepo *repository.WorkOrderRepository,
	numbers *NumberSequenceService,
	logger *zap.Logger,
) *CustomerService {
	return &CustomerService{
		customerRepo:  customerRepo,
		leadRepo:      leadRepo,
		workOrderRepo: workOrderRepo,
		numbers:       numbers,
		logger:        logger,
	}
}

// Create adds a customer directly. When a project type is given the customer's
// first New Installation work order is opened too.
func (s *CustomerService) Create(ctx context.Context, req *domain.CreateCustomerRequest) (*domain.CustomerDTO, error) {
	customer := &domain.Customer{
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Address:  strings.TrimSpace(req.Address),
		BranchID: resolveBranch(ctx, req.BranchID),
	}

	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	s.logger.Info("customer created", zap.String("customerID", customer.ID.String()))

	if strings.TrimSpace(req.ProjectType) != "" {
		orderID, err := s.numbers.GenerateWorkOrderNumber(ctx)
		if err != nil {
			return nil, err
		}
		workOrder := newPendingWorkOrder(orderID, customer, req.ProjectType, domain.CategoryNewInstallation, req.InitialRemark, "", actorFrom(ctx))
		if err := s.workOrderRepo.Create(ctx, workOrder); err != nil {
			return nil, fmt.Errorf("failed to create work order: %w", err)
		}
	}

	return s.GetByID(ctx, customer.ID)
}

// GetByID returns a customer with its work orders
func (s *CustomerService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CustomerDTO, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	dto := mapper.ToCustomerDTO(customer)
	return &dto, nil
}

func (s *CustomerService) List(ctx context.Context, branchID *uuid.UUID) ([]domain.CustomerDTO, error) {
	customers, err := s.customerRepo.List(ctx, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	dtos := make([]domain.CustomerDTO, len(customers))
	for i := range customers {
		dtos[i] = mapper.ToCustomerDTO(&customers[i])
	}
	return dtos, nil
}

// Search returns open leads and customers matching query, merged by name
func (s *CustomerService) Search(ctx context.Context, query string) ([]domain.ContactDTO, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.ContactDTO{}, nil
	}

	leads, err := s.leadRepo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search leads: %w", err)
	}
	customers, err := s.customerRepo.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search customers: %w", err)
	}

	results := make([]domain.ContactDTO, 0, len(leads)+len(customers))
	for i := range leads {
		results = append(results, mapper.LeadToContactDTO(&leads[i]))
	}
	for i := range customers {
		results = append(results, mapper.CustomerToContactDTO(&customers[i]))
	}
	domain.SortContacts(results)
	return results, nil
}
