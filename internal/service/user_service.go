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

// UserService manages staff accounts and sign-in
type UserService struct {
	userRepo      *repository.UserRepository
	branchRepo    *repository.BranchRepository
	workOrderRepo *repository.WorkOrderRepository
	bcryptCost    int
	logger        *zap.Logger
	now           func() time.Time
}

func NewUserService(
	userRepo *repository.UserRepository,
	branchRepo *repository.BranchRepository,
	workOrderRepo *repository.WorkOrderRepository,
	bcryptCost int,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:      userRepo,
		branchRepo:    branchRepo,
		workOrderRepo: workOrderRepo,
		bcryptCost:    bcryptCost,
		logger:        logger,
		now:           time.Now,
	}
}

// Create adds a staff account. Managers and technicians must belong to a branch.
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserDTO, error) {
	if !req.Role.IsValid() {
		return nil, domain.NewValidationError("role", "must be admin, manager or technician")
	}
	if req.Role != domain.RoleAdmin && req.BranchID == nil {
		return nil, domain.NewValidationError("branch", "managers and technicians need a branch")
	}
	if req.BranchID != nil {
		if _, err := s.branchRepo.GetByID(ctx, *req.BranchID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrBranchNotFound
			}
			return nil, fmt.Errorf("failed to get branch: %w", err)
		}
	}

	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.userRepo.GetByUsername(ctx, req.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		Role:         req.Role,
		BranchID:     req.BranchID,
		Status:       domain.UserStatusActive,
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		zap.String("userID", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	return s.GetByID(ctx, user.ID)
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Managers lists every manager visible to the caller
func (s *UserService) Managers(ctx context.Context) ([]domain.UserDTO, error) {
	users, err := s.userRepo.ListByRole(ctx, domain.RoleManager, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list managers: %w", err)
	}
	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToUserDTO(&users[i])
	}
	return dtos, nil
}

// Technicians lists technicians, optionally with performance derived from their work orders
func (s *UserService) Technicians(ctx context.Context, branchID *uuid.UUID, withPerformance bool) ([]domain.TechnicianDTO, error) {
	users, err := s.userRepo.ListByRole(ctx, domain.RoleTechnician, branchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list technicians: %w", err)
	}

	var byTechnician map[uuid.UUID][]domain.WorkOrderDTO
	if withPerformance {
		workOrders, err := s.workOrderRepo.List(ctx, domain.WorkOrderFilters{BranchID: branchID})
		if err != nil {
			return nil, fmt.Errorf("failed to list work orders: %w", err)
		}
		byTechnician = make(map[uuid.UUID][]domain.WorkOrderDTO)
		for _, dto := range mapper.ToWorkOrderDTOs(workOrders) {
			if dto.Technician != nil {
				byTechnician[dto.Technician.ID] = append(byTechnician[dto.Technician.ID], dto)
			}
		}
	}

	dtos := make([]domain.TechnicianDTO, len(users))
	for i := range users {
		dtos[i] = domain.TechnicianDTO{UserDTO: mapper.ToUserDTO(&users[i])}
		if withPerformance {
			perf := lifecycle.Performance(byTechnician[users[i].ID])
			dtos[i].Performance = &perf
		}
	}
	return dtos, nil
}

// Performance derives one technician's performance
func (s *UserService) Performance(ctx context.Context, technicianID uuid.UUID) (*lifecycle.TechnicianPerformance, error) {
	workOrders, err := s.workOrderRepo.List(ctx, domain.WorkOrderFilters{TechnicianID: &technicianID})
	if err != nil {
		return nil, fmt.Errorf("failed to list work orders: %w", err)
	}
	perf := lifecycle.Performance(mapper.ToWorkOrderDTOs(workOrders))
	return &perf, nil
}

// Authenticate checks credentials and records the sign-in.
// Unknown users, inactive users and wrong passwords all return auth.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !user.IsActive() {
		return nil, auth.ErrInvalidCredentials
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.String("userID", user.ID.String()), zap.Error(err))
	}
	user.LastLoginAt = &now

	s.logger.Info("user signed in",
		zap.String("userID", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}
