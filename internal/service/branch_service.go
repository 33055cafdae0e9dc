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

type BranchService struct {
	branchRepo *repository.BranchRepository
	logger     *zap.Logger
}

func NewBranchService(branchRepo *repository.BranchRepository, logger *zap.Logger) *BranchService {
	return &BranchService{
		branchRepo: branchRepo,
		logger:     logger,
	}
}

func (s *BranchService) Create(ctx context.Context, req *domain.CreateBranchRequest) (*domain.BranchDTO, error) {
	name := strings.TrimSpace(req.Name)
	exists, err := s.branchRepo.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check branch name: %w", err)
	}
	if exists {
		return nil, ErrBranchExists
	}

	branch := &domain.Branch{
		Name:      name,
		Location:  strings.TrimSpace(req.Location),
		CreatedBy: actorFrom(ctx).id,
	}
	if err := s.branchRepo.Create(ctx, branch); err != nil {
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}

	s.logger.Info("branch created", zap.String("branchID", branch.ID.String()), zap.String("name", name))

	dto := mapper.ToBranchDTO(branch)
	return &dto, nil
}

func (s *BranchService) GetByID(ctx context.Context, id uuid.UUID) (*domain.BranchDTO, error) {
	branch, err := s.branchRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	dto := mapper.ToBranchDTO(branch)
	return &dto, nil
}

func (s *BranchService) List(ctx context.Context) ([]domain.BranchDTO, error) {
	branches, err := s.branchRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	dtos := make([]domain.BranchDTO, len(branches))
	for i := range branches {
		dtos[i] = mapper.ToBranchDTO(&branches[i])
	}
	return dtos, nil
}
