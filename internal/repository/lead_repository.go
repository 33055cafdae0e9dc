package repository

import (
	"context"
	"strings"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func preloadRemarks(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}

// Create inserts the lead together with any remarks it carries
func (r *LeadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *LeadRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	var lead domain.Lead
	query := r.db.WithContext(ctx).Preload("Remarks", preloadRemarks).Where("id = ?", id)
	query = ApplyBranchFilter(ctx, query)
	err := query.First(&lead).Error
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// List returns leads newest first. Converted leads are only included on request.
func (r *LeadRepository) List(ctx context.Context, branchID *uuid.UUID, includeConverted bool) ([]domain.Lead, error) {
	var leads []domain.Lead

	query := r.db.WithContext(ctx).Model(&domain.Lead{}).Preload("Remarks", preloadRemarks)
	query = ApplyBranchFilter(ctx, query)
	query = applyExplicitBranch(query, branchID)

	if !includeConverted {
		query = query.Where("converted = ?", false)
	}

	err := query.Order("created_at DESC").Find(&leads).Error
	return leads, err
}

// AddRemark appends a remark and bumps the lead's updated_at
func (r *LeadRepository) AddRemark(ctx context.Context, remark *domain.LeadRemark) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(remark).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Lead{}).
			Where("id = ?", remark.LeadID).
			Update("updated_at", remark.CreatedAt).Error
	})
}

// Search matches open leads by name, phone or email
func (r *LeadRepository) Search(ctx context.Context, searchQuery string, limit int) ([]domain.Lead, error) {
	var leads []domain.Lead
	searchPattern := "%" + strings.ToLower(searchQuery) + "%"
	query := r.db.WithContext(ctx).
		Where("converted = ?", false).
		Where("LOWER(name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(email) LIKE ?", searchPattern, searchPattern, searchPattern)
	query = ApplyBranchFilter(ctx, query)
	err := query.Order("created_at DESC").Limit(limit).Find(&leads).Error
	return leads, err
}
