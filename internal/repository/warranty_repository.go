package repository

import (
	"context"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/fieldline/crm-api/internal/warranty"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WarrantyRepository struct {
	db *gorm.DB
}

func NewWarrantyRepository(db *gorm.DB) *WarrantyRepository {
	return &WarrantyRepository{db: db}
}

func preloadIssues(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}

func (r *WarrantyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.WarrantyReplacement, error) {
	var replacement domain.WarrantyReplacement
	err := r.db.WithContext(ctx).
		Preload("Issues", preloadIssues).
		First(&replacement, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &replacement, nil
}

// GetBySerial returns the record keyed by the originally installed serial
func (r *WarrantyRepository) GetBySerial(ctx context.Context, serialNumber string) (*domain.WarrantyReplacement, error) {
	var replacement domain.WarrantyReplacement
	err := r.db.WithContext(ctx).
		Preload("Issues", preloadIssues).
		Where("serial_number = ?", serialNumber).
		First(&replacement).Error
	if err != nil {
		return nil, err
	}
	return &replacement, nil
}

// FindByReplacementSerial finds the record a replacement unit was issued under
func (r *WarrantyRepository) FindByReplacementSerial(ctx context.Context, serialNumber string) (*domain.WarrantyReplacement, error) {
	var replacement domain.WarrantyReplacement
	sub := r.db.Model(&domain.WarrantyIssue{}).
		Select("replacement_id").
		Where("replacement_serial_number = ?", serialNumber)
	err := r.db.WithContext(ctx).
		Preload("Issues", preloadIssues).
		Where("current_serial_number = ? OR id IN (?)", serialNumber, sub).
		First(&replacement).Error
	if err != nil {
		return nil, err
	}
	return &replacement, nil
}

func (r *WarrantyRepository) List(ctx context.Context, status *warranty.Status) ([]domain.WarrantyReplacement, error) {
	var replacements []domain.WarrantyReplacement
	query := r.db.WithContext(ctx).Preload("Issues", preloadIssues)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	err := query.Order("updated_at DESC").Find(&replacements).Error
	return replacements, err
}

// Save writes the record and upserts its issues in one transaction
func (r *WarrantyRepository) Save(ctx context.Context, replacement *domain.WarrantyReplacement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(replacement).Error; err != nil {
			return err
		}
		for i := range replacement.Issues {
			replacement.Issues[i].ReplacementID = replacement.ID
			if err := tx.Save(&replacement.Issues[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
