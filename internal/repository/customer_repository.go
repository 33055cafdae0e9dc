package repository

import (
	"context"
	"strings"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

// GetByID returns a customer with its work orders
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var customer domain.Customer
	query := r.db.WithContext(ctx).
		Preload("WorkOrders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("WorkOrders.Technician").
		Preload("WorkOrders.ApprovedBy").
		Preload("WorkOrders.StatusHistory", preloadHistory).
		Where("id = ?", id)
	query = ApplyBranchFilter(ctx, query)
	err := query.First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Omit("WorkOrders").Save(customer).Error
}

func (r *CustomerRepository) List(ctx context.Context, branchID *uuid.UUID) ([]domain.Customer, error) {
	var customers []domain.Customer

	query := r.db.WithContext(ctx).Model(&domain.Customer{})
	query = ApplyBranchFilter(ctx, query)
	query = applyExplicitBranch(query, branchID)

	err := query.Order("created_at DESC").Find(&customers).Error
	return customers, err
}

func (r *CustomerRepository) Count(ctx context.Context) (int, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.Customer{})
	query = ApplyBranchFilter(ctx, query)
	err := query.Count(&count).Error
	return int(count), err
}

// Search matches customers by name, phone or email
func (r *CustomerRepository) Search(ctx context.Context, searchQuery string, limit int) ([]domain.Customer, error) {
	var customers []domain.Customer
	searchPattern := "%" + strings.ToLower(searchQuery) + "%"
	query := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(email) LIKE ?", searchPattern, searchPattern, searchPattern)
	query = ApplyBranchFilter(ctx, query)
	err := query.Order("created_at DESC").Limit(limit).Find(&customers).Error
	return customers, err
}
