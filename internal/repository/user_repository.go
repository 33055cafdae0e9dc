package repository

import (
	"context"
	"time"

	"github.com/fieldline/crm-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Preload("Branch").First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername finds a user by username or email, case-insensitively
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).
		Preload("Branch").
		Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", username, username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListByRole returns users with role, scoped to the caller's branch and an optional explicit one
func (r *UserRepository) ListByRole(ctx context.Context, role domain.UserRole, branchID *uuid.UUID) ([]domain.User, error) {
	var users []domain.User
	query := r.db.WithContext(ctx).Preload("Branch").Where("role = ?", role)
	query = ApplyBranchFilter(ctx, query)
	query = applyExplicitBranch(query, branchID)
	err := query.Order("first_name ASC, last_name ASC").Find(&users).Error
	return users, err
}

// ListByRoleUnscoped ignores branch scoping; used by background jobs
func (r *UserRepository) ListByRoleUnscoped(ctx context.Context, role domain.UserRole, branchID *uuid.UUID) ([]domain.User, error) {
	var users []domain.User
	query := r.db.WithContext(ctx).Where("role = ? AND status = ?", role, domain.UserStatusActive)
	query = applyExplicitBranch(query, branchID)
	err := query.Find(&users).Error
	return users, err
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}
