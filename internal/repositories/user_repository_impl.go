package repositories

import (
	"context"
	"fmt"
	"strings"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Omit("Account").Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", classifyError(err))
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, classifyError(err))
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", classifyError(err))
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"email":         user.Email,
			"full_name":     user.FullName,
			"password_hash": user.PasswordHash,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update user %s: %w", user.ID, classifyError(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update user %s: %w", user.ID, apperrors.ErrNotFound)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
