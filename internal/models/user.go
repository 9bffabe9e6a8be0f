package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity that owns exactly one Account.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_email" json:"email"`
	FullName     string    `gorm:"type:varchar(255);not null" json:"full_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Account      *Account  `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"account,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type CreateUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserInput is a partial profile update; nil fields are left as they
// are. A new password needs the current one.
type UpdateUserInput struct {
	Email           *string `json:"email" validate:"omitempty,email"`
	FullName        *string `json:"full_name" validate:"omitempty,min=1,max=255"`
	Password        *string `json:"password" validate:"omitempty,min=8,max=72"`
	CurrentPassword string  `json:"current_password" validate:"required_with=Password"`
}
