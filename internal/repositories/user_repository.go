package repositories

import (
	"context"

	"walletledger/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user-related database operations.
// Users are removed through LedgerStore.DeleteOwner so their wallet goes with them.
type UserRepository interface {
	// Create creates a new user; a taken email fails with ErrEmailTaken
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by their ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by their email address
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// Update writes the user's email, name and password hash. A missing user
	// fails with ErrNotFound, a taken email with ErrEmailTaken.
	Update(ctx context.Context, user *models.User) error
}
