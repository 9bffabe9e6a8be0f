package utils

import (
	"errors"

	"walletledger/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys set by the auth middleware.
const (
	LocalClaims = "claims"
	LocalUserID = "userID"
)

var ErrNoClaims = errors.New("no user claims on request")

// SetUserClaims stores the authenticated caller on the request.
func SetUserClaims(c *fiber.Ctx, claims *models.UserClaims) {
	c.Locals(LocalClaims, claims)
	c.Locals(LocalUserID, claims.UserID)
}

// GetUserClaims returns the authenticated caller.
func GetUserClaims(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals(LocalClaims).(*models.UserClaims)
	if !ok || claims == nil || claims.UserID == uuid.Nil {
		return nil, ErrNoClaims
	}
	return claims, nil
}
