// Package middleware provides HTTP middleware for the fiber app.
package middleware

import (
	"context"
	"errors"
	"strings"

	apperrors "walletledger/internal/errors"
	"walletledger/internal/models"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserLookup resolves the user a token was issued to.
type UserLookup interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

// AuthMiddleware validates bearer access tokens and stores the claims on the
// request. Tokens of users that no longer exist are rejected.
type AuthMiddleware struct {
	secret string
	users  UserLookup
	log    *logrus.Entry
}

// NewAuthMiddleware builds the middleware. users may be nil, in which case
// only the signature and expiry are checked.
func NewAuthMiddleware(secret string, users UserLookup, log *logrus.Entry) *AuthMiddleware {
	return &AuthMiddleware{
		secret: secret,
		users:  users,
		log:    log,
	}
}

func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}

	claims, err := utils.ParseToken(m.secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		m.log.WithFields(logrus.Fields{
			"path":  c.Path(),
			"error": err,
		}).Debug("token rejected")
		return utils.Unauthorized(c, "invalid token")
	}

	if m.users != nil {
		if _, err := m.users.GetProfile(c.UserContext(), claims.UserID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				m.log.WithField("user_id", claims.UserID).Debug("token of deleted user rejected")
				return utils.Unauthorized(c, "invalid token")
			}
			m.log.WithFields(logrus.Fields{
				"user_id": claims.UserID,
				"error":   err,
			}).Error("failed to look up token user")
			return utils.Error(c, err)
		}
	}

	utils.SetUserClaims(c, claims)
	return c.Next()
}
