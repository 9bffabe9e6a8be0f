package handlers

import (
	"walletledger/internal/errors"
	"walletledger/internal/models"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// failure writes err and logs its full chain. Domain errors are expected
// outcomes and log at debug.
func failure(c *fiber.Ctx, log *logrus.Entry, action string, err error) error {
	entry := log.WithFields(logrus.Fields{
		"action": action,
		"path":   c.Path(),
		"error":  err,
	})
	if code := errors.Code(err); code != "" {
		entry.WithField("code", code).Debug("request rejected")
	} else {
		entry.Error("request failed")
	}
	return utils.Error(c, err)
}

func claimsOf(c *fiber.Ctx) (*models.UserClaims, bool) {
	claims, err := utils.GetUserClaims(c)
	return claims, err == nil
}
