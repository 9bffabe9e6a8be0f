package handlers

import (
	"walletledger/internal/models"
	"walletledger/internal/services/user"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	userService user.Service
	log         *logrus.Entry
}

func NewUserHandler(userService user.Service, log *logrus.Entry) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	profile, err := h.userService.GetProfile(c.UserContext(), claims.UserID)
	if err != nil {
		return failure(c, h.log, "get profile", err)
	}

	return utils.Success(c, fiber.Map{
		"user": profile,
	})
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input models.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	profile, err := h.userService.UpdateProfile(c.UserContext(), claims.UserID, input)
	if err != nil {
		return failure(c, h.log, "update profile", err)
	}

	return utils.Success(c, fiber.Map{
		"user": profile,
	})
}

// DeleteAccount removes the caller, their wallet and its ledger.
func (h *UserHandler) DeleteAccount(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	if err := h.userService.Delete(c.UserContext(), claims.UserID); err != nil {
		return failure(c, h.log, "delete user", err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
