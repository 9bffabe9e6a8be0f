package handlers

import (
	"time"

	"walletledger/internal/models"
	"walletledger/internal/services/user"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type AuthHandler struct {
	userService user.Service
	jwtSecret   string
	tokenTTL    time.Duration
	log         *logrus.Entry
}

func NewAuthHandler(userService user.Service, jwtSecret string, tokenTTL time.Duration, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtSecret:   jwtSecret,
		tokenTTL:    tokenTTL,
		log:         log,
	}
}

// RegisterUser creates a user together with their wallet.
func (h *AuthHandler) RegisterUser(c *fiber.Ctx) error {
	var input models.CreateUserInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	created, err := h.userService.Register(c.UserContext(), input)
	if err != nil {
		return failure(c, h.log, "register", err)
	}

	return utils.Created(c, fiber.Map{
		"user": created,
	})
}

// LoginUser verifies credentials and returns an access token.
func (h *AuthHandler) LoginUser(c *fiber.Ctx) error {
	var input models.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	authenticated, err := h.userService.Authenticate(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return failure(c, h.log, "login", err)
	}

	accessToken, err := utils.GenerateAccessToken(h.jwtSecret, h.tokenTTL, authenticated)
	if err != nil {
		h.log.WithField("error", err).Error("failed to sign access token")
		return utils.InternalError(c, "Authentication failed")
	}

	return utils.Success(c, fiber.Map{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   int(h.tokenTTL.Seconds()),
		"user": fiber.Map{
			"id":    authenticated.ID,
			"email": authenticated.Email,
		},
	})
}
