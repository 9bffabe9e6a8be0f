package handlers

import (
	"walletledger/internal/services/audit"
	"walletledger/internal/services/wallet"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// AuditHandler exposes the fraud checks for the caller's own account.
type AuditHandler struct {
	auditService  *audit.Service
	walletService wallet.Service
	log           *logrus.Entry
}

func NewAuditHandler(auditService *audit.Service, walletService wallet.Service, log *logrus.Entry) *AuditHandler {
	return &AuditHandler{
		auditService:  auditService,
		walletService: walletService,
		log:           log,
	}
}

func (h *AuditHandler) LargeTransactions(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	threshold := audit.DefaultLargeThreshold
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return utils.BadRequest(c, "Invalid threshold")
		}
		threshold = parsed
	}

	account, err := h.walletService.GetAccountByOwner(c.UserContext(), claims.UserID)
	if err != nil {
		return failure(c, h.log, "flag large transactions", err)
	}

	flagged, err := h.auditService.FlagLargeTransactions(c.UserContext(), account.ID, threshold)
	if err != nil {
		return failure(c, h.log, "flag large transactions", err)
	}

	return utils.Success(c, fiber.Map{
		"threshold":    threshold,
		"transactions": flagged,
	})
}

func (h *AuditHandler) UnusualActivity(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	account, err := h.walletService.GetAccountByOwner(c.UserContext(), claims.UserID)
	if err != nil {
		return failure(c, h.log, "detect unusual activity", err)
	}

	report, err := h.auditService.DetectUnusualActivity(
		c.UserContext(),
		account.ID,
		utils.QueryInt(c, "minutes", audit.DefaultWindowMinutes),
		utils.QueryInt(c, "limit", audit.DefaultCountLimit),
	)
	if err != nil {
		return failure(c, h.log, "detect unusual activity", err)
	}

	return utils.Success(c, report)
}
