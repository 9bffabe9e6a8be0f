package handlers

import (
	"walletledger/internal/repositories"
	"walletledger/internal/services/wallet"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TransactionHandler struct {
	walletService wallet.Service
	log           *logrus.Entry
}

func NewTransactionHandler(walletService wallet.Service, log *logrus.Entry) *TransactionHandler {
	return &TransactionHandler{
		walletService: walletService,
		log:           log,
	}
}

// GetTransactions lists the caller's ledger, newest first.
func (h *TransactionHandler) GetTransactions(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	account, err := h.walletService.GetAccountByOwner(c.UserContext(), claims.UserID)
	if err != nil {
		return failure(c, h.log, "list transactions", err)
	}

	limit := utils.GetLimit(c, repositories.DefaultListLimit, repositories.MaxListLimit)
	transactions, err := h.walletService.ListTransactions(c.UserContext(), account.ID, limit)
	if err != nil {
		return failure(c, h.log, "list transactions", err)
	}

	return utils.Success(c, fiber.Map{
		"transactions": transactions,
		"limit":        limit,
	})
}

// GetTransaction returns one entry. Entries of other accounts are reported as
// missing.
func (h *TransactionHandler) GetTransaction(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid transaction ID")
	}

	account, err := h.walletService.GetAccountByOwner(c.UserContext(), claims.UserID)
	if err != nil {
		return failure(c, h.log, "get transaction", err)
	}

	transaction, err := h.walletService.GetTransaction(c.UserContext(), id)
	if err != nil {
		return failure(c, h.log, "get transaction", err)
	}
	if transaction.AccountID != account.ID {
		return utils.NotFound(c, "transaction not found")
	}

	return utils.Success(c, fiber.Map{
		"transaction": transaction,
	})
}
