package handlers

import (
	"walletledger/internal/services/wallet"
	"walletledger/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// HeaderIdempotencyKey becomes the ledger reference when the body has none, so
// a retried request cannot post twice. Keys are scoped to the caller's account.
const HeaderIdempotencyKey = "Idempotency-Key"

// referenceFor returns the body reference, or the caller's idempotency key
// prefixed with their account id.
func referenceFor(c *fiber.Ctx, accountID uuid.UUID, reference string) string {
	if reference != "" {
		return reference
	}
	if key := c.Get(HeaderIdempotencyKey); key != "" {
		return accountID.String() + ":" + key
	}
	return ""
}

type amountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference" validate:"max=120"`
	Description string          `json:"description" validate:"max=255"`
}

type transferRequest struct {
	ReceiverAccountID uuid.UUID       `json:"receiver_account_id" validate:"required"`
	Amount            decimal.Decimal `json:"amount"`
	Reference         string          `json:"reference" validate:"max=120"`
	Description       string          `json:"description" validate:"max=255"`
}

type WalletHandler struct {
	walletService wallet.Service
	log           *logrus.Entry
}

func NewWalletHandler(walletService wallet.Service, log *logrus.Entry) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
		log:           log,
	}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	account, err := h.walletService.GetAccountByOwner(c.UserContext(), claims.UserID)
	if err != nil {
		return failure(c, h.log, "get wallet", err)
	}

	return utils.Success(c, fiber.Map{
		"wallet": account,
	})
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	return h.single(c, "deposit", func(accountID uuid.UUID, in amountRequest) (*wallet.OperationResult, error) {
		return h.walletService.Deposit(c.UserContext(), wallet.DepositRequest{
			AccountID:   accountID,
			Amount:      in.Amount,
			Reference:   in.Reference,
			Description: in.Description,
		})
	})
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	return h.single(c, "withdraw", func(accountID uuid.UUID, in amountRequest) (*wallet.OperationResult, error) {
		return h.walletService.Withdraw(c.UserContext(), wallet.WithdrawRequest{
			AccountID:   accountID,
			Amount:      in.Amount,
			Reference:   in.Reference,
			Description: in.Description,
		})
	})
}

func (h *WalletHandler) single(c *fiber.Ctx, action string, run func(uuid.UUID, amountRequest) (*wallet.OperationResult, error)) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input amountRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	account, err := h.walletService.GetAccountByOwner(c.UserContext(), claims.UserID)
	if err != nil {
		return failure(c, h.log, action, err)
	}
	input.Reference = referenceFor(c, account.ID, input.Reference)

	result, err := run(account.ID, input)
	if err != nil {
		return failure(c, h.log, action, err)
	}

	return utils.Success(c, fiber.Map{
		"balance":     result.NewBalance,
		"transaction": result.Transaction,
	})
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	claims, ok := claimsOf(c)
	if !ok {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input transferRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.BadRequest(c, err.Error())
	}

	sender, err := h.walletService.GetAccountByOwner(c.UserContext(), claims.UserID)
	if err != nil {
		return failure(c, h.log, "transfer", err)
	}

	result, err := h.walletService.Transfer(c.UserContext(), wallet.TransferRequest{
		SenderID:    sender.ID,
		ReceiverID:  input.ReceiverAccountID,
		Amount:      input.Amount,
		Reference:   referenceFor(c, sender.ID, input.Reference),
		Description: input.Description,
	})
	if err != nil {
		return failure(c, h.log, "transfer", err)
	}

	return utils.Success(c, fiber.Map{
		"balance":     result.SenderBalance,
		"transaction": result.Out,
	})
}
