/*
Package wallet provides the ledger operations on user wallets.

The wallet service handles:
- Account creation and lookup (one account per owner)
- Deposits, withdrawals and transfers as atomic units
- Ledger queries
- Conflict retries against the store
- Post-commit metrics and ledger events

Usage:

	// Create a new wallet service
	svc := wallet.NewService(store, wallet.Config{}, wallet.WithRateLimiter(limiter))

	// Open a wallet
	account, err := svc.CreateAccount(ctx, ownerID, "USD")

	// Deposit
	res, err := svc.Deposit(ctx, wallet.DepositRequest{AccountID: account.ID, Amount: amount})

	// Transfer
	out, err := svc.Transfer(ctx, wallet.TransferRequest{SenderID: a, ReceiverID: b, Amount: amount})

Every mutation locks the account rows it changes with SELECT ... FOR UPDATE
inside one database transaction, re-reads the balance under that lock and
writes the balance together with its ledger entry. Transfers lock both rows in
ascending id order.

Error Handling:

Operations return the kinds from internal/errors, matched with errors.Is:
- ErrInvalidAmount, ErrSelfTransfer: rejected before touching the store
- ErrNotFound: account or transaction absent
- ErrInsufficientFunds: balance read under lock is too low
- ErrDuplicateReference: the reference was already recorded
- ErrRateLimited: too many transfers from the sender
- ErrConflict: the store kept aborting the unit after all retries
*/
package wallet
