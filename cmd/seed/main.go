// Command seed creates a user with a funded wallet for local testing.
package main

import (
	"context"
	"errors"
	"os"

	"walletledger/internal/config"
	apperrors "walletledger/internal/errors"
	"walletledger/internal/logger"
	"walletledger/internal/models"
	"walletledger/internal/repositories"
	"walletledger/internal/services/user"
	"walletledger/internal/services/wallet"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logger.Init(cfg.LogLevel, config.IsProduction())

	email := os.Getenv("SEED_EMAIL")
	password := os.Getenv("SEED_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("SEED_EMAIL and SEED_PASSWORD must be set in environment")
	}
	opening, err := decimal.NewFromString(config.GetEnv("SEED_BALANCE", "0"))
	if err != nil {
		log.WithError(err).Fatal("invalid SEED_BALANCE")
	}

	db, err := repositories.NewPostgres(cfg.Database, logger.Component(log, "database"))
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer repositories.Close(db)

	ctx := context.Background()
	store := repositories.NewLedgerStore(db)
	users := user.NewService(store, nil, nil, user.Config{}, logger.Component(log, "user"))

	seeded, err := users.Register(ctx, models.CreateUserInput{
		Email:    email,
		FullName: config.GetEnv("SEED_NAME", "Seed User"),
		Password: password,
	})
	if errors.Is(err, apperrors.ErrEmailTaken) {
		log.WithField("email", email).Info("seed user already exists")
		return
	}
	if err != nil {
		log.WithError(err).Fatal("failed to create seed user")
	}

	if opening.IsPositive() {
		wallets := wallet.NewService(store, wallet.Config{}, wallet.WithLogger(logger.Component(log, "wallet")))
		if _, err := wallets.Deposit(ctx, wallet.DepositRequest{
			AccountID:   seeded.Account.ID,
			Amount:      opening,
			Reference:   "seed:" + seeded.ID.String(),
			Description: "opening balance",
		}); err != nil {
			log.WithError(err).Fatal("failed to fund seed wallet")
		}
	}

	log.WithFields(logrus.Fields{
		"user_id":    seeded.ID,
		"account_id": seeded.Account.ID,
		"balance":    opening.StringFixed(wallet.AmountScale),
	}).Info("seed user created")
}
