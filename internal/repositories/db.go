// Package repositories provides the ledger store: gorm-backed access to
// users, accounts and their ledger entries.
package repositories

import (
	"fmt"

	"walletledger/internal/config"
	"walletledger/internal/logger"
	"walletledger/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgres opens the primary database, configures the connection pool and
// migrates the schema.
func NewPostgres(cfg config.DatabaseConfig, log *logrus.Entry) (*gorm.DB, error) {
	db, err := open(cfg.DSN(), cfg, log)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("PostgreSQL connected & migrations applied")
	return db, nil
}

// NewReadReplica opens the replica used by read-only analysis. When no
// replica is configured it returns the primary.
func NewReadReplica(cfg config.DatabaseConfig, primary *gorm.DB, log *logrus.Entry) (*gorm.DB, error) {
	if cfg.ReadDSN == "" {
		return primary, nil
	}
	db, err := open(cfg.ReadDSN, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open read replica: %w", err)
	}
	log.Info("read replica connected")
	return db, nil
}

func open(dsn string, cfg config.DatabaseConfig, log *logrus.Entry) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logger.Gorm(log),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the users, accounts and transactions tables
// together with their unique, check and cascading foreign key constraints.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Transaction{},
	); err != nil {
		return err
	}

	m := db.Migrator()
	for _, fk := range []struct {
		model interface{}
		name  string
	}{
		{&models.User{}, "Account"},
		{&models.Account{}, "Transactions"},
	} {
		if m.HasConstraint(fk.model, fk.name) {
			continue
		}
		if err := m.CreateConstraint(fk.model, fk.name); err != nil {
			return fmt.Errorf("failed to create constraint %s: %w", fk.name, err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
