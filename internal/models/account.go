package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const DefaultCurrency = "USD"

// Account is a user's wallet. Balance is a cached value that always equals the
// net effect of the account's ledger entries.
type Account struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_accounts_owner" json:"owner_id"`
	Balance      decimal.Decimal `gorm:"type:numeric(12,2);not null;check:balance >= 0" json:"balance"`
	Currency     string          `gorm:"type:varchar(10);not null" json:"currency"`
	CreatedAt    time.Time       `gorm:"not null;default:now();autoCreateTime:false" json:"created_at"`
	Transactions []Transaction   `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Currency == "" {
		a.Currency = DefaultCurrency
	}
	return nil
}
