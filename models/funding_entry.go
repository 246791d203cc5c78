package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// FundingEntry records that a confirmed investment's amount has been applied
// to its project's raised total. The unique index on InvestmentID is the
// idempotency guard: inserting a second entry for the same investment fails,
// so the amount can never be applied twice, regardless of how many
// confirmation paths (user or admin) race for it.
type FundingEntry struct {
	ID           string          `gorm:"primaryKey;type:char(36)" json:"id"`
	InvestmentID string          `gorm:"type:char(36);not null;uniqueIndex" json:"investment_id"`
	ProjectID    string          `gorm:"type:char(36);not null;index" json:"project_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (FundingEntry) TableName() string {
	return "funding_entries"
}

func (e *FundingEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
