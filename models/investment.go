package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvestmentStatus string

const (
	InvestmentPending          InvestmentStatus = "pending"
	InvestmentPaymentConfirmed InvestmentStatus = "payment_confirmed"
	InvestmentContractSigned   InvestmentStatus = "contract_signed"
	InvestmentCompleted        InvestmentStatus = "completed"
)

// Investment status only moves forward; there is no regression path.
var investmentTransitions = map[InvestmentStatus][]InvestmentStatus{
	InvestmentPending:          {InvestmentPaymentConfirmed},
	InvestmentPaymentConfirmed: {InvestmentContractSigned},
	InvestmentContractSigned:   {InvestmentCompleted},
}

func (s InvestmentStatus) CanTransition(to InvestmentStatus) bool {
	for _, next := range investmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

const (
	PaymentMethodMobileMoney  = "mobile_money"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCard         = "card"
)

func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodMobileMoney, PaymentMethodBankTransfer, PaymentMethodCard:
		return true
	}
	return false
}

type Investment struct {
	ID               string           `gorm:"primaryKey;type:char(36)" json:"id"`
	ProjectID        string           `gorm:"type:char(36);not null;index" json:"project_id"`
	InvestorID       string           `gorm:"type:char(36);not null;index" json:"investor_id"`
	Amount           decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status           InvestmentStatus `gorm:"type:enum('pending','payment_confirmed','contract_signed','completed');default:'pending';not null" json:"status"`
	PaymentReference *string          `gorm:"type:varchar(64);uniqueIndex" json:"payment_reference,omitempty"`
	PaymentMethod    string           `gorm:"size:32" json:"payment_method"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`

	Project  *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Investor *User    `gorm:"foreignKey:InvestorID" json:"investor,omitempty"`
}

func (Investment) TableName() string {
	return "investments"
}

func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (i *Investment) Transition(to InvestmentStatus) error {
	if !i.Status.CanTransition(to) {
		return ErrInvalidTransition
	}
	i.Status = to
	return nil
}
