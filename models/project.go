package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectDraft     ProjectStatus = "draft"
	ProjectSubmitted ProjectStatus = "submitted"
	ProjectApproved  ProjectStatus = "approved"
	ProjectFunding   ProjectStatus = "funding"
	ProjectFunded    ProjectStatus = "funded"
	ProjectClosed    ProjectStatus = "closed"
)

type ContractType string

const (
	ContractMudarabah        ContractType = "mudarabah"
	ContractMusharaka        ContractType = "musharaka"
	ContractConventionalLoan ContractType = "conventional_loan"
)

func ValidContractType(t ContractType) bool {
	switch t {
	case ContractMudarabah, ContractMusharaka, ContractConventionalLoan:
		return true
	}
	return false
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var (
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrFundingCapExceeded = errors.New("amount exceeds remaining funding capacity")
)

// projectTransitions enumerates every legal project status move. Rejection
// returns a submitted project to draft for resubmission.
var projectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectDraft:     {ProjectSubmitted},
	ProjectSubmitted: {ProjectApproved, ProjectDraft},
	ProjectApproved:  {ProjectFunding},
	ProjectFunding:   {ProjectFunded},
	ProjectFunded:    {ProjectClosed},
}

func (s ProjectStatus) CanTransition(to ProjectStatus) bool {
	for _, next := range projectTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Project struct {
	ID              string          `gorm:"primaryKey;type:char(36)" json:"id"`
	OwnerID         string          `gorm:"type:char(36);not null;index" json:"owner_id"`
	Title           string          `gorm:"size:200;not null" json:"title"`
	Description     string          `gorm:"size:500;not null" json:"description"`
	LongDescription *string         `gorm:"type:text" json:"long_description,omitempty"`
	TargetAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"target_amount"`
	RaisedAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0.00" json:"raised_amount"`
	Category        string          `gorm:"size:100;not null" json:"category"`
	Country         string          `gorm:"size:100;not null" json:"country"`
	ContractType    ContractType    `gorm:"type:enum('mudarabah','musharaka','conventional_loan');not null" json:"contract_type"`
	ShariaCompliant bool            `gorm:"default:false" json:"sharia_compliant"`
	Status          ProjectStatus   `gorm:"type:enum('draft','submitted','approved','funding','funded','closed');default:'draft';not null" json:"status"`
	Deadline        time.Time       `gorm:"not null" json:"deadline"`
	ExpectedReturn  decimal.Decimal `gorm:"type:decimal(5,2);default:0.00" json:"expected_return"`
	RiskLevel       RiskLevel       `gorm:"type:enum('low','medium','high');default:'medium'" json:"risk_level"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Owner *User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Transition moves the project to the given status if the transition table
// allows it.
func (p *Project) Transition(to ProjectStatus) error {
	if !p.Status.CanTransition(to) {
		return ErrInvalidTransition
	}
	p.Status = to
	return nil
}

// RemainingCapacity returns how much funding the project can still absorb.
func (p *Project) RemainingCapacity() decimal.Decimal {
	return p.TargetAmount.Sub(p.RaisedAmount)
}

// ApplyFunds adds a confirmed investment amount to the raised total. The
// raised amount never exceeds the target; reaching the target flips the
// project to funded exactly once. Callers must hold a row lock on the project
// and persist the mutated fields in the same transaction.
func (p *Project) ApplyFunds(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrFundingCapExceeded
	}
	next := p.RaisedAmount.Add(amount)
	if next.GreaterThan(p.TargetAmount) {
		return ErrFundingCapExceeded
	}
	p.RaisedAmount = next
	if next.GreaterThanOrEqual(p.TargetAmount) && p.Status == ProjectFunding {
		return p.Transition(ProjectFunded)
	}
	return nil
}

// FundingPercentage reports progress toward the target, 0-100.
func (p *Project) FundingPercentage() decimal.Decimal {
	if p.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return p.RaisedAmount.Div(p.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2)
}

// AcceptingInvestments reports whether new investments may be created.
func (p *Project) AcceptingInvestments(now time.Time) bool {
	return p.Status == ProjectFunding && now.Before(p.Deadline)
}
