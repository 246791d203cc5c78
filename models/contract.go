package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ContractStatus string

const (
	ContractDraft     ContractStatus = "draft"
	ContractActive    ContractStatus = "active"
	ContractSigned    ContractStatus = "signed"
	ContractCompleted ContractStatus = "completed"
	ContractCancelled ContractStatus = "cancelled"
)

var contractTransitions = map[ContractStatus][]ContractStatus{
	ContractDraft:  {ContractActive, ContractCancelled},
	ContractActive: {ContractSigned, ContractCancelled},
	ContractSigned: {ContractCompleted, ContractCancelled},
}

func (s ContractStatus) CanTransition(to ContractStatus) bool {
	for _, next := range contractTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// SignerParty identifies which of the three signatures an action applies to.
type SignerParty string

const (
	SignerInvestor     SignerParty = "investor"
	SignerEntrepreneur SignerParty = "entrepreneur"
	SignerAdmin        SignerParty = "admin"
)

func ValidSignerParty(p SignerParty) bool {
	switch p {
	case SignerInvestor, SignerEntrepreneur, SignerAdmin:
		return true
	}
	return false
}

type Contract struct {
	ID             string         `gorm:"primaryKey;type:char(36)" json:"id"`
	InvestmentID   string         `gorm:"type:char(36);not null;uniqueIndex" json:"investment_id"`
	ContractType   ContractType   `gorm:"type:enum('mudarabah','musharaka','conventional_loan');not null" json:"contract_type"`
	TermsJSON      string         `gorm:"type:text;not null" json:"terms_json"`
	ContractPdfURL string         `gorm:"size:512" json:"contract_pdf_url"`
	ContractPdfKey string         `gorm:"size:255" json:"-"`
	Status         ContractStatus `gorm:"type:enum('draft','active','signed','completed','cancelled');default:'draft';not null" json:"status"`

	InvestorSignedAt     *time.Time `json:"investor_signed_at,omitempty"`
	EntrepreneurSignedAt *time.Time `json:"entrepreneur_signed_at,omitempty"`
	AdminSignedAt        *time.Time `json:"admin_signed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Investment *Investment `gorm:"foreignKey:InvestmentID" json:"investment,omitempty"`
}

func (Contract) TableName() string {
	return "contracts"
}

func (c *Contract) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Sign records a party's signature at the given time. Signing an
// already-signed party is a no-op and reports false. The signed status is
// recomputed on every application, never cached.
func (c *Contract) Sign(party SignerParty, at time.Time) bool {
	applied := false
	switch party {
	case SignerInvestor:
		if c.InvestorSignedAt == nil {
			c.InvestorSignedAt = &at
			applied = true
		}
	case SignerEntrepreneur:
		if c.EntrepreneurSignedAt == nil {
			c.EntrepreneurSignedAt = &at
			applied = true
		}
	case SignerAdmin:
		if c.AdminSignedAt == nil {
			c.AdminSignedAt = &at
			applied = true
		}
	}
	if c.FullySigned() && c.Status == ContractActive {
		c.Status = ContractSigned
	}
	return applied
}

// FullySigned reports whether all three parties have signed.
func (c *Contract) FullySigned() bool {
	return c.InvestorSignedAt != nil && c.EntrepreneurSignedAt != nil && c.AdminSignedAt != nil
}

// ContractTerms is the immutable snapshot serialized into TermsJSON at
// generation time. Later changes to the project or parties do not alter it.
type ContractTerms struct {
	ProjectTitle      string          `json:"project_title"`
	InvestorEmail     string          `json:"investor_email"`
	EntrepreneurEmail string          `json:"entrepreneur_email"`
	InvestmentAmount  decimal.Decimal `json:"investment_amount"`
	ContractType      ContractType    `json:"contract_type"`
	ProfitShare       decimal.Decimal `json:"profit_share"`
	DurationMonths    int             `json:"duration_months"`
	ExpectedReturn    decimal.Decimal `json:"expected_return"`
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date"`
	Conditions        []string        `json:"conditions"`
}

// BuildContractTerms snapshots the terms for a confirmed investment. The term
// window is fixed at one year from generation.
func BuildContractTerms(project *Project, investment *Investment, investorEmail, entrepreneurEmail string, now time.Time) ContractTerms {
	start := now.UTC()
	end := start.AddDate(1, 0, 0)
	return ContractTerms{
		ProjectTitle:      project.Title,
		InvestorEmail:     investorEmail,
		EntrepreneurEmail: entrepreneurEmail,
		InvestmentAmount:  investment.Amount,
		ContractType:      project.ContractType,
		ProfitShare:       project.ExpectedReturn,
		DurationMonths:    12,
		ExpectedReturn:    project.ExpectedReturn,
		StartDate:         start.Format("2006-01-02"),
		EndDate:           end.Format("2006-01-02"),
		Conditions: []string{
			"Investor retains ownership rights to their investment portion",
			"Entrepreneur commits to monthly progress reports",
			"Fund disbursement subject to project milestones",
		},
	}
}
