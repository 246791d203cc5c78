package models

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleInvestor     Role = "investor"
	RoleEntrepreneur Role = "entrepreneur"
	RoleAdmin        Role = "admin"
)

// ReviewStatus is shared by user-level KYC/AML state and individual KYC documents.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

type User struct {
	ID        string       `gorm:"primaryKey;type:char(36)" json:"id"`
	Email     string       `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string       `gorm:"size:255;not null" json:"-"`
	Phone     *string      `gorm:"size:20" json:"phone,omitempty"`
	Role      Role         `gorm:"type:enum('investor','entrepreneur','admin');default:'investor';not null" json:"role"`
	KYCStatus ReviewStatus `gorm:"type:enum('pending','approved','rejected');default:'pending';not null" json:"kyc_status"`
	AMLStatus ReviewStatus `gorm:"type:enum('pending','approved','rejected');default:'pending';not null" json:"aml_status"`
	IsActive  bool         `gorm:"default:true;not null" json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// SetPassword hashes and stores the password.
func (u *User) SetPassword(plain string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// ValidatePassword checks a plaintext password against the stored hash.
func (u *User) ValidatePassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(plain)) == nil
}
