package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KYCDocumentType string

const (
	KYCDocumentID             KYCDocumentType = "id"
	KYCDocumentRIB            KYCDocumentType = "rib"
	KYCDocumentKBIS           KYCDocumentType = "kbis"
	KYCDocumentProofOfAddress KYCDocumentType = "proof_of_address"
)

func ValidKYCDocumentType(t KYCDocumentType) bool {
	switch t {
	case KYCDocumentID, KYCDocumentRIB, KYCDocumentKBIS, KYCDocumentProofOfAddress:
		return true
	}
	return false
}

type KYCDocument struct {
	ID              string          `gorm:"primaryKey;type:char(36)" json:"id"`
	UserID          string          `gorm:"type:char(36);not null;index" json:"user_id"`
	DocumentType    KYCDocumentType `gorm:"type:enum('id','rib','kbis','proof_of_address');not null" json:"document_type"`
	FileName        string          `gorm:"size:255;not null" json:"file_name"`
	FileURL         string          `gorm:"size:512;not null" json:"file_url"`
	Status          ReviewStatus    `gorm:"type:enum('pending','approved','rejected');default:'pending';not null" json:"status"`
	RejectionReason *string         `gorm:"type:text" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (KYCDocument) TableName() string {
	return "kyc_documents"
}

func (d *KYCDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
