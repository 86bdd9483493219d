package db_models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CardBrand string

const (
	BrandVisa       CardBrand = "visa"
	BrandMastercard CardBrand = "mastercard"
	BrandAmex       CardBrand = "amex"
	BrandElo        CardBrand = "elo"
	BrandUnknown    CardBrand = "unknown"
)

// SavedCard never stores a raw PAN or CVV. CardToken is the
// deterministic dedup identifier; EncryptedData is the reversible
// payload used only at charge time.
type SavedCard struct {
	BaseModel
	UserID        uuid.UUID `gorm:"type:uuid;index;uniqueIndex:idx_card_user_token"`
	CardToken     string    `gorm:"size:40;uniqueIndex:idx_card_user_token"`
	EncryptedData string

	LastFourDigits  string    `gorm:"size:4"`
	CardBrand       CardBrand `gorm:"size:16"`
	CardHolderName  string    `gorm:"size:100"`
	ExpirationMonth string    `gorm:"size:2"`
	ExpirationYear  string    `gorm:"size:4"`
	IsDefault       bool      `gorm:"default:false;index"`

	// Reasons reported by the external validator at save time.
	ValidationReasons pq.StringArray `gorm:"type:text[]"`
}
