package db_models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type TransactionStatus string

const (
	TxnStatusPending    TransactionStatus = "PENDING"
	TxnStatusProcessing TransactionStatus = "PROCESSING"
	TxnStatusApproved   TransactionStatus = "APPROVED"
	TxnStatusDeclined   TransactionStatus = "DECLINED"
	TxnStatusFailed     TransactionStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s TransactionStatus) Terminal() bool {
	switch s {
	case TxnStatusApproved, TxnStatusDeclined, TxnStatusFailed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "credit_card"
	MethodPix        PaymentMethod = "pix"
)

type InstallmentMode string

const (
	InstallmentAvista    InstallmentMode = "AVISTA"
	InstallmentParcelado InstallmentMode = "PARCELADO"
)

// Installments is embedded; Quantity == 0 means not applicable (pix).
type Installments struct {
	Quantity          int             `json:"quantity"`
	InterestMonthly   decimal.Decimal `gorm:"type:decimal(6,4)" json:"interestMonthly"`
	TotalWithInterest decimal.Decimal `gorm:"type:decimal(12,2)" json:"totalWithInterest"`
	InstallmentValue  decimal.Decimal `gorm:"type:decimal(12,2)" json:"installmentValue"`
	Mode              InstallmentMode `json:"mode"`
}

type Customer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Document string `json:"document,omitempty"`
}

type Transaction struct {
	BaseModel
	OrderID string     `gorm:"size:50;index:idx_txn_owner_order"`
	UserID  *uuid.UUID `gorm:"type:uuid;index:idx_txn_owner_order"`

	// Either a recipient account or a PIX key, never both.
	RecipientUserID *uuid.UUID `gorm:"type:uuid"`
	RecipientPixKey *string    `gorm:"size:120"`

	// Amount is the charge amount; it already includes installment
	// interest. BaseAmount keeps the pre-interest figure for credit
	// card flows.
	Amount     decimal.Decimal  `gorm:"type:decimal(12,2)"`
	BaseAmount *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Currency   string           `gorm:"size:3"`

	PaymentMethod PaymentMethod     `gorm:"index"`
	Status        TransactionStatus `gorm:"index"`

	Customer     Customer     `gorm:"embedded;embeddedPrefix:customer_"`
	ReturnURL    string
	CallbackURL  string
	Installments Installments `gorm:"embedded;embeddedPrefix:installments_"`

	// Gateway correlation
	BankTransactionID *string `gorm:"index"`
	BankPixID         *string `gorm:"index"`
	PixCode           *string
	QRCodeImage       *string
	PixExpiresAt      *int64

	// Raw gateway payloads, failure reasons, cancellation metadata.
	// Audit only, never returned verbatim to clients.
	GatewayResponse datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
