package response_models

import (
	"github.com/shopspring/decimal"
	"pagamentos/internal/models/db_models"
)

type InstallmentsResponse struct {
	Quantity          int             `json:"quantity"`
	InterestMonthly   decimal.Decimal `json:"interestMonthly"`
	TotalWithInterest decimal.Decimal `json:"totalWithInterest"`
	InstallmentValue  decimal.Decimal `json:"installmentValue"`
	Mode              string          `json:"mode"`
}

type TransactionResponse struct {
	ID              string                `json:"id"`
	OrderID         string                `json:"orderId"`
	Amount          decimal.Decimal       `json:"amount"`
	BaseAmount      *decimal.Decimal      `json:"baseAmount,omitempty"`
	Currency        string                `json:"currency"`
	PaymentMethod   string                `json:"paymentMethod"`
	Status          string                `json:"status"`
	RecipientUserID string                `json:"recipientUserId,omitempty"`
	RecipientPixKey string                `json:"recipientPixKey,omitempty"`
	Installments    *InstallmentsResponse `json:"installments,omitempty"`
	PixCode         string                `json:"pixCode,omitempty"`
	QRCodeImage     string                `json:"qrCodeImage,omitempty"`
	PixExpiresAt    *int64                `json:"pixExpiresAt,omitempty"`
	CreatedAt       int64                 `json:"createdAt"`
	UpdatedAt       int64                 `json:"updatedAt"`
}

func FromTransaction(t *db_models.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            t.ID.String(),
		OrderID:       t.OrderID,
		Amount:        t.Amount,
		BaseAmount:    t.BaseAmount,
		Currency:      t.Currency,
		PaymentMethod: string(t.PaymentMethod),
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.RecipientUserID != nil {
		resp.RecipientUserID = t.RecipientUserID.String()
	}
	if t.RecipientPixKey != nil {
		resp.RecipientPixKey = *t.RecipientPixKey
	}
	if t.Installments.Quantity > 0 {
		resp.Installments = &InstallmentsResponse{
			Quantity:          t.Installments.Quantity,
			InterestMonthly:   t.Installments.InterestMonthly,
			TotalWithInterest: t.Installments.TotalWithInterest,
			InstallmentValue:  t.Installments.InstallmentValue,
			Mode:              string(t.Installments.Mode),
		}
	}
	if t.PixCode != nil {
		resp.PixCode = *t.PixCode
	}
	if t.QRCodeImage != nil {
		resp.QRCodeImage = *t.QRCodeImage
	}
	resp.PixExpiresAt = t.PixExpiresAt
	return resp
}

func FromTransactions(txns []db_models.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, FromTransaction(&txns[i]))
	}
	return out
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

type TransactionHistoryResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Pagination   Pagination            `json:"pagination"`
	Sort         string                `json:"sort"`
	Direction    string                `json:"direction"`
}
