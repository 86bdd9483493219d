package response_models

import "github.com/shopspring/decimal"

type PaymentStats struct {
	Period            string          `json:"period"`
	TotalTransactions int64           `json:"totalTransactions"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	ApprovedCount     int64           `json:"approvedCount"`
	ApprovedAmount    decimal.Decimal `json:"approvedAmount"`
	DeclinedCount     int64           `json:"declinedCount"`
	PendingCount      int64           `json:"pendingCount"`
	CreditCardCount   int64           `json:"creditCardCount"`
	PixCount          int64           `json:"pixCount"`

	// Percentage of approved transactions, formatted to two decimals.
	// "0.00" when the window is empty.
	ApprovalRate string `json:"approvalRate"`
}
