package request_models

type CustomerInput struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Document string `json:"document" binding:"omitempty,len=11,numeric"`
}

type InstallmentsInput struct {
	Quantity int `json:"quantity"`
}

type InitiatePaymentRequest struct {
	OrderID         string             `json:"orderId" binding:"required,min=1,max=50"`
	Amount          float64            `json:"amount" binding:"required,gt=0,max=999999.99"`
	Currency        string             `json:"currency" binding:"omitempty,oneof=BRL USD EUR"`
	PaymentMethod   string             `json:"paymentMethod" binding:"required,oneof=credit_card pix"`
	Customer        CustomerInput      `json:"customer" binding:"required"`
	ReturnURL       string             `json:"returnUrl" binding:"required,url"`
	CallbackURL     string             `json:"callbackUrl" binding:"required,url"`
	RecipientUserID string             `json:"recipientUserId" binding:"omitempty,uuid"`
	RecipientPixKey string             `json:"recipientPixKey"`
	Installments    *InstallmentsInput `json:"installments"`
}

type CreditCardPaymentRequest struct {
	TransactionID   string `json:"transactionId" binding:"required,uuid"`
	CardNumber      string `json:"cardNumber" binding:"required"`
	CardHolderName  string `json:"cardHolderName" binding:"required"`
	ExpirationMonth string `json:"expirationMonth" binding:"required"`
	ExpirationYear  string `json:"expirationYear" binding:"required"`
	CVV             string `json:"cvv" binding:"required"`
	SaveCard        bool   `json:"saveCard"`
}

type PixPaymentRequest struct {
	TransactionID string `json:"transactionId" binding:"required,uuid"`
}

type TransactionHistoryQuery struct {
	Page          int    `form:"page,default=1"`
	Limit         int    `form:"limit,default=10"`
	Status        string `form:"status"`
	PaymentMethod string `form:"paymentMethod"`
	Sort          string `form:"sort,default=createdAt"`
	Direction     string `form:"direction,default=desc"`
}
