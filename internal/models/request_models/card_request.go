package request_models

type SaveCardRequest struct {
	CardNumber      string `json:"cardNumber" binding:"required"`
	CardHolderName  string `json:"cardHolderName" binding:"required"`
	ExpirationMonth string `json:"expirationMonth" binding:"required"`
	ExpirationYear  string `json:"expirationYear" binding:"required"`
	CVV             string `json:"cvv" binding:"required"`
	IsDefault       bool   `json:"isDefault"`
}

type UpdateCardRequest struct {
	CardHolderName *string `json:"cardHolderName"`
	IsDefault      *bool   `json:"isDefault"`
}
