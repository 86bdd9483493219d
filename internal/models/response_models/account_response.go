package response_models

import "pagamentos/internal/models/db_models"

type AccountResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	CreatedAt     int64  `json:"createdAt"`
}

func FromAccount(account *db_models.Account) AccountResponse {
	return AccountResponse{
		ID:            account.ID.String(),
		Name:          account.Name,
		Email:         account.Email,
		EmailVerified: account.EmailVerified,
		CreatedAt:     account.CreatedAt,
	}
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	Account AccountResponse `json:"account"`
	Tokens  *TokenPair      `json:"tokens,omitempty"`
}
