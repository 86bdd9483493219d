package response_models

import "pagamentos/internal/models/db_models"

// SavedCardResponse exposes display-safe fields only. The token and
// encrypted payload never leave the vault.
type SavedCardResponse struct {
	ID              string   `json:"id"`
	LastFourDigits  string   `json:"lastFourDigits"`
	CardBrand       string   `json:"cardBrand"`
	CardHolderName  string   `json:"cardHolderName"`
	ExpirationMonth string   `json:"expirationMonth"`
	ExpirationYear  string   `json:"expirationYear"`
	IsDefault       bool     `json:"isDefault"`
	CreatedAt       int64    `json:"createdAt"`
}

func FromSavedCard(card *db_models.SavedCard) SavedCardResponse {
	return SavedCardResponse{
		ID:              card.ID.String(),
		LastFourDigits:  card.LastFourDigits,
		CardBrand:       string(card.CardBrand),
		CardHolderName:  card.CardHolderName,
		ExpirationMonth: card.ExpirationMonth,
		ExpirationYear:  card.ExpirationYear,
		IsDefault:       card.IsDefault,
		CreatedAt:       card.CreatedAt,
	}
}

func FromSavedCards(cards []db_models.SavedCard) []SavedCardResponse {
	out := make([]SavedCardResponse, 0, len(cards))
	for i := range cards {
		out = append(out, FromSavedCard(&cards[i]))
	}
	return out
}

type CardExpirationReport struct {
	Expired      []SavedCardResponse `json:"expired"`
	ExpiringSoon []SavedCardResponse `json:"expiringSoon"`
}

type CardStats struct {
	TotalCards    int64            `json:"totalCards"`
	ByBrand       map[string]int64 `json:"byBrand"`
	DefaultCardID string           `json:"defaultCardId,omitempty"`
	ExpiringSoon  int64            `json:"expiringSoon"`
}
