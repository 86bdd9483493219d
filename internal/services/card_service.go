package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"pagamentos/internal/models/db_models"
	"pagamentos/internal/models/request_models"
	"pagamentos/internal/models/response_models"
	"pagamentos/internal/repositories"
	"pagamentos/internal/security"
	"pagamentos/pkg/utils"
)

// Cards within this window of their expiry show up as expiring soon.
const expiringSoonWindow = 90 * 24 * time.Hour

type CardServiceInterface interface {
	SaveCard(ctx context.Context, userID uuid.UUID, userEmail string, req request_models.SaveCardRequest) (*db_models.SavedCard, error)
	GetCard(ctx context.Context, userID, cardID uuid.UUID) (*db_models.SavedCard, error)
	ListCards(ctx context.Context, userID uuid.UUID) ([]db_models.SavedCard, error)
	UpdateCard(ctx context.Context, userID, cardID uuid.UUID, req request_models.UpdateCardRequest) (*db_models.SavedCard, error)
	SetDefaultCard(ctx context.Context, userID, cardID uuid.UUID) (*db_models.SavedCard, error)
	DeleteCard(ctx context.Context, userID, cardID uuid.UUID) error
	CheckExpiration(ctx context.Context, userID uuid.UUID) (*response_models.CardExpirationReport, error)
	DeleteExpiredCards(ctx context.Context, userID uuid.UUID) (int64, error)
	CardStats(ctx context.Context, userID uuid.UUID) (*response_models.CardStats, error)
	// DetokenizeForCharge is the only decryption entry point. Output
	// must never be logged or persisted.
	DetokenizeForCharge(card *db_models.SavedCard) (*security.CardData, error)
}

type CardService struct {
	cards          repositories.CardRepository
	encryptor      *security.Encryptor
	validator      CardValidationClient
	fraudThreshold float64
	now            func() time.Time
}

func NewCardService(cards repositories.CardRepository, encryptor *security.Encryptor, validator CardValidationClient, fraudThreshold float64, now func() time.Time) CardServiceInterface {
	if now == nil {
		now = time.Now
	}
	if fraudThreshold <= 0 {
		fraudThreshold = 0.8
	}
	return &CardService{
		cards:          cards,
		encryptor:      encryptor,
		validator:      validator,
		fraudThreshold: fraudThreshold,
		now:            now,
	}
}

func (s *CardService) SaveCard(ctx context.Context, userID uuid.UUID, userEmail string, req request_models.SaveCardRequest) (*db_models.SavedCard, error) {
	if !utils.ValidateCardNumberShape(req.CardNumber) || !utils.ValidateCreditCardNumber(req.CardNumber) {
		return nil, utils.ErrInvalidCardNumber
	}
	if err := utils.ValidateCardFields(req.CardHolderName, req.ExpirationMonth, req.ExpirationYear, req.CVV); err != nil {
		return nil, err
	}
	if !utils.ValidateCardExpiration(req.ExpirationMonth, req.ExpirationYear, s.now()) ||
		!utils.ValidateExpirationYearWindow(req.ExpirationYear, s.now()) {
		return nil, utils.ErrCardExpired
	}
	brand := utils.GetCardBrand(req.CardNumber)
	if brand == "unknown" {
		return nil, utils.ErrUnsupportedCardBrand
	}

	// External fraud/validity signal. A bypassed check carries no
	// opinion; a performed check rejecting the card, or scoring above
	// the fraud threshold, blocks persistence.
	validation, err := s.validator.Validate(ctx, ExternalValidationInput{
		CardNumber:      req.CardNumber,
		CardHolderName:  req.CardHolderName,
		ExpirationMonth: req.ExpirationMonth,
		ExpirationYear:  req.ExpirationYear,
		CVV:             req.CVV,
		UserID:          userID,
		UserEmail:       userEmail,
	})
	if err != nil {
		return nil, err
	}
	if validation.Performed && (!validation.Valid || validation.FraudScore >= s.fraudThreshold) {
		return nil, utils.ErrCardRejected
	}

	token := s.encryptor.DeriveCardToken(req.CardNumber, req.ExpirationMonth, req.ExpirationYear)
	existing, err := s.cards.FindByUserAndToken(ctx, userID, token)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if existing != nil {
		return nil, utils.ErrDuplicateCard
	}

	tokenized, err := s.encryptor.TokenizeCard(security.CardData{
		CardNumber:      req.CardNumber,
		CardHolderName:  req.CardHolderName,
		ExpirationMonth: req.ExpirationMonth,
		ExpirationYear:  req.ExpirationYear,
	})
	if err != nil {
		return nil, err
	}

	card := &db_models.SavedCard{
		UserID:            userID,
		CardToken:         tokenized.Token,
		EncryptedData:     tokenized.EncryptedData,
		LastFourDigits:    tokenized.LastFourDigits,
		CardBrand:         db_models.CardBrand(brand),
		CardHolderName:    req.CardHolderName,
		ExpirationMonth:   req.ExpirationMonth,
		ExpirationYear:    req.ExpirationYear,
		IsDefault:         req.IsDefault,
		ValidationReasons: pq.StringArray(validation.Reasons),
	}
	if err := s.cards.Insert(ctx, card); err != nil {
		return nil, utils.ErrDatabaseError
	}

	return card, nil
}

func (s *CardService) loadOwned(ctx context.Context, userID, cardID uuid.UUID) (*db_models.SavedCard, error) {
	card, err := s.cards.FindByID(ctx, cardID, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if card == nil {
		return nil, utils.ErrCardNotFound
	}
	return card, nil
}

func (s *CardService) GetCard(ctx context.Context, userID, cardID uuid.UUID) (*db_models.SavedCard, error) {
	return s.loadOwned(ctx, userID, cardID)
}

func (s *CardService) ListCards(ctx context.Context, userID uuid.UUID) ([]db_models.SavedCard, error) {
	cards, err := s.cards.ListByUser(ctx, userID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return cards, nil
}

// UpdateCard changes holder name and/or the default flag. Card number
// and expiry are immutable once tokenized.
func (s *CardService) UpdateCard(ctx context.Context, userID, cardID uuid.UUID, req request_models.UpdateCardRequest) (*db_models.SavedCard, error) {
	card, err := s.loadOwned(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	if req.CardHolderName != nil {
		if !utils.ValidateCardHolderName(*req.CardHolderName) {
			return nil, utils.ErrInvalidCardHolder
		}
		card.CardHolderName = *req.CardHolderName
	}

	setDefault := false
	if req.IsDefault != nil {
		setDefault = *req.IsDefault && !card.IsDefault
		card.IsDefault = *req.IsDefault
	}

	if err := s.cards.Update(ctx, card, setDefault); err != nil {
		return nil, utils.ErrDatabaseError
	}
	return card, nil
}

func (s *CardService) SetDefaultCard(ctx context.Context, userID, cardID uuid.UUID) (*db_models.SavedCard, error) {
	isDefault := true
	return s.UpdateCard(ctx, userID, cardID, request_models.UpdateCardRequest{IsDefault: &isDefault})
}

func (s *CardService) DeleteCard(ctx context.Context, userID, cardID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, userID, cardID); err != nil {
		return err
	}
	if err := s.cards.Delete(ctx, cardID, userID); err != nil {
		return utils.ErrDatabaseError
	}
	return nil
}

// cardExpiryTime is the first instant the card is no longer valid.
func cardExpiryTime(card *db_models.SavedCard) time.Time {
	month, _ := strconv.Atoi(card.ExpirationMonth)
	year, _ := strconv.Atoi(card.ExpirationYear)
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

func (s *CardService) CheckExpiration(ctx context.Context, userID uuid.UUID) (*response_models.CardExpirationReport, error) {
	cards, err := s.ListCards(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &response_models.CardExpirationReport{
		Expired:      []response_models.SavedCardResponse{},
		ExpiringSoon: []response_models.SavedCardResponse{},
	}
	now := s.now()
	for i := range cards {
		expiry := cardExpiryTime(&cards[i])
		switch {
		case !expiry.After(now):
			report.Expired = append(report.Expired, response_models.FromSavedCard(&cards[i]))
		case expiry.Sub(now) <= expiringSoonWindow:
			report.ExpiringSoon = append(report.ExpiringSoon, response_models.FromSavedCard(&cards[i]))
		}
	}
	return report, nil
}

func (s *CardService) DeleteExpiredCards(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := s.now()
	deleted, err := s.cards.DeleteExpired(ctx, userID, int(now.Month()), now.Year())
	if err != nil {
		return 0, utils.ErrDatabaseError
	}
	return deleted, nil
}

func (s *CardService) CardStats(ctx context.Context, userID uuid.UUID) (*response_models.CardStats, error) {
	cards, err := s.ListCards(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &response_models.CardStats{
		TotalCards: int64(len(cards)),
		ByBrand:    map[string]int64{},
	}
	now := s.now()
	for i := range cards {
		stats.ByBrand[string(cards[i].CardBrand)]++
		if cards[i].IsDefault {
			stats.DefaultCardID = cards[i].ID.String()
		}
		expiry := cardExpiryTime(&cards[i])
		if expiry.After(now) && expiry.Sub(now) <= expiringSoonWindow {
			stats.ExpiringSoon++
		}
	}
	return stats, nil
}

func (s *CardService) DetokenizeForCharge(card *db_models.SavedCard) (*security.CardData, error) {
	return s.encryptor.DetokenizeCard(card.EncryptedData)
}
