package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"pagamentos/internal/models/db_models"
)

type CardRepository interface {
	// Insert creates the card. When the card is flagged default, the
	// owner's other defaults are cleared in the same transaction so at
	// most one default survives concurrent saves.
	Insert(ctx context.Context, card *db_models.SavedCard) error
	FindByID(ctx context.Context, id, userID uuid.UUID) (*db_models.SavedCard, error)
	FindByUserAndToken(ctx context.Context, userID uuid.UUID, token string) (*db_models.SavedCard, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]db_models.SavedCard, error)
	// Update persists card changes; setDefault additionally clears the
	// owner's other default flags in the same transaction.
	Update(ctx context.Context, card *db_models.SavedCard, setDefault bool) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	// DeleteExpired removes cards whose expiry is before month/year.
	DeleteExpired(ctx context.Context, userID uuid.UUID, month, year int) (int64, error)
}

type cardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func clearOtherDefaults(tx *gorm.DB, userID uuid.UUID, exceptID uuid.UUID) error {
	return tx.Model(&db_models.SavedCard{}).
		Where("user_id = ? AND id <> ?", userID, exceptID).
		Update("is_default", false).Error
}

func (c *cardRepository) Insert(ctx context.Context, card *db_models.SavedCard) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(card).Error; err != nil {
			return err
		}
		if card.IsDefault {
			return clearOtherDefaults(tx, card.UserID, card.ID)
		}
		return nil
	})
}

func (c *cardRepository) FindByID(ctx context.Context, id, userID uuid.UUID) (*db_models.SavedCard, error) {
	var card db_models.SavedCard
	err := c.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (c *cardRepository) FindByUserAndToken(ctx context.Context, userID uuid.UUID, token string) (*db_models.SavedCard, error) {
	var card db_models.SavedCard
	err := c.db.WithContext(ctx).
		Where("user_id = ? AND card_token = ?", userID, token).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &card, nil
}

func (c *cardRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]db_models.SavedCard, error) {
	var cards []db_models.SavedCard
	err := c.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC").
		Find(&cards).Error
	if err != nil {
		return nil, err
	}
	return cards, nil
}

func (c *cardRepository) Update(ctx context.Context, card *db_models.SavedCard, setDefault bool) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if setDefault {
			if err := clearOtherDefaults(tx, card.UserID, card.ID); err != nil {
				return err
			}
		}
		return tx.Save(card).Error
	})
}

func (c *cardRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return c.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&db_models.SavedCard{}).Error
}

func (c *cardRepository) DeleteExpired(ctx context.Context, userID uuid.UUID, month, year int) (int64, error) {
	res := c.db.WithContext(ctx).
		Where("user_id = ? AND (expiration_year::int < ? OR (expiration_year::int = ? AND expiration_month::int < ?))",
			userID, year, year, month).
		Delete(&db_models.SavedCard{})
	return res.RowsAffected, res.Error
}
