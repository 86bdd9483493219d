package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"pagamentos/internal/models/request_models"
	"pagamentos/internal/models/response_models"
	"pagamentos/internal/services"
	"pagamentos/pkg/utils"
)

type CardController struct {
	cardService services.CardServiceInterface
}

func NewCardController(cardService services.CardServiceInterface) *CardController {
	return &CardController{
		cardService: cardService,
	}
}

func pathCardID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("cardId"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid card id")
		return uuid.Nil, false
	}
	return id, true
}

// SaveCard godoc
// @Summary Tokenize and store a card
// @Tags Cards
// @Accept json
// @Produce json
// @Param request body request_models.SaveCardRequest true "Card payload"
// @Success 201 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /cards [post]
func (cc *CardController) SaveCard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req request_models.SaveCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	card, err := cc.cardService.SaveCard(c.Request.Context(), userID, c.GetString("user_email"), req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondCreated(c, response_models.FromSavedCard(card), "Card saved successfully")
}

func (cc *CardController) ListCards(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	cards, err := cc.cardService.ListCards(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.FromSavedCards(cards), "Cards retrieved")
}

func (cc *CardController) GetCard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathCardID(c)
	if !ok {
		return
	}

	card, err := cc.cardService.GetCard(c.Request.Context(), userID, cardID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.FromSavedCard(card), "Card retrieved")
}

func (cc *CardController) UpdateCard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathCardID(c)
	if !ok {
		return
	}

	var req request_models.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	card, err := cc.cardService.UpdateCard(c.Request.Context(), userID, cardID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.FromSavedCard(card), "Card updated")
}

func (cc *CardController) SetDefaultCard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathCardID(c)
	if !ok {
		return
	}

	card, err := cc.cardService.SetDefaultCard(c.Request.Context(), userID, cardID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.FromSavedCard(card), "Default card updated")
}

func (cc *CardController) DeleteCard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	cardID, ok := pathCardID(c)
	if !ok {
		return
	}

	if err := cc.cardService.DeleteCard(c.Request.Context(), userID, cardID); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, nil, "Card deleted")
}

func (cc *CardController) CheckExpiration(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	report, err := cc.cardService.CheckExpiration(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, report, "Card expiration report retrieved")
}

func (cc *CardController) CardStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := cc.cardService.CardStats(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, stats, "Card statistics retrieved")
}

func (cc *CardController) DeleteExpiredCards(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	deleted, err := cc.cardService.DeleteExpiredCards(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, gin.H{"deletedCount": deleted}, "Expired cards removed")
}
