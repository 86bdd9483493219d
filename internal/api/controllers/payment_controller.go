package controllers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"pagamentos/internal/models/db_models"
	"pagamentos/internal/models/request_models"
	"pagamentos/internal/models/response_models"
	"pagamentos/internal/services"
	"pagamentos/pkg/utils"
)

type PaymentController struct {
	paymentService services.PaymentServiceInterface
	cardService    services.CardServiceInterface
}

func NewPaymentController(paymentService services.PaymentServiceInterface, cardService services.CardServiceInterface) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		cardService:    cardService,
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("user_id"))
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "Invalid authentication context")
		return uuid.Nil, false
	}
	return id, true
}

func pathTransactionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("transactionId"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid transaction id")
		return uuid.Nil, false
	}
	return id, true
}

// InitiatePayment godoc
// @Summary Create a pending transaction
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.InitiatePaymentRequest true "Payment initiation payload"
// @Success 201 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /payments/initiate [post]
func (p *PaymentController) InitiatePayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req request_models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	txn, err := p.paymentService.InitiatePayment(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondCreated(c, response_models.FromTransaction(txn), "Payment initiated")
}

// ProcessCreditCard godoc
// @Summary Process a credit card payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.CreditCardPaymentRequest true "Card payment payload"
// @Success 200 {object} utils.APIResponse
// @Router /payments/credit-card [post]
func (p *PaymentController) ProcessCreditCard(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req request_models.CreditCardPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	outcome, err := p.paymentService.ProcessCreditCard(c.Request.Context(), userID, req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	// Saving the card is best effort and never fails an approved charge.
	if req.SaveCard && outcome.Status == db_models.TxnStatusApproved {
		_, saveErr := p.cardService.SaveCard(c.Request.Context(), userID, c.GetString("user_email"), request_models.SaveCardRequest{
			CardNumber:      req.CardNumber,
			CardHolderName:  req.CardHolderName,
			ExpirationMonth: req.ExpirationMonth,
			ExpirationYear:  req.ExpirationYear,
			CVV:             req.CVV,
		})
		if saveErr != nil && saveErr != utils.ErrDuplicateCard {
			log.Printf("failed to save card after approved charge: %v", saveErr)
		}
	}

	utils.RespondSuccess(c, gin.H{
		"transaction": response_models.FromTransaction(outcome.Transaction),
		"status":      outcome.Status,
		"message":     outcome.Message,
		"authCode":    outcome.AuthCode,
	}, "Credit card payment processed")
}

// ProcessPix godoc
// @Summary Generate PIX payment data for a pending transaction
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.PixPaymentRequest true "PIX payment payload"
// @Success 200 {object} utils.APIResponse
// @Router /payments/pix [post]
func (p *PaymentController) ProcessPix(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req request_models.PixPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request format")
		return
	}

	txnID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	outcome, err := p.paymentService.ProcessPix(c.Request.Context(), userID, txnID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, gin.H{
		"transaction": response_models.FromTransaction(outcome.Transaction),
		"pixCode":     outcome.PixCode,
		"qrCodeImage": outcome.QRCodeImage,
		"expiresAt":   outcome.ExpiresAt,
		"message":     outcome.Message,
	}, "PIX payment created")
}

// CheckPixStatus polls the gateway for the current PIX state.
func (p *PaymentController) CheckPixStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	txnID, ok := pathTransactionID(c)
	if !ok {
		return
	}

	outcome, err := p.paymentService.CheckPixStatus(c.Request.Context(), userID, txnID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	data := gin.H{
		"transaction": response_models.FromTransaction(outcome.Transaction),
		"status":      outcome.Status,
		"message":     outcome.Message,
	}
	if outcome.PaidAt != "" {
		data["paidAt"] = outcome.PaidAt
	}
	utils.RespondSuccess(c, data, "PIX status retrieved")
}

func (p *PaymentController) GetTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	txnID, ok := pathTransactionID(c)
	if !ok {
		return
	}

	txn, err := p.paymentService.GetTransaction(c.Request.Context(), userID, txnID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.FromTransaction(txn), "Transaction retrieved")
}

func (p *PaymentController) CancelTransaction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	txnID, ok := pathTransactionID(c)
	if !ok {
		return
	}

	txn, err := p.paymentService.CancelTransaction(c.Request.Context(), userID, txnID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.FromTransaction(txn), "Transaction cancelled")
}

// ListTransactions godoc
// @Summary Paginated transaction history with filters and sorting
// @Tags Payments
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /payments [get]
func (p *PaymentController) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var query request_models.TransactionHistoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	history, err := p.paymentService.ListTransactions(c.Request.Context(), userID, query)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, history, "Transactions retrieved")
}

func (p *PaymentController) RecentTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	txns, err := p.paymentService.RecentTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.FromTransactions(txns), "Recent transactions retrieved")
}

func (p *PaymentController) PaymentStats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	stats, err := p.paymentService.PaymentStats(c.Request.Context(), userID, c.DefaultQuery("period", "30d"))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, stats, "Payment statistics retrieved")
}

// TestCards exposes the simulator's deterministic card table.
func (p *PaymentController) TestCards(c *gin.Context) {
	utils.RespondSuccess(c, p.paymentService.TestCards(), "Test cards retrieved")
}
