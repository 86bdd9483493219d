package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"pagamentos/internal/models/db_models"
	"pagamentos/internal/models/request_models"
	"pagamentos/internal/models/response_models"
	"pagamentos/internal/repositories"
	"pagamentos/pkg/utils"
)

var pixKeyPattern = regexp.MustCompile(`^[\w@+.:-]{3,120}$`)

const (
	maxInstallments  = 24
	recentHardCap    = 20
	defaultStatsDays = 30
)

type CreditCardOutcome struct {
	Transaction *db_models.Transaction
	Status      db_models.TransactionStatus
	Message     string
	AuthCode    string
}

type PixOutcome struct {
	Transaction *db_models.Transaction
	PixCode     string
	QRCodeImage string
	ExpiresAt   *int64
	Message     string
}

type PixStatusOutcome struct {
	Transaction *db_models.Transaction
	Status      db_models.TransactionStatus
	Message     string
	PaidAt      string
}

type PaymentServiceInterface interface {
	InitiatePayment(ctx context.Context, userID uuid.UUID, req request_models.InitiatePaymentRequest) (*db_models.Transaction, error)
	ProcessCreditCard(ctx context.Context, userID uuid.UUID, req request_models.CreditCardPaymentRequest) (*CreditCardOutcome, error)
	ProcessPix(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*PixOutcome, error)
	CheckPixStatus(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*PixStatusOutcome, error)
	CancelTransaction(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*db_models.Transaction, error)
	GetTransaction(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*db_models.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, query request_models.TransactionHistoryQuery) (*response_models.TransactionHistoryResponse, error)
	RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.Transaction, error)
	PaymentStats(ctx context.Context, userID uuid.UUID, period string) (*response_models.PaymentStats, error)
	TestCards() map[string]TestCardResult
}

type PaymentService struct {
	txRepo          repositories.TransactionRepository
	gateway         PaymentGateway
	interestMonthly decimal.Decimal
	now             func() time.Time
}

func NewPaymentService(txRepo repositories.TransactionRepository, gateway PaymentGateway, interestMonthly float64, now func() time.Time) PaymentServiceInterface {
	if now == nil {
		now = time.Now
	}
	return &PaymentService{
		txRepo:          txRepo,
		gateway:         gateway,
		interestMonthly: decimal.NewFromFloat(interestMonthly),
		now:             now,
	}
}

// computeInstallments applies compound monthly interest for quantity>1:
// total = base * (1+r)^qty rounded to 2 digits, per-installment value
// = total/qty rounded to 2 digits. Quantity 1 charges the base amount.
func (p *PaymentService) computeInstallments(base decimal.Decimal, quantity int) (db_models.Installments, decimal.Decimal, error) {
	if quantity < 1 || quantity > maxInstallments {
		return db_models.Installments{}, decimal.Zero, utils.ErrInvalidInstallments
	}

	if quantity == 1 {
		return db_models.Installments{
			Quantity:          1,
			InterestMonthly:   decimal.Zero,
			TotalWithInterest: base,
			InstallmentValue:  base,
			Mode:              db_models.InstallmentAvista,
		}, base, nil
	}

	factor := decimal.NewFromInt(1).Add(p.interestMonthly).Pow(decimal.NewFromInt(int64(quantity)))
	total := base.Mul(factor).Round(2)
	perInstallment := total.Div(decimal.NewFromInt(int64(quantity))).Round(2)

	return db_models.Installments{
		Quantity:          quantity,
		InterestMonthly:   p.interestMonthly,
		TotalWithInterest: total,
		InstallmentValue:  perInstallment,
		Mode:              db_models.InstallmentParcelado,
	}, total, nil
}

func (p *PaymentService) InitiatePayment(ctx context.Context, userID uuid.UUID, req request_models.InitiatePaymentRequest) (*db_models.Transaction, error) {
	existing, err := p.txRepo.FindActiveByOrderID(ctx, userID, req.OrderID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if existing != nil {
		return nil, utils.ErrDuplicateOrder
	}

	if req.RecipientUserID != "" && req.RecipientPixKey != "" {
		return nil, utils.ErrRecipientConflict
	}
	if req.RecipientPixKey != "" && !pixKeyPattern.MatchString(req.RecipientPixKey) {
		return nil, utils.ErrInvalidPixKey
	}

	baseAmount := decimal.NewFromFloat(req.Amount).Round(2)
	finalAmount := baseAmount
	method := db_models.PaymentMethod(req.PaymentMethod)

	var installments db_models.Installments
	var storedBase *decimal.Decimal
	if method == db_models.MethodCreditCard {
		quantity := 1
		if req.Installments != nil && req.Installments.Quantity != 0 {
			quantity = req.Installments.Quantity
		}
		installments, finalAmount, err = p.computeInstallments(baseAmount, quantity)
		if err != nil {
			return nil, err
		}
		storedBase = &baseAmount
	} else if req.Installments != nil && req.Installments.Quantity != 0 {
		return nil, utils.ErrInstallmentsNotAllowed
	}

	currency := req.Currency
	if currency == "" {
		currency = "BRL"
	}

	txn := &db_models.Transaction{
		OrderID:       req.OrderID,
		UserID:        &userID,
		Amount:        finalAmount,
		BaseAmount:    storedBase,
		Currency:      currency,
		PaymentMethod: method,
		Status:        db_models.TxnStatusPending,
		Customer: db_models.Customer{
			Name:     req.Customer.Name,
			Email:    req.Customer.Email,
			Document: req.Customer.Document,
		},
		ReturnURL:    req.ReturnURL,
		CallbackURL:  req.CallbackURL,
		Installments: installments,
	}
	if req.RecipientUserID != "" {
		recipient, err := uuid.Parse(req.RecipientUserID)
		if err != nil {
			return nil, utils.ErrRecipientConflict
		}
		txn.RecipientUserID = &recipient
	}
	if req.RecipientPixKey != "" {
		key := req.RecipientPixKey
		txn.RecipientPixKey = &key
	}

	if err := p.txRepo.Insert(ctx, txn); err != nil {
		return nil, utils.ErrDatabaseError
	}

	return txn, nil
}

// loadOwned resolves the transaction and enforces ownership. Guest
// transactions (no owner) are accessible to any authenticated caller.
func (p *PaymentService) loadOwned(ctx context.Context, userID, transactionID uuid.UUID) (*db_models.Transaction, error) {
	txn, err := p.txRepo.FindByID(ctx, transactionID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if txn == nil {
		return nil, utils.ErrTransactionNotFound
	}
	if txn.UserID != nil && *txn.UserID != userID {
		return nil, utils.ErrUnauthorizedTransaction
	}
	return txn, nil
}

func jsonBlob(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(b)
}

func (p *PaymentService) ProcessCreditCard(ctx context.Context, userID uuid.UUID, req request_models.CreditCardPaymentRequest) (*CreditCardOutcome, error) {
	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		return nil, utils.ErrTransactionNotFound
	}

	if !utils.ValidateCardNumberShape(req.CardNumber) || !utils.ValidateCreditCardNumber(req.CardNumber) {
		return nil, utils.ErrInvalidCardNumber
	}
	if err := utils.ValidateCardFields(req.CardHolderName, req.ExpirationMonth, req.ExpirationYear, req.CVV); err != nil {
		return nil, err
	}

	txn, err := p.loadOwned(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != db_models.TxnStatusPending {
		return nil, utils.ErrInvalidTransactionStatus
	}
	if txn.PaymentMethod != db_models.MethodCreditCard {
		return nil, utils.ErrInvalidPaymentMethod
	}

	// PENDING→PROCESSING is written before the gateway call, so a crash
	// mid-call leaves an inspectable state. The conditional update also
	// serializes concurrent processing attempts: the loser observes an
	// invalid status instead of double-charging.
	ok, err := p.txRepo.UpdateStatusIf(ctx, txn.ID, db_models.TxnStatusPending, db_models.TxnStatusProcessing)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if !ok {
		return nil, utils.ErrInvalidTransactionStatus
	}
	txn.Status = db_models.TxnStatusProcessing

	// Charge amount already includes installment interest.
	gatewayResp, err := p.gateway.ProcessCreditCard(ctx, CreditCardData{
		CardNumber:      req.CardNumber,
		CardHolderName:  req.CardHolderName,
		ExpirationMonth: req.ExpirationMonth,
		ExpirationYear:  req.ExpirationYear,
		CVV:             req.CVV,
	}, txn.Amount)

	if err != nil {
		txn.Status = db_models.TxnStatusFailed
		txn.GatewayResponse = jsonBlob(map[string]interface{}{"error": err.Error()})
		if _, saveErr := p.txRepo.UpdateIf(ctx, txn, db_models.TxnStatusProcessing); saveErr != nil {
			log.Printf("failed to persist FAILED status for transaction %s: %v", txn.ID, saveErr)
		}
		return nil, utils.ErrPaymentProcessing
	}

	// The terminal write is conditional on PROCESSING so a cancellation
	// that landed during the gateway call is never overwritten.
	txn.Status = gatewayResp.Status
	txn.BankTransactionID = &gatewayResp.GatewayTransactionID
	txn.GatewayResponse = jsonBlob(gatewayResp.Details)
	ok, err = p.txRepo.UpdateIf(ctx, txn, db_models.TxnStatusProcessing)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if !ok {
		return nil, utils.ErrInvalidTransactionStatus
	}

	authCode, _ := gatewayResp.Details["authCode"].(string)
	return &CreditCardOutcome{
		Transaction: txn,
		Status:      gatewayResp.Status,
		Message:     gatewayResp.Message,
		AuthCode:    authCode,
	}, nil
}

func (p *PaymentService) ProcessPix(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*PixOutcome, error) {
	txn, err := p.loadOwned(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != db_models.TxnStatusPending {
		return nil, utils.ErrInvalidTransactionStatus
	}
	if txn.PaymentMethod != db_models.MethodPix {
		return nil, utils.ErrInvalidPaymentMethod
	}

	gatewayResp, err := p.gateway.ProcessPixPayment(ctx, PixData{
		Amount:        txn.Amount,
		Description:   fmt.Sprintf("Order %s", txn.OrderID),
		CustomerEmail: txn.Customer.Email,
	})
	if err != nil {
		txn.Status = db_models.TxnStatusFailed
		txn.GatewayResponse = jsonBlob(map[string]interface{}{"error": err.Error()})
		if _, saveErr := p.txRepo.UpdateIf(ctx, txn, db_models.TxnStatusPending); saveErr != nil {
			log.Printf("failed to persist FAILED status for transaction %s: %v", txn.ID, saveErr)
		}
		return nil, utils.ErrPixProcessing
	}

	txn.BankPixID = &gatewayResp.GatewayTransactionID
	if gatewayResp.PixCode != "" {
		txn.PixCode = &gatewayResp.PixCode
	}
	if gatewayResp.QRCodeImage != "" {
		txn.QRCodeImage = &gatewayResp.QRCodeImage
	}
	if gatewayResp.ExpiresAt != nil {
		expiry := gatewayResp.ExpiresAt.Unix()
		txn.PixExpiresAt = &expiry
	}
	txn.GatewayResponse = jsonBlob(gatewayResp.Details)
	ok, err := p.txRepo.UpdateIf(ctx, txn, db_models.TxnStatusPending)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if !ok {
		return nil, utils.ErrInvalidTransactionStatus
	}

	return &PixOutcome{
		Transaction: txn,
		PixCode:     gatewayResp.PixCode,
		QRCodeImage: gatewayResp.QRCodeImage,
		ExpiresAt:   txn.PixExpiresAt,
		Message:     gatewayResp.Message,
	}, nil
}

func (p *PaymentService) CheckPixStatus(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*PixStatusOutcome, error) {
	txn, err := p.loadOwned(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.PaymentMethod != db_models.MethodPix {
		return nil, utils.ErrInvalidPaymentMethod
	}
	if txn.BankPixID == nil {
		return nil, utils.ErrPixNotInitiated
	}

	gatewayResp, err := p.gateway.CheckPixStatus(ctx, *txn.BankPixID)
	if err != nil {
		return nil, utils.ErrPixStatusCheck
	}

	// Polling never downgrades a terminal status. The write is
	// conditional on the status we loaded; losing that race means
	// another transition already landed, so report the stored row.
	if !txn.Status.Terminal() {
		prev := txn.Status
		txn.Status = gatewayResp.Status
		txn.GatewayResponse = mergeBlob(txn.GatewayResponse, "statusCheck", gatewayResp.Details)
		ok, err := p.txRepo.UpdateIf(ctx, txn, prev)
		if err != nil {
			return nil, utils.ErrDatabaseError
		}
		if !ok {
			txn, err = p.loadOwned(ctx, userID, transactionID)
			if err != nil {
				return nil, err
			}
		}
	}

	paidAt, _ := gatewayResp.Details["paidAt"].(string)
	return &PixStatusOutcome{
		Transaction: txn,
		Status:      txn.Status,
		Message:     gatewayResp.Message,
		PaidAt:      paidAt,
	}, nil
}

func (p *PaymentService) CancelTransaction(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*db_models.Transaction, error) {
	txn, err := p.loadOwned(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != db_models.TxnStatusPending && txn.Status != db_models.TxnStatusProcessing {
		return nil, utils.ErrCannotCancel
	}

	prev := txn.Status
	txn.Status = db_models.TxnStatusFailed
	txn.GatewayResponse = mergeBlob(txn.GatewayResponse, "cancellation", map[string]interface{}{
		"cancelledAt": p.now().UTC().Format(time.RFC3339),
		"cancelledBy": userID.String(),
		"reason":      "USER_CANCELLATION",
	})
	ok, err := p.txRepo.UpdateIf(ctx, txn, prev)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if !ok {
		// The transaction reached a terminal status while the cancel
		// was in flight.
		return nil, utils.ErrCannotCancel
	}

	return txn, nil
}

func (p *PaymentService) GetTransaction(ctx context.Context, userID uuid.UUID, transactionID uuid.UUID) (*db_models.Transaction, error) {
	return p.loadOwned(ctx, userID, transactionID)
}

func (p *PaymentService) ListTransactions(ctx context.Context, userID uuid.UUID, query request_models.TransactionHistoryQuery) (*response_models.TransactionHistoryResponse, error) {
	if query.Page < 1 {
		return nil, utils.ErrInvalidPage
	}
	if query.Limit < 1 || query.Limit > 100 {
		return nil, utils.ErrInvalidPageSize
	}

	direction := "desc"
	if query.Direction == "asc" {
		direction = "asc"
	}

	txns, total, err := p.txRepo.List(ctx, userID,
		repositories.TransactionFilter{Status: query.Status, PaymentMethod: query.PaymentMethod},
		query.Page, query.Limit,
		repositories.TransactionSort{Field: query.Sort, Direction: direction})
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	pages := total / int64(query.Limit)
	if total%int64(query.Limit) != 0 {
		pages++
	}

	return &response_models.TransactionHistoryResponse{
		Transactions: response_models.FromTransactions(txns),
		Pagination: response_models.Pagination{
			Page:  query.Page,
			Limit: query.Limit,
			Total: total,
			Pages: pages,
		},
		Sort:      query.Sort,
		Direction: direction,
	}, nil
}

func (p *PaymentService) RecentTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.Transaction, error) {
	if limit < 1 {
		limit = 5
	}
	if limit > recentHardCap {
		limit = recentHardCap
	}
	txns, err := p.txRepo.Recent(ctx, userID, limit)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	return txns, nil
}

func (p *PaymentService) PaymentStats(ctx context.Context, userID uuid.UUID, period string) (*response_models.PaymentStats, error) {
	days := defaultStatsDays
	switch period {
	case "7d":
		days = 7
	case "30d":
		days = 30
	case "90d":
		days = 90
	default:
		period = "30d"
	}

	since := p.now().AddDate(0, 0, -days)
	row, err := p.txRepo.Stats(ctx, userID, since)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	approvalRate := "0.00"
	if row.TotalTransactions > 0 {
		approvalRate = fmt.Sprintf("%.2f", float64(row.ApprovedCount)/float64(row.TotalTransactions)*100)
	}

	return &response_models.PaymentStats{
		Period:            period,
		TotalTransactions: row.TotalTransactions,
		TotalAmount:       row.TotalAmount,
		ApprovedCount:     row.ApprovedCount,
		ApprovedAmount:    row.ApprovedAmount,
		DeclinedCount:     row.DeclinedCount,
		PendingCount:      row.PendingCount,
		CreditCardCount:   row.CreditCardCount,
		PixCount:          row.PixCount,
		ApprovalRate:      approvalRate,
	}, nil
}

func (p *PaymentService) TestCards() map[string]TestCardResult {
	return p.gateway.TestCards()
}

// mergeBlob adds a keyed section to an existing audit blob without
// discarding what is already recorded.
func mergeBlob(existing datatypes.JSON, key string, value interface{}) datatypes.JSON {
	merged := map[string]interface{}{}
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &merged)
	}
	merged[key] = value
	return jsonBlob(merged)
}
