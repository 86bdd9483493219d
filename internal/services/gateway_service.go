package services

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"
	"pagamentos/internal/models/db_models"
	"pagamentos/pkg/utils"
)

type CreditCardData struct {
	CardNumber      string
	CardHolderName  string
	ExpirationMonth string
	ExpirationYear  string
	CVV             string
}

type PixData struct {
	Amount        decimal.Decimal
	Description   string
	CustomerEmail string
}

type GatewayResponse struct {
	Success              bool
	Status               db_models.TransactionStatus
	Message              string
	GatewayTransactionID string
	PixCode              string
	QRCodeImage          string
	ExpiresAt            *time.Time
	Details              map[string]interface{}
}

type TestCardResult struct {
	Status  db_models.TransactionStatus
	Message string
}

// DefaultTestCards is the canonical forced-outcome table. Injected at
// construction so the simulator stays parallel-safe and testable.
func DefaultTestCards() map[string]TestCardResult {
	return map[string]TestCardResult{
		"4111111111111111": {db_models.TxnStatusApproved, "Transaction approved"},
		"5555555555554444": {db_models.TxnStatusApproved, "Transaction approved"},
		"4000000000000119": {db_models.TxnStatusDeclined, "Insufficient funds"},
		"4000000000000127": {db_models.TxnStatusDeclined, "Invalid CVV"},
		"4000000000000069": {db_models.TxnStatusDeclined, "Card expired"},
		"4000000000000002": {db_models.TxnStatusDeclined, "Card declined"},
		"4000000000000259": {db_models.TxnStatusProcessing, "Transaction being processed"},
	}
}

type QRRenderer interface {
	Render(payload string) (string, error)
}

type qrCodeRenderer struct{}

func NewQRCodeRenderer() QRRenderer {
	return qrCodeRenderer{}
}

func (qrCodeRenderer) Render(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 300)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

type LatencyRange struct {
	Min time.Duration
	Max time.Duration
}

type MockGatewayConfig struct {
	ApprovalRate  float64
	PixExpiration time.Duration

	CreditCardLatency LatencyRange
	PixLatency        LatencyRange
	StatusLatency     LatencyRange
}

func DefaultMockGatewayConfig() MockGatewayConfig {
	return MockGatewayConfig{
		ApprovalRate:      0.85,
		PixExpiration:     30 * time.Minute,
		CreditCardLatency: LatencyRange{1000 * time.Millisecond, 3000 * time.Millisecond},
		PixLatency:        LatencyRange{500 * time.Millisecond, 1500 * time.Millisecond},
		StatusLatency:     LatencyRange{200 * time.Millisecond, 800 * time.Millisecond},
	}
}

type PaymentGateway interface {
	ProcessCreditCard(ctx context.Context, card CreditCardData, amount decimal.Decimal) (*GatewayResponse, error)
	ProcessPixPayment(ctx context.Context, data PixData) (*GatewayResponse, error)
	CheckPixStatus(ctx context.Context, gatewayTransactionID string) (*GatewayResponse, error)
	TestCards() map[string]TestCardResult
}

// mockPaymentGateway stands in for an acquirer/PIX provider with
// deterministic test hooks plus randomized outcomes for realism.
type mockPaymentGateway struct {
	cfg   MockGatewayConfig
	cards map[string]TestCardResult
	qr    QRRenderer
	now   func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMockPaymentGateway(cfg MockGatewayConfig, cards map[string]TestCardResult, rng *rand.Rand, now func() time.Time, qr QRRenderer) PaymentGateway {
	if cards == nil {
		cards = DefaultTestCards()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	if qr == nil {
		qr = NewQRCodeRenderer()
	}
	return &mockPaymentGateway{cfg: cfg, cards: cards, qr: qr, now: now, rng: rng}
}

func (g *mockPaymentGateway) TestCards() map[string]TestCardResult {
	out := make(map[string]TestCardResult, len(g.cards))
	for k, v := range g.cards {
		out[k] = v
	}
	return out
}

func (g *mockPaymentGateway) randFloat() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64()
}

func (g *mockPaymentGateway) randBytes(n int) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	b := make([]byte, n)
	g.rng.Read(b)
	return b
}

func (g *mockPaymentGateway) randIntn(n int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Intn(n)
}

// simulateDelay blocks for a random duration in the range, honoring
// the context deadline. A zero range disables the delay.
func (g *mockPaymentGateway) simulateDelay(ctx context.Context, r LatencyRange) error {
	if r.Max <= 0 {
		return nil
	}
	delay := r.Min
	if r.Max > r.Min {
		delay += time.Duration(g.randIntn(int(r.Max - r.Min)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (g *mockPaymentGateway) newTransactionID() string {
	return "txn_" + hex.EncodeToString(g.randBytes(16))
}

// PIX gateway ids always end in a decimal digit; the trailing digit is
// the discriminator CheckPixStatus resolves outcomes from.
func (g *mockPaymentGateway) newPixTransactionID() string {
	return "txn_" + hex.EncodeToString(g.randBytes(15)) + fmt.Sprintf("%d", g.randIntn(10))
}

func (g *mockPaymentGateway) authCode() string {
	return strings.ToUpper(hex.EncodeToString(g.randBytes(3)))
}

func (g *mockPaymentGateway) pixKey() string {
	return "pagamentos+" + hex.EncodeToString(g.randBytes(4)) + "@sistemapagamentos.com"
}

func (g *mockPaymentGateway) ProcessCreditCard(ctx context.Context, card CreditCardData, amount decimal.Decimal) (*GatewayResponse, error) {
	if err := g.simulateDelay(ctx, g.cfg.CreditCardLatency); err != nil {
		return nil, err
	}

	id := g.newTransactionID()
	details := map[string]interface{}{
		"cardBrand":      utils.GetCardBrand(card.CardNumber),
		"lastFourDigits": LastFour(card.CardNumber),
		"processingTime": g.now().UnixMilli(),
	}

	if forced, ok := g.cards[card.CardNumber]; ok {
		details["isTestCard"] = true
		if forced.Status == db_models.TxnStatusApproved {
			details["authCode"] = g.authCode()
		}
		return &GatewayResponse{
			Success:              forced.Status == db_models.TxnStatusApproved,
			Status:               forced.Status,
			Message:              forced.Message,
			GatewayTransactionID: id,
			Details:              details,
		}, nil
	}

	approved := g.randFloat() < g.cfg.ApprovalRate
	status := db_models.TxnStatusDeclined
	message := "Transaction declined by issuer"
	if approved {
		status = db_models.TxnStatusApproved
		message = "Transaction approved"
		details["authCode"] = g.authCode()
	}

	return &GatewayResponse{
		Success:              approved,
		Status:               status,
		Message:              message,
		GatewayTransactionID: id,
		Details:              details,
	}, nil
}

func (g *mockPaymentGateway) ProcessPixPayment(ctx context.Context, data PixData) (*GatewayResponse, error) {
	if err := g.simulateDelay(ctx, g.cfg.PixLatency); err != nil {
		return nil, err
	}

	id := g.newPixTransactionID()
	pixKey := g.pixKey()
	pixCode := buildPixCode(pixKey, data.Amount, data.Description)

	qrImage, err := g.qr.Render(pixCode)
	if err != nil {
		return &GatewayResponse{
			Success:              false,
			Status:               db_models.TxnStatusDeclined,
			Message:              "Failed to generate PIX payment",
			GatewayTransactionID: id,
			Details:              map[string]interface{}{"error": "QR_CODE_GENERATION_FAILED"},
		}, nil
	}

	expiresAt := g.now().Add(g.cfg.PixExpiration)

	return &GatewayResponse{
		Success:              true,
		Status:               db_models.TxnStatusPending,
		Message:              "PIX payment created successfully. Awaiting payment.",
		GatewayTransactionID: id,
		PixCode:              pixCode,
		QRCodeImage:          qrImage,
		ExpiresAt:            &expiresAt,
		Details: map[string]interface{}{
			"pixKey":         pixKey,
			"bankName":       "Banco Mock",
			"recipientName":  "Sistema de Pagamentos LTDA",
			"description":    data.Description,
			"processingTime": g.now().UnixMilli(),
		},
	}, nil
}

// CheckPixStatus derives the outcome from the id's trailing digit:
// 0-6 approved, 7-8 still pending, 9 expired.
func (g *mockPaymentGateway) CheckPixStatus(ctx context.Context, gatewayTransactionID string) (*GatewayResponse, error) {
	if err := g.simulateDelay(ctx, g.cfg.StatusLatency); err != nil {
		return nil, err
	}

	discriminator := -1
	if len(gatewayTransactionID) > 0 {
		last := gatewayTransactionID[len(gatewayTransactionID)-1]
		if last >= '0' && last <= '9' {
			discriminator = int(last - '0')
		}
	}

	var status db_models.TransactionStatus
	var message string
	switch {
	case discriminator >= 0 && discriminator <= 6:
		status = db_models.TxnStatusApproved
		message = "PIX payment confirmed"
	case discriminator == 7 || discriminator == 8:
		status = db_models.TxnStatusPending
		message = "PIX payment still pending"
	default:
		status = db_models.TxnStatusDeclined
		message = "PIX payment expired"
	}

	details := map[string]interface{}{
		"processingTime": g.now().UnixMilli(),
	}
	if status == db_models.TxnStatusApproved {
		details["paidAt"] = g.now().UTC().Format(time.RFC3339)
		details["payerBank"] = "Banco do Cliente"
		details["payerAccount"] = "****1234"
	}

	return &GatewayResponse{
		Success:              status == db_models.TxnStatusApproved,
		Status:               status,
		Message:              message,
		GatewayTransactionID: gatewayTransactionID,
		Details:              details,
	}, nil
}

// buildPixCode emits a simplified EMV-style payload. Real integrations
// use the full BR Code format; the simulator only needs a stable,
// renderable string.
func buildPixCode(pixKey string, amount decimal.Decimal, description string) string {
	const (
		merchantName = "Sistema de Pagamentos"
		merchantCity = "SAO PAULO"
		currency     = "986"
	)
	if len(description) > 25 {
		description = description[:25]
	}
	amountStr := amount.StringFixed(2)

	var b strings.Builder
	b.WriteString("00020126")
	b.WriteString(fmt.Sprintf("%02d%s", len(pixKey), pixKey))
	b.WriteString(fmt.Sprintf("%02d%s", len(merchantName), merchantName))
	b.WriteString("5303" + currency)
	b.WriteString(fmt.Sprintf("54%02d%s", len(amountStr), amountStr))
	b.WriteString("5802BR")
	b.WriteString(fmt.Sprintf("59%02d%s", len(merchantName), merchantName))
	b.WriteString(fmt.Sprintf("60%02d%s", len(merchantCity), merchantCity))
	b.WriteString(fmt.Sprintf("62%02d%s", len(description), description))
	b.WriteString("6304")
	return b.String()
}

func LastFour(cardNumber string) string {
	if len(cardNumber) < 4 {
		return cardNumber
	}
	return cardNumber[len(cardNumber)-4:]
}
