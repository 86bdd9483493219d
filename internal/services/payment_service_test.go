package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"pagamentos/internal/models/db_models"
	"pagamentos/internal/models/request_models"
	"pagamentos/internal/repositories"
	"pagamentos/pkg/utils"
)

// fakeTransactionRepo is an in-memory TransactionRepository with the
// same conditional-update semantics as the SQL implementation.
type fakeTransactionRepo struct {
	mu   sync.Mutex
	txns map[uuid.UUID]*db_models.Transaction

	insertErr error
	updateErr error
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{txns: make(map[uuid.UUID]*db_models.Transaction)}
}

func (f *fakeTransactionRepo) Insert(_ context.Context, txn *db_models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if txn.ID == uuid.Nil {
		txn.ID = uuid.New()
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = time.Now().Unix()
	}
	copied := *txn
	f.txns[txn.ID] = &copied
	return nil
}

func (f *fakeTransactionRepo) FindByID(_ context.Context, id uuid.UUID) (*db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok {
		return nil, nil
	}
	copied := *txn
	return &copied, nil
}

func (f *fakeTransactionRepo) FindActiveByOrderID(_ context.Context, userID uuid.UUID, orderID string) (*db_models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, txn := range f.txns {
		if txn.OrderID != orderID || txn.UserID == nil || *txn.UserID != userID {
			continue
		}
		switch txn.Status {
		case db_models.TxnStatusPending, db_models.TxnStatusProcessing, db_models.TxnStatusApproved:
			copied := *txn
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeTransactionRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, from, to db_models.TransactionStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.txns[id]
	if !ok || txn.Status != from {
		return false, nil
	}
	txn.Status = to
	return true, nil
}

func (f *fakeTransactionRepo) UpdateIf(_ context.Context, txn *db_models.Transaction, expected db_models.TransactionStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return false, f.updateErr
	}
	stored, ok := f.txns[txn.ID]
	if !ok || stored.Status != expected {
		return false, nil
	}
	copied := *txn
	f.txns[txn.ID] = &copied
	return true, nil
}

func (f *fakeTransactionRepo) Update(_ context.Context, txn *db_models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	copied := *txn
	f.txns[txn.ID] = &copied
	return nil
}

func (f *fakeTransactionRepo) List(_ context.Context, userID uuid.UUID, filter repositories.TransactionFilter, page, limit int, _ repositories.TransactionSort) ([]db_models.Transaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []db_models.Transaction
	for _, txn := range f.txns {
		if txn.UserID == nil || *txn.UserID != userID {
			continue
		}
		if filter.Status != "" && string(txn.Status) != filter.Status {
			continue
		}
		if filter.PaymentMethod != "" && string(txn.PaymentMethod) != filter.PaymentMethod {
			continue
		}
		all = append(all, *txn)
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeTransactionRepo) Recent(_ context.Context, userID uuid.UUID, limit int) ([]db_models.Transaction, error) {
	txns, _, err := f.List(context.Background(), userID, repositories.TransactionFilter{}, 1, limit, repositories.TransactionSort{})
	return txns, err
}

func (f *fakeTransactionRepo) Stats(_ context.Context, userID uuid.UUID, since time.Time) (*repositories.TransactionStatsRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := &repositories.TransactionStatsRow{}
	for _, txn := range f.txns {
		if txn.UserID == nil || *txn.UserID != userID || txn.CreatedAt < since.Unix() {
			continue
		}
		row.TotalTransactions++
		row.TotalAmount = row.TotalAmount.Add(txn.Amount)
		switch txn.Status {
		case db_models.TxnStatusApproved:
			row.ApprovedCount++
			row.ApprovedAmount = row.ApprovedAmount.Add(txn.Amount)
		case db_models.TxnStatusDeclined:
			row.DeclinedCount++
		case db_models.TxnStatusPending:
			row.PendingCount++
		}
		switch txn.PaymentMethod {
		case db_models.MethodCreditCard:
			row.CreditCardCount++
		case db_models.MethodPix:
			row.PixCount++
		}
	}
	return row, nil
}

// scriptedGateway returns canned responses without latency. onCredit,
// when set, runs while the charge is in flight.
type scriptedGateway struct {
	creditResp *GatewayResponse
	creditErr  error
	onCredit   func()
	pixResp    *GatewayResponse
	pixErr     error
	statusResp *GatewayResponse
	statusErr  error
}

func (s *scriptedGateway) ProcessCreditCard(context.Context, CreditCardData, decimal.Decimal) (*GatewayResponse, error) {
	if s.onCredit != nil {
		s.onCredit()
	}
	return s.creditResp, s.creditErr
}

func (s *scriptedGateway) ProcessPixPayment(context.Context, PixData) (*GatewayResponse, error) {
	return s.pixResp, s.pixErr
}

func (s *scriptedGateway) CheckPixStatus(context.Context, string) (*GatewayResponse, error) {
	return s.statusResp, s.statusErr
}

func (s *scriptedGateway) TestCards() map[string]TestCardResult {
	return DefaultTestCards()
}

func newPaymentServiceForTest(repo repositories.TransactionRepository, gateway PaymentGateway) PaymentServiceInterface {
	return NewPaymentService(repo, gateway, 0.03, fixedNow)
}

func validInitiateRequest(method string) request_models.InitiatePaymentRequest {
	return request_models.InitiatePaymentRequest{
		OrderID:       "order-001",
		Amount:        100,
		PaymentMethod: method,
		Customer: request_models.CustomerInput{
			Name:  "Maria Silva",
			Email: "maria@example.com",
		},
		ReturnURL:   "https://shop.example.com/return",
		CallbackURL: "https://shop.example.com/callback",
	}
}

func TestComputeInstallments(t *testing.T) {
	svc := NewPaymentService(newFakeTransactionRepo(), &scriptedGateway{}, 0.03, fixedNow).(*PaymentService)

	t.Run("single installment charges base amount", func(t *testing.T) {
		inst, total, err := svc.computeInstallments(decimal.NewFromInt(100), 1)
		if err != nil {
			t.Fatalf("computeInstallments: %v", err)
		}
		if !total.Equal(decimal.NewFromInt(100)) {
			t.Errorf("total = %s, want 100", total)
		}
		if inst.Mode != db_models.InstallmentAvista {
			t.Errorf("mode = %s", inst.Mode)
		}
	})

	t.Run("three installments compound interest", func(t *testing.T) {
		inst, total, err := svc.computeInstallments(decimal.NewFromInt(100), 3)
		if err != nil {
			t.Fatalf("computeInstallments: %v", err)
		}
		if total.StringFixed(2) != "109.27" {
			t.Errorf("total = %s, want 109.27", total.StringFixed(2))
		}
		if inst.InstallmentValue.StringFixed(2) != "36.42" {
			t.Errorf("per installment = %s, want 36.42", inst.InstallmentValue.StringFixed(2))
		}
		if inst.Mode != db_models.InstallmentParcelado {
			t.Errorf("mode = %s", inst.Mode)
		}
	})

	t.Run("bounds", func(t *testing.T) {
		for _, qty := range []int{0, -1, 25} {
			if _, _, err := svc.computeInstallments(decimal.NewFromInt(100), qty); !errors.Is(err, utils.ErrInvalidInstallments) {
				t.Errorf("quantity %d: expected ErrInvalidInstallments, got %v", qty, err)
			}
		}
		if _, _, err := svc.computeInstallments(decimal.NewFromInt(100), 24); err != nil {
			t.Errorf("quantity 24 should be allowed, got %v", err)
		}
	})
}

func TestInitiatePayment(t *testing.T) {
	userID := uuid.New()

	t.Run("creates pending transaction", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{})

		txn, err := svc.InitiatePayment(context.Background(), userID, validInitiateRequest("credit_card"))
		if err != nil {
			t.Fatalf("InitiatePayment: %v", err)
		}
		if txn.Status != db_models.TxnStatusPending {
			t.Errorf("status = %s", txn.Status)
		}
		if txn.Currency != "BRL" {
			t.Errorf("currency default = %s", txn.Currency)
		}
		if txn.BaseAmount == nil || !txn.BaseAmount.Equal(decimal.NewFromInt(100)) {
			t.Errorf("base amount not stored for credit card")
		}
	})

	t.Run("duplicate active order rejected", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{})

		if _, err := svc.InitiatePayment(context.Background(), userID, validInitiateRequest("pix")); err != nil {
			t.Fatalf("first InitiatePayment: %v", err)
		}
		if _, err := svc.InitiatePayment(context.Background(), userID, validInitiateRequest("pix")); !errors.Is(err, utils.ErrDuplicateOrder) {
			t.Errorf("expected ErrDuplicateOrder, got %v", err)
		}
	})

	t.Run("same order id allowed for another user", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{})

		if _, err := svc.InitiatePayment(context.Background(), userID, validInitiateRequest("pix")); err != nil {
			t.Fatalf("first InitiatePayment: %v", err)
		}
		if _, err := svc.InitiatePayment(context.Background(), uuid.New(), validInitiateRequest("pix")); err != nil {
			t.Errorf("other user should reuse the order id, got %v", err)
		}
	})

	t.Run("recipient exclusivity", func(t *testing.T) {
		svc := newPaymentServiceForTest(newFakeTransactionRepo(), &scriptedGateway{})

		req := validInitiateRequest("pix")
		req.RecipientUserID = uuid.New().String()
		req.RecipientPixKey = "maria@example.com"
		if _, err := svc.InitiatePayment(context.Background(), userID, req); !errors.Is(err, utils.ErrRecipientConflict) {
			t.Errorf("expected ErrRecipientConflict, got %v", err)
		}
	})

	t.Run("invalid pix key", func(t *testing.T) {
		svc := newPaymentServiceForTest(newFakeTransactionRepo(), &scriptedGateway{})

		req := validInitiateRequest("pix")
		req.RecipientPixKey = "x"
		if _, err := svc.InitiatePayment(context.Background(), userID, req); !errors.Is(err, utils.ErrInvalidPixKey) {
			t.Errorf("expected ErrInvalidPixKey, got %v", err)
		}
	})

	t.Run("installments rejected for pix", func(t *testing.T) {
		svc := newPaymentServiceForTest(newFakeTransactionRepo(), &scriptedGateway{})

		req := validInitiateRequest("pix")
		req.Installments = &request_models.InstallmentsInput{Quantity: 3}
		if _, err := svc.InitiatePayment(context.Background(), userID, req); !errors.Is(err, utils.ErrInstallmentsNotAllowed) {
			t.Errorf("expected ErrInstallmentsNotAllowed, got %v", err)
		}
	})

	t.Run("installments priced into amount", func(t *testing.T) {
		svc := newPaymentServiceForTest(newFakeTransactionRepo(), &scriptedGateway{})

		req := validInitiateRequest("credit_card")
		req.Installments = &request_models.InstallmentsInput{Quantity: 3}
		txn, err := svc.InitiatePayment(context.Background(), userID, req)
		if err != nil {
			t.Fatalf("InitiatePayment: %v", err)
		}
		if txn.Amount.StringFixed(2) != "109.27" {
			t.Errorf("amount = %s, want 109.27", txn.Amount.StringFixed(2))
		}
	})
}

func approvedCreditResponse() *GatewayResponse {
	return &GatewayResponse{
		Success:              true,
		Status:               db_models.TxnStatusApproved,
		Message:              "Transaction approved",
		GatewayTransactionID: "txn_deadbeef",
		Details:              map[string]interface{}{"authCode": "A1B2C3"},
	}
}

func initiateFor(t *testing.T, svc PaymentServiceInterface, userID uuid.UUID, method string) *db_models.Transaction {
	t.Helper()
	txn, err := svc.InitiatePayment(context.Background(), userID, validInitiateRequest(method))
	if err != nil {
		t.Fatalf("InitiatePayment: %v", err)
	}
	return txn
}

func validCardPayment(txnID string) request_models.CreditCardPaymentRequest {
	return request_models.CreditCardPaymentRequest{
		TransactionID:   txnID,
		CardNumber:      "4111111111111111",
		CardHolderName:  "MARIA SILVA",
		ExpirationMonth: "12",
		ExpirationYear:  "2030",
		CVV:             "123",
	}
}

func TestProcessCreditCard(t *testing.T) {
	userID := uuid.New()

	t.Run("approved", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{creditResp: approvedCreditResponse()})
		txn := initiateFor(t, svc, userID, "credit_card")

		outcome, err := svc.ProcessCreditCard(context.Background(), userID, validCardPayment(txn.ID.String()))
		if err != nil {
			t.Fatalf("ProcessCreditCard: %v", err)
		}
		if outcome.Status != db_models.TxnStatusApproved {
			t.Errorf("status = %s", outcome.Status)
		}
		if outcome.AuthCode != "A1B2C3" {
			t.Errorf("authCode = %q", outcome.AuthCode)
		}

		stored, _ := repo.FindByID(context.Background(), txn.ID)
		if stored.Status != db_models.TxnStatusApproved {
			t.Errorf("persisted status = %s", stored.Status)
		}
		if stored.BankTransactionID == nil || *stored.BankTransactionID != "txn_deadbeef" {
			t.Error("gateway id not persisted")
		}
	})

	t.Run("unknown transaction", func(t *testing.T) {
		svc := newPaymentServiceForTest(newFakeTransactionRepo(), &scriptedGateway{})
		_, err := svc.ProcessCreditCard(context.Background(), userID, validCardPayment(uuid.New().String()))
		if !errors.Is(err, utils.ErrTransactionNotFound) {
			t.Errorf("expected ErrTransactionNotFound, got %v", err)
		}
	})

	t.Run("other user's transaction", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{creditResp: approvedCreditResponse()})
		txn := initiateFor(t, svc, userID, "credit_card")

		_, err := svc.ProcessCreditCard(context.Background(), uuid.New(), validCardPayment(txn.ID.String()))
		if !errors.Is(err, utils.ErrUnauthorizedTransaction) {
			t.Errorf("expected ErrUnauthorizedTransaction, got %v", err)
		}
	})

	t.Run("wrong payment method", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{creditResp: approvedCreditResponse()})
		txn := initiateFor(t, svc, userID, "pix")

		_, err := svc.ProcessCreditCard(context.Background(), userID, validCardPayment(txn.ID.String()))
		if !errors.Is(err, utils.ErrInvalidPaymentMethod) {
			t.Errorf("expected ErrInvalidPaymentMethod, got %v", err)
		}
	})

	t.Run("gateway failure marks FAILED", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{creditErr: errors.New("gateway unavailable")})
		txn := initiateFor(t, svc, userID, "credit_card")

		_, err := svc.ProcessCreditCard(context.Background(), userID, validCardPayment(txn.ID.String()))
		if !errors.Is(err, utils.ErrPaymentProcessing) {
			t.Fatalf("expected ErrPaymentProcessing, got %v", err)
		}
		stored, _ := repo.FindByID(context.Background(), txn.ID)
		if stored.Status != db_models.TxnStatusFailed {
			t.Errorf("persisted status = %s, want FAILED", stored.Status)
		}
	})

	t.Run("concurrent attempts have one winner", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{creditResp: approvedCreditResponse()})
		txn := initiateFor(t, svc, userID, "credit_card")

		const attempts = 8
		results := make(chan error, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.ProcessCreditCard(context.Background(), userID, validCardPayment(txn.ID.String()))
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		winners := 0
		for err := range results {
			if err == nil {
				winners++
			} else if !errors.Is(err, utils.ErrInvalidTransactionStatus) {
				t.Errorf("loser got unexpected error %v", err)
			}
		}
		if winners != 1 {
			t.Errorf("winners = %d, want exactly 1", winners)
		}
	})

	t.Run("malformed card fields rejected before charging", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{creditResp: approvedCreditResponse()})
		txn := initiateFor(t, svc, userID, "credit_card")

		cases := []struct {
			name    string
			mutate  func(*request_models.CreditCardPaymentRequest)
			wantErr error
		}{
			{"luhn failure", func(r *request_models.CreditCardPaymentRequest) { r.CardNumber = "4111111111111112" }, utils.ErrInvalidCardNumber},
			{"numeric holder name", func(r *request_models.CreditCardPaymentRequest) { r.CardHolderName = "12345" }, utils.ErrInvalidCardHolder},
			{"single letter holder name", func(r *request_models.CreditCardPaymentRequest) { r.CardHolderName = "M" }, utils.ErrInvalidCardHolder},
			{"month thirteen", func(r *request_models.CreditCardPaymentRequest) { r.ExpirationMonth = "13" }, utils.ErrInvalidExpiration},
			{"two digit year", func(r *request_models.CreditCardPaymentRequest) { r.ExpirationYear = "30" }, utils.ErrInvalidExpiration},
			{"alphanumeric cvv", func(r *request_models.CreditCardPaymentRequest) { r.CVV = "12ab" }, utils.ErrInvalidCVV},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				req := validCardPayment(txn.ID.String())
				tc.mutate(&req)
				if _, err := svc.ProcessCreditCard(context.Background(), userID, req); !errors.Is(err, tc.wantErr) {
					t.Errorf("expected %v, got %v", tc.wantErr, err)
				}
			})
		}

		stored, _ := repo.FindByID(context.Background(), txn.ID)
		if stored.Status != db_models.TxnStatusPending {
			t.Errorf("rejected requests must not advance the transaction, status = %s", stored.Status)
		}
	})

	t.Run("cancellation during the charge is not overwritten", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		gateway := &scriptedGateway{creditResp: approvedCreditResponse()}
		svc := newPaymentServiceForTest(repo, gateway)
		txn := initiateFor(t, svc, userID, "credit_card")

		gateway.onCredit = func() {
			if _, err := svc.CancelTransaction(context.Background(), userID, txn.ID); err != nil {
				t.Errorf("CancelTransaction during charge: %v", err)
			}
		}

		_, err := svc.ProcessCreditCard(context.Background(), userID, validCardPayment(txn.ID.String()))
		if !errors.Is(err, utils.ErrInvalidTransactionStatus) {
			t.Fatalf("expected ErrInvalidTransactionStatus, got %v", err)
		}

		stored, _ := repo.FindByID(context.Background(), txn.ID)
		if stored.Status != db_models.TxnStatusFailed {
			t.Errorf("cancellation overwritten, status = %s", stored.Status)
		}
		if len(stored.GatewayResponse) == 0 {
			t.Error("cancellation metadata lost")
		}
	})
}

func TestProcessPix(t *testing.T) {
	userID := uuid.New()
	expiry := fixedNow().Add(30 * time.Minute)
	pixResp := &GatewayResponse{
		Success:              true,
		Status:               db_models.TxnStatusPending,
		Message:              "PIX payment created successfully. Awaiting payment.",
		GatewayTransactionID: "txn_cafe7",
		PixCode:              "00020126...",
		QRCodeImage:          "data:image/png;base64,stub",
		ExpiresAt:            &expiry,
		Details:              map[string]interface{}{"pixKey": "k@x.com"},
	}

	t.Run("stores pix artifacts", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{pixResp: pixResp})
		txn := initiateFor(t, svc, userID, "pix")

		outcome, err := svc.ProcessPix(context.Background(), userID, txn.ID)
		if err != nil {
			t.Fatalf("ProcessPix: %v", err)
		}
		if outcome.PixCode != "00020126..." || outcome.QRCodeImage == "" {
			t.Error("pix artifacts missing from outcome")
		}

		stored, _ := repo.FindByID(context.Background(), txn.ID)
		if stored.BankPixID == nil || *stored.BankPixID != "txn_cafe7" {
			t.Error("bank pix id not persisted")
		}
		if stored.PixExpiresAt == nil || *stored.PixExpiresAt != expiry.Unix() {
			t.Error("pix expiry not persisted")
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{pixResp: pixResp})
		txn := initiateFor(t, svc, userID, "credit_card")

		if _, err := svc.ProcessPix(context.Background(), userID, txn.ID); !errors.Is(err, utils.ErrInvalidPaymentMethod) {
			t.Errorf("expected ErrInvalidPaymentMethod, got %v", err)
		}
	})

	t.Run("gateway failure marks FAILED", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{pixErr: errors.New("down")})
		txn := initiateFor(t, svc, userID, "pix")

		if _, err := svc.ProcessPix(context.Background(), userID, txn.ID); !errors.Is(err, utils.ErrPixProcessing) {
			t.Fatalf("expected ErrPixProcessing, got %v", err)
		}
		stored, _ := repo.FindByID(context.Background(), txn.ID)
		if stored.Status != db_models.TxnStatusFailed {
			t.Errorf("persisted status = %s", stored.Status)
		}
	})
}

func TestCheckPixStatus(t *testing.T) {
	userID := uuid.New()

	pixCreated := func(repo *fakeTransactionRepo, gateway PaymentGateway) (PaymentServiceInterface, *db_models.Transaction) {
		expiry := fixedNow().Add(30 * time.Minute)
		svc := newPaymentServiceForTest(repo, gateway)
		txn := initiateFor(t, svc, userID, "pix")
		stored, _ := repo.FindByID(context.Background(), txn.ID)
		pixID := "txn_cafe7"
		stored.BankPixID = &pixID
		stored.PixExpiresAt = func() *int64 { v := expiry.Unix(); return &v }()
		_ = repo.Update(context.Background(), stored)
		return svc, stored
	}

	t.Run("applies gateway status", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc, txn := pixCreated(repo, &scriptedGateway{statusResp: &GatewayResponse{
			Success: true,
			Status:  db_models.TxnStatusApproved,
			Message: "PIX payment confirmed",
			Details: map[string]interface{}{"paidAt": "2026-05-20T12:00:00Z"},
		}})

		outcome, err := svc.CheckPixStatus(context.Background(), userID, txn.ID)
		if err != nil {
			t.Fatalf("CheckPixStatus: %v", err)
		}
		if outcome.Status != db_models.TxnStatusApproved || outcome.PaidAt == "" {
			t.Errorf("outcome = %+v", outcome)
		}
		stored, _ := repo.FindByID(context.Background(), txn.ID)
		if stored.Status != db_models.TxnStatusApproved {
			t.Errorf("persisted status = %s", stored.Status)
		}
	})

	t.Run("terminal status never downgraded", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc, txn := pixCreated(repo, &scriptedGateway{statusResp: &GatewayResponse{
			Status:  db_models.TxnStatusDeclined,
			Message: "PIX payment expired",
			Details: map[string]interface{}{},
		}})

		stored, _ := repo.FindByID(context.Background(), txn.ID)
		stored.Status = db_models.TxnStatusApproved
		_ = repo.Update(context.Background(), stored)

		outcome, err := svc.CheckPixStatus(context.Background(), userID, txn.ID)
		if err != nil {
			t.Fatalf("CheckPixStatus: %v", err)
		}
		if outcome.Status != db_models.TxnStatusApproved {
			t.Errorf("terminal status downgraded to %s", outcome.Status)
		}
	})

	t.Run("pix not initiated", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{})
		txn := initiateFor(t, svc, userID, "pix")

		if _, err := svc.CheckPixStatus(context.Background(), userID, txn.ID); !errors.Is(err, utils.ErrPixNotInitiated) {
			t.Errorf("expected ErrPixNotInitiated, got %v", err)
		}
	})

	t.Run("gateway error", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc, txn := pixCreated(repo, &scriptedGateway{statusErr: errors.New("down")})

		if _, err := svc.CheckPixStatus(context.Background(), userID, txn.ID); !errors.Is(err, utils.ErrPixStatusCheck) {
			t.Errorf("expected ErrPixStatusCheck, got %v", err)
		}
	})
}

func TestCancelTransaction(t *testing.T) {
	userID := uuid.New()

	t.Run("pending can be cancelled", func(t *testing.T) {
		repo := newFakeTransactionRepo()
		svc := newPaymentServiceForTest(repo, &scriptedGateway{})
		txn := initiateFor(t, svc, userID, "pix")

		cancelled, err := svc.CancelTransaction(context.Background(), userID, txn.ID)
		if err != nil {
			t.Fatalf("CancelTransaction: %v", err)
		}
		if cancelled.Status != db_models.TxnStatusFailed {
			t.Errorf("status = %s", cancelled.Status)
		}
		if len(cancelled.GatewayResponse) == 0 {
			t.Error("cancellation metadata not recorded")
		}
	})

	t.Run("terminal statuses cannot be cancelled", func(t *testing.T) {
		for _, status := range []db_models.TransactionStatus{
			db_models.TxnStatusApproved,
			db_models.TxnStatusDeclined,
			db_models.TxnStatusFailed,
		} {
			repo := newFakeTransactionRepo()
			svc := newPaymentServiceForTest(repo, &scriptedGateway{})
			txn := initiateFor(t, svc, userID, "pix")

			stored, _ := repo.FindByID(context.Background(), txn.ID)
			stored.Status = status
			_ = repo.Update(context.Background(), stored)

			if _, err := svc.CancelTransaction(context.Background(), userID, txn.ID); !errors.Is(err, utils.ErrCannotCancel) {
				t.Errorf("status %s: expected ErrCannotCancel, got %v", status, err)
			}
		}
	})

	t.Run("cancel decided on a stale read does not clobber approval", func(t *testing.T) {
		base := newFakeTransactionRepo()
		repo := &staleReadRepo{fakeTransactionRepo: base}
		svc := newPaymentServiceForTest(repo, &scriptedGateway{})
		txn := initiateFor(t, svc, userID, "pix")

		// The cancel reads PENDING while the stored row is already
		// APPROVED.
		pending := *txn
		repo.stale = &pending
		stored, _ := base.FindByID(context.Background(), txn.ID)
		stored.Status = db_models.TxnStatusApproved
		_ = base.Update(context.Background(), stored)

		if _, err := svc.CancelTransaction(context.Background(), userID, txn.ID); !errors.Is(err, utils.ErrCannotCancel) {
			t.Fatalf("expected ErrCannotCancel, got %v", err)
		}
		final, _ := base.FindByID(context.Background(), txn.ID)
		if final.Status != db_models.TxnStatusApproved {
			t.Errorf("approval clobbered, status = %s", final.Status)
		}
	})
}

// staleReadRepo serves one stale snapshot from FindByID, then defers to
// the underlying repo.
type staleReadRepo struct {
	*fakeTransactionRepo
	stale *db_models.Transaction
}

func (s *staleReadRepo) FindByID(ctx context.Context, id uuid.UUID) (*db_models.Transaction, error) {
	if s.stale != nil && s.stale.ID == id {
		copied := *s.stale
		s.stale = nil
		return &copied, nil
	}
	return s.fakeTransactionRepo.FindByID(ctx, id)
}

func TestListTransactionsValidation(t *testing.T) {
	svc := newPaymentServiceForTest(newFakeTransactionRepo(), &scriptedGateway{})
	userID := uuid.New()

	if _, err := svc.ListTransactions(context.Background(), userID, request_models.TransactionHistoryQuery{Page: 0, Limit: 10}); !errors.Is(err, utils.ErrInvalidPage) {
		t.Errorf("expected ErrInvalidPage, got %v", err)
	}
	if _, err := svc.ListTransactions(context.Background(), userID, request_models.TransactionHistoryQuery{Page: 1, Limit: 101}); !errors.Is(err, utils.ErrInvalidPageSize) {
		t.Errorf("expected ErrInvalidPageSize, got %v", err)
	}

	history, err := svc.ListTransactions(context.Background(), userID, request_models.TransactionHistoryQuery{Page: 1, Limit: 10, Sort: "createdAt", Direction: "desc"})
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if history.Pagination.Total != 0 || history.Pagination.Pages != 0 {
		t.Errorf("empty history pagination = %+v", history.Pagination)
	}
}

func TestPaymentStats(t *testing.T) {
	userID := uuid.New()
	repo := newFakeTransactionRepo()
	svc := newPaymentServiceForTest(repo, &scriptedGateway{})

	t.Run("empty window formats zero rate", func(t *testing.T) {
		stats, err := svc.PaymentStats(context.Background(), userID, "7d")
		if err != nil {
			t.Fatalf("PaymentStats: %v", err)
		}
		if stats.ApprovalRate != "0.00" {
			t.Errorf("approval rate = %q, want 0.00", stats.ApprovalRate)
		}
		if stats.Period != "7d" {
			t.Errorf("period = %q", stats.Period)
		}
	})

	t.Run("rates computed over the window", func(t *testing.T) {
		insert := func(status db_models.TransactionStatus, method db_models.PaymentMethod, amount int64) {
			txn := &db_models.Transaction{
				OrderID:       uuid.NewString(),
				UserID:        &userID,
				Amount:        decimal.NewFromInt(amount),
				PaymentMethod: method,
				Status:        status,
			}
			txn.CreatedAt = fixedNow().Unix()
			_ = repo.Insert(context.Background(), txn)
		}
		insert(db_models.TxnStatusApproved, db_models.MethodCreditCard, 100)
		insert(db_models.TxnStatusApproved, db_models.MethodPix, 50)
		insert(db_models.TxnStatusDeclined, db_models.MethodCreditCard, 25)
		insert(db_models.TxnStatusPending, db_models.MethodPix, 10)

		stats, err := svc.PaymentStats(context.Background(), userID, "invalid")
		if err != nil {
			t.Fatalf("PaymentStats: %v", err)
		}
		if stats.Period != "30d" {
			t.Errorf("unknown period should fall back to 30d, got %q", stats.Period)
		}
		if stats.TotalTransactions != 4 || stats.ApprovedCount != 2 {
			t.Errorf("counts = %d/%d", stats.TotalTransactions, stats.ApprovedCount)
		}
		if stats.ApprovalRate != "50.00" {
			t.Errorf("approval rate = %q, want 50.00", stats.ApprovalRate)
		}
	})
}

func TestRecentTransactionsLimits(t *testing.T) {
	userID := uuid.New()
	repo := newFakeTransactionRepo()
	svc := newPaymentServiceForTest(repo, &scriptedGateway{})

	for i := 0; i < 25; i++ {
		_ = repo.Insert(context.Background(), &db_models.Transaction{
			OrderID:       uuid.NewString(),
			UserID:        &userID,
			Amount:        decimal.NewFromInt(1),
			PaymentMethod: db_models.MethodPix,
			Status:        db_models.TxnStatusApproved,
		})
	}

	txns, err := svc.RecentTransactions(context.Background(), userID, 0)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	if len(txns) != 5 {
		t.Errorf("default limit = %d, want 5", len(txns))
	}

	txns, err = svc.RecentTransactions(context.Background(), userID, 100)
	if err != nil {
		t.Fatalf("RecentTransactions: %v", err)
	}
	if len(txns) != 20 {
		t.Errorf("capped limit = %d, want 20", len(txns))
	}
}
