package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"pagamentos/internal/models/db_models"
)

type TransactionFilter struct {
	Status        string
	PaymentMethod string
}

type TransactionSort struct {
	Field     string
	Direction string
}

// TransactionStatsRow mirrors the stats aggregation over a window.
type TransactionStatsRow struct {
	TotalTransactions int64
	TotalAmount       decimal.Decimal
	ApprovedCount     int64
	ApprovedAmount    decimal.Decimal
	DeclinedCount     int64
	PendingCount      int64
	CreditCardCount   int64
	PixCount          int64
}

type TransactionRepository interface {
	Insert(ctx context.Context, txn *db_models.Transaction) error
	FindByID(ctx context.Context, id uuid.UUID) (*db_models.Transaction, error)
	FindActiveByOrderID(ctx context.Context, userID uuid.UUID, orderID string) (*db_models.Transaction, error)
	// UpdateStatusIf applies from→to atomically and reports whether the
	// row was in the expected status. This is the per-transaction
	// serialization point for overlapping transitions.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to db_models.TransactionStatus) (bool, error)
	// UpdateIf writes the full row only while the stored status still
	// matches expected, so a transition decided on stale state cannot
	// clobber one that already won.
	UpdateIf(ctx context.Context, txn *db_models.Transaction, expected db_models.TransactionStatus) (bool, error)
	Update(ctx context.Context, txn *db_models.Transaction) error
	List(ctx context.Context, userID uuid.UUID, filter TransactionFilter, page, limit int, sort TransactionSort) ([]db_models.Transaction, int64, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.Transaction, error)
	Stats(ctx context.Context, userID uuid.UUID, since time.Time) (*TransactionStatsRow, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (t *transactionRepository) Insert(ctx context.Context, txn *db_models.Transaction) error {
	return t.db.WithContext(ctx).Create(txn).Error
}

func (t *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := t.db.WithContext(ctx).First(&txn, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

var activeStatuses = []db_models.TransactionStatus{
	db_models.TxnStatusPending,
	db_models.TxnStatusProcessing,
	db_models.TxnStatusApproved,
}

func (t *transactionRepository) FindActiveByOrderID(ctx context.Context, userID uuid.UUID, orderID string) (*db_models.Transaction, error) {
	var txn db_models.Transaction
	err := t.db.WithContext(ctx).
		Where("order_id = ? AND user_id = ? AND status IN ?", orderID, userID, activeStatuses).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (t *transactionRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to db_models.TransactionStatus) (bool, error) {
	res := t.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now().Unix(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *transactionRepository) UpdateIf(ctx context.Context, txn *db_models.Transaction, expected db_models.TransactionStatus) (bool, error) {
	res := t.db.WithContext(ctx).
		Model(txn).
		Where("status = ?", expected).
		Select("*").
		Updates(txn)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (t *transactionRepository) Update(ctx context.Context, txn *db_models.Transaction) error {
	return t.db.WithContext(ctx).Save(txn).Error
}

// Whitelisted sortable columns.
var sortColumns = map[string]string{
	"createdAt":     "created_at",
	"amount":        "amount",
	"status":        "status",
	"paymentMethod": "payment_method",
}

func (t *transactionRepository) List(ctx context.Context, userID uuid.UUID, filter TransactionFilter, page, limit int, sort TransactionSort) ([]db_models.Transaction, int64, error) {
	query := t.db.WithContext(ctx).Model(&db_models.Transaction{}).Where("user_id = ?", userID)

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentMethod != "" {
		query = query.Where("payment_method = ?", filter.PaymentMethod)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if sort.Direction == "asc" {
		direction = "ASC"
	}

	var txns []db_models.Transaction
	err := query.
		Order(column + " " + direction).
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, 0, err
	}

	return txns, total, nil
}

func (t *transactionRepository) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]db_models.Transaction, error) {
	var txns []db_models.Transaction
	err := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}

func (t *transactionRepository) Stats(ctx context.Context, userID uuid.UUID, since time.Time) (*TransactionStatsRow, error) {
	var row TransactionStatsRow
	err := t.db.WithContext(ctx).
		Model(&db_models.Transaction{}).
		Select(`COUNT(*) AS total_transactions,
			COALESCE(SUM(amount), 0) AS total_amount,
			COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved_count,
			COALESCE(SUM(amount) FILTER (WHERE status = 'APPROVED'), 0) AS approved_amount,
			COUNT(*) FILTER (WHERE status = 'DECLINED') AS declined_count,
			COUNT(*) FILTER (WHERE status = 'PENDING') AS pending_count,
			COUNT(*) FILTER (WHERE payment_method = 'credit_card') AS credit_card_count,
			COUNT(*) FILTER (WHERE payment_method = 'pix') AS pix_count`).
		Where("user_id = ? AND created_at >= ?", userID, since.Unix()).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
