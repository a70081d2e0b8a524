package services

import (
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TransactionService is the append-only recorder for RewardTransaction rows.
// Rows are never updated or deleted once written, with one exception: a
// PAYOUT row is resolved from PENDING to SUCCESS or FAILED when settlement
// reports back.
type TransactionService struct {
	db *gorm.DB
}

func NewTransactionService(db *gorm.DB) *TransactionService {
	return &TransactionService{db: db}
}

// RecordTx appends a transaction row inside the caller's database transaction
// so the row commits or rolls back together with the balance mutation it
// describes.
func (s *TransactionService) RecordTx(tx *gorm.DB, transaction *models.RewardTransaction) error {
	if transaction.Status == "" {
		transaction.Status = models.RewardTransactionStatusSuccess
	}
	if err := tx.Create(transaction).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to record reward transaction")
	}
	return nil
}

// Record appends a transaction row outside any caller-managed transaction.
func (s *TransactionService) Record(transaction *models.RewardTransaction) error {
	return s.RecordTx(s.db, transaction)
}

func (s *TransactionService) GetTransaction(transactionId uuid.UUID) (*models.RewardTransaction, error) {
	var transaction models.RewardTransaction
	err := s.db.Where("id = ?", transactionId).First(&transaction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Transaction not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get transaction")
	}

	return &transaction, nil
}

// GetTransactionsByMember returns a member's history at one merchant, newest
// first.
func (s *TransactionService) GetTransactionsByMember(merchantId, memberId uuid.UUID, pagination *models.PaginationRequest) (*models.Pagination[[]models.RewardTransaction], error) {
	return s.paginate(pagination, s.db.Model(&models.RewardTransaction{}).
		Where("merchant_id = ? AND member_id = ?", merchantId, memberId))
}

// GetPayoutsByMerchant returns a merchant's USDC payout history, newest first.
func (s *TransactionService) GetPayoutsByMerchant(merchantId uuid.UUID, pagination *models.PaginationRequest) (*models.Pagination[[]models.RewardTransaction], error) {
	return s.paginate(pagination, s.db.Model(&models.RewardTransaction{}).
		Where("merchant_id = ? AND type = ?", merchantId, models.RewardTransactionTypePayout))
}

func (s *TransactionService) paginate(pagination *models.PaginationRequest, query *gorm.DB) (*models.Pagination[[]models.RewardTransaction], error) {
	if pagination.Limit <= 0 {
		pagination.Limit = 10
	}
	if pagination.Page <= 0 {
		pagination.Page = 1
	}

	offset := (pagination.Page - 1) * pagination.Limit

	var totalItems int64
	if err := query.Count(&totalItems).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to count transactions")
	}

	var transactions []models.RewardTransaction
	err := query.Order("created_at DESC").Limit(pagination.Limit).Offset(offset).Find(&transactions).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to get transactions")
	}

	totalPages := int((totalItems + int64(pagination.Limit) - 1) / int64(pagination.Limit))

	return &models.Pagination[[]models.RewardTransaction]{
		Page:       pagination.Page,
		Limit:      pagination.Limit,
		TotalPages: totalPages,
		TotalItems: int(totalItems),
		HasNext:    pagination.Page < totalPages,
		HasPrev:    pagination.Page > 1,
		Items:      transactions,
	}, nil
}

// ResolvePayout flips a PENDING payout row to SUCCESS or FAILED. Idempotent:
// a duplicate settlement callback finds no PENDING row and is dropped with a
// log line instead of overwriting the first outcome.
func (s *TransactionService) ResolvePayout(payoutTxId uuid.UUID, success bool, txHash *string, errorMessage *string) error {
	status := models.RewardTransactionStatusFailed
	if success {
		status = models.RewardTransactionStatusSuccess
	}

	result := s.db.Model(&models.RewardTransaction{}).
		Where("id = ? AND type = ? AND status = ?", payoutTxId, models.RewardTransactionTypePayout, models.RewardTransactionStatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"tx_hash":       txHash,
			"error_message": errorMessage,
		})

	if result.Error != nil {
		return errors.NewInternalServerError(result.Error, "Failed to resolve payout transaction")
	}

	if result.RowsAffected == 0 {
		existing, err := s.GetTransaction(payoutTxId)
		if err != nil {
			return err
		}
		logrus.Warnf("duplicate payout resolution for transaction %s ignored (status already %s)", payoutTxId, existing.Status)
	}

	return nil
}

// ReconcileMemberBalance resolves the ledger row for a (merchant, member)
// pair and reconciles it.
func (s *TransactionService) ReconcileMemberBalance(merchantId, memberId uuid.UUID) (*models.ReconciliationReport, error) {
	var merchantMember models.MerchantMember
	err := s.db.Where("merchant_id = ? AND member_id = ?", merchantId, memberId).First(&merchantMember).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Merchant member not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get merchant member")
	}

	return s.ReconcileBalance(merchantMember.ID)
}

// ReconcileBalance recomputes a ledger row's balance from its transaction
// stream and reports drift against the persisted running total. Advisory:
// the persisted total stays authoritative and is never corrected here.
func (s *TransactionService) ReconcileBalance(merchantMemberId uuid.UUID) (*models.ReconciliationReport, error) {
	var merchantMember models.MerchantMember
	if err := s.db.Where("id = ?", merchantMemberId).First(&merchantMember).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Merchant member not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get merchant member")
	}

	// PAYOUT rows carry amount = 0, so summing every row yields the points
	// position.
	var streamPoints int64
	err := s.db.Model(&models.RewardTransaction{}).
		Where("merchant_member_id = ?", merchantMemberId).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&streamPoints).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to sum transaction stream")
	}

	report := &models.ReconciliationReport{
		MerchantMemberID: merchantMemberId,
		LedgerPoints:     merchantMember.Points,
		StreamPoints:     streamPoints,
		Drift:            merchantMember.Points - streamPoints,
		Consistent:       merchantMember.Points == streamPoints,
	}

	if !report.Consistent {
		logrus.Warnf("ledger drift for merchant member %s: ledger=%d stream=%d", merchantMemberId, report.LedgerPoints, report.StreamPoints)
	}

	return report, nil
}
