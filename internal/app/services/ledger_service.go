package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService owns the authoritative points balance per (merchant, member).
// Every mutation locks the MerchantMember row, re-reads the balance, applies
// the delta, recomputes the tier and appends a RewardTransaction, all inside
// one database transaction.
type LedgerService struct {
	db                 *gorm.DB
	transactionService *TransactionService
}

func NewLedgerService(db *gorm.DB, transactionService *TransactionService) *LedgerService {
	return &LedgerService{
		db:                 db,
		transactionService: transactionService,
	}
}

// RecomputeTier derives the tier from the current points against the
// merchant's thresholds. Pure; must be re-evaluated on every mutation because
// thresholds are merchant-configurable.
func RecomputeTier(points, vipThreshold, superThreshold int64) models.Tier {
	switch {
	case points >= superThreshold:
		return models.TierSuper
	case points >= vipThreshold:
		return models.TierVIP
	default:
		return models.TierBase
	}
}

// forUpdate adds a row lock on dialects that support it. The sqlite driver
// used in tests has no FOR UPDATE syntax; there, transactions serialize on
// the database write lock instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// GetBalance returns the current points and tier, creating the ledger row
// lazily on first access (0 points, BASE tier). Not every member interacts
// with every merchant before first touch.
func (s *LedgerService) GetBalance(merchantId, memberId uuid.UUID) (*models.BalanceResponse, error) {
	var merchantMember *models.MerchantMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		merchantMember, txErr = s.getOrCreateMerchantMember(tx, merchantId, memberId, false)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return &models.BalanceResponse{
		MerchantID: merchantId,
		MemberID:   memberId,
		Points:     merchantMember.Points,
		Tier:       merchantMember.Tier,
	}, nil
}

func (s *LedgerService) getOrCreateMerchantMember(tx *gorm.DB, merchantId, memberId uuid.UUID, lock bool) (*models.MerchantMember, error) {
	query := tx
	if lock {
		query = forUpdate(tx)
	}

	var merchantMember models.MerchantMember
	err := query.Where("merchant_id = ? AND member_id = ?", merchantId, memberId).First(&merchantMember).Error
	if err == nil {
		return &merchantMember, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, errors.NewInternalServerError(err, "Failed to get merchant member")
	}

	referralCode := "GOB-" + pkg.RandomString(8)
	merchantMember = models.MerchantMember{
		MerchantID:   merchantId,
		MemberID:     memberId,
		Points:       0,
		Tier:         models.TierBase,
		ReferralCode: &referralCode,
	}
	if err := tx.Create(&merchantMember).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to create merchant member")
	}

	return &merchantMember, nil
}

// Credit increases the balance. Amount must be positive; crediting has no
// upper bound. Writes an EARN transaction and bumps the location visit
// projection when a business is given.
func (s *LedgerService) Credit(merchantId, memberId uuid.UUID, amount int64, reason string, businessId *uuid.UUID) (*models.BalanceResponse, error) {
	if amount <= 0 {
		return nil, errors.NewBadRequestError("Credit amount must be a positive integer")
	}

	var merchantMember *models.MerchantMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		merchantMember, txErr = s.creditTx(tx, merchantId, memberId, amount, reason, businessId)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return &models.BalanceResponse{
		MerchantID: merchantId,
		MemberID:   memberId,
		Points:     merchantMember.Points,
		Tier:       merchantMember.Tier,
	}, nil
}

func (s *LedgerService) creditTx(tx *gorm.DB, merchantId, memberId uuid.UUID, amount int64, reason string, businessId *uuid.UUID) (*models.MerchantMember, error) {
	merchant, err := s.getMerchant(tx, merchantId)
	if err != nil {
		return nil, err
	}

	merchantMember, err := s.getOrCreateMerchantMember(tx, merchantId, memberId, true)
	if err != nil {
		return nil, err
	}

	merchantMember.Points += amount
	merchantMember.Tier = RecomputeTier(merchantMember.Points, merchant.VIPThreshold, merchant.SuperThreshold)
	if err := tx.Save(merchantMember).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to update merchant member balance")
	}

	transaction := &models.RewardTransaction{
		MerchantMemberID: merchantMember.ID,
		MerchantID:       merchantId,
		MemberID:         memberId,
		BusinessID:       businessId,
		Type:             models.RewardTransactionTypeEarn,
		Amount:           amount,
		Reason:           &reason,
	}
	if err := s.transactionService.RecordTx(tx, transaction); err != nil {
		return nil, err
	}

	if businessId != nil {
		if err := s.touchBusinessMember(tx, *businessId, merchantId, memberId); err != nil {
			return nil, err
		}
	}

	return merchantMember, nil
}

// Debit decreases the balance for a reward redemption. Fails with
// INSUFFICIENT_BALANCE when the locked row holds fewer points than the
// amount; never drives the balance below zero.
func (s *LedgerService) Debit(merchantId, memberId uuid.UUID, amount int64, reason string, businessId *uuid.UUID) (*models.BalanceResponse, error) {
	var merchantMember *models.MerchantMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		merchantMember, txErr = s.DebitTx(tx, merchantId, memberId, amount, reason, businessId, nil)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return &models.BalanceResponse{
		MerchantID: merchantId,
		MemberID:   memberId,
		Points:     merchantMember.Points,
		Tier:       merchantMember.Tier,
	}, nil
}

// DebitTx performs the debit inside the caller's transaction so the caller
// can make it atomic with its own state transition (the confirm path). The
// REDEEM transaction row is written here, in the same transaction.
func (s *LedgerService) DebitTx(tx *gorm.DB, merchantId, memberId uuid.UUID, amount int64, reason string, businessId, redemptionId *uuid.UUID) (*models.MerchantMember, error) {
	if amount <= 0 {
		return nil, errors.NewBadRequestError("Debit amount must be a positive integer")
	}

	merchant, err := s.getMerchant(tx, merchantId)
	if err != nil {
		return nil, err
	}

	merchantMember, err := s.getOrCreateMerchantMember(tx, merchantId, memberId, true)
	if err != nil {
		return nil, err
	}

	if merchantMember.Points < amount {
		return nil, errors.NewUnprocessableError(errors.CodeInsufficientBal, "Insufficient points balance")
	}

	merchantMember.Points -= amount
	merchantMember.Tier = RecomputeTier(merchantMember.Points, merchant.VIPThreshold, merchant.SuperThreshold)
	if err := tx.Save(merchantMember).Error; err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to update merchant member balance")
	}

	transaction := &models.RewardTransaction{
		MerchantMemberID: merchantMember.ID,
		MerchantID:       merchantId,
		MemberID:         memberId,
		BusinessID:       businessId,
		RedemptionID:     redemptionId,
		Type:             models.RewardTransactionTypeRedeem,
		Amount:           -amount,
		Reason:           &reason,
	}
	if err := s.transactionService.RecordTx(tx, transaction); err != nil {
		return nil, err
	}

	return merchantMember, nil
}

// AdjustPoints applies a staff-initiated correction. Negative deltas clamp at
// zero instead of rejecting: a correction should always apply, unlike a
// redemption debit.
func (s *LedgerService) AdjustPoints(merchantId, memberId uuid.UUID, delta int64, reason *string) (*models.BalanceResponse, error) {
	if delta == 0 {
		return nil, errors.NewBadRequestError("Adjustment delta must be non-zero")
	}

	var merchantMember *models.MerchantMember
	err := s.db.Transaction(func(tx *gorm.DB) error {
		merchant, txErr := s.getMerchant(tx, merchantId)
		if txErr != nil {
			return txErr
		}

		merchantMember, txErr = s.getOrCreateMerchantMember(tx, merchantId, memberId, true)
		if txErr != nil {
			return txErr
		}

		applied := delta
		if merchantMember.Points+delta < 0 {
			applied = -merchantMember.Points
		}

		merchantMember.Points += applied
		merchantMember.Tier = RecomputeTier(merchantMember.Points, merchant.VIPThreshold, merchant.SuperThreshold)
		if txErr := tx.Save(merchantMember).Error; txErr != nil {
			return errors.NewInternalServerError(txErr, "Failed to update merchant member balance")
		}

		transaction := &models.RewardTransaction{
			MerchantMemberID: merchantMember.ID,
			MerchantID:       merchantId,
			MemberID:         memberId,
			Type:             models.RewardTransactionTypeAdjust,
			Amount:           applied,
			Reason:           reason,
		}
		return s.transactionService.RecordTx(tx, transaction)
	})
	if err != nil {
		return nil, err
	}

	return &models.BalanceResponse{
		MerchantID: merchantId,
		MemberID:   memberId,
		Points:     merchantMember.Points,
		Tier:       merchantMember.Tier,
	}, nil
}

func (s *LedgerService) getMerchant(tx *gorm.DB, merchantId uuid.UUID) (*models.Merchant, error) {
	var merchant models.Merchant
	if err := tx.Where("id = ?", merchantId).First(&merchant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Merchant not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get merchant")
	}
	return &merchant, nil
}

// touchBusinessMember upserts the location-scoped visit projection. Analytics
// only; points never land here.
func (s *LedgerService) touchBusinessMember(tx *gorm.DB, businessId, merchantId, memberId uuid.UUID) error {
	now := time.Now()

	var businessMember models.BusinessMember
	err := tx.Where("business_id = ? AND member_id = ?", businessId, memberId).First(&businessMember).Error
	if err == gorm.ErrRecordNotFound {
		businessMember = models.BusinessMember{
			BusinessID: businessId,
			MerchantID: merchantId,
			MemberID:   memberId,
			VisitCount: 1,
			LastScanAt: &now,
		}
		if err := tx.Create(&businessMember).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create business member")
		}
		return nil
	}
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to get business member")
	}

	businessMember.VisitCount++
	businessMember.LastScanAt = &now
	if err := tx.Save(&businessMember).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to update business member")
	}

	return nil
}
