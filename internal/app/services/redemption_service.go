package services

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RedemptionTTL is how long a redemption QR code stays valid after creation.
const RedemptionTTL = 10 * time.Minute

// RedemptionService drives the redemption request lifecycle:
// PENDING → CONFIRMED | DECLINED | CANCELLED | EXPIRED. Terminal states never
// transition again. Expiry is applied lazily when a stale request is read,
// plus an optional bulk sweep.
type RedemptionService struct {
	db            *gorm.DB
	validator     *infrastructures.Validator
	ledgerService *LedgerService
	rewardService *RewardService
	payoutService *PayoutService
	auditService  *AuditService
	memberService *MemberService
}

func NewRedemptionService(
	db *gorm.DB,
	validator *infrastructures.Validator,
	ledgerService *LedgerService,
	rewardService *RewardService,
	payoutService *PayoutService,
	auditService *AuditService,
	memberService *MemberService,
) *RedemptionService {
	return &RedemptionService{
		db:            db,
		validator:     validator,
		ledgerService: ledgerService,
		rewardService: rewardService,
		payoutService: payoutService,
		auditService:  auditService,
		memberService: memberService,
	}
}

// Create opens a PENDING redemption request and mints its QR token. The
// balance check here is advisory (points are not held); the authoritative
// check happens under lock at confirm time. If the member already has a live
// PENDING request for the same reward, that request is returned instead of
// minting a second code.
func (s *RedemptionService) Create(memberId uuid.UUID, req *models.RedemptionCreateRequest) (*models.RedemptionCreateResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	merchantId, err := uuid.Parse(req.MerchantID)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid merchant id")
	}
	rewardId, err := uuid.Parse(req.RewardID)
	if err != nil {
		return nil, errors.NewBadRequestError("Invalid reward id")
	}
	var businessId *uuid.UUID
	if req.BusinessID != nil {
		parsed, err := uuid.Parse(*req.BusinessID)
		if err != nil {
			return nil, errors.NewBadRequestError("Invalid business id")
		}
		businessId = &parsed
	}

	reward, err := s.rewardService.IsRedeemable(merchantId, rewardId)
	if err != nil {
		return nil, err
	}

	if reward.RewardType == models.RewardTypeUSDCPayout {
		// Surface missing-wallet and disabled-payout cases before any points
		// can move on this request.
		if _, _, err := s.payoutService.CheckEligibility(merchantId, memberId); err != nil {
			return nil, err
		}
	}

	balance, err := s.ledgerService.GetBalance(merchantId, memberId)
	if err != nil {
		return nil, err
	}
	if balance.Points < reward.PointsCost {
		return nil, errors.NewUnprocessableError(errors.CodeInsufficientPoints, "Insufficient points for this reward")
	}

	now := time.Now()

	qrHash, err := pkg.SecureToken(32)
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to generate redemption token")
	}

	redemption := &models.RedemptionRequest{
		MemberID:   memberId,
		MerchantID: merchantId,
		RewardID:   rewardId,
		BusinessID: businessId,
		QRCodeHash: qrHash,
		Status:     models.RedemptionStatusPending,
		MemberNote: req.MemberNote,
		ExpiresAt:  now.Add(RedemptionTTL),
	}

	var existing *models.RedemptionRequest
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var pending models.RedemptionRequest
		err := forUpdate(tx).Where("member_id = ? AND reward_id = ? AND status = ?",
			memberId, rewardId, models.RedemptionStatusPending).
			First(&pending).Error
		switch {
		case err == nil && !pending.IsExpired(now):
			existing = &pending
			return nil
		case err == nil:
			// Stale leftover the sweep has not reached yet. Flip it so the
			// partial unique index admits the replacement row.
			if err := s.expireTx(tx, &pending, nil); err != nil {
				return err
			}
		case err != gorm.ErrRecordNotFound:
			return errors.NewInternalServerError(err, "Failed to check pending redemptions")
		}

		if err := tx.Create(redemption).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to create redemption request")
		}
		return s.auditService.LogRedemptionStatusChange(tx, redemption.ID, "", models.RedemptionStatusPending, nil, &memberId)
	})
	if err != nil {
		// A concurrent create may have won the unique index between our
		// lookup and insert; the winner's request is the right answer.
		var winner models.RedemptionRequest
		if readErr := s.db.Where("member_id = ? AND reward_id = ? AND status = ? AND expires_at > ?",
			memberId, rewardId, models.RedemptionStatusPending, time.Now()).
			First(&winner).Error; readErr == nil {
			return redemptionCreated(&winner), nil
		}
		return nil, err
	}
	if existing != nil {
		return redemptionCreated(existing), nil
	}

	return redemptionCreated(redemption), nil
}

func redemptionCreated(r *models.RedemptionRequest) *models.RedemptionCreateResponse {
	return &models.RedemptionCreateResponse{
		RedemptionID: r.ID,
		QRCodeData:   pkg.BuildQRPayload(r.QRCodeHash),
		QRCodeHash:   r.QRCodeHash,
		ExpiresAt:    r.ExpiresAt,
	}
}

// Verify resolves a scanned QR code for staff. Read-only: it previews the
// request but changes nothing except flipping a stale request to EXPIRED.
func (s *RedemptionService) Verify(merchantId uuid.UUID, req *models.RedemptionVerifyRequest) (*models.RedemptionVerifyResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	qrHash := pkg.StripQRPrefix(req.QRCodeData)

	var redemption models.RedemptionRequest
	err := s.db.Where("qr_code_hash = ?", qrHash).First(&redemption).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Redemption request not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get redemption request")
	}

	// A code scanned at the wrong merchant must not leak whose it is.
	if redemption.MerchantID != merchantId {
		return nil, errors.NewDomainError(http.StatusForbidden, errors.CodeWrongMerchant, "Redemption request belongs to another merchant")
	}

	if err := s.guardPending(&redemption); err != nil {
		return nil, err
	}

	reward, err := s.rewardService.GetReward(redemption.RewardID)
	if err != nil {
		return nil, err
	}

	balance, err := s.ledgerService.GetBalance(merchantId, redemption.MemberID)
	if err != nil {
		return nil, err
	}

	resp := &models.RedemptionVerifyResponse{
		RedemptionID:  redemption.ID,
		MemberID:      redemption.MemberID,
		RewardID:      reward.ID,
		RewardName:    reward.Name,
		PointsCost:    reward.PointsCost,
		MemberNote:    redemption.MemberNote,
		CurrentPoints: balance.Points,
		Tier:          balance.Tier,
		ExpiresInSecs: int64(time.Until(redemption.ExpiresAt).Seconds()),
	}

	if member, err := s.memberService.GetMember(redemption.MemberID.String()); err == nil {
		resp.MemberEmail = member.Email
	}

	return resp, nil
}

// Confirm executes the redemption: inside one database transaction it
// re-checks the status under lock, debits the points, flips the request to
// CONFIRMED and appends the status history. For USDC rewards the payout runs
// after the transaction commits; a failed payout never unwinds the debit.
func (s *RedemptionService) Confirm(merchantId, redemptionId uuid.UUID, req *models.RedemptionConfirmRequest, actorId *uuid.UUID) (*models.RedemptionConfirmResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var businessId *uuid.UUID
	if req.BusinessID != nil {
		parsed, err := uuid.Parse(*req.BusinessID)
		if err != nil {
			return nil, errors.NewBadRequestError("Invalid business id")
		}
		businessId = &parsed
	}

	var (
		redemption     models.RedemptionRequest
		reward         *models.Reward
		merchantMember *models.MerchantMember
		expired        bool
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", redemptionId).First(&redemption).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NewNotFoundError("Redemption request not found")
			}
			return errors.NewInternalServerError(err, "Failed to get redemption request")
		}

		if redemption.MerchantID != merchantId {
			return errors.NewDomainError(http.StatusForbidden, errors.CodeWrongMerchant, "Redemption request belongs to another merchant")
		}

		if err := s.guardStatus(&redemption); err != nil {
			return err
		}

		if redemption.IsExpired(time.Now()) {
			// Persist the lazy expiry, then commit. The caller still gets an
			// EXPIRED error; the flip itself must not roll back with it.
			if err := s.expireTx(tx, &redemption, actorId); err != nil {
				return err
			}
			expired = true
			return nil
		}

		var err error
		reward, err = s.rewardService.GetReward(redemption.RewardID)
		if err != nil {
			return err
		}

		if reward.RewardType == models.RewardTypeUSDCPayout {
			// Re-checked under the confirm lock: a wallet removed since create
			// must stop the debit, not produce a predictably failed payout.
			if _, _, err := s.payoutService.CheckEligibility(merchantId, redemption.MemberID); err != nil {
				return err
			}
		}

		debitBusinessId := businessId
		if debitBusinessId == nil {
			debitBusinessId = redemption.BusinessID
		}

		merchantMember, err = s.ledgerService.DebitTx(tx, merchantId, redemption.MemberID, reward.PointsCost, "Reward redemption: "+reward.Name, debitBusinessId, &redemption.ID)
		if err != nil {
			if errors.HasCode(err, errors.CodeInsufficientBal) {
				return errors.NewUnprocessableError(errors.CodeInsufficientPoints, "Insufficient points for this reward")
			}
			return err
		}

		now := time.Now()
		redemption.Status = models.RedemptionStatusConfirmed
		redemption.ConfirmedAt = &now
		if err := tx.Save(&redemption).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update redemption request")
		}

		return s.auditService.LogRedemptionStatusChange(tx, redemption.ID, models.RedemptionStatusPending, models.RedemptionStatusConfirmed, nil, actorId)
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, errors.NewDomainError(http.StatusGone, errors.CodeExpired, "Redemption request has expired")
	}

	resp := &models.RedemptionConfirmResponse{
		RedemptionID:   redemption.ID,
		RewardName:     reward.Name,
		PointsDeducted: reward.PointsCost,
		NewBalance:     merchantMember.Points,
		NewTier:        merchantMember.Tier,
	}

	// Settlement leg, outside the transaction. The debit above is already
	// committed and stays committed whatever happens here.
	if reward.RewardType == models.RewardTypeUSDCPayout {
		outcome, err := s.payoutService.ProcessRewardPayout(&redemption, reward, merchantMember.ID)
		if err != nil {
			logrus.Errorf("payout for redemption %s failed: %v", redemption.ID, err)
			msg := err.Error()
			outcome = &models.PayoutOutcome{
				Status:       models.RewardTransactionStatusFailed,
				ErrorMessage: &msg,
			}
		}
		resp.Payout = outcome
	}

	return resp, nil
}

// Decline rejects a PENDING request without touching the balance.
func (s *RedemptionService) Decline(merchantId, redemptionId uuid.UUID, req *models.RedemptionDeclineRequest, actorId *uuid.UUID) (*models.RedemptionRequest, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var redemption models.RedemptionRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", redemptionId).First(&redemption).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NewNotFoundError("Redemption request not found")
			}
			return errors.NewInternalServerError(err, "Failed to get redemption request")
		}

		if redemption.MerchantID != merchantId {
			return errors.NewDomainError(http.StatusForbidden, errors.CodeWrongMerchant, "Redemption request belongs to another merchant")
		}

		if err := s.guardStatus(&redemption); err != nil {
			return err
		}
		if redemption.IsExpired(time.Now()) {
			if err := s.expireTx(tx, &redemption, actorId); err != nil {
				return err
			}
			return nil
		}

		now := time.Now()
		redemption.Status = models.RedemptionStatusDeclined
		redemption.DeclinedAt = &now
		redemption.DeclineReason = req.Reason
		if err := tx.Save(&redemption).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update redemption request")
		}

		return s.auditService.LogRedemptionStatusChange(tx, redemption.ID, models.RedemptionStatusPending, models.RedemptionStatusDeclined, req.Reason, actorId)
	})
	if err != nil {
		return nil, err
	}
	if redemption.Status == models.RedemptionStatusExpired {
		return nil, errors.NewDomainError(http.StatusGone, errors.CodeExpired, "Redemption request has expired")
	}

	return &redemption, nil
}

// Cancel lets the requesting member withdraw their own PENDING request.
func (s *RedemptionService) Cancel(memberId, redemptionId uuid.UUID) (*models.RedemptionRequest, error) {
	var redemption models.RedemptionRequest
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).Where("id = ?", redemptionId).First(&redemption).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return errors.NewNotFoundError("Redemption request not found")
			}
			return errors.NewInternalServerError(err, "Failed to get redemption request")
		}

		if redemption.MemberID != memberId {
			return errors.NewForbiddenError("Redemption request belongs to another member")
		}

		if err := s.guardStatus(&redemption); err != nil {
			return err
		}
		if redemption.IsExpired(time.Now()) {
			if err := s.expireTx(tx, &redemption, &memberId); err != nil {
				return err
			}
			return nil
		}

		redemption.Status = models.RedemptionStatusCancelled
		if err := tx.Save(&redemption).Error; err != nil {
			return errors.NewInternalServerError(err, "Failed to update redemption request")
		}

		return s.auditService.LogRedemptionStatusChange(tx, redemption.ID, models.RedemptionStatusPending, models.RedemptionStatusCancelled, nil, &memberId)
	})
	if err != nil {
		return nil, err
	}
	if redemption.Status == models.RedemptionStatusExpired {
		return nil, errors.NewDomainError(http.StatusGone, errors.CodeExpired, "Redemption request has expired")
	}

	return &redemption, nil
}

// GetStatus returns the member-facing polling view, applying lazy expiry.
func (s *RedemptionService) GetStatus(memberId, redemptionId uuid.UUID) (*models.RedemptionStatusResponse, error) {
	var redemption models.RedemptionRequest
	err := s.db.Where("id = ?", redemptionId).First(&redemption).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Redemption request not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get redemption request")
	}

	if redemption.MemberID != memberId {
		return nil, errors.NewForbiddenError("Redemption request belongs to another member")
	}

	if redemption.Status == models.RedemptionStatusPending && redemption.IsExpired(time.Now()) {
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.expireTx(tx, &redemption, nil)
		}); err != nil {
			return nil, err
		}
	}

	expiresIn := int64(time.Until(redemption.ExpiresAt).Seconds())
	if expiresIn < 0 || redemption.Status != models.RedemptionStatusPending {
		expiresIn = 0
	}

	return &models.RedemptionStatusResponse{
		RedemptionID:  redemption.ID,
		Status:        redemption.Status,
		ExpiresInSecs: expiresIn,
	}, nil
}

// ListPendingForMerchant returns the merchant's live PENDING requests, oldest
// first, for the staff dashboard.
func (s *RedemptionService) ListPendingForMerchant(merchantId uuid.UUID) ([]models.RedemptionRequest, error) {
	var redemptions []models.RedemptionRequest
	err := s.db.Where("merchant_id = ? AND status = ? AND expires_at > ?",
		merchantId, models.RedemptionStatusPending, time.Now()).
		Order("created_at ASC").
		Find(&redemptions).Error
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to list pending redemptions")
	}

	return redemptions, nil
}

// History returns the status transition log for one of the merchant's own
// requests. The ownership check keeps one tenant's actor IDs and decline
// reasons out of another tenant's hands.
func (s *RedemptionService) History(merchantId, redemptionId uuid.UUID) ([]*models.RedemptionStatusHistory, error) {
	var redemption models.RedemptionRequest
	if err := s.db.Where("id = ?", redemptionId).First(&redemption).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NewNotFoundError("Redemption request not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to get redemption request")
	}

	if redemption.MerchantID != merchantId {
		return nil, errors.NewDomainError(http.StatusForbidden, errors.CodeWrongMerchant, "Redemption request belongs to another merchant")
	}

	return s.auditService.GetRedemptionStatusHistory(redemptionId)
}

// ExpireStaleRequests bulk-flips lapsed PENDING requests to EXPIRED. Lazy
// expiry on read already guarantees correctness; this sweep just keeps the
// table tidy for dashboards.
func (s *RedemptionService) ExpireStaleRequests() (int64, error) {
	result := s.db.Model(&models.RedemptionRequest{}).
		Where("status = ? AND expires_at <= ?", models.RedemptionStatusPending, time.Now()).
		Update("status", models.RedemptionStatusExpired)
	if result.Error != nil {
		return 0, errors.NewInternalServerError(result.Error, "Failed to expire stale redemptions")
	}

	if result.RowsAffected > 0 {
		logrus.Infof("expired %d stale redemption requests", result.RowsAffected)
	}

	return result.RowsAffected, nil
}

// guardStatus rejects transitions out of a terminal status with a code naming
// the status the request already reached.
func (s *RedemptionService) guardStatus(redemption *models.RedemptionRequest) error {
	switch redemption.Status {
	case models.RedemptionStatusPending:
		return nil
	case models.RedemptionStatusConfirmed:
		return errors.NewConflictError(errors.CodeAlreadyConfirmed, "Redemption request was already confirmed")
	case models.RedemptionStatusDeclined:
		return errors.NewConflictError(errors.CodeAlreadyDeclined, "Redemption request was already declined")
	case models.RedemptionStatusCancelled:
		return errors.NewConflictError(errors.CodeAlreadyCancelled, "Redemption request was cancelled by the member")
	case models.RedemptionStatusExpired:
		return errors.NewDomainError(http.StatusGone, errors.CodeExpired, "Redemption request has expired")
	default:
		return errors.NewConflictError(errors.CodeInvalidState, "Redemption request is in an unknown state")
	}
}

// guardPending is guardStatus plus lazy expiry, for read paths that hold no
// row lock.
func (s *RedemptionService) guardPending(redemption *models.RedemptionRequest) error {
	if err := s.guardStatus(redemption); err != nil {
		return err
	}

	if redemption.IsExpired(time.Now()) {
		if err := s.db.Transaction(func(tx *gorm.DB) error {
			return s.expireTx(tx, redemption, nil)
		}); err != nil {
			return err
		}
		return errors.NewDomainError(http.StatusGone, errors.CodeExpired, "Redemption request has expired")
	}

	return nil
}

func (s *RedemptionService) expireTx(tx *gorm.DB, redemption *models.RedemptionRequest, actorId *uuid.UUID) error {
	result := tx.Model(&models.RedemptionRequest{}).
		Where("id = ? AND status = ?", redemption.ID, models.RedemptionStatusPending).
		Update("status", models.RedemptionStatusExpired)
	if result.Error != nil {
		return errors.NewInternalServerError(result.Error, "Failed to expire redemption request")
	}
	if result.RowsAffected == 0 {
		// Someone else flipped it first; re-read and let the caller's guard
		// report the winning status.
		return nil
	}

	redemption.Status = models.RedemptionStatusExpired
	return s.auditService.LogRedemptionStatusChange(tx, redemption.ID, models.RedemptionStatusPending, models.RedemptionStatusExpired, nil, actorId)
}
