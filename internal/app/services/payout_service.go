package services

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gobbleapp/gobble-core/internal/app/errors"
	"github.com/gobbleapp/gobble-core/internal/app/models"
	"github.com/gobbleapp/gobble-core/internal/app/pkg"
	"github.com/gobbleapp/gobble-core/internal/infrastructures"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PayoutService coordinates USDC settlement for payout-type rewards. It runs
// strictly after the points debit has committed: settlement failures are
// recorded on the PAYOUT transaction row, never propagated back into the
// ledger.
type PayoutService struct {
	db                  *gorm.DB
	treasuryClient      *infrastructures.TreasuryClient
	transactionService  *TransactionService
	memberService       *MemberService
	merchantService     *MerchantService
	notificationService *NotificationService
}

func NewPayoutService(
	db *gorm.DB,
	treasuryClient *infrastructures.TreasuryClient,
	transactionService *TransactionService,
	memberService *MemberService,
	merchantService *MerchantService,
	notificationService *NotificationService,
) *PayoutService {
	return &PayoutService{
		db:                  db,
		treasuryClient:      treasuryClient,
		transactionService:  transactionService,
		memberService:       memberService,
		merchantService:     merchantService,
		notificationService: notificationService,
	}
}

// CheckEligibility verifies a USDC payout could run for this member at this
// merchant right now. The redemption flow calls it before any points move, so
// a missing wallet or disabled payouts surface while the request is still
// retryable.
func (s *PayoutService) CheckEligibility(merchantId, memberId uuid.UUID) (*models.Merchant, *models.Member, error) {
	merchant, err := s.merchantService.GetMerchant(merchantId)
	if err != nil {
		return nil, nil, err
	}
	if !merchant.PayoutsEnabled {
		return nil, nil, errors.NewUnprocessableError(errors.CodePayoutFailed, "Payouts are not enabled for this merchant")
	}

	member, err := s.memberService.GetMember(memberId.String())
	if err != nil {
		return nil, nil, err
	}
	if member.WalletAddress == nil || !common.IsHexAddress(*member.WalletAddress) {
		return nil, nil, errors.NewUnprocessableError(errors.CodePayoutFailed, "Member has no valid wallet address on file")
	}

	return merchant, member, nil
}

// ProcessRewardPayout settles the USDC leg of a confirmed redemption. Flow:
// check preconditions, record a PENDING PAYOUT row, submit the transfer with
// that row's ID as the idempotency key, then resolve the row to SUCCESS or
// FAILED. Returns the outcome for the confirm response; the error return is
// reserved for failures before the PAYOUT row exists.
func (s *PayoutService) ProcessRewardPayout(redemption *models.RedemptionRequest, reward *models.Reward, merchantMemberId uuid.UUID) (*models.PayoutOutcome, error) {
	if reward.RewardType != models.RewardTypeUSDCPayout || reward.USDCAmount == nil {
		return nil, errors.NewBadRequestError("Reward is not a USDC payout reward")
	}

	merchant, member, err := s.CheckEligibility(redemption.MerchantID, redemption.MemberID)
	if err != nil {
		return nil, err
	}

	if budgetErr := s.checkBudget(merchant, *reward.USDCAmount); budgetErr != nil {
		if errors.HasCode(budgetErr, errors.CodeBudgetExceeded) {
			// Record the refusal so the merchant's payout history shows it.
			msg := budgetErr.Error()
			refused := &models.RewardTransaction{
				MerchantMemberID: merchantMemberId,
				MerchantID:       redemption.MerchantID,
				MemberID:         redemption.MemberID,
				BusinessID:       redemption.BusinessID,
				RedemptionID:     &redemption.ID,
				Type:             models.RewardTransactionTypePayout,
				Amount:           0,
				USDCAmount:       reward.USDCAmount,
				Status:           models.RewardTransactionStatusFailed,
				ErrorMessage:     &msg,
			}
			if err := s.transactionService.Record(refused); err != nil {
				logrus.Errorf("failed to record refused payout for redemption %s: %v", redemption.ID, err)
			}
		}
		return nil, budgetErr
	}

	payoutTx := &models.RewardTransaction{
		MerchantMemberID: merchantMemberId,
		MerchantID:       redemption.MerchantID,
		MemberID:         redemption.MemberID,
		BusinessID:       redemption.BusinessID,
		RedemptionID:     &redemption.ID,
		Type:             models.RewardTransactionTypePayout,
		Amount:           0,
		USDCAmount:       reward.USDCAmount,
		Status:           models.RewardTransactionStatusPending,
	}
	if err := s.transactionService.Record(payoutTx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	transferResp, transferErr := s.treasuryClient.Transfer(ctx, infrastructures.TransferRequest{
		DestinationAddress: *member.WalletAddress,
		AmountUSD:          *reward.USDCAmount,
		IdempotencyKey:     payoutTx.ID.String(),
		Reference:          "redemption:" + redemption.ID.String(),
	})
	if transferErr != nil {
		msg := transferErr.Error()
		if err := s.transactionService.ResolvePayout(payoutTx.ID, false, nil, &msg); err != nil {
			logrus.Errorf("failed to mark payout %s as FAILED: %v", payoutTx.ID, err)
		}
		return &models.PayoutOutcome{
			Status:       models.RewardTransactionStatusFailed,
			ErrorMessage: &msg,
		}, nil
	}

	if err := s.transactionService.ResolvePayout(payoutTx.ID, true, &transferResp.TxHash, nil); err != nil {
		logrus.Errorf("failed to mark payout %s as SUCCESS: %v", payoutTx.ID, err)
	}

	if member.Email != nil {
		go func(email, merchantName string, amount decimal.Decimal, txHash string) {
			if err := s.notificationService.SendPayoutConfirmation(email, merchantName, amount, txHash); err != nil {
				logrus.Warnf("payout confirmation email failed: %v", err)
			}
		}(*member.Email, merchant.Name, *reward.USDCAmount, transferResp.TxHash)
	}

	return &models.PayoutOutcome{
		Status: models.RewardTransactionStatusSuccess,
		TxHash: &transferResp.TxHash,
	}, nil
}

// checkBudget enforces the merchant's optional monthly payout budget. Spend
// counts PENDING and SUCCESS payouts in the current window; FAILED payouts
// release their slot.
func (s *PayoutService) checkBudget(merchant *models.Merchant, amount decimal.Decimal) error {
	if merchant.PayoutMonthlyBudgetUSD == nil {
		return nil
	}

	windowStart := pkg.BudgetWindowStart(time.Now(), merchant.PayoutBudgetResetDay)

	var spent decimal.Decimal
	err := s.db.Model(&models.RewardTransaction{}).
		Where("merchant_id = ? AND type = ? AND status IN ? AND created_at >= ?",
			merchant.ID,
			models.RewardTransactionTypePayout,
			[]models.RewardTransactionStatus{models.RewardTransactionStatusPending, models.RewardTransactionStatusSuccess},
			windowStart).
		Select("COALESCE(SUM(usdc_amount), 0)").
		Scan(&spent).Error
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to compute payout budget usage")
	}

	if spent.Add(amount).GreaterThan(*merchant.PayoutMonthlyBudgetUSD) {
		return errors.NewUnprocessableError(errors.CodeBudgetExceeded, "Merchant payout budget for this period is exhausted")
	}

	return nil
}
