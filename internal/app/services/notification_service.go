package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gobbleapp/gobble-core/internal/infrastructures"
	"github.com/shopspring/decimal"
)

// NotificationService dispatches emails through the external notifier API.
// All sends are best-effort: a notify failure must never fail the operation
// that triggered it, so callers invoke these from a goroutine and only log
// the error.
type NotificationService struct {
	httpClient *http.Client
}

func NewNotificationService() *NotificationService {
	return &NotificationService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type payoutEmailPayload struct {
	To       string `json:"to"`
	Template string `json:"template"`
	Data     struct {
		MerchantName string `json:"merchant_name"`
		AmountUSD    string `json:"amount_usd"`
		TxHash       string `json:"tx_hash"`
	} `json:"data"`
}

// SendPayoutConfirmation notifies a member that their USDC payout settled.
func (s *NotificationService) SendPayoutConfirmation(email, merchantName string, amountUSD decimal.Decimal, txHash string) error {
	payload := payoutEmailPayload{
		To:       email,
		Template: "payout-confirmed",
	}
	payload.Data.MerchantName = merchantName
	payload.Data.AmountUSD = amountUSD.StringFixed(2)
	payload.Data.TxHash = txHash

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", infrastructures.Config.NOTIFIER_BASE_URL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+infrastructures.Config.NOTIFIER_API_KEY)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notifier returned status %d", resp.StatusCode)
	}

	return nil
}
