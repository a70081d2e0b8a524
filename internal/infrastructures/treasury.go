package infrastructures

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

type TreasuryConfig struct {
	APIKey  string
	BaseURL string
	Network string // e.g. "base-mainnet", "base-sepolia"
}

// TreasuryClient talks to the custody service that executes on-chain USDC
// transfers. The core never touches RPC details; this is a plain HTTP
// contract with an idempotency key per transfer.
type TreasuryClient struct {
	HTTPClient *http.Client
	Config     *TreasuryConfig
}

func NewTreasuryClient() *TreasuryClient {
	config := &TreasuryConfig{
		APIKey:  Config.TREASURY_API_KEY,
		BaseURL: Config.TREASURY_BASE_URL,
		Network: Config.TREASURY_NETWORK,
	}

	return &TreasuryClient{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Config: config,
	}
}

type TransferRequest struct {
	DestinationAddress string          `json:"destination_address"`
	AmountUSD          decimal.Decimal `json:"amount_usd"`
	Token              string          `json:"token"`
	Network            string          `json:"network"`
	IdempotencyKey     string          `json:"idempotency_key"`
	Reference          string          `json:"reference,omitempty"`
}

type TransferResponse struct {
	TxHash  string `json:"tx_hash"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Transfer submits a USDC transfer. A non-2xx response is returned as an
// error carrying the provider's message.
func (c *TreasuryClient) Transfer(ctx context.Context, req TransferRequest) (*TransferResponse, error) {
	if req.Network == "" {
		req.Network = c.Config.Network
	}
	if req.Token == "" {
		req.Token = "USDC"
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.BaseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.Config.APIKey)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("treasury request failed: %w", err)
	}
	defer resp.Body.Close()

	var transferResp TransferResponse
	if err := json.NewDecoder(resp.Body).Decode(&transferResp); err != nil {
		return nil, fmt.Errorf("failed to decode treasury response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := transferResp.Message
		if message == "" {
			message = fmt.Sprintf("treasury returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("transfer rejected: %s", message)
	}

	return &transferResp, nil
}
