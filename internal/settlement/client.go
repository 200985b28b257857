/*

This file contains the settlement client: the HTTP bridge to the custody
service that actually moves funds. The ledger only relabels balances; every
real movement of the stable token or the native currency goes through this
client.

TokenClient and NativeClient are thin arms over one shared transport so the
ledger's two collaborator interfaces stay distinct types while reusing the
same endpoint, auth, and retry behavior.

*/

package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/stakeward/stakeward/internal/logger"
)

var (
	ErrSettlementUnavailable = errors.New("settlement: service unavailable")
	ErrTransferRejected      = errors.New("settlement: transfer rejected")
	ErrInvalidResponse       = errors.New("settlement: invalid response")
)

const (
	MAX_RETRIES     = 3
	TIMEOUT_SECONDS = 15
)

// Transfer kinds understood by the settlement service.
const (
	kindTokenPull  = "token_pull"
	kindTokenPay   = "token_pay"
	kindNativePull = "native_pull"
	kindNativePay  = "native_pay"
)

type transferRequest struct {
	Kind   string `json:"kind"`
	From   string `json:"from,omitempty"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type transferResponse struct {
	OK     bool   `json:"ok"`
	TxID   string `json:"tx_id"`
	Reason string `json:"reason,omitempty"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

// Client is the shared transport for both settlement arms.
type Client struct {
	baseURL string
	vault   string // the ledger's account with the custody service
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient returns a settlement client for the given base URL, collecting
// inbound funds into the given vault account.
func NewClient(baseURL, vault string) *Client {
	return &Client{
		baseURL: baseURL,
		vault:   vault,
		client: &http.Client{
			Timeout: TIMEOUT_SECONDS * time.Second,
		},
		logger: logger.GetForComponent("settlement"),
	}
}

// Token returns the arm implementing the ledger's token collaborator.
func (c *Client) Token() *TokenClient { return &TokenClient{c} }

// Native returns the arm implementing the ledger's native settler.
func (c *Client) Native() *NativeClient { return &NativeClient{c} }

// TokenClient moves the stable token through the settlement service.
type TokenClient struct {
	*Client
}

// TransferFrom pulls tokens from the principal into the vault account.
func (t *TokenClient) TransferFrom(ctx context.Context, from, to string, amount sdkmath.Int) (bool, error) {
	return t.submit(ctx, transferRequest{Kind: kindTokenPull, From: from, To: to, Amount: amount.String()})
}

// Transfer pays tokens out of the vault account.
func (t *TokenClient) Transfer(ctx context.Context, to string, amount sdkmath.Int) (bool, error) {
	return t.submit(ctx, transferRequest{Kind: kindTokenPay, To: to, Amount: amount.String()})
}

// BalanceOf reads the principal's token balance held by the settlement
// service.
func (t *TokenClient) BalanceOf(ctx context.Context, principal string) (sdkmath.Int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/balances/%s", t.baseURL, principal), nil)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrSettlementUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: balance query returned status %d", ErrInvalidResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	var payload balanceResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	balance, ok := sdkmath.NewIntFromString(payload.Balance)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: unparseable balance %q", ErrInvalidResponse, payload.Balance)
	}
	return balance, nil
}

// NativeClient moves the native currency through the settlement service.
type NativeClient struct {
	*Client
}

// Collect pulls native currency from the payer into the vault account.
func (n *NativeClient) Collect(ctx context.Context, from string, amount sdkmath.Int) (bool, error) {
	return n.submit(ctx, transferRequest{Kind: kindNativePull, From: from, To: n.vault, Amount: amount.String()})
}

// Transfer pays native currency out of the vault account.
func (n *NativeClient) Transfer(ctx context.Context, to string, amount sdkmath.Int) (bool, error) {
	return n.submit(ctx, transferRequest{Kind: kindNativePay, To: to, Amount: amount.String()})
}

// submit posts one transfer with retries on transport failure. A rejection
// from the service itself is final and is not retried.
func (c *Client) submit(ctx context.Context, req transferRequest) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= MAX_RETRIES; attempt++ {
		ok, err := c.submitOnce(ctx, req)
		if err == nil {
			return ok, nil
		}
		if errors.Is(err, ErrTransferRejected) {
			return false, err
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("kind", req.Kind).Msg("Transfer submit failed")
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}
	return false, fmt.Errorf("%w: %w", ErrSettlementUnavailable, lastErr)
}

func (c *Client) submitOnce(ctx context.Context, req transferRequest) (bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return false, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/transfers", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return false, err
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		var payload transferResponse
		if jsonErr := json.Unmarshal(raw, &payload); jsonErr == nil && payload.Reason != "" {
			return false, fmt.Errorf("%w: %s", ErrTransferRejected, payload.Reason)
		}
		return false, ErrTransferRejected
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("transfer returned status %d", resp.StatusCode)
	}

	var payload transferResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	c.logger.Debug().
		Str("kind", req.Kind).
		Str("to", req.To).
		Str("amount", req.Amount).
		Str("tx_id", payload.TxID).
		Bool("ok", payload.OK).
		Msg("Transfer submitted")
	return payload.OK, nil
}
