// Package paystack is the outbound client for the payment provider.
// It covers the three collaborator calls the ledger core needs: initiating
// an external transfer, resolving a bank account before linking, and
// listing supported banks.
//
// Error contract: a transport failure is ErrProviderUnavailable and means
// "unknown outcome, reconcile later via webhook"; only an explicit rejection
// in the provider's response body is ErrTransferRejected.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrTransferRejected    = errors.New("transfer rejected by provider")
	ErrResolutionFailed    = errors.New("account resolution failed")
)

const defaultBaseURL = "https://api.paystack.co"

type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		secretKey:  secretKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type Option func(*Client)

// WithBaseURL points the client at a different API host. Used in tests and
// against the sandbox environment.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// InitiateTransfer moves funds to an external bank account. It creates a
// transfer recipient, then fires the transfer with the caller's reference.
// The provider echoes the reference back; settlement arrives later via
// webhook.
func (c *Client) InitiateTransfer(ctx context.Context, amountKobo int64, bankCode, accountNumber, reference string) (string, error) {
	recipientBody := map[string]interface{}{
		"type":           "nuban",
		"name":           "User Withdrawal",
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}

	var recipient recipientResponse
	if err := c.post(ctx, "/transferrecipient", recipientBody, &recipient); err != nil {
		return "", err
	}
	if !recipient.Status {
		return "", fmt.Errorf("%w: %s", ErrTransferRejected, recipient.Message)
	}

	transferBody := map[string]interface{}{
		"source":    "balance",
		"amount":    amountKobo,
		"recipient": recipient.Data.RecipientCode,
		"reference": reference,
	}

	var transfer transferResponse
	if err := c.post(ctx, "/transfer", transferBody, &transfer); err != nil {
		return "", err
	}
	if !transfer.Status {
		return "", fmt.Errorf("%w: %s", ErrTransferRejected, transfer.Message)
	}

	return transfer.Data.Reference, nil
}

// ResolveAccount returns the legal account name for a bank account, or
// ErrResolutionFailed if the provider cannot resolve it.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	params := url.Values{}
	params.Set("account_number", accountNumber)
	params.Set("bank_code", bankCode)

	var resolved resolveResponse
	if err := c.get(ctx, "/bank/resolve?"+params.Encode(), &resolved); err != nil {
		return nil, err
	}
	if !resolved.Status {
		return nil, fmt.Errorf("%w: %s", ErrResolutionFailed, resolved.Message)
	}

	return &ResolvedAccount{
		AccountName:   resolved.Data.AccountName,
		AccountNumber: resolved.Data.AccountNumber,
		BankCode:      bankCode,
	}, nil
}

// ListBanks returns the provider's supported banks.
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	var banks bankListResponse
	if err := c.get(ctx, "/bank", &banks); err != nil {
		return nil, err
	}
	if !banks.Status {
		return nil, fmt.Errorf("bank list failed: %s", banks.Message)
	}
	return banks.Data, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: provider returned %d", ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: malformed response: %v", ErrProviderUnavailable, err)
	}
	return nil
}
