package flutterwave

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.flutterwave.com/v3"
	requestBodyReadLimit int64 = 1024
)

var (
	errSecretKeyRequired = errors.New("flutterwave secret key is required")
)

// Client wraps the Flutterwave endpoints used as the fallback payment rail.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	secretHash string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithSecretHash sets the webhook verification hash shared with the dashboard.
func WithSecretHash(hash string) Option {
	return func(c *Client) {
		c.secretHash = strings.TrimSpace(hash)
	}
}

// NewClient builds the Flutterwave client given a secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// BankAccount is the normalized result of an account resolution.
type BankAccount struct {
	AccountNumber string
	AccountName   string
	BankCode      string
}

// Transfer is the normalized result of a payout initiation.
type Transfer struct {
	ID        int64
	Status    string
	Reference string
}

// Transaction is the normalized result of a transaction verification.
type Transaction struct {
	TxRef         string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
}

// Succeeded reports whether the gateway marked the transaction paid.
func (t Transaction) Succeeded() bool {
	return strings.EqualFold(t.Status, "successful")
}

// ResolveBankAccount confirms an account number against a bank code.
func (c *Client) ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (*BankAccount, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "flutterwave client not configured")
	}
	if strings.TrimSpace(accountNumber) == "" || strings.TrimSpace(bankCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}

	payload := map[string]any{
		"account_number": strings.TrimSpace(accountNumber),
		"account_bank":   strings.TrimSpace(bankCode),
	}

	var apiResp struct {
		Status string `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			AccountNumber string `json:"account_number"`
			AccountName   string `json:"account_name"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, c.buildURL("accounts/resolve"), payload, &apiResp); err != nil {
		return nil, err
	}
	if !strings.EqualFold(apiResp.Status, "success") {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("resolve account failed: %s", apiResp.Msg))
	}

	return &BankAccount{
		AccountNumber: apiResp.Data.AccountNumber,
		AccountName:   apiResp.Data.AccountName,
		BankCode:      bankCode,
	}, nil
}

// InitiateTransfer starts a payout to a bank account.
func (c *Client) InitiateTransfer(ctx context.Context, bankCode, accountNumber, reference, narration, currency string, amount decimal.Decimal) (*Transfer, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "flutterwave client not configured")
	}
	if strings.TrimSpace(accountNumber) == "" || strings.TrimSpace(bankCode) == "" || strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bank code, account number and reference are required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}
	if strings.TrimSpace(currency) == "" {
		currency = "NGN"
	}

	payload := map[string]any{
		"account_bank":   bankCode,
		"account_number": accountNumber,
		"amount":         amount.InexactFloat64(),
		"currency":       currency,
		"reference":      reference,
		"narration":      narration,
	}

	var apiResp struct {
		Status string `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			ID        int64  `json:"id"`
			Status    string `json:"status"`
			Reference string `json:"reference"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, c.buildURL("transfers"), payload, &apiResp); err != nil {
		return nil, err
	}
	if !strings.EqualFold(apiResp.Status, "success") {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("initiate transfer failed: %s", apiResp.Msg))
	}

	return &Transfer{
		ID:        apiResp.Data.ID,
		Status:    apiResp.Data.Status,
		Reference: apiResp.Data.Reference,
	}, nil
}

// VerifyTransactionByReference fetches the canonical state of a transaction by tx_ref.
func (c *Client) VerifyTransactionByReference(ctx context.Context, txRef string) (*Transaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "flutterwave client not configured")
	}
	trimmed := strings.TrimSpace(txRef)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	endpoint := fmt.Sprintf("%s/transactions/verify_by_reference?tx_ref=%s",
		strings.TrimRight(c.baseURL, "/"), url.QueryEscape(trimmed))

	var apiResp struct {
		Status string `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			TxRef    string  `json:"tx_ref"`
			Status   string  `json:"status"`
			Amount   float64 `json:"amount"`
			Currency string  `json:"currency"`
			Customer struct {
				Email string `json:"email"`
			} `json:"customer"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &apiResp); err != nil {
		return nil, err
	}
	if !strings.EqualFold(apiResp.Status, "success") {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("verify transaction failed: %s", apiResp.Msg))
	}

	return &Transaction{
		TxRef:         apiResp.Data.TxRef,
		Status:        apiResp.Data.Status,
		Amount:        decimal.NewFromFloat(apiResp.Data.Amount),
		Currency:      apiResp.Data.Currency,
		CustomerEmail: apiResp.Data.Customer.Email,
	}, nil
}

// VerifyWebhookHash checks the verif-hash header against the configured secret hash.
func (c *Client) VerifyWebhookHash(header string) bool {
	if c == nil || c.secretHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.secretHash), []byte(strings.TrimSpace(header))) == 1
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal flutterwave request")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build flutterwave request")
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute flutterwave request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "flutterwave request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode flutterwave response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
