package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
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
	defaultBaseURL             = "https://api.paystack.co"
	requestBodyReadLimit int64 = 1024
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
)

// Client wraps the Paystack endpoints used for wallet funding and payouts.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
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

// NewClient builds the Paystack client given a secret key.
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
	TransferCode string
	Status       string
	Reference    string
}

// Transaction is the normalized result of a transaction verification.
type Transaction struct {
	Reference     string
	Status        string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
}

// Succeeded reports whether the gateway marked the transaction paid.
func (t Transaction) Succeeded() bool {
	return strings.EqualFold(t.Status, "success")
}

// ResolveBankAccount confirms an account number against a bank code.
func (c *Client) ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (*BankAccount, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(accountNumber) == "" || strings.TrimSpace(bankCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number and bank code are required")
	}

	endpoint := fmt.Sprintf("%s/bank/resolve?account_number=%s&bank_code=%s",
		strings.TrimRight(c.baseURL, "/"),
		url.QueryEscape(strings.TrimSpace(accountNumber)),
		url.QueryEscape(strings.TrimSpace(bankCode)),
	)

	var apiResp struct {
		Status bool   `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			AccountNumber string `json:"account_number"`
			AccountName   string `json:"account_name"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &apiResp); err != nil {
		return nil, err
	}
	if !apiResp.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("resolve account failed: %s", apiResp.Msg))
	}

	return &BankAccount{
		AccountNumber: apiResp.Data.AccountNumber,
		AccountName:   apiResp.Data.AccountName,
		BankCode:      bankCode,
	}, nil
}

// InitiateTransfer starts a payout to a previously created transfer recipient.
// Amount is in the major currency unit and converted to kobo on the wire.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode, reference, reason string, amount decimal.Decimal) (*Transfer, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	if strings.TrimSpace(recipientCode) == "" || strings.TrimSpace(reference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient code and reference are required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer amount must be positive")
	}

	payload := map[string]any{
		"source":    "balance",
		"amount":    amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"recipient": recipientCode,
		"reference": reference,
		"reason":    reason,
	}

	var apiResp struct {
		Status bool   `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			TransferCode string `json:"transfer_code"`
			Status       string `json:"status"`
			Reference    string `json:"reference"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, c.buildURL("transfer"), payload, &apiResp); err != nil {
		return nil, err
	}
	if !apiResp.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("initiate transfer failed: %s", apiResp.Msg))
	}

	return &Transfer{
		TransferCode: apiResp.Data.TransferCode,
		Status:       apiResp.Data.Status,
		Reference:    apiResp.Data.Reference,
	}, nil
}

// VerifyTransaction fetches the canonical state of a transaction by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference is required")
	}

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))

	var apiResp struct {
		Status bool   `json:"status"`
		Msg    string `json:"message"`
		Data   struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Amount    int64  `json:"amount"`
			Currency  string `json:"currency"`
			Customer  struct {
				Email string `json:"email"`
			} `json:"customer"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &apiResp); err != nil {
		return nil, err
	}
	if !apiResp.Status {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("verify transaction failed: %s", apiResp.Msg))
	}

	return &Transaction{
		Reference:     apiResp.Data.Reference,
		Status:        apiResp.Data.Status,
		Amount:        decimal.NewFromInt(apiResp.Data.Amount).Div(decimal.NewFromInt(100)),
		Currency:      apiResp.Data.Currency,
		CustomerEmail: apiResp.Data.Customer.Email,
	}, nil
}

// VerifyWebhookSignature checks the X-Paystack-Signature HMAC over the raw body.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	if c == nil || strings.TrimSpace(signature) == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(signature))) == 1
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal paystack request")
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build paystack request")
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute paystack request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "paystack request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paystack response")
	}
	return nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
