package flutterwave

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, fn roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("FLWSECK_TEST-abc",
		WithHTTPClient(&http.Client{Transport: fn}),
		WithSecretHash("hook-hash-123"),
	)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestResolveBankAccountPostsBody(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", req.Method)
		}
		if !strings.HasSuffix(req.URL.Path, "/accounts/resolve") {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		body := `{"status":"success","message":"Account resolved","data":{"account_number":"0001234567","account_name":"ADA OBI"}}`
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
	})

	account, err := client.ResolveBankAccount(context.Background(), "0001234567", "044")
	if err != nil {
		t.Fatalf("ResolveBankAccount() error = %v", err)
	}
	if account.AccountName != "ADA OBI" {
		t.Fatalf("account name = %q", account.AccountName)
	}
	if gotBody["account_bank"] != "044" {
		t.Fatalf("account_bank = %v", gotBody["account_bank"])
	}
}

func TestInitiateTransferRejectsNonPositiveAmount(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("request should not be sent")
		return nil, nil
	})

	_, err := client.InitiateTransfer(context.Background(), "044", "0001234567", "payout-2", "rider payout", "NGN", decimal.Zero)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyTransactionByReference(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("tx_ref") != "order-ref-3" {
			t.Fatalf("tx_ref = %q", req.URL.Query().Get("tx_ref"))
		}
		body := `{"status":"success","message":"Transaction fetched","data":{"tx_ref":"order-ref-3","status":"successful","amount":3200,"currency":"NGN","customer":{"email":"obi@example.com"}}}`
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
	})

	tx, err := client.VerifyTransactionByReference(context.Background(), "order-ref-3")
	if err != nil {
		t.Fatalf("VerifyTransactionByReference() error = %v", err)
	}
	if !tx.Succeeded() {
		t.Fatalf("status = %q, want successful", tx.Status)
	}
	if !tx.Amount.Equal(decimal.NewFromInt(3200)) {
		t.Fatalf("amount = %s, want 3200", tx.Amount)
	}
}

func TestVerifyTransactionGatewayDecline(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		body := `{"status":"error","message":"No transaction was found for this id","data":null}`
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
	})

	_, err := client.VerifyTransactionByReference(context.Background(), "missing-ref")
	if err == nil {
		t.Fatal("expected error for gateway decline")
	}
	if coded := pkgerrors.As(err); coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyWebhookHash(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) { return nil, nil })

	if !client.VerifyWebhookHash("hook-hash-123") {
		t.Fatal("expected matching hash to verify")
	}
	if client.VerifyWebhookHash("wrong-hash") {
		t.Fatal("expected mismatched hash to fail")
	}

	bare, err := NewClient("FLWSECK_TEST-abc")
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if bare.VerifyWebhookHash("hook-hash-123") {
		t.Fatal("expected verification to fail without a configured hash")
	}
}
