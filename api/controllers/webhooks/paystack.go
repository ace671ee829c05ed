package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/internal/wallet"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db/models"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/paystack"
)

const maxWebhookBody = 1 << 20

type walletCreditor interface {
	EnsureWallet(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	Credit(ctx context.Context, input wallet.CreditInput) (*models.WalletTransaction, error)
}

type paystackVerifier interface {
	VerifyWebhookSignature(body []byte, signature string) bool
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Metadata  struct {
			UserID string `json:"user_id"`
		} `json:"metadata"`
	} `json:"data"`
}

// Paystack handles charge.success events: verify the signature, re-verify
// the transaction against the API, then credit the wallet. The amount comes
// from the verification response, never from the webhook body.
func Paystack(client paystackVerifier, wallets walletCreditor, guard *Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if client == nil || wallets == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paystack webhook unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get("X-Paystack-Signature")
		if !client.VerifyWebhookSignature(payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook signature"))
			return
		}

		var event paystackEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
			return
		}

		// Only successful charges move money. Everything else is acked so
		// the gateway stops redelivering.
		if !strings.EqualFold(event.Event, "charge.success") {
			responses.WriteSuccess(w, nil)
			return
		}

		reference := strings.TrimSpace(event.Data.Reference)
		if reference == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing transaction reference"))
			return
		}
		userID, err := uuid.Parse(strings.TrimSpace(event.Data.Metadata.UserID))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "missing user metadata"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, "paystack", reference)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := creditFromPaystack(ctx, client, wallets, reference, userID); err != nil {
			_ = guard.Release(ctx, "paystack", reference)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			lctx := logg.WithField(ctx, "reference", reference)
			logg.Info(lctx, "paystack.topup.credited")
		}
		responses.WriteSuccess(w, nil)
	}
}

func creditFromPaystack(ctx context.Context, client paystackVerifier, wallets walletCreditor, reference string, userID uuid.UUID) error {
	txn, err := client.VerifyTransaction(ctx, reference)
	if err != nil {
		return err
	}
	if !txn.Succeeded() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction not successful")
	}

	if _, err := wallets.EnsureWallet(ctx, userID); err != nil {
		return err
	}

	provider := "paystack"
	_, err = wallets.Credit(ctx, wallet.CreditInput{
		UserID:    userID,
		Amount:    txn.Amount,
		Reference: reference,
		Provider:  &provider,
		Narration: "wallet top-up via paystack",
	})
	return err
}
