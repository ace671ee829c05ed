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
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/flutterwave"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

type flutterwaveVerifier interface {
	VerifyWebhookHash(header string) bool
	VerifyTransactionByReference(ctx context.Context, txRef string) (*flutterwave.Transaction, error)
}

type flutterwaveEvent struct {
	Event string `json:"event"`
	Data  struct {
		TxRef string `json:"tx_ref"`
		Meta  struct {
			UserID string `json:"user_id"`
		} `json:"meta"`
	} `json:"data"`
}

// Flutterwave handles charge.completed events. Same shape as the Paystack
// hook: hash check, API re-verification, then a reference-keyed credit.
func Flutterwave(client flutterwaveVerifier, wallets walletCreditor, guard *Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if client == nil || wallets == nil || guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "flutterwave webhook unavailable"))
			return
		}

		if !client.VerifyWebhookHash(r.Header.Get("verif-hash")) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook hash"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		var event flutterwaveEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode webhook payload"))
			return
		}

		if !strings.EqualFold(event.Event, "charge.completed") {
			responses.WriteSuccess(w, nil)
			return
		}

		txRef := strings.TrimSpace(event.Data.TxRef)
		if txRef == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing transaction reference"))
			return
		}
		userID, err := uuid.Parse(strings.TrimSpace(event.Data.Meta.UserID))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "missing user metadata"))
			return
		}

		alreadyProcessed, err := guard.CheckAndMark(ctx, "flutterwave", txRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := creditFromFlutterwave(ctx, client, wallets, txRef, userID); err != nil {
			_ = guard.Release(ctx, "flutterwave", txRef)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			lctx := logg.WithField(ctx, "tx_ref", txRef)
			logg.Info(lctx, "flutterwave.topup.credited")
		}
		responses.WriteSuccess(w, nil)
	}
}

func creditFromFlutterwave(ctx context.Context, client flutterwaveVerifier, wallets walletCreditor, txRef string, userID uuid.UUID) error {
	txn, err := client.VerifyTransactionByReference(ctx, txRef)
	if err != nil {
		return err
	}
	if !txn.Succeeded() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "transaction not successful")
	}

	if _, err := wallets.EnsureWallet(ctx, userID); err != nil {
		return err
	}

	provider := "flutterwave"
	_, err = wallets.Credit(ctx, wallet.CreditInput{
		UserID:    userID,
		Amount:    txn.Amount,
		Reference: txRef,
		Provider:  &provider,
		Narration: "wallet top-up via flutterwave",
	})
	return err
}
