package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/api/validators"
	"github.com/tobiadeyinka/chowdash-backend/internal/otp"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

type confirmDeliveryCodeRequest struct {
	Code string `json:"code" validate:"required,len=5,numeric"`
}

// IssueDeliveryCode generates the confirmation code for an order in flight.
// The code reaches the customer through the notification pipeline; the
// response only reports the expiry.
func IssueDeliveryCode(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		riderUserID := actorIDOrError(r, logg, w)
		if riderUserID == uuid.Nil {
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Issue(r.Context(), otp.IssueInput{
			OrderID:     orderID,
			RiderUserID: riderUserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ConfirmDeliveryCode completes the delivery when the submitted code matches.
func ConfirmDeliveryCode(svc otp.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		riderUserID := actorIDOrError(r, logg, w)
		if riderUserID == uuid.Nil {
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req confirmDeliveryCodeRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Confirm(r.Context(), otp.ConfirmInput{
			OrderID:     orderID,
			RiderUserID: riderUserID,
			Code:        req.Code,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
