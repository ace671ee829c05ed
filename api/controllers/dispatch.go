package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/internal/dispatch"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

// DispatchQueue pages the unassigned pending orders a rider can claim.
func DispatchQueue(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		riderUserID := actorIDOrError(r, logg, w)
		if riderUserID == uuid.Nil {
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.AvailableOrders(r.Context(), riderUserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ClaimOrder assigns the pending order to the calling rider. Exactly one
// concurrent claim wins; the rest get a conflict.
func ClaimOrder(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
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

		order, err := svc.Assign(r.Context(), dispatch.AssignInput{
			OrderID:     orderID,
			RiderUserID: riderUserID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
