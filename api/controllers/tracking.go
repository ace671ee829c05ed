package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/api/validators"
	"github.com/tobiadeyinka/chowdash-backend/internal/tracking"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

type recordLocationRequest struct {
	Lat        float64    `json:"lat" validate:"latitude"`
	Lng        float64    `json:"lng" validate:"longitude"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// RecordLocation appends a rider ping for an active delivery. Pings may
// arrive out of order; the recorded timestamp decides the current snapshot.
func RecordLocation(svc tracking.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req recordLocationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordedAt := time.Now().UTC()
		if req.RecordedAt != nil {
			recordedAt = req.RecordedAt.UTC()
		}

		ping, err := svc.RecordLocation(r.Context(), tracking.RecordInput{
			OrderID:     orderID,
			RiderUserID: riderUserID,
			Lat:         req.Lat,
			Lng:         req.Lng,
			RecordedAt:  recordedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ping)
	}
}

// TrackingSnapshot returns the latest delivery position for an order.
func TrackingSnapshot(svc tracking.Service, resolver *ActorResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := resolver.Resolve(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := orderIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.Snapshot(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}
