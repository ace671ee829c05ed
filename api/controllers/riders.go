package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/api/middleware"
	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/api/validators"
	"github.com/tobiadeyinka/chowdash-backend/internal/riders"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

type registerRiderRequest struct {
	TransportMode      string  `json:"transport_mode" validate:"required"`
	IDDocumentURL      *string `json:"id_document_url,omitempty" validate:"omitempty,url"`
	VehicleDocumentURL *string `json:"vehicle_document_url,omitempty" validate:"omitempty,url"`
}

type riderDocumentsRequest struct {
	IDDocumentURL      *string `json:"id_document_url,omitempty" validate:"omitempty,url"`
	VehicleDocumentURL *string `json:"vehicle_document_url,omitempty" validate:"omitempty,url"`
}

type riderOnlineRequest struct {
	Online bool `json:"online"`
}

func RegisterRider(svc riders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := actorIDOrError(r, logg, w)
		if userID == uuid.Nil {
			return
		}

		var req registerRiderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rider, err := svc.Register(r.Context(), riders.RegisterInput{
			UserID:             userID,
			TransportMode:      enums.TransportMode(strings.ToLower(strings.TrimSpace(req.TransportMode))),
			IDDocumentURL:      req.IDDocumentURL,
			VehicleDocumentURL: req.VehicleDocumentURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, rider)
	}
}

func RiderProfile(svc riders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := actorIDOrError(r, logg, w)
		if userID == uuid.Nil {
			return
		}

		rider, err := svc.Profile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rider)
	}
}

// SubmitRiderDocuments attaches verification documents; a complete set moves
// the rider into review.
func SubmitRiderDocuments(svc riders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := actorIDOrError(r, logg, w)
		if userID == uuid.Nil {
			return
		}

		var req riderDocumentsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.IDDocumentURL == nil && req.VehicleDocumentURL == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one document is required"))
			return
		}

		rider, err := svc.SubmitDocuments(r.Context(), riders.DocumentsInput{
			UserID:             userID,
			IDDocumentURL:      req.IDDocumentURL,
			VehicleDocumentURL: req.VehicleDocumentURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rider)
	}
}

// VerifyRider is the admin review decision that activates a rider.
func VerifyRider(svc riders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := actorIDOrError(r, logg, w)
		if actorID == uuid.Nil {
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "riderId"))
		riderID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rider id"))
			return
		}

		rider, err := svc.Verify(r.Context(), riders.VerifyInput{
			RiderID:   riderID,
			ActorRole: middleware.RoleFromContext(r.Context()),
			ActorID:   actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rider)
	}
}

// SetRiderOnline toggles new-work candidacy. Going online needs a verified
// profile; going offline is always allowed.
func SetRiderOnline(svc riders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := actorIDOrError(r, logg, w)
		if userID == uuid.Nil {
			return
		}

		var req riderOnlineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rider, err := svc.SetOnline(r.Context(), userID, req.Online)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rider)
	}
}
