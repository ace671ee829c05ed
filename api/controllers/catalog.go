package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/api/validators"
	"github.com/tobiadeyinka/chowdash-backend/internal/catalog"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

type registerVendorRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	Address     string  `json:"address" validate:"required,max=500"`
	Lat         float64 `json:"lat" validate:"latitude"`
	Lng         float64 `json:"lng" validate:"longitude"`
}

type vendorOpenRequest struct {
	Open bool `json:"open"`
}

type addProductRequest struct {
	ParentID    *string `json:"parent_id,omitempty" validate:"omitempty,uuid"`
	Name        string  `json:"name" validate:"required,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	Price       string  `json:"price" validate:"required"`
}

type updateProductRequest struct {
	Price       *string `json:"price,omitempty"`
	IsAvailable *bool   `json:"is_available,omitempty"`
}

func RegisterVendor(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := actorIDOrError(r, logg, w)
		if ownerID == uuid.Nil {
			return
		}

		var req registerVendorRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.RegisterVendor(r.Context(), catalog.RegisterVendorInput{
			OwnerUserID: ownerID,
			Name:        validators.SanitizeString(req.Name, 200),
			Description: req.Description,
			Phone:       req.Phone,
			Address:     validators.SanitizeString(req.Address, 500),
			Lat:         req.Lat,
			Lng:         req.Lng,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, vendor)
	}
}

func GetVendor(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendor, err := svc.GetVendor(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

func ListVendors(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		openOnly, err := validators.ParseQueryBool(r, "open", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListVendors(r.Context(), params, openOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// SetVendorOpen flips whether the storefront accepts new orders.
func SetVendorOpen(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := actorIDOrError(r, logg, w)
		if actorID == uuid.Nil {
			return
		}

		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req vendorOpenRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.SetVendorOpen(r.Context(), vendorID, actorID, req.Open); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"open": req.Open})
	}
}

func AddProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := actorIDOrError(r, logg, w)
		if actorID == uuid.Nil {
			return
		}

		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req addProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parsePrice(req.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var parentID *uuid.UUID
		if req.ParentID != nil {
			parsed, parseErr := uuid.Parse(*req.ParentID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid parent id"))
				return
			}
			parentID = &parsed
		}

		product, err := svc.AddProduct(r.Context(), catalog.AddProductInput{
			VendorID:    vendorID,
			ActorUserID: actorID,
			ParentID:    parentID,
			Name:        validators.SanitizeString(req.Name, 200),
			Description: req.Description,
			Price:       price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := actorIDOrError(r, logg, w)
		if actorID == uuid.Nil {
			return
		}

		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawProductID := strings.TrimSpace(chi.URLParam(r, "productId"))
		productID, err := uuid.Parse(rawProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if req.Price == nil && req.IsAvailable == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no changes submitted"))
			return
		}

		var price *decimal.Decimal
		if req.Price != nil {
			parsed, parseErr := parsePrice(*req.Price)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, parseErr)
				return
			}
			price = &parsed
		}

		if err := svc.UpdateProduct(r.Context(), catalog.UpdateProductInput{
			ProductID:   productID,
			VendorID:    vendorID,
			ActorUserID: actorID,
			Price:       price,
			IsAvailable: req.IsAvailable,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		availableOnly, err := validators.ParseQueryBool(r, "available", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListProducts(r.Context(), vendorID, params, availableOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func vendorIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "vendorId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	vendorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
	}
	return vendorID, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return price, nil
}
