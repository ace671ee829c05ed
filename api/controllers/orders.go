package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/api/validators"
	"github.com/tobiadeyinka/chowdash-backend/internal/catalog"
	internalorders "github.com/tobiadeyinka/chowdash-backend/internal/orders"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/pagination"
)

type createOrderRequest struct {
	VendorID       string             `json:"vendor_id" validate:"required,uuid"`
	DropoffAddress string             `json:"dropoff_address" validate:"required,max=500"`
	DropoffLat     float64            `json:"dropoff_lat" validate:"latitude"`
	DropoffLng     float64            `json:"dropoff_lng" validate:"longitude"`
	Notes          *string            `json:"notes,omitempty" validate:"omitempty,max=500"`
	Items          []orderItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=100"`
}

type transitionOrderRequest struct {
	Target string `json:"target" validate:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// CreateOrder places a customer order, debiting the wallet inside the same
// transaction that persists it.
func CreateOrder(svc internalorders.Service, resolver *ActorResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := resolver.Resolve(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendorID, err := uuid.Parse(req.VendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id"))
			return
		}

		items := make([]catalog.SelectionItem, 0, len(req.Items))
		for _, item := range req.Items {
			productID, parseErr := uuid.Parse(item.ProductID)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid product id"))
				return
			}
			items = append(items, catalog.SelectionItem{ProductID: productID, Quantity: item.Quantity})
		}

		var notes *string
		if req.Notes != nil {
			trimmed := validators.SanitizeString(*req.Notes, 500)
			if trimmed != "" {
				notes = &trimmed
			}
		}

		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			CustomerID:     actor.UserID,
			VendorID:       vendorID,
			DropoffAddress: validators.SanitizeString(req.DropoffAddress, 500),
			DropoffLat:     req.DropoffLat,
			DropoffLng:     req.DropoffLng,
			Notes:          notes,
			Items:          items,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func GetOrder(svc internalorders.Service, resolver *ActorResolver, logg *logger.Logger) http.HandlerFunc {
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

		order, err := svc.Get(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderHistory returns the recorded status timeline of an order.
func OrderHistory(svc internalorders.Service, resolver *ActorResolver, logg *logger.Logger) http.HandlerFunc {
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

		events, err := svc.History(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

// ListMyOrders pages the authenticated customer's orders, newest first.
func ListMyOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID := actorIDOrError(r, logg, w)
		if customerID == uuid.Nil {
			return
		}

		params, filters, err := orderListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListCustomerOrders(r.Context(), customerID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListVendorOrders pages the orders placed against the actor's vendor.
func ListVendorOrders(svc internalorders.Service, resolver *ActorResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := resolver.Resolve(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.VendorID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "no vendor profile"))
			return
		}

		params, filters, err := orderListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListVendorOrders(r.Context(), *actor.VendorID, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// TransitionOrder moves an order to the requested lifecycle status.
func TransitionOrder(svc internalorders.Service, resolver *ActorResolver, logg *logger.Logger) http.HandlerFunc {
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

		var req transitionOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		target, err := enums.ParseOrderStatus(req.Target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status"))
			return
		}

		order, err := svc.Transition(r.Context(), internalorders.TransitionInput{
			OrderID: orderID,
			Target:  target,
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func CancelOrder(svc internalorders.Service, resolver *ActorResolver, logg *logger.Logger) http.HandlerFunc {
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

		var req cancelOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Reason:  validators.SanitizeString(req.Reason, 500),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func orderIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func orderListQuery(r *http.Request) (pagination.Params, internalorders.Filters, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, internalorders.Filters{}, err
	}

	params := pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}

	var filters internalorders.Filters
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, parseErr := enums.ParseOrderStatus(raw)
		if parseErr != nil {
			return pagination.Params{}, internalorders.Filters{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "unknown order status")
		}
		filters.Status = &status
	}

	return params, filters, nil
}
