package controllers

import (
	"net/http"

	"github.com/tobiadeyinka/chowdash-backend/api/middleware"
	"github.com/tobiadeyinka/chowdash-backend/api/responses"
	"github.com/tobiadeyinka/chowdash-backend/api/validators"
	"github.com/tobiadeyinka/chowdash-backend/internal/reports"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
)

// DeliveryPerformance aggregates delivered orders over a from/to window,
// optionally scoped to one vendor.
func DeliveryPerformance(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := validators.ParseQueryUUID(r, "vendor_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.DeliveryPerformance(r.Context(), reports.PerformanceInput{
			ActorRole: middleware.RoleFromContext(r.Context()),
			From:      from,
			To:        to,
			VendorID:  vendorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// OrderStatusBreakdown counts orders created in the window by current status.
func OrderStatusBreakdown(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := svc.StatusBreakdown(r.Context(), reports.BreakdownInput{
			ActorRole: middleware.RoleFromContext(r.Context()),
			From:      from,
			To:        to,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, breakdown)
	}
}
