package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tobiadeyinka/chowdash-backend/api/controllers"
	webhookcontrollers "github.com/tobiadeyinka/chowdash-backend/api/controllers/webhooks"
	"github.com/tobiadeyinka/chowdash-backend/api/middleware"
	"github.com/tobiadeyinka/chowdash-backend/internal/catalog"
	"github.com/tobiadeyinka/chowdash-backend/internal/dispatch"
	"github.com/tobiadeyinka/chowdash-backend/internal/notifications"
	"github.com/tobiadeyinka/chowdash-backend/internal/orders"
	"github.com/tobiadeyinka/chowdash-backend/internal/otp"
	"github.com/tobiadeyinka/chowdash-backend/internal/reports"
	"github.com/tobiadeyinka/chowdash-backend/internal/riders"
	"github.com/tobiadeyinka/chowdash-backend/internal/tracking"
	"github.com/tobiadeyinka/chowdash-backend/internal/wallet"
	"github.com/tobiadeyinka/chowdash-backend/pkg/config"
	"github.com/tobiadeyinka/chowdash-backend/pkg/db"
	"github.com/tobiadeyinka/chowdash-backend/pkg/enums"
	"github.com/tobiadeyinka/chowdash-backend/pkg/flutterwave"
	"github.com/tobiadeyinka/chowdash-backend/pkg/logger"
	"github.com/tobiadeyinka/chowdash-backend/pkg/paystack"
	"github.com/tobiadeyinka/chowdash-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalogRepo catalog.Repository,
	ridersRepo riders.Repository,
	catalogService catalog.Service,
	ordersService orders.Service,
	dispatchService dispatch.Service,
	trackingService tracking.Service,
	otpService otp.Service,
	ridersService riders.Service,
	walletService wallet.Service,
	notificationsService notifications.Service,
	reportsService reports.Service,
	paystackClient *paystack.Client,
	flutterwaveClient *flutterwave.Client,
	webhookGuard *webhookcontrollers.Guard,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	resolver := &controllers.ActorResolver{
		Vendors: catalogRepo,
		Riders:  ridersRepo,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/paystack", webhookcontrollers.Paystack(paystackClient, walletService, webhookGuard, logg))
		r.Post("/flutterwave", webhookcontrollers.Flutterwave(flutterwaveClient, walletService, webhookGuard, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(cfg.AuthRateLimit, redisClient, logg))

		r.Route("/v1/vendors", func(r chi.Router) {
			r.Get("/", controllers.ListVendors(catalogService, logg))
			r.Get("/{vendorId}", controllers.GetVendor(catalogService, logg))
			r.Get("/{vendorId}/products", controllers.ListProducts(catalogService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.UserRoleVendor, logg))
				r.Post("/", controllers.RegisterVendor(catalogService, logg))
				r.Post("/{vendorId}/open", controllers.SetVendorOpen(catalogService, logg))
				r.Post("/{vendorId}/products", controllers.AddProduct(catalogService, logg))
				r.Patch("/{vendorId}/products/{productId}", controllers.UpdateProduct(catalogService, logg))
			})
		})

		r.Route("/v1/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.UserRoleCustomer, logg)).Post("/", controllers.CreateOrder(ordersService, resolver, logg))
			r.With(middleware.RequireRole(enums.UserRoleCustomer, logg)).Get("/", controllers.ListMyOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.GetOrder(ordersService, resolver, logg))
			r.Get("/{orderId}/history", controllers.OrderHistory(ordersService, resolver, logg))
			r.Get("/{orderId}/tracking", controllers.TrackingSnapshot(trackingService, resolver, logg))
			r.Post("/{orderId}/transition", controllers.TransitionOrder(ordersService, resolver, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(ordersService, resolver, logg))
		})

		r.With(middleware.RequireRole(enums.UserRoleVendor, logg)).
			Get("/v1/vendor/orders", controllers.ListVendorOrders(ordersService, resolver, logg))

		r.Route("/v1/rider", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.UserRoleRider, logg))
			r.Post("/profile", controllers.RegisterRider(ridersService, logg))
			r.Get("/profile", controllers.RiderProfile(ridersService, logg))
			r.Post("/profile/documents", controllers.SubmitRiderDocuments(ridersService, logg))
			r.Post("/online", controllers.SetRiderOnline(ridersService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/queue", controllers.DispatchQueue(dispatchService, logg))
				r.Post("/{orderId}/claim", controllers.ClaimOrder(dispatchService, logg))
				r.Post("/{orderId}/location", controllers.RecordLocation(trackingService, logg))
				r.Post("/{orderId}/code", controllers.IssueDeliveryCode(otpService, logg))
				r.Post("/{orderId}/code/confirm", controllers.ConfirmDeliveryCode(otpService, logg))
			})
		})

		r.Route("/v1/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))
		r.Use(middleware.Idempotency(redisClient, logg))
		r.Use(middleware.RateLimit(cfg.AuthRateLimit, redisClient, logg))

		r.Post("/v1/riders/{riderId}/verify", controllers.VerifyRider(ridersService, logg))
		r.Route("/v1/reports", func(r chi.Router) {
			r.Get("/delivery-performance", controllers.DeliveryPerformance(reportsService, logg))
			r.Get("/status-breakdown", controllers.OrderStatusBreakdown(reportsService, logg))
		})
	})

	return r
}
