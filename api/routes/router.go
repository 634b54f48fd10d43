package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aglago/iselldata-backend/api/controllers"
	webhookcontrollers "github.com/aglago/iselldata-backend/api/controllers/webhooks"
	"github.com/aglago/iselldata-backend/api/middleware"
	"github.com/aglago/iselldata-backend/internal/customers"
	"github.com/aglago/iselldata-backend/internal/orders"
	"github.com/aglago/iselldata-backend/pkg/config"
	"github.com/aglago/iselldata-backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Registry prometheus.Gatherer

	Checkout      controllers.CheckoutService
	Verify        controllers.VerifyService
	Fulfill       webhookcontrollers.FulfillService
	Manual        controllers.ManualFulfillService
	Signature     webhookcontrollers.SignatureValidator
	Monitor       controllers.HealthMonitor
	OrdersRepo    orders.Repository
	CustomersRepo customers.Repository
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/packages", controllers.ListPackages(logg))
		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Get("/orders/track/{trackingId}", controllers.TrackOrder(deps.OrdersRepo, logg))
		r.Get("/payments/verify/{reference}", controllers.VerifyPayment(deps.Verify, logg))

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/paystack", webhookcontrollers.PaystackWebhook(deps.Fulfill, deps.Signature, logg))
			r.Post("/delivery", webhookcontrollers.DeliveryWebhook(deps.OrdersRepo, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminKey(cfg.Admin.APIKey, logg))

		r.Get("/orders", controllers.AdminListOrders(deps.OrdersRepo, logg))
		r.Get("/orders/{orderId}", controllers.AdminGetOrder(deps.OrdersRepo, logg))
		r.Post("/orders/{orderId}/fulfill", controllers.AdminFulfillOrder(deps.Manual, logg))
		r.Get("/customers", controllers.AdminListCustomers(deps.CustomersRepo, logg))
		r.Get("/gateway/health", controllers.GatewayHealth(deps.Monitor, logg))
		r.Get("/gateway/balance", controllers.GatewayBalance(deps.Monitor, logg))
	})

	return r
}
