package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercatohq/barter-backend/api/controllers"
	"github.com/mercatohq/barter-backend/api/middleware"
	"github.com/mercatohq/barter-backend/internal/addresses"
	"github.com/mercatohq/barter-backend/internal/exchanges"
	"github.com/mercatohq/barter-backend/pkg/auth/session"
	"github.com/mercatohq/barter-backend/pkg/config"
	"github.com/mercatohq/barter-backend/pkg/db"
	"github.com/mercatohq/barter-backend/pkg/logger"
	"github.com/mercatohq/barter-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Exchanges exchanges.Service
	Lifecycle exchanges.LifecycleService
	Delivery  exchanges.DeliveryService
	Addresses addresses.Service
}

// NewRouter assembles the HTTP surface of the barter API.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	sessions session.AccessSessionChecker,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Route("/exchanges", func(r chi.Router) {
			r.Post("/", controllers.ExchangeCreate(svcs.Exchanges, logg))
			r.Get("/", controllers.ExchangeList(svcs.Exchanges, logg))
			r.Get("/{exchangeId}", controllers.ExchangeFetch(svcs.Exchanges, logg))
			r.Post("/{exchangeId}/approve", controllers.ExchangeApprove(svcs.Lifecycle, logg))
			r.Post("/{exchangeId}/reject", controllers.ExchangeReject(svcs.Lifecycle, logg))
			r.Post("/{exchangeId}/cancel", controllers.ExchangeCancel(svcs.Lifecycle, logg))
			r.Patch("/{exchangeId}/delivery", controllers.ExchangeDeliveryUpdate(svcs.Delivery, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Post("/", controllers.AddressCreate(svcs.Addresses, logg))
			r.Get("/", controllers.AddressList(svcs.Addresses, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(svcs.Addresses, logg))
		})
	})

	return r
}
