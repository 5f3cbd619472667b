package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/soundmarket-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/soundmarket-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/soundmarket-backend/api/controllers/orders"
	sellercontrollers "github.com/angelmondragon/soundmarket-backend/api/controllers/seller"
	webhookcontrollers "github.com/angelmondragon/soundmarket-backend/api/controllers/webhooks"
	"github.com/angelmondragon/soundmarket-backend/api/middleware"
	"github.com/angelmondragon/soundmarket-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/soundmarket-backend/internal/checkout"
	"github.com/angelmondragon/soundmarket-backend/internal/coupons"
	"github.com/angelmondragon/soundmarket-backend/internal/downloads"
	"github.com/angelmondragon/soundmarket-backend/internal/orders"
	"github.com/angelmondragon/soundmarket-backend/internal/payouts"
	stripewebhook "github.com/angelmondragon/soundmarket-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/soundmarket-backend/pkg/config"
	"github.com/angelmondragon/soundmarket-backend/pkg/db"
	"github.com/angelmondragon/soundmarket-backend/pkg/logger"
	"github.com/angelmondragon/soundmarket-backend/pkg/metrics"
	"github.com/angelmondragon/soundmarket-backend/pkg/redis"
	"github.com/angelmondragon/soundmarket-backend/pkg/stripe"
)

// Dependencies are the services the HTTP surface dispatches to. Nil services answer 500.
type Dependencies struct {
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Cart      cart.Service
	Checkout  checkoutsvc.Service
	Orders    orders.Service
	Coupons   coupons.Service
	Payouts   *payouts.Service
	Downloads *downloads.Service

	StripeClient   *stripe.Client
	StripeWebhook  *stripewebhook.Service
	WebhookGuard   *stripewebhook.IdempotencyGuard
	WebhookMetrics *metrics.WebhookMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.Checkout.FrontendBaseURL),
	)

	// typed nils must not reach the middleware as non-nil interfaces
	var idempotencyStore redis.IdempotencyStore
	pingers := map[string]controllers.Pinger{}
	if deps.DB != nil {
		pingers["db"] = deps.DB
	}
	if deps.Redis != nil {
		idempotencyStore = deps.Redis
		pingers["redis"] = deps.Redis
	}
	sessionLimit := middleware.RateLimit(middleware.SessionRateLimitPolicy(cfg.RateLimit), rateLimitStore(deps.Redis), logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{Registry: deps.Registry}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookService(deps.StripeWebhook), signingClient(deps.StripeClient), webhookGuard(deps.WebhookGuard), deps.WebhookMetrics, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(deps.Cart, logg))
			r.Post("/", cartcontrollers.CartAdd(deps.Cart, logg))
			r.Get("/count", cartcontrollers.CartCount(deps.Cart, logg))
			r.Delete("/{productId}", cartcontrollers.CartRemove(deps.Cart, logg))
		})

		r.With(sessionLimit).Post("/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.Post("/cancel-pending", ordercontrollers.CancelPending(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			r.With(sessionLimit).Post("/{orderId}/retry", ordercontrollers.Retry(deps.Orders, logg))
		})

		r.Route("/downloads", func(r chi.Router) {
			r.Get("/", controllers.Downloads(downloadService(deps.Downloads), logg))
			r.Get("/{orderItemId}", controllers.Download(downloadService(deps.Downloads), logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/products/{productId}", controllers.ProductCoupons(deps.Coupons, logg))
			r.Post("/apply", controllers.ApplyCoupon(deps.Coupons, logg))
		})

		r.Route("/seller", func(r chi.Router) {
			r.Get("/payouts", sellercontrollers.Payouts(payoutService(deps.Payouts), logg))
			r.Get("/orders", sellercontrollers.Orders(deps.Orders, logg))
			r.Get("/sales", sellercontrollers.Sales(deps.Orders, logg))
			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", sellercontrollers.ListCoupons(deps.Coupons, logg))
				r.Post("/", sellercontrollers.CreateCoupon(deps.Coupons, logg))
				r.Get("/{couponId}", sellercontrollers.GetCoupon(deps.Coupons, logg))
				r.Put("/{couponId}", sellercontrollers.UpdateCoupon(deps.Coupons, logg))
				r.Delete("/{couponId}", sellercontrollers.DeleteCoupon(deps.Coupons, logg))
			})
		})
	})

	return r
}

func rateLimitStore(client *redis.Client) middleware.RateLimitStore {
	if client == nil {
		return nil
	}
	return client
}

func webhookService(svc *stripewebhook.Service) webhookcontrollers.StripeWebhookService {
	if svc == nil {
		return nil
	}
	return svc
}

func signingClient(client *stripe.Client) webhookcontrollers.SigningClient {
	if client == nil {
		return nil
	}
	return client
}

func webhookGuard(guard *stripewebhook.IdempotencyGuard) webhookcontrollers.EventGuard {
	if guard == nil {
		return nil
	}
	return guard
}

func downloadService(svc *downloads.Service) controllers.DownloadService {
	if svc == nil {
		return nil
	}
	return svc
}

func payoutService(svc *payouts.Service) sellercontrollers.PayoutLister {
	if svc == nil {
		return nil
	}
	return svc
}
