package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhannt26/e-commerce-website-v3/api/controllers"
	addresscontrollers "github.com/nhannt26/e-commerce-website-v3/api/controllers/addresses"
	cartcontrollers "github.com/nhannt26/e-commerce-website-v3/api/controllers/cart"
	ordercontrollers "github.com/nhannt26/e-commerce-website-v3/api/controllers/orders"
	paymentcontrollers "github.com/nhannt26/e-commerce-website-v3/api/controllers/payments"
	webhookcontrollers "github.com/nhannt26/e-commerce-website-v3/api/controllers/webhooks"
	wishlistcontrollers "github.com/nhannt26/e-commerce-website-v3/api/controllers/wishlist"
	"github.com/nhannt26/e-commerce-website-v3/api/middleware"
	"github.com/nhannt26/e-commerce-website-v3/internal/addresses"
	"github.com/nhannt26/e-commerce-website-v3/internal/cart"
	"github.com/nhannt26/e-commerce-website-v3/internal/coupons"
	"github.com/nhannt26/e-commerce-website-v3/internal/inventory"
	"github.com/nhannt26/e-commerce-website-v3/internal/orders"
	"github.com/nhannt26/e-commerce-website-v3/internal/payments"
	"github.com/nhannt26/e-commerce-website-v3/internal/wishlist"
	"github.com/nhannt26/e-commerce-website-v3/pkg/cache"
	"github.com/nhannt26/e-commerce-website-v3/pkg/config"
	"github.com/nhannt26/e-commerce-website-v3/pkg/db"
	"github.com/nhannt26/e-commerce-website-v3/pkg/enums"
	"github.com/nhannt26/e-commerce-website-v3/pkg/logger"
	"github.com/nhannt26/e-commerce-website-v3/pkg/redis"
)

// Deps are the services and clients the router hands to controllers. Nil
// clients switch the matching middleware off.
type Deps struct {
	DB       db.Pinger
	Redis    *redis.Client
	Cache    cache.Store
	Gatherer prometheus.Gatherer
	// Limiter backs rate limiting; it defaults to Redis.
	Limiter middleware.Limiter

	Products  inventory.Service
	Coupons   coupons.Service
	Wishlist  wishlist.Service
	Addresses addresses.Service
	Carts     cart.Service
	Orders    orders.Service
	Payments  payments.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.RealIP(cfg.App.TrustedProxies, logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Deadline(cfg.App.RequestTimeout),
	)

	readiness := map[string]controllers.Pinger{}
	if deps.DB != nil {
		readiness["db"] = deps.DB
	}
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	limiter := deps.Limiter
	if limiter == nil && deps.Redis != nil {
		limiter = deps.Redis
	}
	rateLimit := middleware.RateLimit("api", cfg.RateLimit.Limit, cfg.RateLimit.Window, limiter, logg)
	idempotency := func(next http.Handler) http.Handler { return next }
	if deps.Redis != nil {
		idempotency = middleware.Idempotency(deps.Redis, logg)
	}
	invalidate := controllers.InvalidateOnSuccess(deps.Cache, logg)
	requireAuth := middleware.Auth(cfg.JWT, logg)

	r.Route("/api/v1", func(r chi.Router) {
		// Gateway notifications sit outside the API limiter: every answer,
		// throttled or rejected, keeps the {RspCode, Message} shape.
		r.With(
			middleware.IPAllowlist(middleware.GatewayIPs, !cfg.App.IsDev(), logg),
			middleware.IPNRateLimit(cfg.RateLimit.IPNLimit, cfg.RateLimit.IPNWindow, limiter, logg),
		).Get("/payments/vnpay/ipn", webhookcontrollers.VNPayIPN(deps.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			mountAPI(r, cfg, logg, deps, requireAuth, idempotency, invalidate)
		})
	})

	return r
}

func mountAPI(r chi.Router, cfg *config.Config, logg *logger.Logger, deps Deps, requireAuth, idempotency, invalidate func(http.Handler) http.Handler) {
	r.With(middleware.ResponseCache(deps.Cache, controllers.ProductCacheScope, cfg.Cache.ProductTTL, logg)).
		Get("/products/{productId}", controllers.ProductDetail(deps.Products, logg))
	r.Get("/products/{productId}/stock", controllers.ProductStock(deps.Products, logg))

	r.Route("/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/", cartcontrollers.CartFetch(deps.Carts, logg))
		r.Delete("/", cartcontrollers.CartClear(deps.Carts, logg))
		r.Get("/summary", cartcontrollers.CartSummary(deps.Carts, logg))
		r.Get("/check/{productId}", cartcontrollers.CartCheckProduct(deps.Carts, logg))
		r.Post("/items", cartcontrollers.CartAddItem(deps.Carts, logg))
		r.Put("/items/{itemId}", cartcontrollers.CartUpdateItem(deps.Carts, logg))
		r.Delete("/items/{itemId}", cartcontrollers.CartRemoveItem(deps.Carts, logg))
		r.Post("/validate", cartcontrollers.CartValidate(deps.Carts, logg))
		r.Post("/coupon", cartcontrollers.CartApplyCoupon(deps.Carts, logg))
		r.Delete("/coupon", cartcontrollers.CartRemoveCoupon(deps.Carts, logg))
		r.Post("/merge", cartcontrollers.CartMerge(deps.Carts, logg))
		r.Post("/recover", cartcontrollers.CartRecover(deps.Carts, logg))
		r.Post("/save-for-later/{itemId}", cartcontrollers.CartSaveForLater(deps.Carts, logg))
		r.Post("/move-to-cart/{productId}", cartcontrollers.CartMoveToCart(deps.Carts, logg))
	})

	r.Route("/wishlist", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", wishlistcontrollers.List(deps.Wishlist, logg))
		r.Delete("/", wishlistcontrollers.Clear(deps.Wishlist, logg))
		r.Post("/{productId}", wishlistcontrollers.Add(deps.Wishlist, logg))
		r.Delete("/{productId}", wishlistcontrollers.Remove(deps.Wishlist, logg))
		r.Post("/{productId}/move-to-cart", wishlistcontrollers.MoveToCart(deps.Wishlist, deps.Carts, logg))
	})

	r.Route("/addresses", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", addresscontrollers.List(deps.Addresses, logg))
		r.Post("/", addresscontrollers.Create(deps.Addresses, logg))
		r.Put("/{addressId}", addresscontrollers.Update(deps.Addresses, logg))
		r.Delete("/{addressId}", addresscontrollers.Delete(deps.Addresses, logg))
		r.Patch("/{addressId}/set-default", addresscontrollers.SetDefault(deps.Addresses, logg))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(idempotency, invalidate).Post("/", ordercontrollers.Checkout(deps.Orders, logg))
		r.Get("/", ordercontrollers.List(deps.Orders, logg))
		r.Get("/stats", ordercontrollers.Stats(deps.Orders, logg))
		r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
		r.Get("/{orderId}/timeline", ordercontrollers.Timeline(deps.Orders, logg))
		r.With(idempotency, invalidate).Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Get("/vnpay/return", webhookcontrollers.VNPayReturn(deps.Payments, cfg.Payment.FrontendURL, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.With(idempotency).Post("/vnpay/create", paymentcontrollers.Create(deps.Payments, logg))
			r.With(idempotency).Post("/{orderId}/retry", paymentcontrollers.Retry(deps.Payments, logg))
			r.Get("/transactions/{transactionId}", paymentcontrollers.Transaction(deps.Payments, logg))
			r.Get("/orders/{orderId}", paymentcontrollers.OrderTransactions(deps.Payments, logg))
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(enums.UserRoleAdmin, logg))

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.With(invalidate).Put("/status", ordercontrollers.AdminUpdateStatus(deps.Orders, logg))
			r.With(idempotency).Post("/mark-paid", ordercontrollers.AdminMarkPaid(deps.Orders, logg))
			r.Put("/tracking", ordercontrollers.AdminTracking(deps.Orders, logg))
		})
		r.With(idempotency).Post("/transactions/{transactionId}/refund", paymentcontrollers.AdminRefund(deps.Payments, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminCreateProduct(deps.Products, deps.Cache, logg))
			r.Get("/low-stock", controllers.AdminLowStock(deps.Products, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Products, deps.Cache, logg))
		})
		r.Post("/coupons", controllers.AdminCreateCoupon(deps.Coupons, logg))
	})
}
