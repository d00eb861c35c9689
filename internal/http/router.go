package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Services struct {
	Auth    AuthService
	Account AccountService
	Cart    CartService
	Orders  OrderService
	Reports ReportService
	Catalog CatalogService
}

type RouterConfig struct {
	RequestTimeout     time.Duration
	CORSOrigins        []string
	AuthRateLimitRPS   float64
	AuthRateLimitBurst int
}

func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(svc.Auth, svc.Account)
	accountHandler := NewAccountHandler(svc.Account)
	cartHandler := NewCartHandler(svc.Cart)
	orderHandler := NewOrderHandler(svc.Orders, svc.Reports)
	catalogHandler := NewCatalogHandler(svc.Catalog)

	authenticate := AuthMiddleware(svc.Auth)
	limiter := NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyKeyHeader, middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, MessageResponse{Message: "API is running"})
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(limiter.Middleware).Post("/register", authHandler.Register)
			r.With(limiter.Middleware).Post("/login", authHandler.Login)
			r.With(authenticate).Post("/logout", authHandler.Logout)
			r.With(authenticate).Get("/me", authHandler.Me)
		})

		r.Route("/public", func(r chi.Router) {
			r.Get("/products", catalogHandler.PublicProducts)
			r.Get("/categories", catalogHandler.PublicCategories)
		})

		r.Route("/user", func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/cart", cartHandler.GetCart)
			r.Post("/cart", cartHandler.AddItem)
			r.Put("/cart/{productId}", cartHandler.UpdateQuantity)
			r.Delete("/cart/{productId}", cartHandler.RemoveItem)

			r.Get("/addresses", accountHandler.ListAddresses)
			r.Post("/addresses", accountHandler.AddAddress)
			r.Delete("/addresses/{addressId}", accountHandler.RemoveAddress)
			r.Get("/delivery-slots", accountHandler.DeliverySlots)

			r.Post("/order", orderHandler.PlaceOrder)
			r.Get("/order/history", orderHandler.History)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticate)
			r.Use(AdminOnly)

			r.Get("/products", catalogHandler.ListProducts)
			r.Post("/products", catalogHandler.CreateProduct)
			r.Put("/products/{id}", catalogHandler.UpdateProduct)
			r.Delete("/products/{id}", catalogHandler.DeleteProduct)

			r.Get("/categories", catalogHandler.ListCategories)
			r.Post("/categories", catalogHandler.CreateCategory)
			r.Put("/categories/{id}", catalogHandler.UpdateCategory)
			r.Delete("/categories/{id}", catalogHandler.DeleteCategory)

			r.Get("/orders", orderHandler.ListAll)
			r.Put("/orders/{id}/status", orderHandler.UpdateStatus)

			r.Get("/reports/sales", orderHandler.SalesReport)
		})
	})

	return otelhttp.NewHandler(r, "farmfresh",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
