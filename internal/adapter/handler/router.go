package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(h *HTTPHandler, guest func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Signed by the payment provider; no guest cookie involved.
		r.Post("/webhooks/payment", h.PaymentWebhook)

		r.Group(func(r chi.Router) {
			r.Use(guest)

			r.Get("/products", h.ListProducts)
			r.Get("/products/{productId}", h.GetProduct)

			r.Get("/cart", h.GetCart)
			r.Post("/cart/items", h.AddCartItem)
			r.Put("/cart/items/{productId}", h.UpdateCartItem)
			r.Delete("/cart/items/{productId}", h.RemoveCartItem)

			r.Post("/coupons/apply", h.ApplyCoupon)
			r.Post("/checkout", h.Checkout)
		})
	})

	return r
}
