package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	maxWebhookBody  = 64 << 10
	signatureHeader = "Stripe-Signature"
)

type Catalog interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
}

type Carts interface {
	GetCart(ctx context.Context, guestID string) (domain.Cart, error)
	AddItem(ctx context.Context, guestID, productID string, quantity int) (domain.CartItem, error)
	UpdateQuantity(ctx context.Context, guestID, productID string, quantity int) error
	RemoveItem(ctx context.Context, guestID, productID string) error
}

type Coupons interface {
	Apply(ctx context.Context, code string) (domain.AppliedCoupon, error)
}

type Checkouts interface {
	Checkout(ctx context.Context, req service.CheckoutRequest) (service.CheckoutResult, error)
}

type Webhooks interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (service.WebhookResult, error)
}

type Services struct {
	Catalog  Catalog
	Carts    Carts
	Coupons  Coupons
	Checkout Checkouts
	Webhooks Webhooks
}

type HTTPHandler struct {
	svc    Services
	logger *log.Logger
}

type AddItemHTTPRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateItemHTTPRequest struct {
	Quantity int `json:"quantity"`
}

type ApplyCouponHTTPRequest struct {
	Code string `json:"code"`
}

type CheckoutHTTPRequest struct {
	CouponCode string `json:"coupon_code"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(svc Services, logger *log.Logger) *HTTPHandler {
	return &HTTPHandler{svc: svc, logger: logger}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Catalog.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Catalog.GetProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.writeCart(w, r, http.StatusOK)
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	_, err := h.svc.Carts.AddItem(r.Context(), GuestIDFromContext(r.Context()), req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusCreated)
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	err := h.svc.Carts.UpdateQuantity(r.Context(), GuestIDFromContext(r.Context()), chi.URLParam(r, "productId"), req.Quantity)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Carts.RemoveItem(r.Context(), GuestIDFromContext(r.Context()), chi.URLParam(r, "productId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeCart(w, r, http.StatusOK)
}

func (h *HTTPHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req ApplyCouponHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
		return
	}

	applied, err := h.svc.Coupons.Apply(r.Context(), req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cart, err := h.svc.Carts.GetCart(r.Context(), GuestIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCouponView(applied, cart))
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutHTTPRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "invalid request body"})
			return
		}
	}

	result, err := h.svc.Checkout.Checkout(r.Context(), service.CheckoutRequest{
		GuestID:    GuestIDFromContext(r.Context()),
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCheckoutView(result))
}

// PaymentWebhook must see the exact bytes the provider signed.
func (h *HTTPHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorHTTPResponse{Message: "unreadable body"})
		return
	}

	result, err := h.svc.Webhooks.HandleWebhook(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		status, message := webhookErrorResponse(err)
		h.respondError(w, r, status, message, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"received": true,
		"outcome":  result.Outcome,
		"order_id": result.OrderID,
	})
}

func (h *HTTPHandler) writeCart(w http.ResponseWriter, r *http.Request, status int) {
	cart, err := h.svc.Carts.GetCart(r.Context(), GuestIDFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, newCartView(cart))
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorResponse(err)
	h.respondError(w, r, status, message, err)
}

func (h *HTTPHandler) respondError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Printf("http: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, ErrorHTTPResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
