package handler

import (
	"context"
	"log"
	"net/http"

	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/core/service"
)

const CheckoutServiceName = "storefront.v1.CheckoutService"

type CheckoutRequest struct {
	GuestID    string `json:"guest_id"`
	CouponCode string `json:"coupon_code,omitempty"`
}

type CheckoutResponse struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Checkout *CheckoutView `json:"checkout,omitempty"`
}

type ApplyCouponRequest struct {
	GuestID string `json:"guest_id"`
	Code    string `json:"code"`
}

type ApplyCouponResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Coupon  *CouponView `json:"coupon,omitempty"`
}

type GetCartRequest struct {
	GuestID string `json:"guest_id"`
}

type GetCartResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Cart    *CartView `json:"cart,omitempty"`
}

type CheckoutServiceServer interface {
	Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error)
	ApplyCoupon(ctx context.Context, req *ApplyCouponRequest) (*ApplyCouponResponse, error)
	GetCart(ctx context.Context, req *GetCartRequest) (*GetCartResponse, error)
}

// GRPCHandler takes the guest id as a request field instead of a cookie.
type GRPCHandler struct {
	svc    Services
	logger *log.Logger
}

func NewGRPCHandler(svc Services, logger *log.Logger) *GRPCHandler {
	return &GRPCHandler{svc: svc, logger: logger}
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	result, err := h.svc.Checkout.Checkout(ctx, service.CheckoutRequest{
		GuestID:    req.GuestID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		return &CheckoutResponse{Message: h.failure("Checkout", err)}, nil
	}

	view := newCheckoutView(result)
	return &CheckoutResponse{Success: true, Message: "payment session created", Checkout: &view}, nil
}

func (h *GRPCHandler) ApplyCoupon(ctx context.Context, req *ApplyCouponRequest) (*ApplyCouponResponse, error) {
	applied, err := h.svc.Coupons.Apply(ctx, req.Code)
	if err != nil {
		return &ApplyCouponResponse{Message: h.failure("ApplyCoupon", err)}, nil
	}
	cart, err := h.svc.Carts.GetCart(ctx, req.GuestID)
	if err != nil {
		return &ApplyCouponResponse{Message: h.failure("ApplyCoupon", err)}, nil
	}

	view := newCouponView(applied, cart)
	return &ApplyCouponResponse{Success: true, Message: "coupon applied", Coupon: &view}, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *GetCartRequest) (*GetCartResponse, error) {
	cart, err := h.svc.Carts.GetCart(ctx, req.GuestID)
	if err != nil {
		return &GetCartResponse{Message: h.failure("GetCart", err)}, nil
	}

	view := newCartView(cart)
	return &GetCartResponse{Success: true, Message: "ok", Cart: &view}, nil
}

func (h *GRPCHandler) failure(method string, err error) string {
	status, message := errorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Printf("grpc: %s failed: %v", method, err)
	}
	return message
}

func RegisterCheckoutServiceServer(s grpc.ServiceRegistrar, srv CheckoutServiceServer) {
	s.RegisterService(&checkoutServiceDesc, srv)
}

var checkoutServiceDesc = grpc.ServiceDesc{
	ServiceName: CheckoutServiceName,
	HandlerType: (*CheckoutServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Checkout", Handler: checkoutHandler},
		{MethodName: "ApplyCoupon", Handler: applyCouponHandler},
		{MethodName: "GetCart", Handler: getCartHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storefront/v1/checkout",
}

func checkoutHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CheckoutRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CheckoutServiceServer).Checkout(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CheckoutServiceName + "/Checkout"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CheckoutServiceServer).Checkout(ctx, req.(*CheckoutRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func applyCouponHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ApplyCouponRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CheckoutServiceServer).ApplyCoupon(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CheckoutServiceName + "/ApplyCoupon"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CheckoutServiceServer).ApplyCoupon(ctx, req.(*ApplyCouponRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getCartHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetCartRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CheckoutServiceServer).GetCart(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + CheckoutServiceName + "/GetCart"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(CheckoutServiceServer).GetCart(ctx, req.(*GetCartRequest))
	}
	return interceptor(ctx, in, info, handler)
}
