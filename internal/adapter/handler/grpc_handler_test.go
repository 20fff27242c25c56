package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

func startGRPC(t *testing.T, f *fixture) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	server := grpc.NewServer(grpc.ForceServerCodec(JSONCodec{}))
	RegisterCheckoutServiceServer(server, NewGRPCHandler(f.services(), discardLogger))
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(JSONCodec{})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invoke(t *testing.T, conn *grpc.ClientConn, method string, in, out any) {
	t.Helper()
	err := conn.Invoke(context.Background(), "/"+CheckoutServiceName+"/"+method, in, out)
	require.NoError(t, err)
}

func TestGRPC_GetCart(t *testing.T) {
	f := newFixture()
	_, err := f.carts.AddItem(context.Background(), "guest-1", "tee", 2)
	require.NoError(t, err)
	conn := startGRPC(t, f)

	var resp GetCartResponse
	invoke(t, conn, "GetCart", &GetCartRequest{GuestID: "guest-1"}, &resp)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Cart)
	assert.Equal(t, "41.00", resp.Cart.Total)
}

func TestGRPC_GetCart_MissingGuest(t *testing.T) {
	conn := startGRPC(t, newFixture())

	var resp GetCartResponse
	invoke(t, conn, "GetCart", &GetCartRequest{}, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "missing guest identifier", resp.Message)
}

func TestGRPC_ApplyCoupon(t *testing.T) {
	f := newFixture()
	_, err := f.carts.AddItem(context.Background(), "guest-1", "tee", 2)
	require.NoError(t, err)
	conn := startGRPC(t, f)

	var resp ApplyCouponResponse
	invoke(t, conn, "ApplyCoupon", &ApplyCouponRequest{GuestID: "guest-1", Code: "welcome10"}, &resp)
	require.True(t, resp.Success)
	assert.Equal(t, "36.90", resp.Coupon.Total)

	invoke(t, conn, "ApplyCoupon", &ApplyCouponRequest{GuestID: "guest-1", Code: "OLD"}, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "Coupon has expired", resp.Message)
}

func TestGRPC_Checkout(t *testing.T) {
	f := newFixture()
	conn := startGRPC(t, f)

	var resp CheckoutResponse
	invoke(t, conn, "Checkout", &CheckoutRequest{GuestID: "guest-9", CouponCode: "WELCOME10"}, &resp)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Checkout)
	assert.Equal(t, "cs_test_1", resp.Checkout.SessionID)
	assert.Equal(t, "guest-9", f.checkout.last.GuestID)
}
