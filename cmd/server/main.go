package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	"github.com/rl1809/storefront/internal/adapter/handler"
	"github.com/rl1809/storefront/internal/adapter/messaging"
	"github.com/rl1809/storefront/internal/adapter/payment"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/config"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := storage.OpenMySQL(ctx, cfg.MySQLDSN)
	if err != nil {
		logger.Fatalf("failed to connect mysql: %v", err)
	}
	logger.Println("connected to mysql")

	if cfg.RunMigrations {
		if err := storage.RunMigrations(db, logger); err != nil {
			logger.Fatalf("failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("failed to connect redis: %v", err)
	}
	logger.Println("connected to redis")

	// Initialize adapters
	redisAdapter := storage.NewRedisAdapter(rdb)
	mysqlAdapter := storage.NewMySQLAdapter(db)
	gateway := payment.NewStripeGateway(payment.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Currency:      cfg.Currency,
		SuccessURL:    cfg.SuccessURL,
		CancelURL:     cfg.CancelURL,
		SessionTTL:    cfg.SessionTTL,
	})

	var publisher port.EventPublisher
	var amqpPublisher *messaging.Publisher
	if cfg.AMQPURL != "" {
		conn, ch, err := messaging.SetupConn(cfg.AMQPURL, logger)
		if err != nil {
			logger.Fatalf("failed to connect rabbitmq: %v", err)
		}
		amqpPublisher = messaging.NewPublisher(conn, ch)
		publisher = amqpPublisher
		logger.Println("connected to rabbitmq")
	} else {
		logger.Println("AMQP_URL not set, event publishing disabled")
	}

	// Initialize services
	catalogService := service.NewCatalogService(mysqlAdapter, redisAdapter, cfg.CatalogCacheTTL, logger)
	cartService := service.NewCartService(mysqlAdapter, logger, cfg.UpstreamTimeout)
	couponService := service.NewCouponService(mysqlAdapter, cfg.UpstreamTimeout)
	checkoutService := service.NewCheckoutService(cartService, couponService, redisAdapter, gateway, logger, cfg.UpstreamTimeout)
	fulfillmentService := service.NewFulfillmentService(mysqlAdapter, redisAdapter, gateway, publisher, logger, cfg.UpstreamTimeout)

	// Sync stock to Redis
	seeded, err := catalogService.SeedStock(ctx)
	if err != nil {
		logger.Fatalf("failed to seed stock: %v", err)
	}
	logger.Printf("seeded stock counters for %d products", seeded)

	services := handler.Services{
		Catalog:  catalogService,
		Carts:    cartService,
		Coupons:  couponService,
		Checkout: checkoutService,
		Webhooks: fulfillmentService,
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer(grpc.ForceServerCodec(handler.JSONCodec{}))
	handler.RegisterCheckoutServiceServer(grpcServer, handler.NewGRPCHandler(services, logger))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatalf("failed to listen: %v", err)
	}

	go func() {
		logger.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Printf("gRPC server error: %v", err)
		}
	}()

	// Initialize HTTP server
	guest := handler.GuestIdentity(handler.GuestCookieConfig{
		Name:   cfg.GuestCookieName,
		TTL:    cfg.GuestCookieTTL,
		Secure: cfg.GuestCookieSecure,
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(handler.NewHTTPHandler(services, logger), guest),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Printf("HTTP server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Println("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Println("gRPC server stopped")

	// Close connections
	if amqpPublisher != nil {
		amqpPublisher.Close()
	}
	rdb.Close()
	db.Close()
	logger.Println("connections closed")
}
