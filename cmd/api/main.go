package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/httpserver"
	"storefront/internal/notify"
	"storefront/internal/paypal"
	cartrepo "storefront/internal/repository/cart"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	reviewrepo "storefront/internal/repository/review"
	tokenrepo "storefront/internal/repository/token"
	userrepo "storefront/internal/repository/user"
	cartsvc "storefront/internal/service/cart"
	fulfillmentsvc "storefront/internal/service/fulfillment"
	ordersvc "storefront/internal/service/order"
	paymentsvc "storefront/internal/service/payment"
	productsvc "storefront/internal/service/product"
	reviewsvc "storefront/internal/service/review"
	usersvc "storefront/internal/service/user"
)

func main() {
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)
	if err := config.LoadDotEnv(); err != nil {
		logger.Fatalf("load .env: %v", err)
	}
	cfg := config.FromEnv()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	pages := cache.NewRedisCache(rdb, cfg.PageCacheTTL)

	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)
	userRepo := userrepo.NewPostgres(dbpool, logger)
	tokenRepo := tokenrepo.NewPostgres(dbpool)
	reviewRepo := reviewrepo.NewPostgres(dbpool, logger)

	cartService := cartsvc.New(cartRepo, productRepo, pages, logger)
	userService := usersvc.New(userRepo, tokenRepo, cartService, logger)
	orderService := ordersvc.New(orderRepo, cartService, userRepo, logger)
	productService := productsvc.New(productRepo, reviewRepo, pages, logger)
	reviewService := reviewsvc.New(reviewRepo, pages, logger)
	fulfillmentService := fulfillmentsvc.New(orderRepo, logger)

	hooks, closeHooks := buildHooks(cfg, logger)
	defer closeHooks()

	var inflight sync.WaitGroup
	gateway := paypal.New(paypal.Config{
		BaseURL:      cfg.PayPalBaseURL,
		ClientID:     cfg.PayPalClientID,
		ClientSecret: cfg.PayPalClientSecret,
		Currency:     cfg.PayPalCurrency,
		Timeout:      cfg.GatewayTimeout,
	})
	paymentService := paymentsvc.New(orderRepo, gateway, hooks, logger,
		paymentsvc.WithGatewayTimeout(cfg.GatewayTimeout),
		paymentsvc.WithDispatch(func(f func()) {
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				f()
			}()
		}),
	)

	srv := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		ProductSvc:     productService,
		ReviewSvc:      reviewService,
		CartSvc:        cartService,
		UserSvc:        userService,
		OrderSvc:       orderService,
		PaymentSvc:     paymentService,
		FulfillmentSvc: fulfillmentService,
		Checks: []httpserver.Check{
			{Name: "db", Ping: dbpool.Ping},
			{Name: "redis", Ping: pages.Ping},
		},
		AllowOrigins:  cfg.AllowOrigins,
		SecureCookies: cfg.SecureCookies,
	})

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeTokens(purgeCtx, userService, cfg.TokenPurgeEvery, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
	stopPurge()
	waitHooks(&inflight, cfg.HookDispatchWait, logger)
}

// buildHooks assembles the post-settlement hooks whose backends are
// configured. The returned func releases their connections.
func buildHooks(cfg config.Config, logger *log.Logger) ([]paymentsvc.Hook, func()) {
	var (
		hooks   []paymentsvc.Hook
		closers []func()
	)
	if cfg.SendGridAPIKey != "" {
		receipts := notify.NewReceiptSender(cfg.SendGridAPIKey, cfg.SenderEmail, cfg.SenderName, logger)
		hooks = append(hooks, paymentsvc.Hook{Name: "receipt-email", Run: receipts.SendPurchaseReceipt})
	} else {
		logger.Printf("SENDGRID_API_KEY not set, purchase receipts disabled")
	}

	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatalf("connect amqp: %v", err)
		}
		publisher, err := notify.NewPublisher(conn)
		if err != nil {
			_ = conn.Close()
			logger.Fatalf("init publisher: %v", err)
		}
		hooks = append(hooks, paymentsvc.Hook{Name: "order-paid-event", Run: publisher.PublishOrderPaid})
		closers = append(closers, func() {
			_ = publisher.Close()
			_ = conn.Close()
		})
	} else {
		logger.Printf("AMQP_URL not set, order.paid events disabled")
	}

	return hooks, func() {
		for _, c := range closers {
			c()
		}
	}
}

func purgeTokens(ctx context.Context, users *usersvc.Service, every time.Duration, logger *log.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := users.PurgeExpiredTokens(ctx)
			if err != nil {
				logger.Printf("purge tokens error=%v", err)
				continue
			}
			if n > 0 {
				logger.Printf("purged %d expired tokens", n)
			}
		}
	}
}

// waitHooks gives in-flight post-settlement hooks a bounded time to finish.
func waitHooks(wg *sync.WaitGroup, limit time.Duration, logger *log.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(limit):
		logger.Printf("gave up waiting for settlement hooks after %s", limit)
	}
}
