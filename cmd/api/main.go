// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/inventory"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/payment"
	"github.com/your-org/storefront/internal/domain/pricing"
	"github.com/your-org/storefront/internal/domain/product"
	"github.com/your-org/storefront/internal/domain/returns"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront/internal/infrastructure/database/redis"
	"github.com/your-org/storefront/internal/interfaces/http"
	"github.com/your-org/storefront/internal/interfaces/http/handlers"
	"github.com/your-org/storefront/internal/interfaces/http/routes"
	"github.com/your-org/storefront/internal/pkg/auth"
	"github.com/your-org/storefront/internal/pkg/email"
	"github.com/your-org/storefront/internal/pkg/events"
	"github.com/your-org/storefront/internal/pkg/logger"
	"github.com/your-org/storefront/internal/pkg/pdf"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg := logger.New(cfg)
	logg.WithFields(logrus.Fields{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Infof("Starting %s", cfg.App.Name)

	if err := run(cfg, logg); err != nil {
		logg.WithError(err).Fatal("Server stopped with error")
	}
	logg.Info("Server exited")
}

// run owns every connection so its deferred closes finish before main exits
func run(cfg *config.Config, logg *logrus.Logger) error {
	db, err := postgres.NewConnection(cfg, logg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, logg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db.GetDB(), logg)
	if err := migration.RunAutoMigrations(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		logg.WithError(err).Warn("Index creation failed")
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			logg.WithError(err).Warn("Data seeding failed")
		}
		if err := migration.GetTableInfo(); err != nil {
			logg.WithError(err).Warn("Failed to read table info")
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaEnabled() {
		publisher = events.NewKafkaPublisher(cfg.External.Kafka.Brokers, cfg.External.Kafka.OrderEventsTopic, logg)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logg.WithError(err).Warn("Failed to close event publisher")
		}
	}()

	gormDB := db.GetDB()
	jwtManager := auth.NewJWTManager(cfg)
	passwordManager := auth.NewPasswordManager(cfg.Security.BcryptCost)

	catalog := product.NewService(gormDB)
	pricer := pricing.NewResolver(catalog, time.Now)
	ledger := inventory.NewLedger(gormDB, logg)
	carts := cart.NewService(gormDB, catalog, pricer, logg)
	coupons := coupon.NewService(gormDB, coupon.NewRedisStore(redisClient.GetClient(), cfg.Storefront.CouponTTL), time.Now, logg)
	orders := order.NewService(gormDB, ledger, publisher, logg)
	returnsService := returns.NewService(gormDB, ledger, orders, logg)
	users := user.NewService(gormDB, passwordManager, jwtManager)
	gateway := payment.NewStripeGateway(cfg.External.Stripe.SecretKey, cfg.External.Stripe.WebhookSecret)

	checkoutService := checkout.NewService(checkout.Deps{
		DB:       gormDB,
		Carts:    carts,
		Pricer:   pricer,
		Ledger:   ledger,
		Orders:   orders,
		Coupons:  coupons,
		Gateway:  gateway,
		Notifier: email.NewEmailService(cfg, logg),
		Logger:   logg,
		BaseURL:  cfg.Storefront.BaseURL,
		Currency: cfg.Storefront.Currency,
	})

	server := http.NewServer(cfg, logg, http.Options{
		Handlers: &routes.Handlers{
			Auth:      handlers.NewAuthHandler(users, carts, logg),
			Product:   handlers.NewProductHandler(catalog, pricer),
			Cart:      handlers.NewCartHandler(carts, coupons),
			Checkout:  handlers.NewCheckoutHandler(checkoutService, cfg.Storefront.BaseURL, logg),
			Payment:   handlers.NewPaymentHandler(checkoutService, gateway, cfg.Storefront.BaseURL, logg),
			Order:     handlers.NewOrderHandler(orders, returnsService),
			Invoice:   handlers.NewInvoiceHandler(orders, pdf.NewService(cfg), logg),
			Inventory: handlers.NewInventoryHandler(ledger),
		},
		JWTManager:  jwtManager,
		RateCounter: redisClient,
		Checks: map[string]http.HealthChecker{
			"database": db,
			"redis":    redisClient,
		},
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logg.WithField("signal", sig.String()).Info("Shutdown signal received")
	case err := <-serverErr:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		logg.WithError(err).Error("Server forced to shutdown")
	}
	return nil
}
