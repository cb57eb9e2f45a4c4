package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"tradehub/internal/auth"
	catalogdb "tradehub/internal/catalog/db"
	"tradehub/internal/config"
	"tradehub/internal/database/migrations"
	directorydb "tradehub/internal/directory/db"
	"tradehub/internal/kafka"
	"tradehub/internal/logger"
	"tradehub/internal/models"
	"tradehub/internal/order"
	orderdb "tradehub/internal/order/db"
	"tradehub/internal/order/order_api"
	orderredis "tradehub/internal/order/redis"
	"tradehub/internal/order/slip"
	"tradehub/internal/otp"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	dsn := cfg.Database.DSN
	if dsn == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	logger.Info("DATABASE", "PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Redis.Addr))

	return bunDB, redisClient
}

func watchStalePending(orderStore *orderdb.DB, logger *logger.Logger) {
	// Pending orders have no expiry; keep the backlog visible instead.
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for range ticker.C {
			count, err := orderStore.CountPendingOlderThan(time.Now().Add(-24 * time.Hour))
			if err != nil {
				logger.Error("ORDER", fmt.Sprintf("Failed to count stale pending orders: %v", err))
				continue
			}
			if count > 0 {
				logger.Warn("ORDER", fmt.Sprintf("%d pending order(s) older than 24h still holding stock", count))
			}
		}
	}()
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Order Ledger initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	}
	cfg := config.Load()

	ctx := context.Background()
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	if cfg.Database.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
		if err := runner.RunMigrations(); err != nil {
			logger.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
		}
		logger.Info("DATABASE", "Schema migrations applied")
	}

	var publisher order.KafkaPublisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()

		requiredTopics := []string{
			cfg.Kafka.Topics.OrderPlaced,
			cfg.Kafka.Topics.OrderCompleted,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, requiredTopics); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		}
		publisher = kafka.NewOrderEvents(producer, cfg.Kafka.Topics)
		logger.Info("KAFKA", "Kafka producer initialized successfully")

		// Tail completions into the delivery audit log.
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.OrderCompleted, cfg.Kafka.GroupID)
		defer consumer.Close()
		go consumer.Start(func(o models.Order) {
			logger.LogOrder("AUDIT", o.ID, fmt.Sprintf("delivery confirmed for item %s x%d", o.ItemID, o.Quantity))
		})
	} else {
		logger.Warn("KAFKA", "Kafka disabled, order events will not be published")
		publisher = kafka.NoopPublisher{}
	}

	orderStore := &orderdb.DB{Bun: bunDB}
	orderService := order.NewOrderService(
		orderStore,
		&catalogdb.DB{Bun: bunDB},
		&directorydb.DB{Bun: bunDB},
		orderredis.NewAttempts(redisClient),
		publisher,
		otp.NewIssuer(cfg.OTP.BcryptCost),
	)

	handler := &order_api.Handler{
		OrderService: orderService,
		Slip:         slip.NewGenerator(cfg.Slip.Secret),
		Logger:       logger,
	}

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware())
		handler.RegisterRoutes(r)
	})
	logger.Info("ROUTER", "Order routes registered under /orders")

	watchStalePending(orderStore, logger)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("Order Ledger running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "Order Ledger shutdown complete")
	}
}
