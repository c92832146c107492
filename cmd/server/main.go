package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/storefront-bot/internal/adapter/handler"
	"github.com/rl1809/storefront-bot/internal/adapter/panel"
	"github.com/rl1809/storefront-bot/internal/adapter/storage"
	"github.com/rl1809/storefront-bot/internal/config"
	"github.com/rl1809/storefront-bot/internal/core/domain"
	"github.com/rl1809/storefront-bot/internal/core/service"
	"github.com/rl1809/storefront-bot/internal/logging"
	"github.com/rl1809/storefront-bot/internal/port"
)

const journalWriteTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		logging.NewJSON(os.Stderr, "info").Error(context.Background(), "invalid configuration", "error", err)
		os.Exit(2)
	}
	logger := logging.NewJSON(os.Stdout, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error(context.Background(), "server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Pending orders and confirm locks
	var (
		ledger port.OrderLedger = storage.NewMemoryLedger()
		locker port.KeyLocker   = storage.NewMemoryLocker()
		rdb    *redis.Client
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: 20,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		defer rdb.Close()
		redisAdapter := storage.NewRedisAdapter(rdb, logger)
		ledger, locker = redisAdapter, redisAdapter
		logger.Info(ctx, "connected to redis", "addr", cfg.RedisAddr)
	} else {
		logger.Info(ctx, "using in-memory order ledger")
	}

	// Order journal
	var journal port.OrderJournal = storage.NewLogJournal(logger)
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return err
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		defer db.Close()

		if err := db.PingContext(ctx); err != nil {
			return err
		}
		mysqlAdapter := storage.NewMySQLAdapter(db)
		if err := mysqlAdapter.EnsureSchema(ctx); err != nil {
			return err
		}
		journal = mysqlAdapter
		logger.Info(ctx, "connected to mysql")
	}

	panelClient, err := panel.NewClient(panel.ClientConfig{
		BaseURL:    cfg.PanelBaseURL,
		AdminToken: cfg.PanelAdminToken,
		Timeout:    cfg.PanelRequestTimeout,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	logger.Info(ctx, "authorized on telegram", "bot", bot.Self.UserName)

	messenger := handler.NewTelegramMessenger(bot)
	guard := service.NewOperatorGuard(cfg.OperatorIDs)

	orderService := service.NewOrderService(service.Dependencies{
		Ledger:      ledger,
		Locker:      locker,
		Provisioner: panelClient,
		Messenger:   messenger,
		Journal:     journal,
		Guard:       guard,
		Logger:      logger,
		Currency:    cfg.Payment.Currency,
	}, cfg.JournalQueueSize)
	storefront := service.NewStorefront(orderService, panelClient, messenger, guard, cfg.Payment, logger)

	// Start journal workers
	var wg sync.WaitGroup
	for i := 0; i < cfg.JournalWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, orderService.GetEventQueue(), journal, logger)
		}(i)
	}
	logger.Info(ctx, "started journal workers", "count", cfg.JournalWorkers)

	// Stale order sweeper
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	if cfg.PendingTTL > 0 {
		go orderService.RunSweeper(sweepCtx, cfg.PendingTTL, cfg.SweepInterval)
		logger.Info(ctx, "pending order expiry enabled", "ttl", cfg.PendingTTL.String())
	}

	// Start gRPC server
	var grpcServer *grpc.Server
	var healthServer *health.Server
	if cfg.AdminGRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.AdminGRPCAddr)
		if err != nil {
			return err
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(handler.AuthInterceptor(cfg.AdminToken, logger)))
		handler.RegisterOrderAdminServer(grpcServer, handler.NewGRPCHandler(orderService, logger))
		healthServer = health.NewServer()
		grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
		healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

		go func() {
			logger.Info(ctx, "gRPC server listening", "addr", cfg.AdminGRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error(ctx, "gRPC server error", "error", err)
			}
		}()
	}

	// Start HTTP server
	var httpServer *http.Server
	if cfg.AdminHTTPAddr != "" {
		httpServer = &http.Server{
			Addr:              cfg.AdminHTTPAddr,
			Handler:           handler.NewHTTPHandler(orderService, cfg.AdminToken, logger).Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info(ctx, "HTTP server listening", "addr", cfg.AdminHTTPAddr)
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "HTTP server error", "error", err)
			}
		}()
	}

	// Start telegram gateway
	gateway := handler.NewTelegramGateway(bot, storefront, cfg.TelegramWorkers, logger)
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	gatewayCtx, stopGateway := context.WithCancel(ctx)
	defer stopGateway()
	gatewayDone := make(chan struct{})
	go func() {
		defer close(gatewayDone)
		gateway.Run(gatewayCtx, bot.GetUpdatesChan(updateConfig))
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "shutting down")

	// Stop receiving updates and let in-flight handlers finish
	bot.StopReceivingUpdates()
	stopGateway()
	<-gatewayDone

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, "HTTP shutdown", "error", err)
		}
		logger.Info(ctx, "HTTP server stopped")
	}

	if grpcServer != nil {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		logger.Info(ctx, "gRPC server stopped")
	}

	stopSweep()

	// Close event queue and wait for journal workers
	orderService.Close()
	wg.Wait()
	logger.Info(ctx, "journal workers stopped")

	return nil
}

func workerLoop(id int, queue <-chan domain.OrderEvent, journal port.OrderJournal, logger logging.Logger) {
	logger = logger.With("worker", id)
	for event := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)

		if err := journal.Record(ctx, event); err != nil {
			logger.Error(ctx, "failed to journal event",
				"event_id", event.ID, "order_id", event.OrderID, "kind", string(event.Kind), "error", err)
		} else {
			logger.Debug(ctx, "journaled event", "event_id", event.ID, "kind", string(event.Kind))
		}

		cancel()
	}
}
