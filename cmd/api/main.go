package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/tableflow/order-service/internal/api/http"
	"github.com/tableflow/order-service/internal/api/http/handlers"
	"github.com/tableflow/order-service/internal/auth"
	"github.com/tableflow/order-service/internal/billing"
	"github.com/tableflow/order-service/internal/config"
	"github.com/tableflow/order-service/internal/events"
	"github.com/tableflow/order-service/internal/notify"
	"github.com/tableflow/order-service/internal/observability"
	"github.com/tableflow/order-service/internal/persistence"
	"github.com/tableflow/order-service/internal/repository"
	"github.com/tableflow/order-service/internal/service"
	"github.com/tableflow/order-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	orderRepo := repository.NewOrderRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	subscriptionRepo := repository.NewPushSubscriptionRepository(pool)

	hub := auth.NewSessionHub()
	relay := auth.NewRedisSessionRelay(redis.Handle(), cfg.Redis.SessionChannel, hub, logger)
	go relay.Run(ctx)

	revocations := auth.NewRedisRevocationStore(redis.Handle())
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Verifications:     auth.NewRedisVerificationStore(redis.Handle()),
		Revocations:       revocations,
		Sessions:          relay,
		Dispatcher:        dispatcher,
		Logger:            logger,
	})
	orderService := service.NewOrderService(orderRepo, userRepo, dispatcher, logger)

	renderer, err := billing.NewHTMLRenderer(billing.NewAmountFormatter(cfg.Billing.Locale))
	if err != nil {
		logger.Fatal("failed to load bill template", zap.Error(err))
	}
	invoiceService := service.NewInvoiceService(service.InvoiceDependencies{
		Orders:      orderService,
		Users:       userRepo,
		Renderer:    renderer,
		Printer:     billing.NewPDFPrinter(cfg.Billing.ChromePath, cfg.Billing.RenderTimeout),
		Capacity:    cfg.Billing.PageCapacity,
		CompanyName: cfg.Billing.CompanyName,
		Logger:      logger,
	})

	var sender notify.PushSender
	if cfg.Notification.PushEnabled() {
		sender = notify.NewWebPushSender(cfg.Notification, logger)
	} else {
		logger.Warn("VAPID keys not configured; push notifications disabled")
	}
	pushService := service.NewPushService(service.PushDependencies{
		Subscriptions:  subscriptionRepo,
		Sender:         sender,
		VAPIDPublicKey: cfg.Notification.VAPIDPublicKey,
		Icon:           cfg.Notification.PushIcon,
		Badge:          cfg.Notification.PushBadge,
		Metrics:        metrics,
		Logger:         logger,
	})

	var mailer notify.Mailer = notify.NopMailer{}
	if cfg.Notification.EmailEnabled() {
		mailer = notify.NewSMTPMailer(cfg.Notification)
	} else {
		logger.Warn("NOTIFY_SMTP_HOST not provided; email notifications disabled")
	}
	waitNotifications := worker.StartNotificationWorker(service.NewNotificationService(service.NotificationDependencies{
		Dispatcher: dispatcher,
		Push:       pushService,
		Mailer:     mailer,
		Users:      userRepo,
		Logger:     logger,
		Config:     cfg.Notification,
		PublicURL:  cfg.App.PublicURL,
	}))

	stopCleanup := func() {}
	if pool != nil {
		job := worker.NewCleanupJob(subscriptionRepo, resetRepo, cfg.Notification.StaleAfter, logger)
		stopCleanup, err = worker.StartCleanupScheduler(ctx, cfg.Notification.CleanupSchedule, job, logger)
		if err != nil {
			logger.Fatal("failed to schedule cleanup", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService, cfg.Auth.ExposeResetTokens),
		Access:         handlers.NewAccessHandler(auth.DefaultRouteTable(), hub, logger),
		Orders:         handlers.NewOrdersHandler(orderService),
		Invoices:       handlers.NewInvoicesHandler(invoiceService),
		Push:           handlers.NewPushHandler(pushService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), userRepo, revocations, logger),
		Gate:           auth.NewGatekeeper(metrics),
		LoginLimiter:   auth.NewLoginLimiter(cfg.Auth.LoginRatePerSecond, cfg.Auth.LoginBurst),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	stopCleanup()
	waitNotifications()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
