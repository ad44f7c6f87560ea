package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-holestpay/app/controller"
	"github.com/vibast-solutions/ms-go-holestpay/app/entity"
	"github.com/vibast-solutions/ms-go-holestpay/app/events"
	holestpaygrpc "github.com/vibast-solutions/ms-go-holestpay/app/grpc"
	"github.com/vibast-solutions/ms-go-holestpay/app/metrics"
	"github.com/vibast-solutions/ms-go-holestpay/app/provider"
	"github.com/vibast-solutions/ms-go-holestpay/app/repository"
	"github.com/vibast-solutions/ms-go-holestpay/app/service"
	"github.com/vibast-solutions/ms-go-holestpay/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the HolestPay service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// application holds the wired services shared by serve and the job commands.
type application struct {
	cfg        *config.Config
	db         *sql.DB
	registry   *prometheus.Registry
	locks      *service.OrderLockManager
	shipping   *service.ShippingMethodService
	posConfig  *service.PosConfigurationService
	sync       *service.OrderSyncService
	dispatcher *service.ResultDispatcher
	signing    *service.PaymentSigningService
	orderInit  *service.OrderInitializer
}

type orderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *entity.OrderEvent) error
	Close() error
}

func runServe(_ *cobra.Command, _ []string) {
	app, cleanup := mustCreateApplication()
	defer cleanup()
	cfg := app.cfg

	paymentController := controller.NewPaymentController(app.signing, app.orderInit)
	webhookController := controller.NewWebhookController(app.dispatcher, app.posConfig)
	resultController := controller.NewResultController(app.dispatcher)
	internalController := controller.NewInternalController(app.dispatcher, app.sync, app.locks, app.shipping)
	grpcHolestPayServer := holestpaygrpc.NewServer(app.signing, app.dispatcher, app.posConfig, app.sync)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(httpControllers{
		payment:  paymentController,
		webhook:  webhookController,
		result:   resultController,
		internal: internalController,
	}, app.registry, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcHolestPayServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

type httpControllers struct {
	payment  *controller.PaymentController
	webhook  *controller.WebhookController
	result   *controller.ResultController
	internal *controller.InternalController
}

func setupHTTPServer(
	controllers httpControllers,
	registry *prometheus.Registry,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(ensureRequestID())

	e.GET("/health", controllers.payment.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	holestpay := e.Group("/holestpay")
	holestpay.POST("/webhook", controllers.webhook.HandleWebhook)
	holestpay.GET("/result", controllers.result.ShowResult)
	holestpay.POST("/result", controllers.result.ShowResult)
	holestpay.POST("/ajax/payment", controllers.payment.SignPayment)
	holestpay.POST("/ajax/createorder", controllers.payment.CreateOrder)

	internal := e.Group("/internal", internalAuthMiddleware.RequireInternalAccess(appServiceName))
	internal.GET("/orders/:uid", controllers.internal.GetOrder)
	internal.POST("/orders/:uid/sync", controllers.internal.SyncOrder)
	internal.GET("/locks/:uid", controllers.internal.GetLock)
	internal.GET("/shipping/methods", controllers.internal.ListShippingMethods)
	internal.GET("/shipping/methods/:id/quote", controllers.internal.QuoteShipping)

	return e
}

// ensureRequestID echoes the caller's request id, or assigns one. HolestPay
// never sends the header on webhooks and customer redirects.
func ensureRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				requestID = uuid.NewString()
				ctx.Request().Header.Set(echo.HeaderXRequestID, requestID)
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	holestPayServer *holestpaygrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			holestpaygrpc.RecoveryInterceptor(),
			holestpaygrpc.RequestIDInterceptor(),
			holestpaygrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	holestpaygrpc.RegisterHolestPayServiceServer(grpcSrv, holestPayServer)

	return grpcSrv, lis
}

func mustOpenDatabase(cfg *config.Config) *sql.DB {
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}
	return db
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustCreateApplication() (*application, func()) {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	orderRepo := repository.NewOrderRepository(db)
	lockRepo := repository.NewOrderLockRepository(db)
	posConfigRepo := repository.NewPosConfigurationRepository(db)
	shippingRepo := repository.NewShippingMethodRepository(db)
	storeConfigRepo := repository.NewStoreConfigRepository(db)

	signer, err := provider.NewSigner(provider.Credentials{
		MerchantSiteUID: cfg.HolestPay.MerchantSiteUID,
		SecretKey:       cfg.HolestPay.SecretKey,
	})
	if err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to initialize request signer")
	}
	holestPayClient := provider.NewClient(provider.ClientConfig{
		Environment: cfg.HolestPay.Environment,
		BaseURL:     cfg.HolestPay.BaseURL,
		Timeout:     cfg.HolestPay.SyncTimeout,
	})

	var publisher orderEventPublisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		logrus.Info("No Kafka brokers configured, order events are not published")
	}

	lockManager := service.NewOrderLockManager(lockRepo, cfg.Lock, m)
	shippingService := service.NewShippingMethodService(shippingRepo, storeConfigRepo)
	posConfigService := service.NewPosConfigurationService(posConfigRepo, shippingService, cfg.HolestPay)
	shippingService.SetPosConfigReader(posConfigService)

	syncService := service.NewOrderSyncService(orderRepo, holestPayClient, signer, posConfigService, cfg.HolestPay, m)
	dispatcher := service.NewResultDispatcher(orderRepo, lockManager, syncService, publisher, signer, cfg.Merge, m)

	app := &application{
		cfg:        cfg,
		db:         db,
		registry:   registry,
		locks:      lockManager,
		shipping:   shippingService,
		posConfig:  posConfigService,
		sync:       syncService,
		dispatcher: dispatcher,
		signing:    service.NewPaymentSigningService(signer),
		orderInit:  service.NewOrderInitializer(orderRepo, cfg.HolestPay),
	}

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close event publisher")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return app, cleanup
}
