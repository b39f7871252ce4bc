package main

import (
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/config"
	"github.com/md-rashed-zaman/barberbook/libs/grpcx"
	"github.com/md-rashed-zaman/barberbook/libs/httpx"
	"github.com/md-rashed-zaman/barberbook/libs/kafkax"
	"github.com/md-rashed-zaman/barberbook/libs/kv"
	otelx "github.com/md-rashed-zaman/barberbook/libs/otel"
	"github.com/md-rashed-zaman/barberbook/libs/runtime"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/events"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/workflow"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	port, err := config.RequiredPort("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	opTimeout, err := config.Duration("STORE_OP_TIMEOUT", 5*time.Second)
	if err != nil {
		panic(err)
	}
	redisDB, err := config.Int("REDIS_DB", 0)
	if err != nil {
		panic(err)
	}
	rps, err := config.Int("RATE_LIMIT_RPS", 5)
	if err != nil {
		panic(err)
	}
	burst, err := config.Int("RATE_LIMIT_BURST", 10)
	if err != nil {
		panic(err)
	}
	loc, err := time.LoadLocation(config.String("SHOP_TIMEZONE", "Local"))
	if err != nil {
		panic(err)
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() { _ = runtime.Shutdown(5*time.Second, otelShutdown) }()
	}

	backendName := config.String("STORE_BACKEND", kv.BackendFile)
	backend, err := kv.Open(ctx, kv.Config{
		Backend:       backendName,
		Dir:           config.String("STORE_FILE_DIR", "./data"),
		RedisAddr:     config.String("REDIS_ADDR", ""),
		RedisPassword: config.String("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		DatabaseURL:   config.String("DATABASE_URL", ""),
	})
	if err != nil {
		logger.Error("slot backend init failed", "backend", backendName, "err", err)
		os.Exit(1)
	}
	defer backend.Close()

	store := storage.New(backend,
		storage.WithSlot(config.String("STORE_SLOT", storage.DefaultSlot)),
		storage.WithLogger(logger),
		storage.WithOpTimeout(opTimeout),
	)

	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	publisher := events.NewPublisher(brokers, logger)
	defer publisher.Close()
	notifier := events.NewNotifier(publisher, config.String("KAFKA_TOPIC_PREFIX", events.DefaultTopicPrefix), logger)

	booking := workflow.New(store, logger,
		workflow.WithLocation(loc),
		workflow.WithConfirmer(notifier),
	)
	appointments := handlers.NewAppointmentHandler(store, booking, notifier, logger, loc)

	checks := []runtime.ReadyCheck{{Name: "store", Check: store.Ping}}
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	appointments.Register(mux)

	limiter := httpx.NewRateLimiter(float64(rps), burst)
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecovery(logger),
		httpx.WithCORS(config.List("CORS_ALLOWED_ORIGINS")),
		limiter.Middleware(),
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(15*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var grpcSrv *grpc.Server
	if grpcPort != "" {
		lis, err := net.Listen("tcp", ":"+grpcPort)
		if err != nil {
			logger.Error("grpc listen failed", "err", err)
			os.Exit(1)
		}
		grpcSrv = grpc.NewServer(grpcx.ServerOptions()...)
		healthSvc := grpcserver.NewHealth(store.Ping, logger, 10*time.Second)
		healthSvc.Register(grpcSrv)
		go healthSvc.Run(ctx)
		go func() {
			logger.Info("grpc server starting", "addr", lis.Addr().String())
			if err := grpcSrv.Serve(lis); err != nil {
				logger.Error("grpc server error", "err", err)
			}
		}()
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "store_backend", backendName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	if err := runtime.Shutdown(10*time.Second, srv.Shutdown); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	if grpcSrv != nil {
		stopGRPC(grpcSrv, 5*time.Second)
	}
	logger.Info("booking service stopped")
}

// stopGRPC drains in-flight RPCs, forcing a stop after timeout.
func stopGRPC(s *grpc.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.Stop()
	}
}
