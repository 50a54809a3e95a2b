package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/seu-repo/sigec-posto/internal/adapter/http/fiber/handlers"
	"github.com/seu-repo/sigec-posto/internal/adapter/http/fiber/middleware"
	"github.com/seu-repo/sigec-posto/internal/observability/telemetry"
	"github.com/seu-repo/sigec-posto/internal/service/health"
	"github.com/seu-repo/sigec-posto/internal/service/offload"
	"github.com/seu-repo/sigec-posto/internal/service/reading"
	"github.com/seu-repo/sigec-posto/internal/service/shift"
	"github.com/seu-repo/sigec-posto/internal/service/topology"
	"github.com/seu-repo/sigec-posto/pkg/config"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// 2. Initialize Logger
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	logger.Info("Starting SIGEC Posto",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.OpenTelemetry.ServiceName, cfg.App.Version,
			cfg.OpenTelemetry.Jaeger.Endpoint, cfg.OpenTelemetry.Jaeger.SamplerParam)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	healthService := health.NewService(cfg.App.Version, logger)

	// 4. Storage, cache and events
	repos, err := openStorage(cfg, logger, healthService)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer repos.close()

	summaryCache := openCache(cfg, logger, healthService)
	defer summaryCache.Close()

	messageQueue := openQueue(cfg, logger, healthService)
	if messageQueue != nil {
		defer messageQueue.Close()
	}

	// 5. Services
	manager := topology.NewManager(repos.audit, summaryCache, messageQueue, logger,
		topology.WithSummaryTTL(cfg.Cache.TopologySummaryTTL))
	topologyService := topology.NewPersistent(manager, repos.topology, logger)
	lifecycle := shift.NewLifecycle(repos.shifts, reading.NewStore(logger), topologyService, messageQueue, logger)
	manager.UseOpenShiftLookup(lifecycle)
	offloadService := offload.NewService(repos.offloads, topologyService, messageQueue, logger)

	// 6. HTTP server
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ServerHeader:          cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		IdleTimeout:           cfg.HTTP.IdleTimeout,
		ErrorHandler:          middleware.ErrorHandler(logger),
		// Params and headers are kept past the handler as map keys and
		// stored fields, so they must not alias the request buffer.
		Immutable: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	if cfg.CORS.Enabled {
		corsHandler, err := middleware.NewCORS(cfg.CORS)
		if err != nil {
			logger.Fatal("Invalid CORS configuration", zap.Error(err))
		}
		app.Use(corsHandler)
	}

	health.NewFiberHandler(healthService).RegisterRoutes(app)

	if cfg.Prometheus.Enabled {
		metricsHandler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			metricsHandler(c.Context())
			return nil
		})
	}

	v1 := app.Group("/api/v1", middleware.ActorRequired())
	if cfg.CircuitBreaker.Enabled {
		v1.Use(middleware.CircuitBreaker(breakerSettings(cfg.CircuitBreaker, "sigec-posto-api"), logger))
	}
	handlers.RegisterRoutes(v1,
		handlers.NewTopologyHandler(topologyService, logger),
		handlers.NewShiftHandler(lifecycle, logger),
		handlers.NewOffloadHandler(offloadService, logger),
	)

	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}
