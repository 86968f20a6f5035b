// Command lendingd runs the book lending HTTP service.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askard/lendingstore-go/app/config"
	"github.com/askard/lendingstore-go/app/handlers"
	"github.com/askard/lendingstore-go/lendingstore/oteladapters"
	"github.com/askard/lendingstore-go/lendingstore/postgresengine"
	"github.com/askard/lendingstore-go/lendingstore/promadapters"
	"github.com/askard/lendingstore-go/report"
)

func main() {
	config.LoadDotEnv()
	serverConfig := config.LoadServerConfig()

	store, err := buildLendingStore(serverConfig)
	if err != nil {
		log.Fatalf("Failed to build lending store: %v", err)
	}

	app := setupFiberApp()

	lendingHandler := handlers.NewLendingHandler(store, report.NewLoanReportExporter())
	catalogHandler := handlers.NewCatalogHandler(store)
	borrowerHandler := handlers.NewBorrowerHandler(store)

	handlers.RegisterRoutes(app, lendingHandler, catalogHandler, borrowerHandler, store)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down lending service")
		if shutdownErr := app.Shutdown(); shutdownErr != nil {
			log.Printf("Shutdown error: %v", shutdownErr)
		}
	}()

	log.Printf("Lending service listening on :%s", serverConfig.Port)

	if err = app.Listen(":" + serverConfig.Port); err != nil {
		log.Fatalf("Server startup error: %v", err)
	}
}

func buildLendingStore(serverConfig config.ServerConfig) (*postgresengine.LendingStore, error) {
	options := []postgresengine.Option{
		postgresengine.WithLockTimeout(serverConfig.LockTimeout),
		postgresengine.WithContextualLogger(buildLogger(serverConfig.LogLevel)),
		postgresengine.WithMetrics(promadapters.NewMetricsCollector(prometheus.DefaultRegisterer)),
	}

	switch serverConfig.AdapterType {
	case "sql.db":
		return postgresengine.NewLendingStoreFromSQLDB(config.PostgresSQLDBConfig(), options...)
	case "sqlx.db":
		return postgresengine.NewLendingStoreFromSQLX(config.PostgresSQLXConfig(), options...)
	default:
		pool, err := pgxPool()
		if err != nil {
			return nil, err
		}

		return postgresengine.NewLendingStoreFromPGXPool(pool, options...)
	}
}

func pgxPool() (*pgxpool.Pool, error) {
	return pgxpool.NewWithConfig(context.Background(), config.PostgresPGXPoolConfig())
}

func buildLogger(level string) *oteladapters.SlogBridgeLogger {
	slogLevel := slog.LevelInfo
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel})

	return oteladapters.NewSlogBridgeLoggerWithHandler(handler)
}

func setupFiberApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     "Lending Service v1.0",
		JSONEncoder: jsoniter.Marshal,
		JSONDecoder: jsoniter.Unmarshal,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))

	return app
}
