package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"agenda/internal/agenda"
	"agenda/internal/amqp"
	"agenda/internal/cli"
	apphttp "agenda/internal/http"
	applog "agenda/internal/log"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	opts := []agenda.Option{
		agenda.WithCacheTTL(cfg.CacheTTL),
		agenda.WithCacheMaxEntries(cfg.CacheMaxEntries),
	}

	// The Sheets export queue is optional; without it only the xlsx
	// download is offered.
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		opts = append(opts, agenda.WithPublisher(amqpClient))
		logger.Info("Google Sheets export queue enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("Google Sheets export disabled - no AMQP_URL provided")
	}

	a := agenda.New(repo, opts...)

	srv, err := apphttp.NewServer(":"+cfg.Port, a, logger)
	if err != nil {
		logger.Error("Failed to create HTTP server", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})
	go a.RunCacheJanitor(ctx, time.Minute)

	logger.Info("Starting agenda server",
		"port", cfg.Port,
		"database", cfg.SQLiteDBPath,
		"cache_ttl", cfg.CacheTTL.String(),
		"sheets_export", a.SheetsExportEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
