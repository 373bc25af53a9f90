package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/config"
	"tally/internal/export"
	"tally/internal/log"
	"tally/internal/storage"
	"tally/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting tally-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository",
			log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	// Sheets export is optional. Without a spreadsheet the worker has no
	// destination and nothing to do.
	var sheet *export.SheetsClient
	if cfg.GoogleSpreadsheetID != "" {
		sheet, err = export.NewSheetsClient(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Google Sheets client initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var exportWorker *worker.ExportWorker
	if sheet != nil {
		exportWorker = worker.NewExportWorker(store, sheet, cfg.ExportBatchSize)

		// Catch up on rows created while the worker was down.
		logger.Info("Performing startup export sweep")
		if err := exportWorker.ProcessPending(ctx); err != nil {
			logger.Error("Startup export sweep failed", log.FieldError, err)
			// Keep running; the periodic sweep retries.
		}
	}

	if exportWorker != nil && cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		go func() {
			if err := amqpClient.ConsumeEvents(ctx, exportWorker.HandleEvent); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Event consumption failed", log.FieldError, err)
				}
				cancel()
			}
		}()
	} else {
		logger.Info("Skipping event consumption",
			"has_sheet", sheet != nil, "has_amqp", cfg.AMQPURL != "")
	}

	if exportWorker != nil {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()

		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := exportWorker.ProcessPending(ctx); err != nil {
						logger.Error("Periodic export sweep failed", log.FieldError, err)
					}
				}
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Worker stopped", log.FieldOperation, log.OpShutdown)
}
