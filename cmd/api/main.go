package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/rmonteiro-dev/stocktrades/internal/config"
	"github.com/rmonteiro-dev/stocktrades/internal/database"
	"github.com/rmonteiro-dev/stocktrades/internal/logger"
	"github.com/rmonteiro-dev/stocktrades/internal/server"
	"github.com/rmonteiro-dev/stocktrades/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using environment variables")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("failed to configure logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to the database")
	}
	defer dbpool.Close()

	dbManager := database.NewPostgresDBManager(dbpool)
	if err := dbManager.CreateStockTradesTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}

	stockTradeService := service.NewStockTradeService(dbManager)
	handler := server.NewStockTradeHandler(stockTradeService, cfg.DefaultPageSize)

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      server.SetupRoutes(handler),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
