package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/rmonteiro-dev/stocktrades/internal/config"
	"github.com/rmonteiro-dev/stocktrades/internal/database"
	"github.com/rmonteiro-dev/stocktrades/internal/ingestion"
	"github.com/rmonteiro-dev/stocktrades/internal/logger"
	"github.com/rmonteiro-dev/stocktrades/internal/service"
)

func main() {
	dir := flag.String("dir", "./data", "directory containing stocktrade csv files")
	flag.Parse()

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
	if err := dbManager.CreateFileRecordsTable(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}

	stockTradeService := service.NewStockTradeService(dbManager)
	loader := ingestion.NewLoader(dbManager, stockTradeService, cfg.LoaderBatchSize)

	if err := loader.Run(ctx, *dir); err != nil {
		log.Fatal().Err(err).Msg("load failed")
	}

	log.Info().Msg("load finished")
}
