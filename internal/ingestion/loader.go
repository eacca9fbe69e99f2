// Package ingestion loads historical stocktrade CSV files through the
// service layer, with file-checksum idempotency so re-running the loader
// never re-inserts a file that already went through.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/rmonteiro-dev/stocktrades/internal/database"
	"github.com/rmonteiro-dev/stocktrades/internal/models"
	"github.com/rmonteiro-dev/stocktrades/internal/parser"
	"github.com/rmonteiro-dev/stocktrades/internal/service"
	"github.com/rmonteiro-dev/stocktrades/pkg/checksum"
)

// file_records statuses
const (
	StatusDone           = "DONE"
	StatusDoneWithErrors = "DONE_WITH_ERRORS"
	StatusFatal          = "FATAL"
)

// TradeCreator is the slice of the service layer the loader needs. Going
// through the service keeps the bulk-insert validation and duplicate policy
// identical to the HTTP path.
type TradeCreator interface {
	Create(ctx context.Context, trades []*models.StockTrade) error
}

type Loader struct {
	dbManager database.DBManager
	creator   TradeCreator
	batchSize int
}

func NewLoader(dbManager database.DBManager, creator TradeCreator, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Loader{dbManager: dbManager, creator: creator, batchSize: batchSize}
}

// Run loads every *.csv file under dir, in name order.
func (l *Loader) Run(ctx context.Context, dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return fmt.Errorf("error scanning %s for csv files: %w", dir, err)
	}
	if len(files) == 0 {
		log.Warn().Str("dir", dir).Msg("no csv files found")
		return nil
	}
	sort.Strings(files)

	for _, file := range files {
		if err := l.ProcessFile(ctx, file); err != nil {
			return err
		}
	}

	return nil
}

// ProcessFile loads a single CSV file. Files whose checksum is already
// recorded as processed are skipped. Row-level failures and duplicate ids
// are collected on the file record; only unreadable files or store failures
// abort the run.
func (l *Loader) ProcessFile(ctx context.Context, filePath string) error {
	sum, err := checksum.GetFileChecksum(filePath)
	if err != nil {
		return err
	}

	processed, err := l.dbManager.IsFileAlreadyProcessed(ctx, sum)
	if err != nil {
		return err
	}
	if processed {
		log.Info().Str("file", filePath).Msg("file already processed, skipping")
		return nil
	}

	fileID, err := l.dbManager.InsertFileRecord(ctx, filepath.Base(filePath), sum)
	if err != nil {
		return err
	}

	trades, rowErrors, err := parser.ParseFile(filePath)
	if err != nil {
		if statusErr := l.dbManager.UpdateFileStatus(ctx, fileID, StatusFatal, []string{err.Error()}); statusErr != nil {
			log.Error().Err(statusErr).Int("fileID", fileID).Msg("failed to record fatal file status")
		}
		return fmt.Errorf("error parsing %s: %w", filePath, err)
	}

	for start := 0; start < len(trades); start += l.batchSize {
		end := start + l.batchSize
		if end > len(trades) {
			end = len(trades)
		}

		err := l.creator.Create(ctx, trades[start:end])
		var duplicate *service.DuplicateRecordError
		if errors.As(err, &duplicate) {
			// the fresh records of the batch were persisted anyway
			rowErrors = append(rowErrors, duplicate)
			continue
		}
		if err != nil {
			if statusErr := l.dbManager.UpdateFileStatus(ctx, fileID, StatusFatal, []string{err.Error()}); statusErr != nil {
				log.Error().Err(statusErr).Int("fileID", fileID).Msg("failed to record fatal file status")
			}
			return fmt.Errorf("error inserting records from %s: %w", filePath, err)
		}
	}

	status := StatusDone
	details := make([]string, 0, len(rowErrors))
	if len(rowErrors) > 0 {
		status = StatusDoneWithErrors
		for _, rowErr := range rowErrors {
			details = append(details, rowErr.Error())
		}
	}

	if err := l.dbManager.UpdateFileStatus(ctx, fileID, status, details); err != nil {
		return err
	}

	log.Info().
		Str("file", filePath).
		Int("records", len(trades)).
		Int("errors", len(rowErrors)).
		Str("status", status).
		Msg("file processed")

	return nil
}
