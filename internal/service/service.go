// Package service holds the business rules for stocktrade records:
// creation validity, duplicate detection on bulk inserts and partial-update
// reconciliation. All business error conditions originate here.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/rmonteiro-dev/stocktrades/internal/database"
	"github.com/rmonteiro-dev/stocktrades/internal/models"
)

type StockTradeService struct {
	dbManager database.DBManager
}

func NewStockTradeService(dbManager database.DBManager) *StockTradeService {
	return &StockTradeService{dbManager: dbManager}
}

// List returns one page of stocktrade records. The page number is 1-based
// from the caller's perspective; 0 and 1 both select the first page. An
// empty page is an error, not an empty result.
func (s *StockTradeService) List(ctx context.Context, pageNo, pageSize int) ([]models.StockTrade, error) {
	if pageNo > 0 {
		pageNo--
	}

	trades, err := s.dbManager.GetStockTradesPage(ctx, pageNo*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("error fetching stocktrades page: %w", err)
	}

	if len(trades) == 0 {
		log.Error().Int("pageNo", pageNo).Msg("stocktrade records are not available")
		return nil, &NotFoundError{Detail: "stocktrade records are not available"}
	}

	return trades, nil
}

func (s *StockTradeService) Get(ctx context.Context, id int) (*models.StockTrade, error) {
	trade, err := s.dbManager.GetStockTrade(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNoRecord) {
			return nil, &NotFoundError{Detail: fmt.Sprintf("stocktrade record with id %d is not available", id)}
		}
		return nil, fmt.Errorf("error fetching stocktrade %d: %w", id, err)
	}

	return trade, nil
}

// Create inserts a batch of stocktrade records. The first invalid record
// fails the whole batch immediately. Records whose id already exists are
// excluded from the insert set and reported together after the remaining
// records have been persisted; that partial insert is not rolled back.
func (s *StockTradeService) Create(ctx context.Context, trades []*models.StockTrade) error {
	inserts := []*models.StockTrade{}
	duplicates := []int{}

	for _, trade := range trades {
		if !trade.IsValid() {
			log.Error().Int("id", trade.ID).Msg("mandatory fields are missing on stocktrade record")
			return &InvalidRecordError{
				Detail: fmt.Sprintf("stocktrade record with id %d doesn't have the required fields", trade.ID),
			}
		}

		_, err := s.dbManager.GetStockTrade(ctx, trade.ID)
		switch {
		case err == nil:
			duplicates = append(duplicates, trade.ID)
		case errors.Is(err, database.ErrNoRecord):
			inserts = append(inserts, trade)
		default:
			return fmt.Errorf("error probing stocktrade %d: %w", trade.ID, err)
		}
	}

	if err := s.dbManager.SaveStockTrades(ctx, inserts); err != nil {
		return fmt.Errorf("error saving stocktrades: %w", err)
	}

	if len(duplicates) != 0 {
		return &DuplicateRecordError{
			Detail: fmt.Sprintf("stocktrade record(s) with id(s) %v is/are already available", duplicates),
			IDs:    duplicates,
		}
	}

	return nil
}

// Upsert inserts or fully replaces the record with the given id. The path
// id always wins over the body id. A record that does not exist yet must be
// complete; an existing record is replaced without re-validation.
func (s *StockTradeService) Upsert(ctx context.Context, id int, trade *models.StockTrade) error {
	trade.ID = id

	_, err := s.dbManager.GetStockTrade(ctx, id)
	if errors.Is(err, database.ErrNoRecord) {
		if !trade.IsValid() {
			return &InvalidRecordError{
				Detail: fmt.Sprintf("stocktrade record with id %d doesn't have the required fields", id),
			}
		}
	} else if err != nil {
		return fmt.Errorf("error probing stocktrade %d: %w", id, err)
	}

	if err := s.dbManager.SaveStockTrade(ctx, trade); err != nil {
		return fmt.Errorf("error saving stocktrade %d: %w", id, err)
	}

	return nil
}

// Patch merges the set fields of patch onto the existing record and
// persists the result. Volume is never merged.
func (s *StockTradeService) Patch(ctx context.Context, id int, patch *models.StockTrade) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	existing.ApplyPartial(patch)

	if err := s.dbManager.SaveStockTrade(ctx, existing); err != nil {
		return fmt.Errorf("error saving stocktrade %d: %w", id, err)
	}

	return nil
}

func (s *StockTradeService) Delete(ctx context.Context, id int) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.dbManager.DeleteStockTrade(ctx, id); err != nil {
		return fmt.Errorf("error deleting stocktrade %d: %w", id, err)
	}

	return nil
}
