package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rmonteiro-dev/stocktrades/internal/models"
)

// ErrNoRecord is returned when a requested stocktrade record does not exist.
var ErrNoRecord = errors.New("stocktrade record not found")

// DBManager is the persistence boundary for stocktrade records and the
// loader's file ledger.
type DBManager interface {
	CreateStockTradesTable(ctx context.Context) error
	CreateFileRecordsTable(ctx context.Context) error
	GetStockTrade(ctx context.Context, id int) (*models.StockTrade, error)
	GetStockTradesPage(ctx context.Context, offset, limit int) ([]models.StockTrade, error)
	SaveStockTrade(ctx context.Context, trade *models.StockTrade) error
	SaveStockTrades(ctx context.Context, trades []*models.StockTrade) error
	DeleteStockTrade(ctx context.Context, id int) error
	InsertFileRecord(ctx context.Context, fileName string, checksum string) (int, error)
	UpdateFileStatus(ctx context.Context, fileID int, status string, fileErrors []string) error
	IsFileAlreadyProcessed(ctx context.Context, checksum string) (bool, error)
}

func ConnectDB(ctx context.Context, connStr string) (*pgxpool.Pool, error) {
	dbpool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return dbpool, nil
}

type PostgresDBManager struct {
	dbpool *pgxpool.Pool
}

var _ DBManager = (*PostgresDBManager)(nil)

func NewPostgresDBManager(pool *pgxpool.Pool) *PostgresDBManager {
	return &PostgresDBManager{dbpool: pool}
}

func (m *PostgresDBManager) CreateStockTradesTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS stocktrades (
		id INTEGER PRIMARY KEY,
		security VARCHAR(255) NOT NULL,
		trade_date DATE NOT NULL,
		open DOUBLE PRECISION NOT NULL,
		high DOUBLE PRECISION NOT NULL,
		low DOUBLE PRECISION NOT NULL,
		close DOUBLE PRECISION NOT NULL,
		volume DOUBLE PRECISION NOT NULL,
		adj_close DOUBLE PRECISION NOT NULL
	);`

	_, err := m.dbpool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("error creating stocktrades table: %w", err)
	}

	return nil
}

func (m *PostgresDBManager) CreateFileRecordsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS file_records (
		id SERIAL PRIMARY KEY,
		file_name VARCHAR(255) NOT NULL,
		processed_at TIMESTAMP NOT NULL,
		status VARCHAR(50) NOT NULL CHECK (status IN ('DONE', 'DONE_WITH_ERRORS', 'PROCESSING', 'FATAL')),
		checksum VARCHAR(64),
		errors jsonb
	);`

	_, err := m.dbpool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("error creating file_records table: %w", err)
	}

	return nil
}

const stockTradeColumns = "id, security, trade_date, open, high, low, close, volume, adj_close"

func (m *PostgresDBManager) GetStockTrade(ctx context.Context, id int) (*models.StockTrade, error) {
	query := `SELECT ` + stockTradeColumns + ` FROM stocktrades WHERE id = $1`

	var t models.StockTrade
	err := m.dbpool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Security, &t.Date.Time,
		&t.Open, &t.High, &t.Low, &t.Close, &t.Volume, &t.AdjClose,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoRecord
		}
		return nil, fmt.Errorf("error querying stocktrade %d: %w", id, err)
	}

	return &t, nil
}

func (m *PostgresDBManager) GetStockTradesPage(ctx context.Context, offset, limit int) ([]models.StockTrade, error) {
	query := `SELECT ` + stockTradeColumns + ` FROM stocktrades ORDER BY id LIMIT $1 OFFSET $2`

	rows, err := m.dbpool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("error querying stocktrades page: %w", err)
	}
	defer rows.Close()

	trades := []models.StockTrade{}
	for rows.Next() {
		var t models.StockTrade
		if err := rows.Scan(
			&t.ID, &t.Security, &t.Date.Time,
			&t.Open, &t.High, &t.Low, &t.Close, &t.Volume, &t.AdjClose,
		); err != nil {
			return nil, fmt.Errorf("error scanning stocktrade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over stocktrade rows: %w", err)
	}

	return trades, nil
}

const upsertStockTradeQuery = `
	INSERT INTO stocktrades (id, security, trade_date, open, high, low, close, volume, adj_close)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO UPDATE SET
		security = EXCLUDED.security,
		trade_date = EXCLUDED.trade_date,
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		adj_close = EXCLUDED.adj_close`

func (m *PostgresDBManager) SaveStockTrade(ctx context.Context, trade *models.StockTrade) error {
	_, err := m.dbpool.Exec(ctx, upsertStockTradeQuery,
		trade.ID, trade.Security, trade.Date.Time,
		trade.Open, trade.High, trade.Low, trade.Close, trade.Volume, trade.AdjClose,
	)
	if err != nil {
		return fmt.Errorf("error saving stocktrade %d: %w", trade.ID, err)
	}

	return nil
}

// SaveStockTrades persists the whole batch in a single transaction.
func (m *PostgresDBManager) SaveStockTrades(ctx context.Context, trades []*models.StockTrade) error {
	if len(trades) == 0 {
		return nil
	}

	tx, err := m.dbpool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, trade := range trades {
		_, err := tx.Exec(ctx, upsertStockTradeQuery,
			trade.ID, trade.Security, trade.Date.Time,
			trade.Open, trade.High, trade.Low, trade.Close, trade.Volume, trade.AdjClose,
		)
		if err != nil {
			return fmt.Errorf("error saving stocktrade %d in batch: %w", trade.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing stocktrade batch: %w", err)
	}

	return nil
}

func (m *PostgresDBManager) DeleteStockTrade(ctx context.Context, id int) error {
	tag, err := m.dbpool.Exec(ctx, `DELETE FROM stocktrades WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting stocktrade %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoRecord
	}

	return nil
}

func (m *PostgresDBManager) InsertFileRecord(ctx context.Context, fileName string, checksum string) (int, error) {
	query := `
	INSERT INTO file_records (file_name, processed_at, status, checksum)
	VALUES ($1, NOW(), 'PROCESSING', $2)
	RETURNING id`

	var fileID int
	if err := m.dbpool.QueryRow(ctx, query, fileName, checksum).Scan(&fileID); err != nil {
		return 0, fmt.Errorf("error inserting file record for %s: %w", fileName, err)
	}

	return fileID, nil
}

func (m *PostgresDBManager) UpdateFileStatus(ctx context.Context, fileID int, status string, fileErrors []string) error {
	query := `UPDATE file_records SET status = $1, errors = $2, processed_at = NOW() WHERE id = $3`

	var errsJSON []byte
	if len(fileErrors) > 0 {
		var err error
		errsJSON, err = json.Marshal(fileErrors)
		if err != nil {
			return fmt.Errorf("error marshaling file errors: %w", err)
		}
	}

	_, err := m.dbpool.Exec(ctx, query, status, errsJSON, fileID)
	if err != nil {
		return fmt.Errorf("error updating file record %d: %w", fileID, err)
	}

	return nil
}

func (m *PostgresDBManager) IsFileAlreadyProcessed(ctx context.Context, checksum string) (bool, error) {
	query := `
	SELECT EXISTS (
		SELECT 1 FROM file_records
		WHERE checksum = $1 AND status IN ('DONE', 'DONE_WITH_ERRORS')
	)`

	var processed bool
	if err := m.dbpool.QueryRow(ctx, query, checksum).Scan(&processed); err != nil {
		return false, fmt.Errorf("error checking file checksum: %w", err)
	}

	return processed, nil
}
