package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rmonteiro-dev/stocktrades/internal/models"
)

// expected header: id,security,date,open,high,low,close,volume,adjClose
const numFields = 9

var ErrEmptyFile = errors.New("file is empty or has only a header")

// RowError is a parsing failure for a single CSV row. Rows that fail to
// parse are skipped, not fatal for the file.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func parseRecord(record []string) (*models.StockTrade, error) {
	if len(record) != numFields {
		return nil, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	id, err := strconv.Atoi(record[0])
	if err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", record[0], err)
	}

	date, err := time.Parse(models.DateLayout, record[2])
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", record[2], err)
	}

	prices := make([]float64, 6)
	for i, raw := range record[3:] {
		prices[i], err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", raw, err)
		}
	}

	return &models.StockTrade{
		ID:       id,
		Security: record[1],
		Date:     models.TradeDate{Time: date},
		Open:     prices[0],
		High:     prices[1],
		Low:      prices[2],
		Close:    prices[3],
		Volume:   prices[4],
		AdjClose: prices[5],
	}, nil
}

// ParseFile reads a stocktrade CSV file and returns the records that are
// well-formed and valid for creation. Rows that cannot be parsed or are
// missing required fields are reported as RowErrors and skipped. The error
// return is reserved for failures that make the whole file unreadable.
func ParseFile(filePath string) ([]*models.StockTrade, []error, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil, ErrEmptyFile
		}
		return nil, nil, fmt.Errorf("failed to read header from %s: %w", filePath, err)
	}

	var trades []*models.StockTrade
	var rowErrors []error

	line := 1
	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, &RowError{Line: line, Err: err})
			continue
		}

		trade, err := parseRecord(record)
		if err != nil {
			rowErrors = append(rowErrors, &RowError{Line: line, Err: err})
			continue
		}

		if !trade.IsValid() {
			rowErrors = append(rowErrors, &RowError{Line: line, Err: fmt.Errorf("record with id %d doesn't have the required fields", trade.ID)})
			continue
		}

		trades = append(trades, trade)
	}

	return trades, rowErrors, nil
}
