package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rmonteiro-dev/stocktrades/internal/database"
	"github.com/rmonteiro-dev/stocktrades/internal/models"
)

// MockDBManager is a mock implementation of the DBManager interface.
type MockDBManager struct {
	mock.Mock
}

func (m *MockDBManager) CreateStockTradesTable(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDBManager) CreateFileRecordsTable(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockDBManager) GetStockTrade(ctx context.Context, id int) (*models.StockTrade, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StockTrade), args.Error(1)
}

func (m *MockDBManager) GetStockTradesPage(ctx context.Context, offset, limit int) ([]models.StockTrade, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StockTrade), args.Error(1)
}

func (m *MockDBManager) SaveStockTrade(ctx context.Context, trade *models.StockTrade) error {
	args := m.Called(ctx, trade)
	return args.Error(0)
}

func (m *MockDBManager) SaveStockTrades(ctx context.Context, trades []*models.StockTrade) error {
	args := m.Called(ctx, trades)
	return args.Error(0)
}

func (m *MockDBManager) DeleteStockTrade(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDBManager) InsertFileRecord(ctx context.Context, fileName string, checksum string) (int, error) {
	args := m.Called(ctx, fileName, checksum)
	return args.Int(0), args.Error(1)
}

func (m *MockDBManager) UpdateFileStatus(ctx context.Context, fileID int, status string, fileErrors []string) error {
	args := m.Called(ctx, fileID, status, fileErrors)
	return args.Error(0)
}

func (m *MockDBManager) IsFileAlreadyProcessed(ctx context.Context, checksum string) (bool, error) {
	args := m.Called(ctx, checksum)
	return args.Bool(0), args.Error(1)
}

// memDBManager is an in-memory DBManager for tests that assert on the
// stored state after a sequence of operations.
type memDBManager struct {
	trades map[int]models.StockTrade
}

func newMemDBManager() *memDBManager {
	return &memDBManager{trades: map[int]models.StockTrade{}}
}

func (m *memDBManager) CreateStockTradesTable(ctx context.Context) error { return nil }
func (m *memDBManager) CreateFileRecordsTable(ctx context.Context) error { return nil }

func (m *memDBManager) GetStockTrade(ctx context.Context, id int) (*models.StockTrade, error) {
	trade, ok := m.trades[id]
	if !ok {
		return nil, database.ErrNoRecord
	}
	return &trade, nil
}

func (m *memDBManager) GetStockTradesPage(ctx context.Context, offset, limit int) ([]models.StockTrade, error) {
	ids := make([]int, 0, len(m.trades))
	for id := range m.trades {
		ids = append(ids, id)
	}
	// map iteration order is random; page over sorted ids like the store does
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if ids[j] < ids[i] {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
	}

	page := []models.StockTrade{}
	for i := offset; i < len(ids) && len(page) < limit; i++ {
		page = append(page, m.trades[ids[i]])
	}
	return page, nil
}

func (m *memDBManager) SaveStockTrade(ctx context.Context, trade *models.StockTrade) error {
	m.trades[trade.ID] = *trade
	return nil
}

func (m *memDBManager) SaveStockTrades(ctx context.Context, trades []*models.StockTrade) error {
	for _, trade := range trades {
		m.trades[trade.ID] = *trade
	}
	return nil
}

func (m *memDBManager) DeleteStockTrade(ctx context.Context, id int) error {
	if _, ok := m.trades[id]; !ok {
		return database.ErrNoRecord
	}
	delete(m.trades, id)
	return nil
}

func (m *memDBManager) InsertFileRecord(ctx context.Context, fileName string, checksum string) (int, error) {
	return 1, nil
}

func (m *memDBManager) UpdateFileStatus(ctx context.Context, fileID int, status string, fileErrors []string) error {
	return nil
}

func (m *memDBManager) IsFileAlreadyProcessed(ctx context.Context, checksum string) (bool, error) {
	return false, nil
}

func testTrade(id int) *models.StockTrade {
	return &models.StockTrade{
		ID:       id,
		Security: "MMM",
		Date:     models.NewTradeDate(2016, time.June, 27),
		Open:     166.83,
		High:     167.20,
		Low:      165.37,
		Close:    166.17,
		Volume:   2406743,
		AdjClose: 159.67,
	}
}

func TestStockTradeService_List(t *testing.T) {
	ctx := context.Background()

	t.Run("should decrement a positive page number before fetching", func(t *testing.T) {
		dbManager := new(MockDBManager)
		svc := NewStockTradeService(dbManager)

		expected := []models.StockTrade{*testTrade(3), *testTrade(4)}
		dbManager.On("GetStockTradesPage", ctx, 2, 2).Return(expected, nil).Once()

		trades, err := svc.List(ctx, 2, 2)

		assert.NoError(t, err)
		assert.Equal(t, expected, trades)
		dbManager.AssertExpectations(t)
	})

	t.Run("should treat page 0 and page 1 as the first page", func(t *testing.T) {
		dbManager := new(MockDBManager)
		svc := NewStockTradeService(dbManager)

		expected := []models.StockTrade{*testTrade(1)}
		dbManager.On("GetStockTradesPage", ctx, 0, 3).Return(expected, nil).Twice()

		_, err := svc.List(ctx, 0, 3)
		assert.NoError(t, err)
		_, err = svc.List(ctx, 1, 3)
		assert.NoError(t, err)

		dbManager.AssertExpectations(t)
	})

	t.Run("should fail with NotFoundError when the page is empty", func(t *testing.T) {
		dbManager := new(MockDBManager)
		svc := NewStockTradeService(dbManager)

		dbManager.On("GetStockTradesPage", ctx, 0, 3).Return([]models.StockTrade{}, nil).Once()

		_, err := svc.List(ctx, 0, 3)

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestStockTradeService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("should return the record with the given id", func(t *testing.T) {
		dbManager := new(MockDBManager)
		svc := NewStockTradeService(dbManager)

		dbManager.On("GetStockTrade", ctx, 1).Return(testTrade(1), nil).Once()

		trade, err := svc.Get(ctx, 1)

		assert.NoError(t, err)
		assert.Equal(t, testTrade(1), trade)
	})

	t.Run("should fail with NotFoundError naming the id", func(t *testing.T) {
		dbManager := new(MockDBManager)
		svc := NewStockTradeService(dbManager)

		dbManager.On("GetStockTrade", ctx, 77).Return(nil, database.ErrNoRecord).Once()

		_, err := svc.Get(ctx, 77)

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
		assert.Contains(t, notFound.Detail, "77")
	})
}

func TestStockTradeService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist a valid batch of new records", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		err := svc.Create(ctx, []*models.StockTrade{testTrade(1), testTrade(2)})

		assert.NoError(t, err)
		stored, err := svc.Get(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, testTrade(1), stored)
	})

	t.Run("should fail fast with InvalidRecordError and never touch the store", func(t *testing.T) {
		dbManager := new(MockDBManager)
		svc := NewStockTradeService(dbManager)

		invalid := testTrade(1)
		invalid.Open = 0

		err := svc.Create(ctx, []*models.StockTrade{invalid, testTrade(2)})

		var invalidErr *InvalidRecordError
		assert.ErrorAs(t, err, &invalidErr)
		assert.Contains(t, invalidErr.Detail, "1")
		dbManager.AssertNotCalled(t, "GetStockTrade", mock.Anything, mock.Anything)
		dbManager.AssertNotCalled(t, "SaveStockTrades", mock.Anything, mock.Anything)
	})

	t.Run("should still persist the fresh records when the batch has duplicates", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		assert.NoError(t, svc.Create(ctx, []*models.StockTrade{testTrade(2)}))

		err := svc.Create(ctx, []*models.StockTrade{testTrade(1), testTrade(2)})

		var duplicate *DuplicateRecordError
		assert.ErrorAs(t, err, &duplicate)
		assert.Equal(t, []int{2}, duplicate.IDs)

		// the non-conflicting record of the batch was saved anyway
		stored, err := svc.Get(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, testTrade(1), stored)
	})
}

func TestStockTradeService_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("should force the path id onto the record", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		trade := testTrade(99)
		err := svc.Upsert(ctx, 5, trade)

		assert.NoError(t, err)
		stored, err := svc.Get(ctx, 5)
		assert.NoError(t, err)
		assert.Equal(t, 5, stored.ID)
		_, err = svc.Get(ctx, 99)
		assert.Error(t, err)
	})

	t.Run("should reject an incomplete record when the id does not exist", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		err := svc.Upsert(ctx, 5, &models.StockTrade{Security: "MMM"})

		var invalidErr *InvalidRecordError
		assert.ErrorAs(t, err, &invalidErr)
	})

	t.Run("should skip validation when replacing an existing record", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		assert.NoError(t, svc.Upsert(ctx, 5, testTrade(5)))

		// an incomplete body replaces an existing record without complaint
		err := svc.Upsert(ctx, 5, &models.StockTrade{Security: "GOOG"})

		assert.NoError(t, err)
		stored, err := svc.Get(ctx, 5)
		assert.NoError(t, err)
		assert.Equal(t, "GOOG", stored.Security)
		assert.Equal(t, float64(0), stored.Open)
	})
}

func TestStockTradeService_Patch(t *testing.T) {
	ctx := context.Background()

	t.Run("should merge only the supplied fields", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		assert.NoError(t, svc.Upsert(ctx, 1, testTrade(1)))

		err := svc.Patch(ctx, 1, &models.StockTrade{Security: "GOOG", Volume: 999})

		assert.NoError(t, err)
		stored, err := svc.Get(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, "GOOG", stored.Security)
		assert.Equal(t, testTrade(1).Open, stored.Open)
		// volume is excluded from patch merging
		assert.Equal(t, testTrade(1).Volume, stored.Volume)
	})

	t.Run("should fail with NotFoundError when the record does not exist", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		err := svc.Patch(ctx, 1, &models.StockTrade{Security: "GOOG"})

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestStockTradeService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("should remove the record permanently", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		assert.NoError(t, svc.Upsert(ctx, 1, testTrade(1)))
		assert.NoError(t, svc.Delete(ctx, 1))

		_, err := svc.Get(ctx, 1)
		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("should fail with NotFoundError when the record does not exist", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		err := svc.Delete(ctx, 1)

		var notFound *NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestStockTradeService_Paging(t *testing.T) {
	ctx := context.Background()

	t.Run("should page over records in id order", func(t *testing.T) {
		dbManager := newMemDBManager()
		svc := NewStockTradeService(dbManager)

		batch := []*models.StockTrade{}
		for id := 1; id <= 5; id++ {
			batch = append(batch, testTrade(id))
		}
		assert.NoError(t, svc.Create(ctx, batch))

		first, err := svc.List(ctx, 1, 2)
		assert.NoError(t, err)
		assert.Equal(t, []int{1, 2}, tradeIDs(first))

		second, err := svc.List(ctx, 2, 2)
		assert.NoError(t, err)
		assert.Equal(t, []int{3, 4}, tradeIDs(second))
	})
}

func tradeIDs(trades []models.StockTrade) []int {
	ids := make([]int, len(trades))
	for i, trade := range trades {
		ids[i] = trade.ID
	}
	return ids
}
