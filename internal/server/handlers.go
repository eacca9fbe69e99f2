package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rmonteiro-dev/stocktrades/internal/models"
)

// StockTradeService is what the handlers need from the business layer.
type StockTradeService interface {
	List(ctx context.Context, pageNo, pageSize int) ([]models.StockTrade, error)
	Get(ctx context.Context, id int) (*models.StockTrade, error)
	Create(ctx context.Context, trades []*models.StockTrade) error
	Upsert(ctx context.Context, id int, trade *models.StockTrade) error
	Patch(ctx context.Context, id int, patch *models.StockTrade) error
	Delete(ctx context.Context, id int) error
}

type StockTradeHandler struct {
	service         StockTradeService
	defaultPageSize int
}

func NewStockTradeHandler(service StockTradeService, defaultPageSize int) *StockTradeHandler {
	return &StockTradeHandler{service: service, defaultPageSize: defaultPageSize}
}

// recordResponse is a stocktrade record decorated with hypermedia links.
type recordResponse struct {
	models.StockTrade
	Links []Link `json:"links"`
}

func (h *StockTradeHandler) ListStockTrades(w http.ResponseWriter, r *http.Request) {
	pageNo, ok := queryInt(w, r, "pageNo", 0)
	if !ok {
		return
	}
	pageSize, ok := queryInt(w, r, "pageSize", h.defaultPageSize)
	if !ok {
		return
	}

	trades, err := h.service.List(r.Context(), pageNo, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, trades)
}

func (h *StockTradeHandler) GetStockTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	trade, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recordResponse{StockTrade: *trade, Links: recordLinks(id)})
}

func (h *StockTradeHandler) InsertStockTrades(w http.ResponseWriter, r *http.Request) {
	var trades []*models.StockTrade
	if err := json.NewDecoder(r.Body).Decode(&trades); err != nil {
		http.Error(w, "Invalid request body, expected an array of stocktrade records", http.StatusBadRequest)
		return
	}

	if err := h.service.Create(r.Context(), trades); err != nil {
		writeError(w, err)
		return
	}

	links := []Link{}
	for _, trade := range trades {
		links = append(links, recordLinks(trade.ID)...)
	}

	writeJSON(w, http.StatusOK, links)
}

func (h *StockTradeHandler) UpdateStockTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var trade models.StockTrade
	if err := json.NewDecoder(r.Body).Decode(&trade); err != nil {
		http.Error(w, "Invalid request body, expected a stocktrade record", http.StatusBadRequest)
		return
	}

	if err := h.service.Upsert(r.Context(), id, &trade); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateLinks(id))
}

func (h *StockTradeHandler) PatchStockTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var patch models.StockTrade
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body, expected a partial stocktrade record", http.StatusBadRequest)
		return
	}

	if err := h.service.Patch(r.Context(), id, &patch); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateLinks(id))
}

func (h *StockTradeHandler) DeleteStockTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "stocktrade with id %d is deleted", id)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid id, expected an integer", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, defaultValue int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, true
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid %s, expected an integer", name), http.StatusBadRequest)
		return 0, false
	}
	return value, true
}
