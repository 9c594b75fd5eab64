package restock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"stockledger/internal/api/httpx"
	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

const (
	defaultPage    = 1
	defaultPerPage = 10
)

// RestockService define o contrato de escrita que o Handler espera da camada de Serviço.
type RestockService interface {
	Restock(ctx context.Context, productID string, req domain.RestockRequest) (domain.RestockResult, error)
}

// HistoryService define o contrato de leitura do histórico.
type HistoryService interface {
	ListRestocks(ctx context.Context, page, perPage int, filter domain.RestockFilter) (domain.RestockPage, error)
}

// Handler agrupa os handlers de reposição.
type Handler struct {
	Restocks RestockService
	History  HistoryService
	Logger   logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando os Serviços e o Logger.
func NewHandler(restocks RestockService, history HistoryService, log logger.Logger) *Handler {
	return &Handler{Restocks: restocks, History: history, Logger: log}
}

type restockResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	NewStockLevel int    `json:"new_stock_level"`
	RestockID     string `json:"restock_id"`
}

type historyResponse struct {
	Success  bool                   `json:"success"`
	Restocks []domain.RestockRecord `json:"restocks"`
	Total    int                    `json:"total"`
	Page     int                    `json:"page"`
	PerPage  int                    `json:"per_page"`
}

// RestockHandler lida com a requisição POST /api/products/{id}/restock.
func (h *Handler) RestockHandler(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["id"]

	// Corpo vazio segue para o serviço: a existência do produto é verificada antes do payload.
	var req domain.RestockRequest
	if r.Body != nil {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			httpx.Error(w, r, h.Logger, apperror.NewValidationError("invalid JSON payload"))
			return
		}
	}

	result, err := h.Restocks.Restock(r.Context(), productID, req)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}

	httpx.JSON(w, h.Logger, http.StatusOK, restockResponse{
		Success:       true,
		Message:       "Restock completed",
		NewStockLevel: result.NewStock,
		RestockID:     result.RestockID,
	})
}

// ListRestocksHandler lida com a requisição GET /api/restocks.
func (h *Handler) ListRestocksHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := httpx.IntParam(q, "page", defaultPage)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	perPage, err := httpx.IntParam(q, "per_page", defaultPerPage)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	filter, err := httpx.RestockFilter(q)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}

	result, err := h.History.ListRestocks(r.Context(), page, perPage, filter)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}

	httpx.JSON(w, h.Logger, http.StatusOK, historyResponse{
		Success:  true,
		Restocks: result.Entries,
		Total:    result.Total,
		Page:     result.Page,
		PerPage:  result.PerPage,
	})
}
