package product

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"stockledger/internal/api/httpx"
	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
)

// ProductService define o contrato que o Handler espera da camada de Serviço.
type ProductService interface {
	CreateProduct(ctx context.Context, payload map[string]interface{}) (domain.Product, error)
	GetProductByID(ctx context.Context, id string) (domain.Product, error)
	GetProducts(ctx context.Context, page, limit int, name string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, id string, payload map[string]interface{}) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	LowStockProducts(ctx context.Context, threshold *int) ([]domain.Product, int, error)
}

// Handler agrupa todos os métodos de Handler do produto.
type Handler struct {
	Service ProductService
	Logger  logger.Logger
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc ProductService, log logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

type productResponse struct {
	Success bool           `json:"success"`
	Product domain.Product `json:"product"`
}

type productListResponse struct {
	Success  bool             `json:"success"`
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

type lowStockResponse struct {
	Success   bool             `json:"success"`
	Threshold int              `json:"threshold"`
	Count     int              `json:"count"`
	Products  []domain.Product `json:"products"`
}

// CreateProductHandler lida com a requisição POST /api/products.
func (h *Handler) CreateProductHandler(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}

	created, err := h.Service.CreateProduct(r.Context(), payload)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	httpx.JSON(w, h.Logger, http.StatusCreated, productResponse{Success: true, Product: created})
}

// GetProductByIDHandler lida com a requisição GET /api/products/{id}.
func (h *Handler) GetProductByIDHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.GetProductByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	httpx.JSON(w, h.Logger, http.StatusOK, productResponse{Success: true, Product: p})
}

// ListProductsHandler lida com a requisição GET /api/products?page&limit&name.
func (h *Handler) ListProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := httpx.IntParam(q, "page", 1)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	limit, err := httpx.IntParam(q, "limit", 10)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}

	products, err := h.Service.GetProducts(r.Context(), page, limit, q.Get("name"))
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	httpx.JSON(w, h.Logger, http.StatusOK, productListResponse{Success: true, Products: products, Page: page, Limit: limit})
}

// UpdateProductHandler lida com a requisição PUT /api/products/{id}.
func (h *Handler) UpdateProductHandler(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}

	updated, err := h.Service.UpdateProduct(r.Context(), mux.Vars(r)["id"], payload)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	httpx.JSON(w, h.Logger, http.StatusOK, productResponse{Success: true, Product: updated})
}

// DeleteProductHandler lida com a requisição DELETE /api/products/{id}.
func (h *Handler) DeleteProductHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteProduct(r.Context(), mux.Vars(r)["id"]); err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	httpx.JSON(w, h.Logger, http.StatusOK, map[string]interface{}{"success": true, "message": "Product deleted"})
}

// LowStockHandler lida com a requisição GET /api/products/low-stock?threshold.
func (h *Handler) LowStockHandler(w http.ResponseWriter, r *http.Request) {
	threshold, err := httpx.OptionalIntParam(r.URL.Query(), "threshold")
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}

	products, applied, err := h.Service.LowStockProducts(r.Context(), threshold)
	if err != nil {
		httpx.Error(w, r, h.Logger, err)
		return
	}
	httpx.JSON(w, h.Logger, http.StatusOK, lowStockResponse{
		Success:   true,
		Threshold: applied,
		Count:     len(products),
		Products:  products,
	})
}
