package router

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"stockledger/internal/api/openapi"
	"stockledger/internal/api/product"
	"stockledger/internal/api/restock"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"
)

// Options agrupa os middlewares opcionais do roteador.
type Options struct {
	// RateLimit é aplicado às rotas /api quando não nil.
	RateLimit  func(http.Handler) http.Handler
	CORSOrigin string
}

// NewRouter configura e retorna o roteador HTTP principal.
// Recebe os Handlers já inicializados por injeção de dependências.
func NewRouter(productHandler *product.Handler, restockHandler *restock.Handler, log logger.Logger, opts Options) http.Handler {
	r := mux.NewRouter()

	// --- 1. Health Check e Documentação ---
	r.HandleFunc("/ping", PingHandler).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", openapi.Handler).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))

	// --- 2. API ---
	api := r.PathPrefix("/api").Subrouter()
	if opts.RateLimit != nil {
		api.Use(opts.RateLimit)
	}

	api.HandleFunc("/products", productHandler.ListProductsHandler).Methods(http.MethodGet)
	api.HandleFunc("/products", productHandler.CreateProductHandler).Methods(http.MethodPost)
	// low-stock antes de {id} para não ser capturado como ID.
	api.HandleFunc("/products/low-stock", productHandler.LowStockHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", productHandler.GetProductByIDHandler).Methods(http.MethodGet)
	api.HandleFunc("/products/{id}", productHandler.UpdateProductHandler).Methods(http.MethodPut)
	api.HandleFunc("/products/{id}", productHandler.DeleteProductHandler).Methods(http.MethodDelete)
	api.HandleFunc("/products/{id}/restock", restockHandler.RestockHandler).Methods(http.MethodPost)
	api.HandleFunc("/restocks", restockHandler.ListRestocksHandler).Methods(http.MethodGet)

	// --- 3. Middlewares globais ---
	origin := opts.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	return middleware.Logging(log)(middleware.CORS(origin)(r))
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
