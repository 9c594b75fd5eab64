package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	// Nossos pacotes de infraestrutura e utilitários
	"stockledger/config"
	"stockledger/internal/bootstrap"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"

	// Camadas para Injeção de Dependências
	"stockledger/internal/api/product"
	"stockledger/internal/api/restock"
	"stockledger/internal/api/router"
	"stockledger/internal/service/historyservice"
	"stockledger/internal/service/productservice"
	"stockledger/internal/service/reconciler"
	"stockledger/internal/service/restockservice"
)

func main() {
	// 0. CARREGAR VARIÁVEIS DE AMBIENTE (.env)
	if err := godotenv.Load(); err != nil {
		// As variáveis essenciais podem estar no ambiente do sistema (ex: Docker).
		log.Println("Aviso: arquivo .env não encontrado. Carregando configs apenas do ambiente do sistema.")
	}

	// 1. Configuração e Logger
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuração inválida: %v", err)
	}
	appLog := logger.NewLogger(cfg.LogLevel)
	appLog.Info("Configurações carregadas.", map[string]interface{}{"env": cfg.Environment, "store": cfg.StoreDriver})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Recursos de Infraestrutura (DB/memória, Redis)
	stores, err := bootstrap.OpenStores(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Falha ao inicializar o armazenamento.", err)
	}
	defer stores.Close()

	// 3. INJEÇÃO DE DEPENDÊNCIAS
	// Ordem: Repository -> Service -> Handler
	productSvc := productservice.NewService(stores.Products, cfg.LowStockThreshold, appLog)
	restockSvc := restockservice.NewService(stores.Products, stores.Ledger, stores.Tx, cfg.RestockMaxRetries, cfg.RestockRetryBackoff, appLog)
	historySvc := historyservice.NewService(stores.Ledger, appLog)

	productHandler := product.NewHandler(productSvc, appLog)
	restockHandler := restock.NewHandler(restockSvc, historySvc, appLog)

	opts := router.Options{CORSOrigin: cfg.CORSOrigin}
	if stores.Cache != nil {
		opts.RateLimit = middleware.RateLimiter(stores.Cache, cfg.RateLimitMaxRequests, cfg.RateLimitPeriod, appLog)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.NewRouter(productHandler, restockHandler, appLog, opts),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. Reconciliação periódica do ledger
	if cfg.ReconcileInterval > 0 {
		rec := reconciler.New(stores.Products, stores.Ledger, appLog)
		go rec.Run(ctx, cfg.ReconcileInterval)
		appLog.Info("Reconciliação periódica ativada.", map[string]interface{}{"interval": cfg.ReconcileInterval.String()})
	}

	// 5. Execução e Graceful Shutdown
	go func() {
		appLog.Info("Servidor ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("Servidor falhou.", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
