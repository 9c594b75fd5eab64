// Package bootstrap monta a infraestrutura de armazenamento a partir da configuração.
package bootstrap

import (
	"context"

	"github.com/pkg/errors"

	"stockledger/config"
	"stockledger/internal/pkg/cache"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/memstore"
	"stockledger/internal/repository/productrepo"
	"stockledger/internal/repository/restockrepo"
	"stockledger/internal/service/historyservice"
	"stockledger/internal/service/productservice"
	"stockledger/internal/service/reconciler"
	"stockledger/internal/service/restockservice"
)

// ProductStore é a união dos contratos de produto usados pelos serviços.
type ProductStore interface {
	productservice.ProductRepository
	restockservice.ProductStore
	reconciler.ProductStore
}

// Ledger é a união dos contratos do ledger usados pelos serviços.
type Ledger interface {
	restockservice.Ledger
	historyservice.Ledger
	reconciler.Ledger
}

// Stores agrupa o armazenamento selecionado por STORE_DRIVER.
type Stores struct {
	Products ProductStore
	Ledger   Ledger
	Tx       restockservice.Transactor
	// Cache é nil quando REDIS_ADDR não está definido.
	Cache cache.Client

	closers []func() error
}

// Close libera as conexões abertas, na ordem inversa de abertura.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// OpenStores conecta ao armazenamento configurado.
func OpenStores(ctx context.Context, cfg *config.Config, log logger.Logger) (*Stores, error) {
	stores := &Stores{}

	var cacheClient cache.Client = cache.NopClient{}
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, errors.Wrap(err, "falha ao conectar ao Redis")
		}
		stores.closers = append(stores.closers, rc.Close)
		stores.Cache = rc
		cacheClient = rc
		log.Info("Conexão Redis estabelecida.", map[string]interface{}{"addr": cfg.RedisAddr})
	}

	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		store := memstore.New()
		stores.Products, stores.Ledger, stores.Tx = store, store, store
		log.Warn("Usando armazenamento em memória; os dados não sobrevivem ao processo.", nil)

	case config.StoreDriverPostgres:
		db, err := database.NewPostgresDB(cfg.DatabaseURL, cfg.DBTimeout)
		if err != nil {
			stores.Close()
			return nil, errors.Wrap(err, "falha ao conectar ao PostgreSQL")
		}
		stores.closers = append(stores.closers, db.Close)
		log.Info("Conexão PostgreSQL estabelecida.", nil)

		if cfg.MigrateOnStart {
			if err := database.Migrate(db); err != nil {
				stores.Close()
				return nil, errors.Wrap(err, "falha ao aplicar migrações")
			}
			log.Info("Migrações aplicadas.", nil)
		}

		stores.Products = productrepo.NewProductRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, log)
		stores.Ledger = restockrepo.NewRestockRepository(db, cfg.DBTimeout, log)
		stores.Tx = database.NewTransactor(db)

	default:
		stores.Close()
		return nil, errors.Errorf("STORE_DRIVER inválido: %q", cfg.StoreDriver)
	}

	return stores, nil
}
