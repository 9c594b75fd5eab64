package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Drivers de armazenamento suportados.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config armazena todas as configurações do serviço.
type Config struct {
	// Geral
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	CORSOrigin  string `envconfig:"CORS_ORIGIN" default:"*"`

	// Armazenamento (PostgreSQL ou memória)
	StoreDriver    string        `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL    string        `envconfig:"DATABASE_URL"`
	DBTimeout      time.Duration `envconfig:"DB_TIMEOUT" default:"5s"`
	MigrateOnStart bool          `envconfig:"MIGRATE_ON_START" default:"true"`

	// Cache (Redis). Vazio desativa cache e rate limiting.
	RedisAddr string        `envconfig:"REDIS_ADDR"`
	CacheTTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	// Rate Limiting
	RateLimitMaxRequests int           `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"100"`
	RateLimitPeriod      time.Duration `envconfig:"RATE_LIMIT_PERIOD" default:"1m"`

	// Regras de estoque
	LowStockThreshold   int           `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`
	RestockMaxRetries   uint64        `envconfig:"RESTOCK_MAX_RETRIES" default:"5"`
	RestockRetryBackoff time.Duration `envconfig:"RESTOCK_RETRY_BACKOFF" default:"20ms"`
	ReconcileInterval   time.Duration `envconfig:"RECONCILE_INTERVAL" default:"0s"` // 0 desativa
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("falha ao ler variáveis de ambiente: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory:
	case StoreDriverPostgres:
		// A aplicação não inicia sem credenciais de DB
		if c.DatabaseURL == "" {
			return fmt.Errorf("a variável de ambiente DATABASE_URL deve ser definida para STORE_DRIVER=%s", StoreDriverPostgres)
		}
	default:
		return fmt.Errorf("STORE_DRIVER inválido: %q", c.StoreDriver)
	}

	if c.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD não pode ser negativo: %d", c.LowStockThreshold)
	}
	if c.DBTimeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT deve ser positivo: %s", c.DBTimeout)
	}
	return nil
}
