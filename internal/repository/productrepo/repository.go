package productrepo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	"stockledger/internal/errors"
	"stockledger/internal/pkg/cache"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/logger"
)

// Define a chave de cache para produtos.
const productCacheKey = "product:%s"

const productColumns = `id, stock, attributes, version, last_restock_id, created_at, updated_at, deleted_at`

// ProductRepository é o Product Store sobre PostgreSQL, com cache-aside no Redis.
type ProductRepository struct {
	DB        *sql.DB      // Conexão principal com o banco de dados (PostgreSQL)
	Cache     cache.Client // Cliente para operações de cache (Redis)
	DBTimeout time.Duration
	CacheTTL  time.Duration
	logger    logger.Logger
}

// NewProductRepository cria e retorna uma nova instância do Repositório.
// Aqui injetamos as dependências de Infraestrutura (DB e Cache).
func NewProductRepository(db *sql.DB, cacheClient cache.Client, dbTimeout, cacheTTL time.Duration, log logger.Logger) *ProductRepository {
	return &ProductRepository{
		DB:        db,
		Cache:     cacheClient,
		DBTimeout: dbTimeout,
		CacheTTL:  cacheTTL,
		logger:    log,
	}
}

// cachedProduct é a forma serializada no Redis; ao contrário do JSON da API,
// preserva version e last_restock_id.
type cachedProduct struct {
	ID            string                 `json:"id"`
	Stock         int                    `json:"stock"`
	Attributes    map[string]interface{} `json:"attributes"`
	Version       int                    `json:"version"`
	LastRestockID string                 `json:"last_restock_id"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Save persiste um novo Produto.
func (r *ProductRepository) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Version = 1

	attrs, err := marshalAttributes(product.Attributes)
	if err != nil {
		return domain.Product{}, errors.NewInternalError("falha ao serializar atributos", err)
	}

	query := `
        INSERT INTO products (id, stock, attributes, version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + productColumns

	saved, err := scanProduct(database.ExecutorFrom(ctx, r.DB).QueryRowContext(ctxTimeout, query,
		product.ID, product.Stock, string(attrs), product.Version, product.CreatedAt, product.UpdatedAt,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir produto no DB.", err)
		return domain.Product{}, errors.NewDBError("failed to insert product", err)
	}

	r.logger.Info("Produto criado com sucesso.", map[string]interface{}{"id": saved.ID, "stock": saved.Stock})
	return saved, nil
}

// FindByID busca um produto ativo pelo ID, utilizando a estratégia Cache-Aside.
// Dentro de transação o cache é ignorado e a linha é bloqueada (FOR UPDATE).
func (r *ProductRepository) FindByID(ctx context.Context, id string) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	inTx := database.InTx(ctx)
	key := fmt.Sprintf(productCacheKey, id)

	// --- Cache-Aside (READ) ---
	if !inTx {
		cachedData, err := r.Cache.Get(ctxTimeout, key)
		if err == nil {
			var cached cachedProduct
			if json.Unmarshal([]byte(cachedData), &cached) == nil {
				return cached.toDomain(), nil
			}
			r.logger.Warn("Entrada de cache corrompida, buscando no DB.", map[string]interface{}{"key": key})
		} else if err != cache.ErrCacheMiss {
			r.logger.Warn("Falha ao ler do cache Redis.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	if inTx {
		query += ` FOR UPDATE`
	}

	product, err := scanProduct(database.ExecutorFrom(ctx, r.DB).QueryRowContext(ctxTimeout, query, id))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("failed to find product", err)
	}

	// --- Cache-Aside (WRITE) ---
	if !inTx {
		if payload, marshalErr := json.Marshal(fromDomain(product)); marshalErr == nil {
			if setErr := r.Cache.Set(ctxTimeout, key, payload, r.CacheTTL); setErr != nil {
				r.logger.Warn("Falha ao gravar produto no cache.", map[string]interface{}{"key": key, "error": setErr.Error()})
			}
		}
	}

	return product, nil
}

// FindAll lista produtos ativos, com filtro opcional por nome e paginação.
func (r *ProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + productColumns + `
        FROM products
        WHERE deleted_at IS NULL
          AND ($1 = '' OR attributes->>'name' ILIKE '%' || $1 || '%')
        ORDER BY created_at DESC, id
        LIMIT $2 OFFSET $3`

	rows, err := database.ExecutorFrom(ctx, r.DB).QueryContext(ctxTimeout, query, filter.Name, filter.Limit, filter.Offset())
	if err != nil {
		r.logger.Error("Falha ao executar FindAll de produtos.", err)
		return nil, errors.NewDBError("failed to list products", err)
	}
	return r.collect(rows)
}

// FindLowStock lista produtos ativos com estoque menor ou igual ao limite.
func (r *ProductRepository) FindLowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + productColumns + `
        FROM products
        WHERE deleted_at IS NULL AND stock <= $1
        ORDER BY stock ASC, id`

	rows, err := database.ExecutorFrom(ctx, r.DB).QueryContext(ctxTimeout, query, threshold)
	if err != nil {
		r.logger.Error("Falha ao buscar produtos com estoque baixo.", err)
		return nil, errors.NewDBError("failed to list low-stock products", err)
	}
	return r.collect(rows)
}

// Update mescla os atributos informados e, opcionalmente, redefine o estoque.
func (r *ProductRepository) Update(ctx context.Context, id string, attributes map[string]interface{}, stock *int) (domain.Product, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	attrs, err := marshalAttributes(attributes)
	if err != nil {
		return domain.Product{}, errors.NewInternalError("falha ao serializar atributos", err)
	}

	var newStock sql.NullInt64
	if stock != nil {
		newStock = sql.NullInt64{Int64: int64(*stock), Valid: true}
	}

	query := `
        UPDATE products
        SET attributes = attributes || $1::jsonb,
            stock = COALESCE($2, stock),
            version = version + 1,
            updated_at = $3
        WHERE id = $4 AND deleted_at IS NULL
        RETURNING ` + productColumns

	product, err := scanProduct(database.ExecutorFrom(ctx, r.DB).QueryRowContext(ctxTimeout, query,
		string(attrs), newStock, time.Now().UTC(), id,
	))
	if err == sql.ErrNoRows {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar produto no DB.", err)
		return domain.Product{}, errors.NewDBError("failed to update product", err)
	}

	r.invalidate(ctx, id)
	return product, nil
}

// SetStock grava o novo estoque somente se a versão ainda for a observada (compare-and-swap).
// Retorna false quando outra escrita ocorreu no meio do caminho.
func (r *ProductRepository) SetStock(ctx context.Context, id string, expectedVersion, newStock int, restockID string) (bool, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        UPDATE products
        SET stock = $1, version = version + 1, last_restock_id = $2, updated_at = $3
        WHERE id = $4 AND version = $5 AND deleted_at IS NULL`

	result, err := database.ExecutorFrom(ctx, r.DB).ExecContext(ctxTimeout, query,
		newStock, restockID, time.Now().UTC(), id, expectedVersion,
	)
	if err != nil {
		r.logger.Error("Falha ao atualizar estoque do produto.", err)
		return false, errors.NewDBError("failed to set stock", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDBError("failed to check affected rows", err)
	}

	if rowsAffected == 0 {
		r.logger.Warn("Versão do produto desatualizada (OCC).", map[string]interface{}{"id": id, "expected_version": expectedVersion})
		return false, nil
	}

	r.invalidate(ctx, id)
	return true, nil
}

// Delete remove o produto logicamente (tombstone), preservando os joins do histórico.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	now := time.Now().UTC()
	query := `UPDATE products SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`

	result, err := database.ExecutorFrom(ctx, r.DB).ExecContext(ctxTimeout, query, now, id)
	if err != nil {
		r.logger.Error("Falha ao remover produto.", err)
		return errors.NewDBError("failed to delete product", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewDBError("failed to check affected rows", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}

	r.invalidate(ctx, id)
	r.logger.Info("Produto removido.", map[string]interface{}{"id": id})
	return nil
}

// invalidate remove o produto do cache depois do commit.
func (r *ProductRepository) invalidate(ctx context.Context, id string) {
	key := fmt.Sprintf(productCacheKey, id)
	database.AfterCommit(ctx, func() {
		if err := r.Cache.Delete(context.Background(), key); err != nil {
			r.logger.Warn("Falha ao invalidar cache do produto.", map[string]interface{}{"key": key, "error": err.Error()})
		}
	})
}

func (r *ProductRepository) collect(rows *sql.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.NewDBError("failed to scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("failed to iterate products", err)
	}
	return products, nil
}

// RowScanner abstrai *sql.Row e *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanProduct mapeia as colunas de productColumns (na mesma ordem) para domain.Product.
// Exportado para o join do ledger.
func ScanProduct(row RowScanner, extra ...interface{}) (domain.Product, error) {
	var (
		p           domain.Product
		attrs       []byte
		lastRestock sql.NullString
		deletedAt   sql.NullTime
	)

	dest := append(extra,
		&p.ID, &p.Stock, &attrs, &p.Version, &lastRestock, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err := row.Scan(dest...); err != nil {
		return domain.Product{}, err
	}

	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &p.Attributes); err != nil {
			return domain.Product{}, fmt.Errorf("atributos inválidos para o produto %s: %w", p.ID, err)
		}
	}
	if p.Attributes == nil {
		p.Attributes = map[string]interface{}{}
	}
	p.LastRestockID = lastRestock.String
	if deletedAt.Valid {
		t := deletedAt.Time
		p.DeletedAt = &t
	}
	return p, nil
}

// ProductColumns lista as colunas na ordem esperada por ScanProduct, com prefixo de tabela opcional.
func ProductColumns(alias string) string {
	if alias == "" {
		return productColumns
	}
	return fmt.Sprintf("%[1]s.id, %[1]s.stock, %[1]s.attributes, %[1]s.version, %[1]s.last_restock_id, %[1]s.created_at, %[1]s.updated_at, %[1]s.deleted_at", alias)
}

func scanProduct(row RowScanner) (domain.Product, error) {
	return ScanProduct(row)
}

func marshalAttributes(attrs map[string]interface{}) ([]byte, error) {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return json.Marshal(attrs)
}

func fromDomain(p domain.Product) cachedProduct {
	return cachedProduct{
		ID:            p.ID,
		Stock:         p.Stock,
		Attributes:    p.Attributes,
		Version:       p.Version,
		LastRestockID: p.LastRestockID,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (c cachedProduct) toDomain() domain.Product {
	attrs := c.Attributes
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return domain.Product{
		ID:            c.ID,
		Stock:         c.Stock,
		Attributes:    attrs,
		Version:       c.Version,
		LastRestockID: c.LastRestockID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
