package restockrepo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	"stockledger/internal/errors"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/productrepo"
)

const entryColumns = `r.id, r.product_id, r.quantity, r.previous_stock, r.new_stock, r.notes, r.status, r.restocked_at`

// RestockRepository é o ledger de reposições sobre PostgreSQL (somente inserção).
type RestockRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger
}

// NewRestockRepository cria e retorna uma nova instância do Repositório de Reposições.
func NewRestockRepository(db *sql.DB, dbTimeout time.Duration, log logger.Logger) *RestockRepository {
	return &RestockRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    log,
	}
}

// Append grava um novo lançamento e devolve o ID atribuído.
func (r *RestockRepository) Append(ctx context.Context, entry domain.RestockEntry) (string, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	query := `
        INSERT INTO restocks (id, product_id, quantity, previous_stock, new_stock, notes, status, restocked_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := database.ExecutorFrom(ctx, r.DB).ExecContext(ctxTimeout, query,
		entry.ID, entry.ProductID, entry.Quantity, entry.PreviousStock, entry.NewStock,
		entry.Notes, entry.Status, entry.Timestamp,
	)
	if err != nil {
		r.logger.Error("Falha ao inserir lançamento no ledger.", err)
		return "", errors.NewDBError("failed to append restock", err)
	}

	r.logger.Debug("Lançamento gravado no ledger.", map[string]interface{}{
		"restock_id": entry.ID,
		"product_id": entry.ProductID,
		"quantity":   entry.Quantity,
	})
	return entry.ID, nil
}

// Count conta os lançamentos do ledger que atendem ao filtro (sem join).
func (r *RestockRepository) Count(ctx context.Context, filter domain.RestockFilter) (int, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	where, args := BuildWhere(filter)
	query := `SELECT COUNT(*) FROM restocks r` + where

	var total int
	if err := database.ExecutorFrom(ctx, r.DB).QueryRowContext(ctxTimeout, query, args...).Scan(&total); err != nil {
		r.logger.Error("Falha ao contar lançamentos do ledger.", err)
		return 0, errors.NewDBError("failed to count restocks", err)
	}
	return total, nil
}

// ListJoined lê uma página do ledger com o produto de cada lançamento.
// Inner join: lançamentos cujo produto não existe mais ficam de fora.
// Produtos removidos logicamente continuam resolvendo.
func (r *RestockRepository) ListJoined(ctx context.Context, filter domain.RestockFilter, skip, limit int) ([]domain.RestockRecord, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	where, args := BuildWhere(filter)
	args = append(args, limit, skip)

	query := fmt.Sprintf(`
        SELECT %s, %s
        FROM restocks r
        JOIN products p ON p.id = r.product_id%s
        ORDER BY r.restocked_at DESC, r.seq DESC
        LIMIT $%d OFFSET $%d`,
		entryColumns, productrepo.ProductColumns("p"), where, len(args)-1, len(args))

	rows, err := database.ExecutorFrom(ctx, r.DB).QueryContext(ctxTimeout, query, args...)
	if err != nil {
		r.logger.Error("Falha ao listar histórico de reposições.", err)
		return nil, errors.NewDBError("failed to list restocks", err)
	}
	defer rows.Close()

	records := []domain.RestockRecord{}
	for rows.Next() {
		var e domain.RestockEntry
		product, err := productrepo.ScanProduct(rows,
			&e.ID, &e.ProductID, &e.Quantity, &e.PreviousStock, &e.NewStock, &e.Notes, &e.Status, &e.Timestamp,
		)
		if err != nil {
			return nil, errors.NewDBError("failed to scan restock", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		records = append(records, domain.RestockRecord{RestockEntry: e, Product: product})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDBError("failed to iterate restocks", err)
	}
	return records, nil
}

// LatestForProduct devolve o lançamento mais recente de um produto.
func (r *RestockRepository) LatestForProduct(ctx context.Context, productID string) (domain.RestockEntry, error) {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	query := `
        SELECT ` + entryColumns + `
        FROM restocks r
        WHERE r.product_id = $1
        ORDER BY r.restocked_at DESC, r.seq DESC
        LIMIT 1`

	var e domain.RestockEntry
	err := database.ExecutorFrom(ctx, r.DB).QueryRowContext(ctxTimeout, query, productID).Scan(
		&e.ID, &e.ProductID, &e.Quantity, &e.PreviousStock, &e.NewStock, &e.Notes, &e.Status, &e.Timestamp,
	)
	if err == sql.ErrNoRows {
		return domain.RestockEntry{}, errors.NewNotFoundError(fmt.Sprintf("no restocks for product %s", productID))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar último lançamento do produto.", err)
		return domain.RestockEntry{}, errors.NewDBError("failed to find latest restock", err)
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}

// BuildWhere monta a cláusula WHERE (com placeholders numerados) para o filtro do histórico.
func BuildWhere(filter domain.RestockFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.ProductID != "" {
		add("r.product_id = $%d", filter.ProductID)
	}
	if filter.From != nil {
		add("r.restocked_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("r.restocked_at <= $%d", *filter.To)
	}
	if filter.MinQuantity != nil {
		add("r.quantity >= $%d", *filter.MinQuantity)
	}
	if filter.MaxQuantity != nil {
		add("r.quantity <= $%d", *filter.MaxQuantity)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\n        WHERE " + strings.Join(conds, " AND "), args
}
