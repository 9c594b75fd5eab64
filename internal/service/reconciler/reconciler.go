// Package reconciler aplica lançamentos do ledger que foram gravados mas
// nunca chegaram ao estoque do produto.
package reconciler

import (
	"context"
	"time"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

const pageSize = 100

// ProductStore é o subconjunto do Product Store usado pelo reconciliador.
type ProductStore interface {
	FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	SetStock(ctx context.Context, id string, expectedVersion, newStock int, restockID string) (bool, error)
}

// Ledger é o subconjunto de leitura do ledger usado pelo reconciliador.
type Ledger interface {
	LatestForProduct(ctx context.Context, productID string) (domain.RestockEntry, error)
}

// Report resume uma passada de reconciliação.
type Report struct {
	Checked int      `json:"checked"`
	Applied int      `json:"applied"`
	Drifted []string `json:"drifted"`
}

// Reconciler compara o último lançamento de cada produto com o estoque gravado.
type Reconciler struct {
	products ProductStore
	ledger   Ledger
	logger   logger.Logger
}

// New cria um Reconciler.
func New(products ProductStore, ledger Ledger, log logger.Logger) *Reconciler {
	return &Reconciler{products: products, ledger: ledger, logger: log}
}

// RunOnce percorre todos os produtos ativos uma vez.
// Um lançamento só é aplicado quando previous_stock coincide com o estoque atual;
// caso contrário o produto é reportado como divergente e nada é escrito.
func (r *Reconciler) RunOnce(ctx context.Context) (Report, error) {
	report := Report{Drifted: []string{}}

	for page := 1; ; page++ {
		products, err := r.products.FindAll(ctx, domain.ProductFilter{Page: page, Limit: pageSize})
		if err != nil {
			return report, err
		}

		for _, p := range products {
			report.Checked++
			if err := r.reconcile(ctx, p, &report); err != nil {
				return report, err
			}
		}

		if len(products) < pageSize {
			break
		}
	}

	if report.Applied > 0 || len(report.Drifted) > 0 {
		r.logger.Warn("Reconciliação encontrou divergências.", map[string]interface{}{
			"checked": report.Checked,
			"applied": report.Applied,
			"drifted": report.Drifted,
		})
	} else {
		r.logger.Debug("Reconciliação sem divergências.", map[string]interface{}{"checked": report.Checked})
	}
	return report, nil
}

func (r *Reconciler) reconcile(ctx context.Context, p domain.Product, report *Report) error {
	entry, err := r.ledger.LatestForProduct(ctx, p.ID)
	if apperror.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	if entry.ID == p.LastRestockID {
		return nil
	}

	if entry.PreviousStock != p.Stock {
		report.Drifted = append(report.Drifted, p.ID)
		return nil
	}

	matched, err := r.products.SetStock(ctx, p.ID, p.Version, entry.NewStock, entry.ID)
	if err != nil {
		return err
	}
	if !matched {
		// Escrita concorrente; a próxima passada reavalia.
		report.Drifted = append(report.Drifted, p.ID)
		return nil
	}

	report.Applied++
	r.logger.Info("Lançamento pendente aplicado ao estoque.", map[string]interface{}{
		"product_id": p.ID,
		"restock_id": entry.ID,
		"new_stock":  entry.NewStock,
	})
	return nil
}

// Run executa RunOnce a cada interval até ctx ser cancelado.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("Falha na reconciliação periódica.", err)
			}
		}
	}
}
