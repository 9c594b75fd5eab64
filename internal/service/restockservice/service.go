package restockservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// ProductStore define o contrato que o Serviço de Reposição espera do Product Store.
type ProductStore interface {
	FindByID(ctx context.Context, id string) (domain.Product, error)
	SetStock(ctx context.Context, id string, expectedVersion, newStock int, restockID string) (bool, error)
}

// Ledger define o contrato de escrita do ledger de reposições.
type Ledger interface {
	Append(ctx context.Context, entry domain.RestockEntry) (string, error)
}

// Transactor executa uma unidade de trabalho atômica no armazenamento.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orquestra a reposição de estoque.
type Service struct {
	products   ProductStore
	ledger     Ledger
	tx         Transactor
	maxRetries uint64
	backoff    time.Duration
	logger     logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Reposição.
// maxRetries limita as novas tentativas após conflito de concorrência.
func NewService(products ProductStore, ledger Ledger, tx Transactor, maxRetries uint64, backoff time.Duration, log logger.Logger) *Service {
	if backoff <= 0 {
		backoff = 10 * time.Millisecond
	}
	return &Service{
		products:   products,
		ledger:     ledger,
		tx:         tx,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     log,
	}
}

// Restock soma quantity ao estoque do produto e registra o lançamento no ledger.
func (s *Service) Restock(ctx context.Context, productID string, req domain.RestockRequest) (domain.RestockResult, error) {
	s.logger.Debug("Iniciando reposição no serviço.", map[string]interface{}{"product_id": productID})

	// 1. O produto precisa existir antes de qualquer validação do payload.
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return domain.RestockResult{}, s.translate(err)
	}

	// 2-4. quantity presente, inteiro e positivo.
	quantity, err := ParseQuantity(req.Quantity)
	if err != nil {
		s.logger.Debug("Reposição rejeitada na validação.", map[string]interface{}{"product_id": productID, "reason": err.Error()})
		return domain.RestockResult{}, err
	}

	var result domain.RestockResult
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.apply(ctx, productID, quantity, req.Notes)
		if apperror.IsConflict(err) {
			s.logger.Warn("Conflito de concorrência na reposição, tentando novamente.", map[string]interface{}{"product_id": productID})
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return domain.RestockResult{}, s.translate(err)
	}

	s.logger.Info("Reposição concluída.", map[string]interface{}{
		"product_id": productID,
		"restock_id": result.RestockID,
		"quantity":   quantity,
		"new_stock":  result.NewStock,
	})
	return result, nil
}

// apply é uma tentativa: lê o produto, grava o lançamento e só então o estoque (CAS sobre a versão).
// Tudo na mesma transação: conflito ou falha desfazem o lançamento.
func (s *Service) apply(ctx context.Context, productID string, quantity int, notes string) (domain.RestockResult, error) {
	var result domain.RestockResult

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			return err
		}

		if product.Stock > domain.MaxCount-quantity {
			return apperror.NewValidationError(fmt.Sprintf("resulting stock exceeds maximum of %d", domain.MaxCount))
		}

		entry := domain.NewRestockEntry(product, quantity, notes, time.Now().UTC())
		restockID, err := s.ledger.Append(ctx, entry)
		if err != nil {
			return err
		}

		matched, err := s.products.SetStock(ctx, productID, product.Version, entry.NewStock, restockID)
		if err != nil {
			return err
		}
		if !matched {
			return apperror.NewConflictError(fmt.Sprintf("stock of product %s changed concurrently", productID))
		}

		result = domain.RestockResult{NewStock: entry.NewStock, RestockID: restockID}
		return nil
	})

	return result, err
}

// translate preserva erros tipados e encapsula o resto como InternalError.
func (s *Service) translate(err error) error {
	if _, ok := err.(apperror.AppError); ok {
		if !apperror.IsNotFound(err) {
			s.logger.Error("Falha na reposição.", err)
		}
		return err
	}
	s.logger.Error("Falha inesperada na reposição.", err)
	return apperror.NewInternalError("restock failed", err)
}

// ParseQuantity valida o campo quantity do payload: presente, inteiro e positivo.
// Aceita número JSON inteiro (1, 1.0, 1e1) ou string com inteiro ("5"), até domain.MaxCount.
func ParseQuantity(raw json.RawMessage) (int, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return 0, apperror.NewValidationError("quantity required")
	}

	var value interface{}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return 0, apperror.NewNumberFormatError("", "")
	}

	var (
		quantity int
		ok       bool
	)
	switch v := value.(type) {
	case json.Number:
		quantity, ok = domain.ParseCountNumber(v.String())
	case string:
		quantity, ok = domain.ParseCount(v)
	}
	if !ok {
		return 0, apperror.NewNumberFormatError("", "")
	}

	if quantity <= 0 {
		return 0, apperror.NewValidationError("quantity must be positive")
	}
	return quantity, nil
}
