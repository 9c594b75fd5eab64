package historyservice

import (
	"context"

	"golang.org/x/sync/errgroup"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// Ledger define o contrato de leitura do ledger esperado pelo leitor de histórico.
type Ledger interface {
	Count(ctx context.Context, filter domain.RestockFilter) (int, error)
	ListJoined(ctx context.Context, filter domain.RestockFilter, skip, limit int) ([]domain.RestockRecord, error)
}

// Service lê o histórico paginado de reposições.
type Service struct {
	ledger Ledger
	logger logger.Logger
}

// NewService cria e retorna uma nova instância do leitor de histórico.
func NewService(ledger Ledger, log logger.Logger) *Service {
	return &Service{ledger: ledger, logger: log}
}

// ListRestocks devolve uma página do histórico, mais recente primeiro.
// Total conta o ledger sob o filtro; lançamentos sem produto saem da página mas contam no total.
func (s *Service) ListRestocks(ctx context.Context, page, perPage int, filter domain.RestockFilter) (domain.RestockPage, error) {
	if page < 1 {
		return domain.RestockPage{}, apperror.NewValidationError("page must be >= 1")
	}
	if perPage < 1 {
		return domain.RestockPage{}, apperror.NewValidationError("per_page must be >= 1")
	}
	if filter.MinQuantity != nil && filter.MaxQuantity != nil && *filter.MinQuantity > *filter.MaxQuantity {
		return domain.RestockPage{}, apperror.NewValidationError("min_quantity must be <= max_quantity")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return domain.RestockPage{}, apperror.NewValidationError("date_from must be before date_to")
	}

	skip, ok := domain.PageOffset(page, perPage)
	if !ok {
		return domain.RestockPage{}, apperror.NewValidationError("page out of range")
	}

	var (
		total   int
		records []domain.RestockRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.ledger.Count(gctx, filter)
		total = n
		return err
	})
	g.Go(func() error {
		r, err := s.ledger.ListJoined(gctx, filter, skip, perPage)
		records = r
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Falha ao ler histórico de reposições.", err)
		if _, ok := err.(apperror.AppError); ok {
			return domain.RestockPage{}, err
		}
		return domain.RestockPage{}, apperror.NewInternalError("failed to list restocks", err)
	}

	if records == nil {
		records = []domain.RestockRecord{}
	}

	s.logger.Debug("Histórico de reposições lido.", map[string]interface{}{
		"page":     page,
		"per_page": perPage,
		"returned": len(records),
		"total":    total,
	})

	return domain.RestockPage{Entries: records, Total: total, Page: page, PerPage: perPage}, nil
}
