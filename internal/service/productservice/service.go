package productservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/pkg/logger"
)

// ProductRepository define o contrato (interface) que este Serviço espera
// da camada de Persistência (DB, Cache).
type ProductRepository interface {
	Save(ctx context.Context, product domain.Product) (domain.Product, error)
	FindByID(ctx context.Context, id string) (domain.Product, error)
	FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	FindLowStock(ctx context.Context, threshold int) ([]domain.Product, error)
	Update(ctx context.Context, id string, attributes map[string]interface{}, stock *int) (domain.Product, error)
	Delete(ctx context.Context, id string) error
}

// Service é a estrutura que implementa as regras de negócio do catálogo de produtos.
type Service struct {
	repo              ProductRepository
	lowStockThreshold int
	logger            logger.Logger
}

// NewService cria e retorna uma nova instância do Serviço de Produto.
func NewService(repo ProductRepository, lowStockThreshold int, log logger.Logger) *Service {
	return &Service{repo: repo, lowStockThreshold: lowStockThreshold, logger: log}
}

// --- Implementação: CreateProduct ---
func (s *Service) CreateProduct(ctx context.Context, payload map[string]interface{}) (domain.Product, error) {
	input, err := ParseProductInput(payload)
	if err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{Attributes: input.Attributes}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}

	created, err := s.repo.Save(ctx, product)
	if err != nil {
		s.logger.Error("Falha ao salvar produto no repositório.", err)
		return domain.Product{}, err
	}

	s.logger.Info("Produto criado.", map[string]interface{}{"product_id": created.ID, "stock": created.Stock})
	return created, nil
}

// --- Implementação: GetProductByID ---
func (s *Service) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Product{}, apperror.NewValidationError("product id is required")
	}
	return s.repo.FindByID(ctx, id)
}

// GetProducts lista produtos ativos com paginação e filtro opcional por nome.
func (s *Service) GetProducts(ctx context.Context, page, limit int, name string) ([]domain.Product, error) {
	if page < 1 {
		return nil, apperror.NewValidationError("page must be >= 1")
	}
	if limit < 1 {
		return nil, apperror.NewValidationError("limit must be >= 1")
	}
	if _, ok := domain.PageOffset(page, limit); !ok {
		return nil, apperror.NewValidationError("page out of range")
	}

	filter := domain.ProductFilter{Page: page, Limit: limit, Name: strings.TrimSpace(name)}
	products, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		s.logger.Error("Falha ao listar produtos.", err)
		return nil, err
	}
	return products, nil
}

// UpdateProduct mescla atributos e, se informado, redefine o estoque.
func (s *Service) UpdateProduct(ctx context.Context, id string, payload map[string]interface{}) (domain.Product, error) {
	input, err := ParseProductInput(payload)
	if err != nil {
		return domain.Product{}, err
	}
	if input.Stock == nil && len(input.Attributes) == 0 {
		return domain.Product{}, apperror.NewValidationError("no updatable fields provided")
	}

	updated, err := s.repo.Update(ctx, id, input.Attributes, input.Stock)
	if err != nil {
		if !apperror.IsNotFound(err) {
			s.logger.Error("Falha ao atualizar produto.", err)
		}
		return domain.Product{}, err
	}

	s.logger.Info("Produto atualizado.", map[string]interface{}{"product_id": id, "version": updated.Version})
	return updated, nil
}

// DeleteProduct remove o produto logicamente; o histórico continua resolvendo o produto.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if !apperror.IsNotFound(err) {
			s.logger.Error("Falha ao remover produto.", err)
		}
		return err
	}
	s.logger.Info("Produto removido.", map[string]interface{}{"product_id": id})
	return nil
}

// LowStockProducts lista produtos com estoque <= threshold.
// threshold nil usa o limite configurado.
func (s *Service) LowStockProducts(ctx context.Context, threshold *int) ([]domain.Product, int, error) {
	limit := s.lowStockThreshold
	if threshold != nil {
		limit = *threshold
	}
	if limit < 0 {
		return nil, 0, apperror.NewValidationError("threshold must be >= 0")
	}

	products, err := s.repo.FindLowStock(ctx, limit)
	if err != nil {
		s.logger.Error("Falha ao listar produtos com estoque baixo.", err)
		return nil, 0, err
	}
	return products, limit, nil
}

// ParseProductInput separa o estoque dos atributos livres.
// Chaves reservadas (id, version...) são descartadas; stock deve ser inteiro >= 0.
func ParseProductInput(payload map[string]interface{}) (domain.ProductInput, error) {
	input := domain.ProductInput{Attributes: make(map[string]interface{}, len(payload))}

	for key, value := range payload {
		if key == "stock" {
			if value == nil {
				continue
			}
			stock, err := parseStock(value)
			if err != nil {
				return domain.ProductInput{}, err
			}
			input.Stock = &stock
			continue
		}
		if domain.ReservedProductFields[key] {
			continue
		}
		input.Attributes[key] = value
	}

	if name, ok := input.Attributes["name"]; ok {
		if str, isString := name.(string); !isString || strings.TrimSpace(str) == "" {
			return domain.ProductInput{}, apperror.NewValidationError("name must be a non-empty string")
		}
	}

	return input, nil
}

func parseStock(value interface{}) (int, error) {
	var (
		stock int
		ok    bool
	)

	switch v := value.(type) {
	case json.Number:
		stock, ok = domain.ParseCountNumber(v.String())
	case float64:
		stock, ok = domain.ParseCountNumber(strconv.FormatFloat(v, 'f', -1, 64))
	case int:
		stock, ok = v, v <= domain.MaxCount
	case string:
		stock, ok = domain.ParseCount(v)
	}
	if !ok {
		return 0, apperror.NewNumberFormatError("stock", fmt.Sprint(value))
	}

	if stock < 0 {
		return 0, apperror.NewValidationError("stock must be >= 0")
	}
	return stock, nil
}
