package domain

import (
	"encoding/json"
	"time"
)

// Product representa um item do inventário (a Entidade).
// Os campos fixos (ID, Stock) carregam as invariantes; os demais atributos
// (nome, preço, categoria...) são livres e opacos para o núcleo de estoque.
type Product struct {
	ID            string
	Stock         int                    // Sempre >= 0
	Attributes    map[string]interface{} // Campos livres informados pelo cliente
	Version       int                    // Para Controle de Concorrência Otimista (OCC)
	LastRestockID string                 // Último lançamento do ledger aplicado ao estoque
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time // Tombstone: produto removido logicamente
}

// ReservedProductFields são chaves que não podem ser usadas como atributos livres.
var ReservedProductFields = map[string]bool{
	"id":              true,
	"_id":             true,
	"stock":           true,
	"version":         true,
	"last_restock_id": true,
	"created_at":      true,
	"updated_at":      true,
	"deleted_at":      true,
}

// IsDeleted indica se o produto foi removido logicamente.
func (p Product) IsDeleted() bool {
	return p.DeletedAt != nil
}

// MarshalJSON achata os atributos livres ao lado dos campos fixos.
func (p Product) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Attributes)+5)
	for k, v := range p.Attributes {
		out[k] = v
	}
	out["id"] = p.ID
	out["stock"] = p.Stock
	out["created_at"] = p.CreatedAt
	out["updated_at"] = p.UpdatedAt
	if p.DeletedAt != nil {
		out["deleted_at"] = p.DeletedAt
	}
	return json.Marshal(out)
}

// ProductInput é o payload já validado de criação/atualização de produto.
// Stock nil significa "não informado".
type ProductInput struct {
	Stock      *int
	Attributes map[string]interface{}
}

// ProductFilter define os parâmetros de busca e paginação.
type ProductFilter struct {
	Page  int
	Limit int
	Name  string
}

// Offset calcula o deslocamento da página solicitada.
// Páginas além de MaxCount devolvem MaxCount (página vazia).
func (f ProductFilter) Offset() int {
	skip, ok := PageOffset(f.Page, f.Limit)
	if !ok {
		return MaxCount
	}
	return skip
}
