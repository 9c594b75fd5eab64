package domain

import (
	"encoding/json"
	"time"
)

// RestockStatusCompleted é o único status persistido no ledger.
const RestockStatusCompleted = "completed"

// RestockEntry é um lançamento imutável do ledger de reposições.
// Uma vez gravado, nunca é alterado nem removido.
type RestockEntry struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	Quantity      int       `json:"quantity"`
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	Timestamp     time.Time `json:"timestamp"`
	Notes         string    `json:"notes"`
	Status        string    `json:"status"`
}

// NewRestockEntry monta o lançamento a partir do estado atual do produto.
func NewRestockEntry(product Product, quantity int, notes string, at time.Time) RestockEntry {
	return RestockEntry{
		ProductID:     product.ID,
		Quantity:      quantity,
		PreviousStock: product.Stock,
		NewStock:      product.Stock + quantity,
		Timestamp:     at,
		Notes:         notes,
		Status:        RestockStatusCompleted,
	}
}

// RestockRecord é um lançamento do ledger enriquecido com o produto referenciado.
type RestockRecord struct {
	RestockEntry
	Product Product `json:"product"`
}

// RestockRequest é o payload da requisição de reposição.
// Quantity fica bruto para que o serviço distinga "ausente" de "formato inválido".
type RestockRequest struct {
	Quantity json.RawMessage `json:"quantity"`
	Notes    string          `json:"notes"`
}

// RestockResult é o resultado de uma reposição concluída.
type RestockResult struct {
	NewStock  int
	RestockID string
}

// RestockFilter restringe a leitura do histórico. Campos nil não filtram.
type RestockFilter struct {
	ProductID   string
	From        *time.Time
	To          *time.Time
	MinQuantity *int
	MaxQuantity *int
}

// RestockPage é uma página do histórico de reposições.
type RestockPage struct {
	Entries []RestockRecord
	Total   int
	Page    int
	PerPage int
}
