// Package memstore é um Product Store e Restock Ledger em memória.
// Segue os mesmos contratos dos repositórios PostgreSQL (CAS de estoque,
// ledger somente inserção e rollback transacional) e é usado nos testes
// e com STORE_DRIVER=memory.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stockledger/internal/domain"
	"stockledger/internal/errors"
)

type txKey struct{}

type storedEntry struct {
	seq   int64
	entry domain.RestockEntry
}

// Store guarda produtos e lançamentos em memória.
type Store struct {
	txMu sync.Mutex   // serializa transações e escritas
	mu   sync.RWMutex // protege os mapas

	products map[string]domain.Product
	restocks []storedEntry
	seq      int64
}

// New cria um Store vazio.
func New() *Store {
	return &Store{products: make(map[string]domain.Product)}
}

// WithinTx executa fn de forma serializada; erro em fn restaura o estado anterior.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lockWrite garante exclusão mútua com transações em andamento.
func (s *Store) lockWrite(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

type state struct {
	products map[string]domain.Product
	restocks []storedEntry
	seq      int64
}

func (s *Store) snapshot() state {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make(map[string]domain.Product, len(s.products))
	for id, p := range s.products {
		products[id] = p
	}
	return state{
		products: products,
		restocks: append([]storedEntry(nil), s.restocks...),
		seq:      s.seq,
	}
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = st.products
	s.restocks = st.restocks
	s.seq = st.seq
}

// --- Product Store ---

// Save insere um novo produto.
func (s *Store) Save(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, errors.NewDBError("failed to insert product", err)
	}
	defer s.lockWrite(ctx)()

	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.NewString()
	}
	if _, exists := s.products[product.ID]; exists {
		return domain.Product{}, errors.NewDBError("failed to insert product", fmt.Errorf("duplicate id %s", product.ID))
	}

	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.Version = 1
	product.Attributes = copyAttributes(product.Attributes)

	s.products[product.ID] = product
	return cloneProduct(product), nil
}

// FindByID busca um produto ativo.
func (s *Store) FindByID(ctx context.Context, id string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, errors.NewDBError("failed to find product", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok || p.IsDeleted() {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	return cloneProduct(p), nil
}

// FindAll lista produtos ativos (mais recentes primeiro).
func (s *Store) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewDBError("failed to list products", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	name := strings.ToLower(filter.Name)
	matched := []domain.Product{}
	for _, p := range s.products {
		if p.IsDeleted() {
			continue
		}
		if name != "" {
			n, _ := p.Attributes["name"].(string)
			if !strings.Contains(strings.ToLower(n), name) {
				continue
			}
		}
		matched = append(matched, cloneProduct(p))
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return paginate(matched, filter.Offset(), filter.Limit), nil
}

// FindLowStock lista produtos ativos com estoque <= threshold.
func (s *Store) FindLowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewDBError("failed to list low-stock products", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	low := []domain.Product{}
	for _, p := range s.products {
		if !p.IsDeleted() && p.Stock <= threshold {
			low = append(low, cloneProduct(p))
		}
	}
	sort.Slice(low, func(i, j int) bool {
		if low[i].Stock != low[j].Stock {
			return low[i].Stock < low[j].Stock
		}
		return low[i].ID < low[j].ID
	})
	return low, nil
}

// Update mescla atributos e, opcionalmente, redefine o estoque.
func (s *Store) Update(ctx context.Context, id string, attributes map[string]interface{}, stock *int) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, errors.NewDBError("failed to update product", err)
	}
	defer s.lockWrite(ctx)()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.IsDeleted() {
		return domain.Product{}, errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}

	p.Attributes = copyAttributes(p.Attributes)
	for k, v := range attributes {
		p.Attributes[k] = v
	}
	if stock != nil {
		p.Stock = *stock
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()

	s.products[id] = p
	return cloneProduct(p), nil
}

// SetStock é o compare-and-swap de estoque sobre a versão observada.
func (s *Store) SetStock(ctx context.Context, id string, expectedVersion, newStock int, restockID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.NewDBError("failed to set stock", err)
	}
	defer s.lockWrite(ctx)()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.IsDeleted() || p.Version != expectedVersion {
		return false, nil
	}

	p.Stock = newStock
	p.Version++
	p.LastRestockID = restockID
	p.UpdatedAt = time.Now().UTC()
	s.products[id] = p
	return true, nil
}

// Delete remove o produto logicamente (tombstone).
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return errors.NewDBError("failed to delete product", err)
	}
	defer s.lockWrite(ctx)()

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.IsDeleted() {
		return errors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	now := time.Now().UTC()
	p.DeletedAt = &now
	p.UpdatedAt = now
	s.products[id] = p
	return nil
}

// Purge remove o produto fisicamente, deixando órfãos os lançamentos que o referenciam.
func (s *Store) Purge(id string) {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

// --- Restock Ledger ---

// Append grava um lançamento e devolve o ID atribuído.
func (s *Store) Append(ctx context.Context, entry domain.RestockEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.NewDBError("failed to append restock", err)
	}
	defer s.lockWrite(ctx)()

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.seq++
	s.restocks = append(s.restocks, storedEntry{seq: s.seq, entry: entry})
	return entry.ID, nil
}

// Count conta os lançamentos que atendem ao filtro.
func (s *Store) Count(ctx context.Context, filter domain.RestockFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.NewDBError("failed to count restocks", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, se := range s.restocks {
		if matches(se.entry, filter) {
			total++
		}
	}
	return total, nil
}

// ListJoined devolve uma página do ledger (timestamp desc, inserção desc) com o produto.
// Lançamentos sem produto são descartados antes da paginação, como num inner join.
func (s *Store) ListJoined(ctx context.Context, filter domain.RestockFilter, skip, limit int) ([]domain.RestockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewDBError("failed to list restocks", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	joined := make([]storedEntry, 0, len(s.restocks))
	for _, se := range s.restocks {
		if _, ok := s.products[se.entry.ProductID]; ok && matches(se.entry, filter) {
			joined = append(joined, se)
		}
	}
	sortNewestFirst(joined)

	records := []domain.RestockRecord{}
	for _, se := range paginate(joined, skip, limit) {
		records = append(records, domain.RestockRecord{
			RestockEntry: se.entry,
			Product:      cloneProduct(s.products[se.entry.ProductID]),
		})
	}
	return records, nil
}

// LatestForProduct devolve o lançamento mais recente do produto.
func (s *Store) LatestForProduct(ctx context.Context, productID string) (domain.RestockEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.RestockEntry{}, errors.NewDBError("failed to find latest restock", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *storedEntry
	for i := range s.restocks {
		se := &s.restocks[i]
		if se.entry.ProductID != productID {
			continue
		}
		if latest == nil || newer(*se, *latest) {
			latest = se
		}
	}
	if latest == nil {
		return domain.RestockEntry{}, errors.NewNotFoundError(fmt.Sprintf("no restocks for product %s", productID))
	}
	return latest.entry, nil
}

func matches(e domain.RestockEntry, f domain.RestockFilter) bool {
	if f.ProductID != "" && e.ProductID != f.ProductID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if f.MinQuantity != nil && e.Quantity < *f.MinQuantity {
		return false
	}
	if f.MaxQuantity != nil && e.Quantity > *f.MaxQuantity {
		return false
	}
	return true
}

func newer(a, b storedEntry) bool {
	if !a.entry.Timestamp.Equal(b.entry.Timestamp) {
		return a.entry.Timestamp.After(b.entry.Timestamp)
	}
	return a.seq > b.seq
}

func sortNewestFirst(entries []storedEntry) {
	sort.Slice(entries, func(i, j int) bool { return newer(entries[i], entries[j]) })
}

func paginate[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && limit < end-skip {
		end = skip + limit
	}
	return items[skip:end]
}

func copyAttributes(attrs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func cloneProduct(p domain.Product) domain.Product {
	p.Attributes = copyAttributes(p.Attributes)
	if p.DeletedAt != nil {
		t := *p.DeletedAt
		p.DeletedAt = &t
	}
	return p
}
