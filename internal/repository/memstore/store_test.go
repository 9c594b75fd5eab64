package memstore_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain"
	apperror "stockledger/internal/errors"
	"stockledger/internal/repository/memstore"
)

func seedProduct(t *testing.T, s *memstore.Store, stock int, name string) domain.Product {
	t.Helper()
	p, err := s.Save(context.Background(), domain.Product{Stock: stock, Attributes: map[string]interface{}{"name": name}})
	require.NoError(t, err)
	return p
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	p := seedProduct(t, s, 10, "Widget")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context) error {
		_, err := s.Append(ctx, domain.NewRestockEntry(p, 5, "", time.Now().UTC()))
		require.NoError(t, err)
		ok, err := s.SetStock(ctx, p.ID, p.Version, 15, "r1")
		require.NoError(t, err)
		require.True(t, ok)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	total, err := s.Count(ctx, domain.RestockFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	found, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, found.Stock)
}

func TestStore_SetStockRequiresObservedVersion(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	p := seedProduct(t, s, 3, "Nut")

	ok, err := s.SetStock(ctx, p.ID, p.Version+1, 99, "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.SetStock(ctx, p.ID, p.Version, 8, "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	found, _ := s.FindByID(ctx, p.ID)
	assert.Equal(t, 8, found.Stock)
	assert.Equal(t, "r1", found.LastRestockID)
	assert.Equal(t, p.Version+1, found.Version)
}

func TestStore_ListJoinedPaginatesNewestFirst(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	p := seedProduct(t, s, 0, "Widget")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		_, err := s.Append(ctx, domain.NewRestockEntry(domain.Product{ID: p.ID, Stock: i}, 1, "", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	var pages [][]domain.RestockRecord
	for skip := 0; skip < 15; skip += 5 {
		page, err := s.ListJoined(ctx, domain.RestockFilter{}, skip, 5)
		require.NoError(t, err)
		pages = append(pages, page)
		for _, r := range page {
			assert.False(t, seen[r.ID], "entry repeated across pages")
			seen[r.ID] = true
		}
	}

	assert.Len(t, pages[0], 5)
	assert.Len(t, pages[1], 5)
	assert.Len(t, pages[2], 2)
	assert.Len(t, seen, 12)
	assert.Equal(t, 12, pages[0][0].NewStock)
	assert.Equal(t, 7, pages[1][0].NewStock)
	assert.Equal(t, "Widget", pages[1][0].Product.Attributes["name"])
}

func TestStore_ListJoinedHandlesExtremeBounds(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	p := seedProduct(t, s, 0, "Widget")
	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, domain.NewRestockEntry(domain.Product{ID: p.ID, Stock: i}, 1, "", time.Now()))
		require.NoError(t, err)
	}

	page, err := s.ListJoined(ctx, domain.RestockFilter{}, 1, math.MaxInt)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = s.ListJoined(ctx, domain.RestockFilter{}, -1, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	page, err = s.ListJoined(ctx, domain.RestockFilter{}, math.MaxInt, math.MaxInt)
	require.NoError(t, err)
	assert.Empty(t, page)

	products, err := s.FindAll(ctx, domain.ProductFilter{Page: math.MaxInt, Limit: math.MaxInt})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestStore_ListJoinedBreaksTimestampTiesByInsertionOrder(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	p := seedProduct(t, s, 0, "Widget")

	at := time.Now().UTC()
	first, _ := s.Append(ctx, domain.NewRestockEntry(p, 1, "", at))
	second, _ := s.Append(ctx, domain.NewRestockEntry(p, 2, "", at))

	records, err := s.ListJoined(ctx, domain.RestockFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, second, records[0].ID)
	assert.Equal(t, first, records[1].ID)
}

func TestStore_SoftDeletedProductsStillJoin(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	p := seedProduct(t, s, 0, "Gone")

	_, err := s.Append(ctx, domain.NewRestockEntry(p, 4, "", time.Now().UTC()))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, p.ID))

	_, err = s.FindByID(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))

	records, err := s.ListJoined(ctx, domain.RestockFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Product.IsDeleted())
}

func TestStore_PurgedProductsAreDroppedButCounted(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	kept := seedProduct(t, s, 0, "Kept")
	purged := seedProduct(t, s, 0, "Purged")

	now := time.Now().UTC()
	_, _ = s.Append(ctx, domain.NewRestockEntry(kept, 1, "", now))
	_, _ = s.Append(ctx, domain.NewRestockEntry(purged, 1, "", now.Add(time.Second)))
	s.Purge(purged.ID)

	total, err := s.Count(ctx, domain.RestockFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	records, err := s.ListJoined(ctx, domain.RestockFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, kept.ID, records[0].ProductID)
}

func TestStore_FilterByQuantityAndProduct(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	a := seedProduct(t, s, 0, "A")
	b := seedProduct(t, s, 0, "B")

	now := time.Now().UTC()
	for i, q := range []int{1, 5, 10, 20} {
		_, _ = s.Append(ctx, domain.NewRestockEntry(a, q, "", now.Add(time.Duration(i)*time.Second)))
	}
	_, _ = s.Append(ctx, domain.NewRestockEntry(b, 7, "", now))

	minQ, maxQ := 5, 10
	filter := domain.RestockFilter{ProductID: a.ID, MinQuantity: &minQ, MaxQuantity: &maxQ}

	total, err := s.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	records, err := s.ListJoined(ctx, filter, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 10, records[0].Quantity)
	assert.Equal(t, 5, records[1].Quantity)
}

func TestStore_FindAllFiltersByNameAndSkipsDeleted(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	seedProduct(t, s, 1, "Blue Widget")
	seedProduct(t, s, 1, "Red Widget")
	gadget := seedProduct(t, s, 1, "Gadget")
	require.NoError(t, s.Delete(ctx, gadget.ID))

	widgets, err := s.FindAll(ctx, domain.ProductFilter{Page: 1, Limit: 10, Name: "widget"})
	require.NoError(t, err)
	assert.Len(t, widgets, 2)

	all, err := s.FindAll(ctx, domain.ProductFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	p := seedProduct(t, s, 1, "Widget")

	p.Attributes["name"] = "mutated"
	found, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", found.Attributes["name"])
}
