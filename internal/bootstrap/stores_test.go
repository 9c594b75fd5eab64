package bootstrap_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/config"
	"stockledger/internal/bootstrap"
	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
)

func TestOpenStores_Memory(t *testing.T) {
	cfg := &config.Config{StoreDriver: config.StoreDriverMemory}

	stores, err := bootstrap.OpenStores(context.Background(), cfg, logger.NewLogger("error"))
	require.NoError(t, err)
	defer stores.Close()

	assert.Nil(t, stores.Cache)

	ctx := context.Background()
	p, err := stores.Products.Save(ctx, domain.Product{Stock: 1})
	require.NoError(t, err)

	err = stores.Tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := stores.Ledger.Append(ctx, domain.NewRestockEntry(p, 1, "", p.CreatedAt))
		return err
	})
	require.NoError(t, err)

	total, err := stores.Ledger.Count(ctx, domain.RestockFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	_, err := bootstrap.OpenStores(context.Background(), &config.Config{StoreDriver: "sqlite"}, logger.NewLogger("error"))
	assert.Error(t, err)
}
