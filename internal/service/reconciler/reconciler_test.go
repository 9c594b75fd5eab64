package reconciler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/repository/memstore"
	"stockledger/internal/service/reconciler"
	"stockledger/internal/service/restockservice"
)

func setup(t *testing.T, stock int) (*memstore.Store, *reconciler.Reconciler, domain.Product) {
	t.Helper()
	store := memstore.New()
	p, err := store.Save(context.Background(), domain.Product{Stock: stock})
	require.NoError(t, err)
	return store, reconciler.New(store, store, logger.NewLogger("error")), p
}

func TestRunOnce_NoopWhenConsistent(t *testing.T) {
	store, rec, p := setup(t, 10)
	ctx := context.Background()

	svc := restockservice.NewService(store, store, store, 3, time.Millisecond, logger.NewLogger("error"))
	_, err := svc.Restock(ctx, p.ID, domain.RestockRequest{Quantity: []byte(`4`)})
	require.NoError(t, err)

	report, err := rec.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Zero(t, report.Applied)
	assert.Empty(t, report.Drifted)

	found, _ := store.FindByID(ctx, p.ID)
	assert.Equal(t, 14, found.Stock)
}

func TestRunOnce_AppliesUnappliedEntryExactlyOnce(t *testing.T) {
	store, rec, p := setup(t, 10)
	ctx := context.Background()

	// Lançamento gravado sem a escrita de estoque correspondente.
	id, err := store.Append(ctx, domain.NewRestockEntry(p, 5, "", time.Now().UTC()))
	require.NoError(t, err)

	report, err := rec.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)

	found, _ := store.FindByID(ctx, p.ID)
	assert.Equal(t, 15, found.Stock)
	assert.Equal(t, id, found.LastRestockID)

	report, err = rec.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Applied)
	found, _ = store.FindByID(ctx, p.ID)
	assert.Equal(t, 15, found.Stock)
}

func TestRunOnce_ReportsDriftWithoutWriting(t *testing.T) {
	store, rec, p := setup(t, 10)
	ctx := context.Background()

	_, err := store.Append(ctx, domain.NewRestockEntry(domain.Product{ID: p.ID, Stock: 3}, 5, "", time.Now().UTC()))
	require.NoError(t, err)

	report, err := rec.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Applied)
	assert.Equal(t, []string{p.ID}, report.Drifted)

	found, _ := store.FindByID(ctx, p.ID)
	assert.Equal(t, 10, found.Stock)
}

func TestRunOnce_SkipsProductsWithoutHistory(t *testing.T) {
	store, rec, _ := setup(t, 1)
	_, err := store.Save(context.Background(), domain.Product{Stock: 2})
	require.NoError(t, err)

	report, err := rec.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Zero(t, report.Applied)
}

func TestRun_StopsWhenContextIsCancelled(t *testing.T) {
	_, rec, _ := setup(t, 1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		rec.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
