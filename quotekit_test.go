package quotekit_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/smarthealth/quotekit"
	"github.com/smarthealth/quotekit/domain/profile"
	"github.com/smarthealth/quotekit/domain/search"
	vecsearch "github.com/smarthealth/quotekit/infrastructure/search"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, opts ...quotekit.Option) *quotekit.Client {
	t.Helper()

	opts = append([]quotekit.Option{
		quotekit.WithDataDir(t.TempDir()),
		quotekit.WithLogger(quietLogger()),
	}, opts...)

	client, err := quotekit.New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew_MinimalClient(t *testing.T) {
	client := newClient(t)

	require.NotNil(t, client.Quotes)
	require.Nil(t, client.Store())
	require.Nil(t, client.Ingestor())
	require.False(t, client.Index().Loaded())

	// Quotes still work without an index, database, or providers.
	age := 30
	sum := 500_000
	result, err := client.Quotes.Quote(context.Background(), profile.Profile{
		Age:        &age,
		Location:   "Mumbai",
		SumInsured: &sum,
	})
	require.NoError(t, err)
	require.Equal(t, 9530.0, result.TotalPayable())
	require.True(t, result.Degraded())
}

func TestNew_WithSQLite(t *testing.T) {
	dir := t.TempDir()
	client := newClient(t, quotekit.WithSQLite(filepath.Join(dir, "audit.db")))

	require.NotNil(t, client.Store())
}

func TestNew_InvalidCostFactorsPath(t *testing.T) {
	_, err := quotekit.New(context.Background(),
		quotekit.WithDataDir(t.TempDir()),
		quotekit.WithLogger(quietLogger()),
		quotekit.WithCostFactorsPath(filepath.Join(t.TempDir(), "missing.yaml")),
	)
	require.Error(t, err)
}

func TestClient_ReloadIndex(t *testing.T) {
	client := newClient(t)
	require.False(t, client.Index().Loaded())

	idx := vecsearch.NewFlatIndex()
	require.NoError(t, idx.Build(
		[][]float64{{1, 0}, {0, 1}},
		[]search.RecordMeta{{Text: "a"}, {Text: "b"}},
	))
	dir := filepath.Join(t.TempDir(), "index")
	require.NoError(t, idx.Save(dir))

	require.NoError(t, client.ReloadIndex(dir))
	require.True(t, client.Index().Loaded())
	require.Equal(t, 2, client.Index().Index().Count())
}

func TestClient_CloseTwice(t *testing.T) {
	client, err := quotekit.New(context.Background(),
		quotekit.WithDataDir(t.TempDir()),
		quotekit.WithLogger(quietLogger()),
	)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.ErrorIs(t, client.Close(), quotekit.ErrClientClosed)
}
