package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_ListProductsCachesResult(t *testing.T) {
	db := newMockDB()
	db.addProduct("A", "1.00", 3)
	cache := newMockCache(nil)
	svc := NewCatalogService(db, cache, time.Minute, discardLogger)

	first, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.NotNil(t, cache.products, "listing written to cache")

	delete(db.products, "A")
	second, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, second, 1, "served from cache")
}

func TestCatalog_ListProductsLoadSurvivesCancelledCaller(t *testing.T) {
	db := newMockDB()
	db.addProduct("A", "1.00", 3)
	cache := newMockCache(nil)
	svc := NewCatalogService(db, cache, time.Minute, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	products, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.NotNil(t, cache.products, "shared load still fills the cache")
}

func TestCatalog_SeedStockKeepsLiveCounters(t *testing.T) {
	db := newMockDB()
	db.addProduct("A", "1.00", 10)
	db.addProduct("B", "1.00", 5)
	cache := newMockCache(map[string]int{"A": 2})
	svc := NewCatalogService(db, cache, time.Minute, discardLogger)

	n, err := svc.SeedStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, cache.stock["A"], "existing counter untouched")
	assert.Equal(t, 5, cache.stock["B"])
}

func TestCatalog_GetProduct(t *testing.T) {
	db := newMockDB()
	db.addProduct("A", "20.50", 3)
	svc := NewCatalogService(db, newMockCache(nil), time.Minute, discardLogger)

	p, err := svc.GetProduct(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, "20.5", p.Price.String())

	_, err = svc.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrProductNotFound)
}
