package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

const productListKey = "products"

// CatalogService serves the product listing cache-aside. Cache errors fall
// back to the database.
type CatalogService struct {
	db     port.DatabaseRepository
	cache  port.CacheRepository
	ttl    time.Duration
	logger *log.Logger
	group  singleflight.Group
}

func NewCatalogService(db port.DatabaseRepository, cache port.CacheRepository, ttl time.Duration, logger *log.Logger) *CatalogService {
	return &CatalogService{db: db, cache: cache, ttl: ttl, logger: logger}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, ok, err := s.cache.GetProductList(ctx)
	if err != nil {
		s.logger.Printf("catalog: cache read failed: %v", err)
	} else if ok {
		return products, nil
	}

	// The load is shared by every coalesced caller, so it must outlive the
	// request that happened to start it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(productListKey, func() (any, error) {
		ctx := loadCtx
		products, err := s.db.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.cache.SetProductList(ctx, products, s.ttl); err != nil {
			s.logger.Printf("catalog: cache write failed: %v", err)
		}
		return products, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return v.([]domain.Product), nil
}

func (s *CatalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	found, err := s.db.GetProducts(ctx, []string{productID})
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", productID, err)
	}
	p, ok := found[productID]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return p, nil
}

// SeedStock copies on-hand stock into the sellable counters that do not
// exist yet.
func (s *CatalogService) SeedStock(ctx context.Context) (int, error) {
	products, err := s.db.ListProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list products: %w", err)
	}
	for _, p := range products {
		if err := s.cache.SeedStock(ctx, p.ID, p.Stock); err != nil {
			return 0, fmt.Errorf("seed stock %s: %w", p.ID, err)
		}
	}
	return len(products), nil
}
