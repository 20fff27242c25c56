package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	productID     = "stress-test-product"
	initialStock  = 20
	totalRequests = 50
)

func main() {
	ctx := context.Background()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	// Initialize Redis
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	defer rdb.Close()

	redisAdapter := storage.NewRedisAdapter(rdb)
	if err := redisAdapter.SetStock(ctx, productID, initialStock); err != nil {
		log.Fatalf("failed to set stock: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32
	var mu sync.Mutex
	var reservations []string

	// Spawn concurrent checkouts for the last units
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(guest int) {
			defer wg.Done()

			res := domain.Reservation{
				ID:        uuid.NewString(),
				GuestID:   fmt.Sprintf("stress-guest-%d", guest),
				Lines:     []domain.StockLine{{ProductID: productID, Quantity: 1}},
				CreatedAt: time.Now(),
			}
			result, err := redisAdapter.ReserveStock(ctx, res)
			if err != nil || !result.OK() {
				failCount.Add(1)
				return
			}
			successCount.Add(1)
			mu.Lock()
			reservations = append(reservations, res.ID)
			mu.Unlock()
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Reserved:         %d\n", success)
	fmt.Printf("Rejected:         %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d reservations succeeded, %d rejected\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	finalStock, _ := rdb.Get(ctx, "stock:"+productID).Int()
	fmt.Printf("Final Redis Stock: %d\n", finalStock)
	if finalStock == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", finalStock)
	}

	// Release every reservation twice concurrently; stock must return exactly once.
	for _, id := range reservations {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := redisAdapter.ReleaseStock(ctx, id); err != nil {
					log.Printf("release %s failed: %v", id, err)
				}
			}(id)
		}
	}
	wg.Wait()

	restored, _ := rdb.Get(ctx, "stock:"+productID).Int()
	fmt.Printf("Stock After Release: %d\n", restored)
	if restored == initialStock {
		fmt.Println("PASS: Released stock returned exactly once")
	} else {
		fmt.Printf("FAIL: Expected stock %d after release, got %d\n", initialStock, restored)
	}
}
