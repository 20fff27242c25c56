package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	stockKeyPrefix          = "stock:"
	reservationKeyPrefix    = "reservation:"
	guestReservationsPrefix = "guest-reservations:"
	productListKey          = "catalog:products"

	lineFieldPrefix = "line:"
)

var ErrReservationExists = errors.New("reservation id already in use")

// KEYS: reservation, guest index, stock keys...
// ARGV: reservation id, guest id, created_at, quantities..., product ids...
var reserveStockScript = redis.NewScript(`
local n = #KEYS - 2
if redis.call('EXISTS', KEYS[1]) == 1 then
	return {-1}
end

for i = 1, n do
	local quantity = tonumber(ARGV[3 + i])
	local current = tonumber(redis.call('GET', KEYS[2 + i]) or '0')
	if current < quantity then
		return {i, current}
	end
end

for i = 1, n do
	redis.call('DECRBY', KEYS[2 + i], ARGV[3 + i])
	redis.call('HSET', KEYS[1], 'line:' .. ARGV[3 + n + i], ARGV[3 + i])
end
redis.call('HSET', KEYS[1], 'guest', ARGV[2], 'created_at', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[1])

return {0}
`)

// KEYS: reservation
// ARGV: stock prefix, guest index prefix, reservation id, restock flag
var finishReservationScript = redis.NewScript(`
local fields = redis.call('HGETALL', KEYS[1])
if #fields == 0 then
	return false
end

local restock = ARGV[4] == '1'
local guest
local lines = {}
for i = 1, #fields, 2 do
	local field, value = fields[i], fields[i + 1]
	if string.sub(field, 1, 5) == 'line:' then
		local productID = string.sub(field, 6)
		if restock then
			redis.call('INCRBY', ARGV[1] .. productID, value)
		end
		table.insert(lines, productID)
		table.insert(lines, value)
	elseif field == 'guest' then
		guest = value
	end
end

redis.call('DEL', KEYS[1])
if guest then
	redis.call('SREM', ARGV[2] .. guest, ARGV[3])
end

return lines
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) ReserveStock(ctx context.Context, res domain.Reservation) (domain.ReserveResult, error) {
	n := len(res.Lines)
	keys := make([]string, 0, n+2)
	keys = append(keys, reservationKeyPrefix+res.ID, guestReservationsPrefix+res.GuestID)
	args := make([]any, 0, 2*n+3)
	args = append(args, res.ID, res.GuestID, res.CreatedAt.Unix())
	for _, l := range res.Lines {
		keys = append(keys, stockKeyPrefix+l.ProductID)
		args = append(args, l.Quantity)
	}
	for _, l := range res.Lines {
		args = append(args, l.ProductID)
	}

	result, err := reserveStockScript.Run(ctx, r.client, keys, args...).Int64Slice()
	if err != nil {
		return domain.ReserveResult{}, err
	}

	switch {
	case len(result) == 0:
		return domain.ReserveResult{}, fmt.Errorf("reserve stock: empty script result")
	case result[0] == -1:
		return domain.ReserveResult{}, ErrReservationExists
	case result[0] == 0:
		return domain.ReserveResult{Reserved: res.Lines}, nil
	}

	line := res.Lines[result[0]-1]
	var available int64
	if len(result) > 1 {
		available = result[1]
	}
	return domain.ReserveResult{Depleted: []domain.DepletedLine{{
		ProductID: line.ProductID,
		Requested: line.Quantity,
		Available: int(available),
	}}}, nil
}

func (r *RedisAdapter) ReleaseStock(ctx context.Context, reservationID string) ([]domain.StockLine, error) {
	return r.finishReservation(ctx, reservationID, true)
}

func (r *RedisAdapter) ConsumeReservation(ctx context.Context, reservationID string) ([]domain.StockLine, error) {
	return r.finishReservation(ctx, reservationID, false)
}

func (r *RedisAdapter) finishReservation(ctx context.Context, reservationID string, restock bool) ([]domain.StockLine, error) {
	flag := "0"
	if restock {
		flag = "1"
	}

	result, err := finishReservationScript.Run(ctx, r.client,
		[]string{reservationKeyPrefix + reservationID},
		stockKeyPrefix, guestReservationsPrefix, reservationID, flag,
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	lines := make([]domain.StockLine, 0, len(result)/2)
	for i := 0; i+1 < len(result); i += 2 {
		qty, err := strconv.Atoi(result[i+1])
		if err != nil {
			return nil, fmt.Errorf("parse reserved quantity %q: %w", result[i+1], err)
		}
		lines = append(lines, domain.StockLine{ProductID: result[i], Quantity: qty})
	}
	return lines, nil
}

func (r *RedisAdapter) GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error) {
	fields, err := r.client.HGetAll(ctx, reservationKeyPrefix+reservationID).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}

	res := &domain.Reservation{ID: reservationID}
	for field, value := range fields {
		switch {
		case field == "guest":
			res.GuestID = value
		case field == "created_at":
			if sec, err := strconv.ParseInt(value, 10, 64); err == nil {
				res.CreatedAt = time.Unix(sec, 0)
			}
		case strings.HasPrefix(field, lineFieldPrefix):
			qty, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("parse reserved quantity %q: %w", value, err)
			}
			res.Lines = append(res.Lines, domain.StockLine{
				ProductID: strings.TrimPrefix(field, lineFieldPrefix),
				Quantity:  qty,
			})
		}
	}
	return res, nil
}

func (r *RedisAdapter) ListGuestReservations(ctx context.Context, guestID string) ([]string, error) {
	return r.client.SMembers(ctx, guestReservationsPrefix+guestID).Result()
}

func (r *RedisAdapter) SeedStock(ctx context.Context, productID string, quantity int) error {
	return r.client.SetNX(ctx, stockKeyPrefix+productID, quantity, 0).Err()
}

func (r *RedisAdapter) SetStock(ctx context.Context, productID string, quantity int) error {
	key := stockKeyPrefix + productID
	return r.client.Set(ctx, key, quantity, 0).Err()
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) GetProductList(ctx context.Context) ([]domain.Product, bool, error) {
	raw, err := r.client.Get(ctx, productListKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false, fmt.Errorf("decode cached products: %w", err)
	}
	return products, true, nil
}

func (r *RedisAdapter) SetProductList(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	raw, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}
	return r.client.Set(ctx, productListKey, raw, ttl).Err()
}
