package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key format for cart contents. Format: cart:<cartId>
const CartKeyFormat = "cart:%s"

// CartTTL keeps abandoned carts around for a week.
const CartTTL = 7 * 24 * time.Hour

// Item is one cart line.
type Item struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}

// Service stores cart contents in Redis keyed by cart id.
type Service struct {
	client *redis.Client
}

// NewService creates a cart service on the given Redis client.
func NewService(client *redis.Client) *Service {
	return &Service{client: client}
}

func cartKey(cartID string) string {
	return fmt.Sprintf(CartKeyFormat, cartID)
}

// Items returns the cart contents; a missing cart is an empty cart.
func (s *Service) Items(ctx context.Context, cartID string) ([]Item, error) {
	data, err := s.client.Get(ctx, cartKey(cartID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Item{}, nil
		}
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart %s: %w", cartID, err)
	}
	return items, nil
}

// AddItem merges the item into the cart, bumping the quantity of an existing
// line for the same product.
func (s *Service) AddItem(ctx context.Context, cartID string, item Item) error {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	items, err := s.Items(ctx, cartID)
	if err != nil {
		return err
	}
	items = MergeItem(items, item)

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart %s: %w", cartID, err)
	}
	return s.client.Set(ctx, cartKey(cartID), data, CartTTL).Err()
}

// ClearCart removes the cart's contents. Called at most once per successful
// payment by the side-effect driver.
func (s *Service) ClearCart(ctx context.Context, cartID string) error {
	return s.client.Del(ctx, cartKey(cartID)).Err()
}

// MergeItem folds an item into the line list, collapsing duplicate products.
func MergeItem(items []Item, item Item) []Item {
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity += item.Quantity
			return items
		}
	}
	return append(items, item)
}

// Total sums the cart in cents.
func Total(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += it.PriceCents * int64(it.Quantity)
	}
	return total
}
