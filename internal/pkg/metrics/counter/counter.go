package counter

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/ShopFox/internal/pkg/cache"
)

const (
	checkoutViewsKey    = "checkout:counters:views"
	paymentOutcomesKey  = "payment:counters:outcomes"
	webhookDuplicateKey = "payment:counters:webhook_duplicates"
)

// AddCheckoutView increments the counter of mounted checkout callback screens.
func AddCheckoutView() error {
	return cache.GetClient().Incr(context.Background(), checkoutViewsKey).Err()
}

// AddPaymentOutcome increments the counter for one terminal outcome
// (success, failed, timeout), recorded once per watched payment at its
// terminal transition.
func AddPaymentOutcome(outcome string) error {
	return cache.GetClient().HIncrBy(context.Background(), paymentOutcomesKey, outcome, 1).Err()
}

// AddWebhookDuplicate counts replayed webhook deliveries.
func AddWebhookDuplicate() error {
	return cache.GetClient().Incr(context.Background(), webhookDuplicateKey).Err()
}

// CheckoutViews returns the total number of checkout screens served.
func CheckoutViews() (int64, error) {
	val, err := cache.GetClient().Get(context.Background(), checkoutViewsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// PaymentOutcomes returns the per-outcome counters.
func PaymentOutcomes() (map[string]int64, error) {
	raw, err := cache.GetClient().HGetAll(context.Background(), paymentOutcomesKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
