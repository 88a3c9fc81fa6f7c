package apiv1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/ShopFox/app/repository"
	"github.com/ManuelReschke/ShopFox/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/ShopFox/internal/pkg/statistics"
)

// APIServer serves the internal v1 endpoints.
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// GetShopStats returns order aggregates and the live payment funnel counters.
// Protected by the admin API key middleware attached in the router.
func (s *APIServer) GetShopStats(c *fiber.Ctx) error {
	stats := statistics.GetStatistics()

	views, err := counter.CheckoutViews()
	if err != nil {
		log.Warnf("[API] Failed to read checkout view counter: %v", err)
	}
	outcomes, err := counter.PaymentOutcomes()
	if err != nil {
		log.Warnf("[API] Failed to read payment outcome counters: %v", err)
	}

	recent, err := repository.GetGlobalRepositories().Order.ListRecent(0, 10)
	if err != nil {
		log.Warnf("[API] Failed to list recent orders: %v", err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"orders":          stats,
		"checkoutViews":   views,
		"paymentOutcomes": outcomes,
		"recentOrders":    recent,
	})
}
