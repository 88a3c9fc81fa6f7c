package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/ShopFox/app/controllers"
	apiv1 "github.com/ManuelReschke/ShopFox/internal/api/v1"
	"github.com/ManuelReschke/ShopFox/internal/pkg/constants"
	"github.com/ManuelReschke/ShopFox/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	server := apiv1.NewAPIServer()

	v1 := api.Group("/v1")
	v1.Get("/ping", server.GetPing)
	v1.Get(constants.APICheckoutStatusRoute, controllers.HandleCheckoutStatus)
	v1.Post(constants.APIPaymentWebhookRoute, controllers.HandlePaymentWebhook)

	// Internal endpoints behind the admin API key
	v1.Get(constants.APIShopStatsRoute, middleware.APIKeyAuthMiddleware(), server.GetShopStats)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
